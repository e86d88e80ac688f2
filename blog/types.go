// Package blog holds the domain types of the blogging backend and the
// interaction service that toggles likes and saves, writes comments and
// orchestrates post creation with image uploads.
package blog

import (
	"io"
	"time"
)

// Role is the role carried by a user record.
type Role string

const (
	RoleUser     Role = "user"
	RoleEmployee Role = "employee"
)

// Capability is an action a resolved identity may be allowed to perform.
type Capability string

const (
	CapInteract   Capability = "interact"
	CapCreatePost Capability = "create_post"
)

var roleCapabilities = map[Role][]Capability{
	RoleUser:     {CapInteract},
	RoleEmployee: {CapInteract, CapCreatePost},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role grants capability c.
func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

// User is an account that can authenticate against the API.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Can reports whether the user's role grants capability c.
func (u *User) Can(c Capability) bool {
	return u != nil && u.Role.Can(c)
}

// UserRef is the public projection of a user embedded in other resources.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Post is a blog post. MainImage stays nil until its upload is finalized.
type Post struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CategoryID  int64     `json:"category_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MainImage   *string   `json:"main_image"`
	CreatedAt   time.Time `json:"created_at"`
}

type PostImage struct {
	ID     int64   `json:"id"`
	PostID int64   `json:"post_id"`
	Image  *string `json:"image"`
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"-"`
	Text      string    `json:"text"`
	User      UserRef   `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Interaction is a like or a save row.
type Interaction struct {
	ID     int64   `json:"id"`
	PostID int64   `json:"post_id"`
	User   UserRef `json:"user"`
}

// PostSummary is a post as listed on the index, joined with its author and
// category.
type PostSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MainImage   *string   `json:"main_image"`
	User        UserRef   `json:"user"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostDetail is a post with everything attached to it.
type PostDetail struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	MainImage   *string       `json:"main_image"`
	User        UserRef       `json:"user"`
	Category    Category      `json:"category"`
	CreatedAt   time.Time     `json:"created_at"`
	Images      []PostImage   `json:"images"`
	Comments    []Comment     `json:"comments"`
	Likes       []Interaction `json:"likes"`
	Saves       []Interaction `json:"saves"`
}

// Kind selects which toggle relation an operation works on.
type Kind string

const (
	KindLike Kind = "like"
	KindSave Kind = "save"
)

// Label is the capitalized noun used in response messages.
func (k Kind) Label() string {
	switch k {
	case KindLike:
		return "Like"
	case KindSave:
		return "Save"
	}
	return string(k)
}

// Outcome reports what a toggle did.
type Outcome int

const (
	Created Outcome = iota + 1
	Removed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Upload is an uploaded file handed to the service.
type Upload struct {
	Filename string
	Content  io.Reader
}

// NewPost is the input to Service.CreatePost.
type NewPost struct {
	AuthorID    int64
	Title       string
	Description string
	CategoryID  int64
	MainImage   *Upload
	Images      []Upload
}
