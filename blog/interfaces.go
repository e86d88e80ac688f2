package blog

import (
	"context"
	"io"
)

// Tx is a request-scoped transaction handle on the content store. Every
// mutation the service performs goes through one.
type Tx interface {
	PostExists(ctx context.Context, postID int64) (bool, error)
	CategoryExists(ctx context.Context, categoryID int64) (bool, error)

	// DeleteInteraction removes the (post, user) row of the given kind and
	// reports whether one existed.
	DeleteInteraction(ctx context.Context, kind Kind, postID, userID int64) (bool, error)
	// InsertInteraction adds the (post, user) row of the given kind. It is a
	// no-op when the row already exists.
	InsertInteraction(ctx context.Context, kind Kind, postID, userID int64) error

	InsertComment(ctx context.Context, c *Comment) error
	InsertPost(ctx context.Context, p *Post) error
	InsertPostImage(ctx context.Context, img *PostImage) error
	SetPostMainImage(ctx context.Context, postID int64, path string) error
}

// Repository is the content store seen by the service.
// InTx commits when fn returns nil and rolls back otherwise.
type Repository interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Reader serves the read-only endpoints.
type Reader interface {
	ListPosts(ctx context.Context) ([]PostSummary, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetPostDetail(ctx context.Context, postID int64) (*PostDetail, error)
}

// Folder selects where inside a post's directory a file is stored.
type Folder int

const (
	FolderMain Folder = iota
	FolderImages
)

// StagedFile is a validated upload written to a staging area. Staging
// happens before the write transaction starts; only Place runs inside it.
type StagedFile interface {
	// Place moves the file under the post's directory and returns the path
	// relative to the store root.
	Place(postID int64, folder Folder) (string, error)
	// Discard deletes this file wherever it currently lives, staged or
	// placed. Nothing else in the post's directory is touched.
	Discard() error
}

// FileStore persists uploaded assets namespaced by post id.
type FileStore interface {
	// Stage decodes r as an image and writes it to a staging name.
	Stage(ctx context.Context, filename string, r io.Reader) (StagedFile, error)
}
