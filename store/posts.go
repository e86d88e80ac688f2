package store

import (
	"context"
	"database/sql"

	"github.com/eringen/blogd/blog"
)

const postSummaryColumns = `p.id, p.title, p.description, p.main_image, p.created_at,
	u.id, u.username, c.id, c.name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostSummary(row rowScanner) (blog.PostSummary, error) {
	var p blog.PostSummary
	var mainImage sql.NullString
	var created string
	err := row.Scan(&p.ID, &p.Title, &p.Description, &mainImage, &created,
		&p.User.ID, &p.User.Username, &p.Category.ID, &p.Category.Name)
	if err != nil {
		return blog.PostSummary{}, err
	}
	p.MainImage = nullString(mainImage)
	p.CreatedAt = parseTime(created)
	return p, nil
}

// ListPosts returns every post joined with its author and category, newest
// first.
func (s *Store) ListPosts(ctx context.Context) ([]blog.PostSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postSummaryColumns+`
		FROM posts p
		JOIN users u ON u.id = p.user_id
		JOIN categories c ON c.id = p.category_id
		ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []blog.PostSummary{}
	for rows.Next() {
		p, err := scanPostSummary(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPostDetail returns a post with its images, comments, likes and saves.
func (s *Store) GetPostDetail(ctx context.Context, postID int64) (*blog.PostDetail, error) {
	p, err := scanPostSummary(s.db.QueryRowContext(ctx, `SELECT `+postSummaryColumns+`
		FROM posts p
		JOIN users u ON u.id = p.user_id
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?`, postID))
	if err != nil {
		return nil, notFound(err, blog.ErrPostNotFound)
	}
	d := &blog.PostDetail{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		MainImage:   p.MainImage,
		User:        p.User,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt,
	}
	if d.Images, err = s.listPostImages(ctx, postID); err != nil {
		return nil, err
	}
	if d.Comments, err = s.listComments(ctx, postID); err != nil {
		return nil, err
	}
	if d.Likes, err = s.listInteractions(ctx, blog.KindLike, postID); err != nil {
		return nil, err
	}
	if d.Saves, err = s.listInteractions(ctx, blog.KindSave, postID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) listPostImages(ctx context.Context, postID int64) ([]blog.PostImage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, post_id, image FROM post_images WHERE post_id = ? ORDER BY id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []blog.PostImage{}
	for rows.Next() {
		var img blog.PostImage
		var path sql.NullString
		if err := rows.Scan(&img.ID, &img.PostID, &path); err != nil {
			return nil, err
		}
		img.Image = nullString(path)
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *Store) listComments(ctx context.Context, postID int64) ([]blog.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.post_id, c.text, c.created_at, u.id, u.username
		FROM post_comments c JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ? ORDER BY c.id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []blog.Comment{}
	for rows.Next() {
		var c blog.Comment
		var created string
		if err := rows.Scan(&c.ID, &c.PostID, &c.Text, &created, &c.User.ID, &c.User.Username); err != nil {
			return nil, err
		}
		c.UserID = c.User.ID
		c.CreatedAt = parseTime(created)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Store) listInteractions(ctx context.Context, kind blog.Kind, postID int64) ([]blog.Interaction, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT i.id, i.post_id, u.id, u.username
		FROM `+table+` i JOIN users u ON u.id = i.user_id
		WHERE i.post_id = ? ORDER BY i.id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []blog.Interaction{}
	for rows.Next() {
		var in blog.Interaction
		if err := rows.Scan(&in.ID, &in.PostID, &in.User.ID, &in.User.Username); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CountInteractions returns how many rows of kind exist for (post, user).
func (s *Store) CountInteractions(ctx context.Context, kind blog.Kind, postID, userID int64) (int, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE post_id = ? AND user_id = ?`, postID, userID).Scan(&n)
	return n, err
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]blog.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []blog.Category{}
	for rows.Next() {
		var c blog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category. Names are unique.
func (s *Store) CreateCategory(ctx context.Context, name string) (*blog.Category, error) {
	c := &blog.Category{Name: name}
	err := s.db.QueryRowContext(ctx, `INSERT INTO categories (name) VALUES (?) RETURNING id`, name).Scan(&c.ID)
	if isUniqueViolation(err) {
		return nil, blog.ErrCategoryExists
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeletePost removes a post; its images, comments, likes and saves cascade.
func (s *Store) DeletePost(ctx context.Context, postID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, postID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return blog.ErrPostNotFound
	}
	return nil
}
