package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eringen/blogd/blog"
)

// tx implements blog.Tx over a single *sql.Tx.
type tx struct {
	tx *sql.Tx
}

func interactionTable(kind blog.Kind) (string, error) {
	switch kind {
	case blog.KindLike:
		return "post_likes", nil
	case blog.KindSave:
		return "post_saves", nil
	}
	return "", fmt.Errorf("unknown interaction kind %q", kind)
}

func (t *tx) exists(ctx context.Context, query string, id int64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *tx) PostExists(ctx context.Context, postID int64) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID)
}

func (t *tx) CategoryExists(ctx context.Context, categoryID int64) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM categories WHERE id = ?`, categoryID)
}

func (t *tx) DeleteInteraction(ctx context.Context, kind blog.Kind, postID, userID int64) (bool, error) {
	table, err := interactionTable(kind)
	if err != nil {
		return false, err
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *tx) InsertInteraction(ctx context.Context, kind blog.Kind, postID, userID int64) error {
	table, err := interactionTable(kind)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO `+table+` (post_id, user_id) VALUES (?, ?) ON CONFLICT (post_id, user_id) DO NOTHING`, postID, userID)
	return err
}

func (t *tx) InsertComment(ctx context.Context, c *blog.Comment) error {
	var created string
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO post_comments (post_id, user_id, text) VALUES (?, ?, ?) RETURNING id, created_at`,
		c.PostID, c.UserID, c.Text).Scan(&c.ID, &created)
	if err != nil {
		return err
	}
	c.CreatedAt = parseTime(created)
	return nil
}

func (t *tx) InsertPost(ctx context.Context, p *blog.Post) error {
	var created string
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO posts (user_id, category_id, title, description, main_image) VALUES (?, ?, ?, ?, NULL) RETURNING id, created_at`,
		p.UserID, p.CategoryID, p.Title, p.Description).Scan(&p.ID, &created)
	if err != nil {
		return err
	}
	p.CreatedAt = parseTime(created)
	return nil
}

func (t *tx) InsertPostImage(ctx context.Context, img *blog.PostImage) error {
	var path sql.NullString
	if img.Image != nil {
		path = sql.NullString{String: *img.Image, Valid: true}
	}
	return t.tx.QueryRowContext(ctx,
		`INSERT INTO post_images (post_id, image) VALUES (?, ?) RETURNING id`, img.PostID, path).Scan(&img.ID)
}

func (t *tx) SetPostMainImage(ctx context.Context, postID int64, path string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE posts SET main_image = ? WHERE id = ?`, path, postID)
	return err
}
