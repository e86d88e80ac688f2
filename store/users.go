package store

import (
	"context"

	"github.com/eringen/blogd/blog"
)

// CreateUser inserts a user. PasswordHash must already be hashed.
func (s *Store) CreateUser(ctx context.Context, u *blog.User) error {
	if !u.Role.Valid() {
		u.Role = blog.RoleUser
	}
	var created string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?) RETURNING id, created_at`,
		u.Username, u.PasswordHash, string(u.Role)).Scan(&u.ID, &created)
	if isUniqueViolation(err) {
		return blog.ErrUsernameTaken
	}
	if err != nil {
		return err
	}
	u.CreatedAt = parseTime(created)
	return nil
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*blog.User, error) {
	var u blog.User
	var role, created string
	err := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, role, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &created)
	if err != nil {
		return nil, notFound(err, blog.ErrUserNotFound)
	}
	u.Role = blog.Role(role)
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// GetUserByID returns a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*blog.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByUsername returns a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*blog.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// SetUserRole changes a user's role.
func (s *Store) SetUserRole(ctx context.Context, id int64, role blog.Role) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return blog.ErrUserNotFound
	}
	return nil
}
