package blog

import "errors"

var (
	// ErrPostNotFound indicates the referenced post doesn't exist
	ErrPostNotFound = errors.New("post not found")

	// ErrCategoryNotFound indicates a post references an unknown category
	ErrCategoryNotFound = errors.New("category not found")

	// ErrCategoryExists indicates a category name is already in use
	ErrCategoryExists = errors.New("category already exists")

	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")

	ErrEmptyComment       = errors.New("comment text is required")
	ErrCommentTooLong     = errors.New("comment text is too long")
	ErrMissingTitle       = errors.New("title is required")
	ErrMissingDescription = errors.New("description is required")
	ErrMissingMainImage   = errors.New("main image is required")
	ErrMissingCategory    = errors.New("category name is required")

	// ErrInvalidImage indicates an upload could not be decoded as an image
	ErrInvalidImage = errors.New("invalid image")

	// ErrStorage wraps file store failures during an upload
	ErrStorage = errors.New("storage failure")

	// ErrUnimplemented is returned by operations that have no agreed behavior yet
	ErrUnimplemented = errors.New("not implemented")
)
