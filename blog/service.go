package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxCommentLength is the longest comment text accepted, in runes.
const MaxCommentLength = 5000

// Service implements the content-interaction flows. It holds no request
// state; each call opens its own transaction on the repository.
type Service struct {
	repo  Repository
	files FileStore
}

// NewService creates a Service over the given content and file stores.
func NewService(repo Repository, files FileStore) *Service {
	return &Service{repo: repo, files: files}
}

func requirePost(ctx context.Context, tx Tx, postID int64) error {
	ok, err := tx.PostExists(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPostNotFound
	}
	return nil
}

// Toggle creates the (post, user) relation of the given kind if it is absent
// and removes it if present. The delete and the insert run in the same write
// transaction and the store keeps a unique index on (post, user), so
// concurrent toggles cannot leave duplicate rows.
func (s *Service) Toggle(ctx context.Context, kind Kind, postID, userID int64) (Outcome, error) {
	if kind != KindLike && kind != KindSave {
		return 0, fmt.Errorf("toggle: unknown kind %q", kind)
	}
	var outcome Outcome
	err := s.repo.InTx(ctx, func(tx Tx) error {
		if err := requirePost(ctx, tx, postID); err != nil {
			return err
		}
		removed, err := tx.DeleteInteraction(ctx, kind, postID, userID)
		if err != nil {
			return fmt.Errorf("delete %s: %w", kind, err)
		}
		if removed {
			outcome = Removed
			return nil
		}
		if err := tx.InsertInteraction(ctx, kind, postID, userID); err != nil {
			return fmt.Errorf("insert %s: %w", kind, err)
		}
		outcome = Created
		return nil
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

func normalizeComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyComment
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", ErrCommentTooLong
	}
	return text, nil
}

// CreateComment appends a comment by userID to the post. Identical comments
// are stored as separate records.
func (s *Service) CreateComment(ctx context.Context, postID, userID int64, text string) (*Comment, error) {
	text, err := normalizeComment(text)
	if err != nil {
		return nil, err
	}
	c := &Comment{PostID: postID, UserID: userID, Text: text}
	err = s.repo.InTx(ctx, func(tx Tx) error {
		if err := requirePost(ctx, tx, postID); err != nil {
			return err
		}
		return tx.InsertComment(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// EditComment checks that the post exists and then returns ErrUnimplemented.
// The request names a post, not a comment, so when a user has several
// comments on one post there is no way to tell which one to change.
// TODO: switch the route to a comment id once the targeting key is agreed on.
func (s *Service) EditComment(ctx context.Context, postID, userID int64, text string) error {
	if _, err := normalizeComment(text); err != nil {
		return err
	}
	err := s.repo.InTx(ctx, func(tx Tx) error {
		return requirePost(ctx, tx, postID)
	})
	if err != nil {
		return err
	}
	return ErrUnimplemented
}

func validateNewPost(in *NewPost) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Title == "":
		return ErrMissingTitle
	case in.Description == "":
		return ErrMissingDescription
	case in.MainImage == nil || in.MainImage.Content == nil:
		return ErrMissingMainImage
	}
	return nil
}

// CreatePost stores a post with its main image and any extra images.
//
// Every upload is decoded and written to a staging name first, outside any
// transaction. The transaction then inserts the post to learn its id, moves
// the staged files under that id and records their paths. On any failure
// the files this call staged or placed are discarded by exact path and the
// rows roll back.
func (s *Service) CreatePost(ctx context.Context, in NewPost) (*Post, error) {
	if err := validateNewPost(&in); err != nil {
		return nil, err
	}

	var staged []StagedFile
	discard := func(err error) error {
		for _, f := range staged {
			if dErr := f.Discard(); dErr != nil {
				err = errors.Join(err, fmt.Errorf("discard upload: %w", dErr))
			}
		}
		return err
	}

	mainFile, err := s.stage(ctx, *in.MainImage)
	if err != nil {
		return nil, err
	}
	staged = append(staged, mainFile)
	extras := make([]StagedFile, 0, len(in.Images))
	for _, up := range in.Images {
		f, err := s.stage(ctx, up)
		if err != nil {
			return nil, discard(err)
		}
		staged = append(staged, f)
		extras = append(extras, f)
	}

	post := &Post{
		UserID:      in.AuthorID,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Description: in.Description,
	}
	err = s.repo.InTx(ctx, func(tx Tx) error {
		ok, err := tx.CategoryExists(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCategoryNotFound
		}
		if err := tx.InsertPost(ctx, post); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}

		for i, f := range extras {
			p, err := f.Place(post.ID, FolderImages)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrStorage, in.Images[i].Filename, err)
			}
			if err := tx.InsertPostImage(ctx, &PostImage{PostID: post.ID, Image: &p}); err != nil {
				return fmt.Errorf("insert post image: %w", err)
			}
		}

		mainPath, err := mainFile.Place(post.ID, FolderMain)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrStorage, in.MainImage.Filename, err)
		}
		if err := tx.SetPostMainImage(ctx, post.ID, mainPath); err != nil {
			return fmt.Errorf("set main image: %w", err)
		}
		post.MainImage = &mainPath
		return nil
	})
	if err != nil {
		return nil, discard(err)
	}
	return post, nil
}

func (s *Service) stage(ctx context.Context, up Upload) (StagedFile, error) {
	f, err := s.files.Stage(ctx, up.Filename, up.Content)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			return nil, fmt.Errorf("%s: %w", up.Filename, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrStorage, up.Filename, err)
	}
	return f, nil
}
