// Package media stores uploaded post images on the local filesystem.
//
// Files live under <root>/posts/<post id>/ for a post's main image and
// <root>/posts/<post id>/images/ for the rest. Uploads are first written to
// <root>/.staging/ and renamed into place once the post id is known. Every stored name carries a
// random suffix so two uploads with the same filename never collide.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/eringen/blogd/blog"
)

const postsDir = "posts"

// StagingDir holds uploads that are not yet attached to a post.
const StagingDir = ".staging"

// FileStore implements blog.FileStore on a directory.
type FileStore struct {
	root     string
	maxWidth int
}

// NewFileStore creates the root directory if needed. Images wider than
// maxWidth are downscaled on write; zero keeps every image as uploaded.
func NewFileStore(root string, maxWidth int) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &FileStore{root: root, maxWidth: maxWidth}, nil
}

// PostDir returns the relative directory holding a post's files.
func PostDir(postID int64, folder blog.Folder) string {
	dir := path.Join(postsDir, strconv.FormatInt(postID, 10))
	if folder == blog.FolderImages {
		dir = path.Join(dir, "images")
	}
	return dir + "/"
}

// Stage validates the upload as an image and writes it under the staging
// directory. The returned file is moved into a post's directory by Place.
func (s *FileStore) Stage(ctx context.Context, filename string, r io.Reader) (blog.StagedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := processImage(r, s.maxWidth)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, StagingDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "upload-*"+img.ext)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	if _, err := tmp.Write(img.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close image: %w", err)
	}
	return &stagedFile{root: s.root, name: storedName(filename, img.ext), path: tmp.Name()}, nil
}

// stagedFile tracks one upload from the staging directory to its final
// place. path is always where the bytes currently are.
type stagedFile struct {
	root string
	name string
	path string
}

func (f *stagedFile) Place(postID int64, folder blog.Folder) (string, error) {
	relDir := PostDir(postID, folder)
	absDir := filepath.Join(f.root, filepath.FromSlash(relDir))
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create post dir: %w", err)
	}
	dst := filepath.Join(absDir, f.name)
	if err := os.Rename(f.path, dst); err != nil {
		return "", fmt.Errorf("move image into place: %w", err)
	}
	f.path = dst
	return relDir + f.name, nil
}

func (f *stagedFile) Discard() error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// RemovePost deletes the post's directory and everything in it.
func (s *FileStore) RemovePost(postID int64) error {
	dir := filepath.Join(s.root, postsDir, strconv.FormatInt(postID, 10))
	return os.RemoveAll(dir)
}

// storedName derives a URL-safe file name from the uploaded name and
// appends a short random suffix.
func storedName(original, ext string) string {
	base := Slugify(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	if base == "" {
		base = "image"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return base + "-" + suffix + ext
}

// Slugify converts a string to a lowercase, dash-separated slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
