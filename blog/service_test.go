package blog_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/blogd/blog"
	"github.com/eringen/blogd/media"
	"github.com/eringen/blogd/store"
)

type fixture struct {
	svc      *blog.Service
	store    *store.Store
	files    *media.FileStore
	mediaDir string
	author   *blog.User
	reader   *blog.User
	category *blog.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := store.New(ctx, filepath.Join(dir, "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mediaDir := filepath.Join(dir, "media")
	files, err := media.NewFileStore(mediaDir, 0)
	require.NoError(t, err)

	author := &blog.User{Username: "editor", PasswordHash: "x", Role: blog.RoleEmployee}
	require.NoError(t, s.CreateUser(ctx, author))
	reader := &blog.User{Username: "reader", PasswordHash: "x", Role: blog.RoleUser}
	require.NoError(t, s.CreateUser(ctx, reader))
	cat, err := s.CreateCategory(ctx, "general")
	require.NoError(t, err)

	return &fixture{
		svc:      blog.NewService(s, files),
		store:    s,
		files:    files,
		mediaDir: mediaDir,
		author:   author,
		reader:   reader,
		category: cat,
	}
}

func pngUpload(t *testing.T, name string) blog.Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return blog.Upload{Filename: name, Content: &buf}
}

func (f *fixture) createPost(t *testing.T, images ...string) *blog.Post {
	t.Helper()
	main := pngUpload(t, "cover.png")
	in := blog.NewPost{
		AuthorID:    f.author.ID,
		Title:       "Hello",
		Description: "World",
		CategoryID:  f.category.ID,
		MainImage:   &main,
	}
	for _, name := range images {
		in.Images = append(in.Images, pngUpload(t, name))
	}
	p, err := f.svc.CreatePost(context.Background(), in)
	require.NoError(t, err)
	return p
}

func TestToggleUnknownPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Toggle(ctx, blog.KindLike, 999, f.reader.ID)
	assert.ErrorIs(t, err, blog.ErrPostNotFound)
	_, err = f.svc.Toggle(ctx, blog.KindSave, 999, f.reader.ID)
	assert.ErrorIs(t, err, blog.ErrPostNotFound)
	_, err = f.svc.CreateComment(ctx, 999, f.reader.ID, "hi")
	assert.ErrorIs(t, err, blog.ErrPostNotFound)
	err = f.svc.EditComment(ctx, 999, f.reader.ID, "hi")
	assert.ErrorIs(t, err, blog.ErrPostNotFound)
}

func TestToggleAlternates(t *testing.T) {
	for _, kind := range []blog.Kind{blog.KindLike, blog.KindSave} {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			p := f.createPost(t)

			want := []blog.Outcome{blog.Created, blog.Removed, blog.Created}
			for i, w := range want {
				got, err := f.svc.Toggle(ctx, kind, p.ID, f.reader.ID)
				require.NoError(t, err)
				assert.Equal(t, w, got, "call %d", i+1)
			}
			n, err := f.store.CountInteractions(ctx, kind, p.ID, f.reader.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestToggleKindsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPost(t)

	_, err := f.svc.Toggle(ctx, blog.KindLike, p.ID, f.reader.ID)
	require.NoError(t, err)
	got, err := f.svc.Toggle(ctx, blog.KindSave, p.ID, f.reader.ID)
	require.NoError(t, err)
	assert.Equal(t, blog.Created, got)
}

func TestToggleConcurrentNeverDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPost(t)

	const workers = 9
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Toggle(ctx, blog.KindLike, p.ID, f.reader.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("toggle failed: %v", err)
	}

	n, err := f.store.CountInteractions(ctx, blog.KindLike, p.ID, f.reader.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 1)
	assert.Equal(t, workers%2, n)
}

func TestCreateCommentAppendOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPost(t)

	c1, err := f.svc.CreateComment(ctx, p.ID, f.reader.ID, "same text")
	require.NoError(t, err)
	c2, err := f.svc.CreateComment(ctx, p.ID, f.reader.ID, "same text")
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)

	d, err := f.store.GetPostDetail(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, d.Comments, 2)
	assert.Equal(t, "same text", d.Comments[0].Text)
	assert.Equal(t, "same text", d.Comments[1].Text)
}

func TestCreateCommentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPost(t)

	_, err := f.svc.CreateComment(ctx, p.ID, f.reader.ID, "   ")
	assert.ErrorIs(t, err, blog.ErrEmptyComment)
	_, err = f.svc.CreateComment(ctx, p.ID, f.reader.ID, strings.Repeat("a", blog.MaxCommentLength+1))
	assert.ErrorIs(t, err, blog.ErrCommentTooLong)

	c, err := f.svc.CreateComment(ctx, p.ID, f.reader.ID, "  padded  ")
	require.NoError(t, err)
	assert.Equal(t, "padded", c.Text)
}

func TestEditCommentIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPost(t)
	_, err := f.svc.CreateComment(ctx, p.ID, f.reader.ID, "original")
	require.NoError(t, err)

	err = f.svc.EditComment(ctx, p.ID, f.reader.ID, "changed")
	assert.ErrorIs(t, err, blog.ErrUnimplemented)

	d, err := f.store.GetPostDetail(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, d.Comments, 1)
	assert.Equal(t, "original", d.Comments[0].Text)
}

func TestCreatePostWithImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.createPost(t, "a.png", "b.png")
	require.NotNil(t, p.MainImage)

	d, err := f.store.GetPostDetail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", d.Title)
	assert.Equal(t, "World", d.Description)
	assert.Equal(t, f.category.ID, d.Category.ID)
	require.NotNil(t, d.MainImage)
	assert.Equal(t, *p.MainImage, *d.MainImage)
	assert.True(t, strings.HasPrefix(*d.MainImage, media.PostDir(p.ID, blog.FolderMain)))

	require.Len(t, d.Images, 2)
	for _, img := range d.Images {
		require.NotNil(t, img.Image)
		assert.True(t, strings.HasPrefix(*img.Image, media.PostDir(p.ID, blog.FolderImages)))
		_, err := os.Stat(filepath.Join(f.mediaDir, filepath.FromSlash(*img.Image)))
		assert.NoError(t, err)
	}

	posts, err := f.store.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestCreatePostWithoutExtraImages(t *testing.T) {
	f := newFixture(t)
	p := f.createPost(t)

	d, err := f.store.GetPostDetail(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NotNil(t, d.MainImage)
	assert.Empty(t, d.Images)
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	main := pngUpload(t, "cover.png")

	tests := []struct {
		name string
		in   blog.NewPost
		want error
	}{
		{"missing title", blog.NewPost{Description: "d", CategoryID: f.category.ID, MainImage: &main}, blog.ErrMissingTitle},
		{"missing description", blog.NewPost{Title: "t", CategoryID: f.category.ID, MainImage: &main}, blog.ErrMissingDescription},
		{"missing main image", blog.NewPost{Title: "t", Description: "d", CategoryID: f.category.ID}, blog.ErrMissingMainImage},
		{"unknown category", blog.NewPost{Title: "t", Description: "d", CategoryID: 404, MainImage: &main}, blog.ErrCategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.AuthorID = f.author.ID
			_, err := f.svc.CreatePost(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	posts, err := f.store.ListPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestCreatePostInvalidImageLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	main := pngUpload(t, "cover.png")

	_, err := f.svc.CreatePost(ctx, blog.NewPost{
		AuthorID:    f.author.ID,
		Title:       "Hello",
		Description: "World",
		CategoryID:  f.category.ID,
		MainImage:   &main,
		Images: []blog.Upload{
			pngUpload(t, "a.png"),
			{Filename: "b.png", Content: strings.NewReader("not an image")},
		},
	})
	require.ErrorIs(t, err, blog.ErrInvalidImage)

	posts, err := f.store.ListPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	entries, _ := os.ReadDir(filepath.Join(f.mediaDir, "posts"))
	assert.Empty(t, entries)
	staged, _ := os.ReadDir(filepath.Join(f.mediaDir, media.StagingDir))
	assert.Empty(t, staged)
}

// hookedFiles wraps the real file store so tests can fail a placement or
// run code while uploads are staged or discarded.
type hookedFiles struct {
	files     *media.FileStore
	failPlace string
	onStage   func()
	onDiscard func()
}

func (h *hookedFiles) Stage(ctx context.Context, filename string, r io.Reader) (blog.StagedFile, error) {
	if fn := h.onStage; fn != nil {
		h.onStage = nil
		fn()
	}
	sf, err := h.files.Stage(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	return &hookedFile{StagedFile: sf, parent: h, filename: filename}, nil
}

type hookedFile struct {
	blog.StagedFile
	parent   *hookedFiles
	filename string
}

func (f *hookedFile) Place(postID int64, folder blog.Folder) (string, error) {
	if f.filename == f.parent.failPlace {
		return "", errors.New("disk full")
	}
	return f.StagedFile.Place(postID, folder)
}

func (f *hookedFile) Discard() error {
	if fn := f.parent.onDiscard; fn != nil {
		f.parent.onDiscard = nil
		fn()
	}
	return f.StagedFile.Discard()
}

func TestCreatePostCleanupSparesPostThatReusesID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hooks := &hookedFiles{files: f.files, failPlace: "b.png"}
	svc := blog.NewService(f.store, hooks)

	var other *blog.Post
	hooks.onDiscard = func() {
		// the failed post's id was rolled back, so this post gets it
		main := pngUpload(t, "other-cover.png")
		p, err := svc.CreatePost(ctx, blog.NewPost{
			AuthorID:    f.author.ID,
			Title:       "Other",
			Description: "Committed while the first upload cleans up",
			CategoryID:  f.category.ID,
			MainImage:   &main,
		})
		require.NoError(t, err)
		other = p
	}

	main := pngUpload(t, "cover.png")
	_, err := svc.CreatePost(ctx, blog.NewPost{
		AuthorID:    f.author.ID,
		Title:       "Hello",
		Description: "World",
		CategoryID:  f.category.ID,
		MainImage:   &main,
		Images:      []blog.Upload{pngUpload(t, "a.png"), pngUpload(t, "b.png")},
	})
	require.ErrorIs(t, err, blog.ErrStorage)
	require.NotNil(t, other)

	d, err := f.store.GetPostDetail(ctx, other.ID)
	require.NoError(t, err)
	require.NotNil(t, d.MainImage)
	_, err = os.Stat(filepath.Join(f.mediaDir, filepath.FromSlash(*d.MainImage)))
	assert.NoError(t, err, "committed post keeps its main image")

	var onDisk []string
	filepath.WalkDir(filepath.Join(f.mediaDir, "posts"), func(path string, e os.DirEntry, err error) error {
		if err == nil && !e.IsDir() {
			onDisk = append(onDisk, path)
		}
		return nil
	})
	assert.Len(t, onDisk, 1, "only the committed post's file remains")
	staged, _ := os.ReadDir(filepath.Join(f.mediaDir, media.StagingDir))
	assert.Empty(t, staged)
}

func TestCreatePostStagesOutsideWriteTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.createPost(t)

	hooks := &hookedFiles{files: f.files}
	svc := blog.NewService(f.store, hooks)

	var toggleErr error
	hooks.onStage = func() {
		// a write from another request while the upload is being decoded
		tctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, toggleErr = f.svc.Toggle(tctx, blog.KindLike, existing.ID, f.reader.ID)
	}

	main := pngUpload(t, "cover.png")
	_, err := svc.CreatePost(ctx, blog.NewPost{
		AuthorID:    f.author.ID,
		Title:       "Second",
		Description: "Post",
		CategoryID:  f.category.ID,
		MainImage:   &main,
	})
	require.NoError(t, err)
	assert.NoError(t, toggleErr)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestCreatePostStorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, blog.NewPost{
		AuthorID:    f.author.ID,
		Title:       "Hello",
		Description: "World",
		CategoryID:  f.category.ID,
		MainImage:   &blog.Upload{Filename: "cover.png", Content: io.Reader(failingReader{})},
	})
	require.ErrorIs(t, err, blog.ErrStorage)

	posts, err := f.store.ListPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, blog.RoleUser.Can(blog.CapInteract))
	assert.False(t, blog.RoleUser.Can(blog.CapCreatePost))
	assert.True(t, blog.RoleEmployee.Can(blog.CapCreatePost))
	assert.False(t, blog.Role("admin").Valid())

	var nobody *blog.User
	assert.False(t, nobody.Can(blog.CapInteract))
}
