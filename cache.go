package blogd

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/blogd/blog"
)

// PostCache is an in-memory cache of the post index and categories with TTL.
// Post details are always read from the store since their likes, saves and
// comments change on every interaction.
type PostCache struct {
	mu         sync.RWMutex
	posts      []blog.PostSummary
	categories []blog.Category
	fetched    time.Time
	ttl        time.Duration
	src        blog.Reader
}

// NewPostCache creates a PostCache backed by the given reader.
func NewPostCache(src blog.Reader, ttl time.Duration) *PostCache {
	return &PostCache{src: src, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.categories = nil
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.src.ListPosts(ctx)
	if err != nil {
		return err
	}
	categories, err := c.src.ListCategories(ctx)
	if err != nil {
		return err
	}
	c.posts = posts
	c.categories = categories
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached posts and categories after ensuring the cache
// is fresh. It tries a read lock first; only takes a write lock if a reload
// is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]blog.PostSummary, []blog.Category, error) {
	c.mu.RLock()
	if c.valid() {
		posts, categories := c.posts, c.categories
		c.mu.RUnlock()
		return posts, categories, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.categories, nil
}

// ListPosts returns the post index, filtered to one category when
// categoryID is non-zero.
func (c *PostCache) ListPosts(ctx context.Context, categoryID int64) ([]blog.PostSummary, error) {
	posts, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if categoryID == 0 {
		return posts, nil
	}
	filtered := []blog.PostSummary{}
	for _, p := range posts {
		if p.Category.ID == categoryID {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// ListCategories returns all categories.
func (c *PostCache) ListCategories(ctx context.Context) ([]blog.Category, error) {
	_, categories, err := c.ensureLoaded(ctx)
	return categories, err
}
