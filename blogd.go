// Package blogd is a blogging backend built with Go, Echo, and SQLite.
// It serves posts, categories, comments, likes, saves and image uploads
// as a JSON API.
//
// The interaction logic lives in package blog, persistence in package
// store and uploaded files in package media; this package wires them
// together behind HTTP handlers, middleware and caller identity.
package blogd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogd/blog"
	"github.com/eringen/blogd/media"
	"github.com/eringen/blogd/store"
)

// App is the central blogd application. It wires together the store,
// file store, interaction service, cache, handlers and middleware.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Store   *store.Store
	Files   *media.FileStore
	Service *blog.Service
	Cache   *PostCache
	Tokens  *TokenIssuer

	loginLimiter *LoginLimiter
	customRoutes []func(*App)
}

// New creates a new App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the stores and registers middleware and routes. Start calls
// it; tests call it directly and drive a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if err := a.Config.validate(); err != nil {
		return err
	}

	a.Echo.Logger.SetLevel(parseLogLevel(a.Config.LogLevel))

	st, err := store.New(ctx, a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("blogd: init store: %w", err)
	}
	a.Store = st

	files, err := media.NewFileStore(a.Config.MediaDir, a.Config.MaxImageWidth)
	if err != nil {
		st.Close()
		return fmt.Errorf("blogd: init media: %w", err)
	}
	a.Files = files

	a.Service = blog.NewService(a.Store, a.Files)
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.Tokens = NewTokenIssuer(a.Config.TokenSecret, a.Config.URL, a.Config.TokenTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}

	a.Echo.Server.ReadHeaderTimeout = 10 * time.Second
	a.Echo.Server.ReadTimeout = a.Config.RequestTimeout
	a.Echo.Server.WriteTimeout = a.Config.RequestTimeout + 5*time.Second
	a.Echo.Logger.Infof("blogd listening on %s", a.Config.Addr)

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/media", a.Config.MediaDir)

	e.POST("/auth/register", a.handleRegister)
	e.POST("/auth/login", a.handleLogin)
	e.POST("/auth/logout", handleLogout)
	e.GET("/auth/me", a.handleMe, a.require(blog.CapInteract))

	e.GET("/blogs/posts", a.handleListPosts)
	e.GET("/blogs/posts/:id", a.handleGetPost)
	e.GET("/blogs/feed.xml", a.handleFeed)

	e.POST("/blogs/post", a.handleCreatePost, a.require(blog.CapCreatePost))
	e.POST("/blogs/category", a.handleCreateCategory, a.require(blog.CapCreatePost))

	e.POST("/blogs/like/:post_id", a.handleToggle(blog.KindLike), a.require(blog.CapInteract))
	e.POST("/blogs/save/:post_id", a.handleToggle(blog.KindSave), a.require(blog.CapInteract))
	e.POST("/blogs/comment/:post_id", a.handleCreateComment, a.require(blog.CapInteract))
	e.PATCH("/blogs/change_comment/:post_id", a.handleChangeComment, a.require(blog.CapInteract))
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
