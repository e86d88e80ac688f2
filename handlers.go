package blogd

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogd/blog"
)

type postListResponse struct {
	Posts      []blog.PostSummary `json:"posts"`
	Categories []blog.Category    `json:"categories"`
}

type commentRequest struct {
	Text string `json:"text" form:"text"`
}

type categoryRequest struct {
	Name string `json:"name" form:"name"`
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func (a *App) handleListPosts(c echo.Context) error {
	var category int64
	if v := c.QueryParam("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid category")
		}
		category = id
	}
	ctx := c.Request().Context()
	posts, err := a.Cache.ListPosts(ctx, category)
	if err != nil {
		return err
	}
	categories, err := a.Cache.ListCategories(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, postListResponse{Posts: posts, Categories: categories})
}

func (a *App) handleGetPost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.Store.GetPostDetail(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), 0)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

// handleToggle flips a like or save. Creating answers 201, removing
// answers 200; both are successful outcomes.
func (a *App) handleToggle(kind blog.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		postID, err := pathID(c, "post_id")
		if err != nil {
			return err
		}
		outcome, err := a.Service.Toggle(c.Request().Context(), kind, postID, CurrentUser(c).ID)
		if err != nil {
			return serviceError(err)
		}
		active := outcome == blog.Created
		if active {
			return c.JSON(http.StatusCreated, messageResponse{Message: kind.Label() + " Created!", Active: &active})
		}
		return c.JSON(http.StatusOK, messageResponse{Message: kind.Label() + " is Deleted", Active: &active})
	}
}

func (a *App) handleCreateComment(c echo.Context) error {
	postID, err := pathID(c, "post_id")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	comment, err := a.Service.CreateComment(c.Request().Context(), postID, CurrentUser(c).ID, req.Text)
	if err != nil {
		return serviceError(err)
	}
	return created(c, http.StatusCreated, "Comment Wrote!", comment.ID)
}

func (a *App) handleChangeComment(c echo.Context) error {
	postID, err := pathID(c, "post_id")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return serviceError(a.Service.EditComment(c.Request().Context(), postID, CurrentUser(c).ID, req.Text))
}

func (a *App) handleCreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return serviceError(blog.ErrMissingCategory)
	}
	cat, err := a.Store.CreateCategory(c.Request().Context(), name)
	if err != nil {
		return serviceError(err)
	}
	a.Cache.Invalidate()
	return created(c, http.StatusCreated, "Category Created!", cat.ID)
}

// handleCreatePost accepts multipart/form-data with title, description,
// category_id, a main_image file and any number of images files.
func (a *App) handleCreatePost(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Expected multipart form data")
	}
	categoryID, err := strconv.ParseInt(c.FormValue("category_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid category_id")
	}

	in := blog.NewPost{
		AuthorID:    CurrentUser(c).ID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		CategoryID:  categoryID,
	}

	mains := form.File["main_image"]
	if len(mains) == 0 {
		return serviceError(blog.ErrMissingMainImage)
	}
	var closers []multipart.File
	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()
	open := func(fh *multipart.FileHeader) (blog.Upload, error) {
		if fh.Size > a.Config.MaxUploadSize {
			return blog.Upload{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File too large: "+fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return blog.Upload{}, err
		}
		closers = append(closers, f)
		return blog.Upload{Filename: fh.Filename, Content: f}, nil
	}

	main, err := open(mains[0])
	if err != nil {
		return err
	}
	in.MainImage = &main
	for _, fh := range form.File["images"] {
		up, err := open(fh)
		if err != nil {
			return err
		}
		in.Images = append(in.Images, up)
	}

	post, err := a.Service.CreatePost(c.Request().Context(), in)
	if err != nil {
		return serviceError(err)
	}
	a.Cache.Invalidate()
	return created(c, http.StatusCreated, "Created!", post.ID)
}
