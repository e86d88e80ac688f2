package blogd

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogd/blog"
)

// serviceError converts domain errors to HTTP errors. Unknown errors are
// returned unchanged and end up as a logged 500.
func serviceError(err error) error {
	switch {
	case errors.Is(err, blog.ErrPostNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	case errors.Is(err, blog.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, blog.ErrCategoryNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, "Category not found")
	case errors.Is(err, blog.ErrUsernameTaken),
		errors.Is(err, blog.ErrCategoryExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, blog.ErrEmptyComment),
		errors.Is(err, blog.ErrCommentTooLong),
		errors.Is(err, blog.ErrMissingTitle),
		errors.Is(err, blog.ErrMissingDescription),
		errors.Is(err, blog.ErrMissingMainImage),
		errors.Is(err, blog.ErrMissingCategory),
		errors.Is(err, blog.ErrInvalidImage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, blog.ErrUnimplemented):
		return echo.NewHTTPError(http.StatusNotImplemented, "Comment editing is not implemented")
	case errors.Is(err, blog.ErrStorage):
		return echo.NewHTTPError(http.StatusInternalServerError, "Could not store upload").SetInternal(err)
	}
	return err
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}

	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = message(c, code, msg)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
