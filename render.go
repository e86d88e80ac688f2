package blogd

import (
	"github.com/labstack/echo/v4"
)

// messageResponse is the body of every mutating endpoint.
type messageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
	Active  *bool  `json:"active,omitempty"`
}

// message writes {"message": msg} with the given status code.
func message(c echo.Context, code int, msg string) error {
	return c.JSON(code, messageResponse{Message: msg})
}

// created writes {"message": msg, "id": id}.
func created(c echo.Context, code int, msg string, id int64) error {
	return c.JSON(code, messageResponse{Message: msg, ID: id})
}
