package blogd

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/blogd/blog"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// dummyHash is compared against when the username is unknown so that
// lookups for missing and existing users take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("blogd-dummy-password"), bcrypt.DefaultCost)

type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  *blog.User `json:"user"`
}

// HashPassword returns the bcrypt hash stored for a user's password.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", errPasswordTooShort
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

var (
	errPasswordTooShort = errors.New("password must be at least 8 characters")
	errInvalidUsername  = errors.New("username must be 3-32 characters of a-z, 0-9 or _")
)

// NormalizeUsername lowercases and validates a username.
func NormalizeUsername(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !usernamePattern.MatchString(s) {
		return "", errInvalidUsername
	}
	return s, nil
}

func (a *App) handleRegister(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	username, err := NormalizeUsername(req.Username)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, errPasswordTooShort) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	u := &blog.User{Username: username, PasswordHash: hash, Role: blog.RoleUser}
	if err := a.Store.CreateUser(c.Request().Context(), u); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	u, err := a.Store.GetUserByUsername(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil && !errors.Is(err, blog.ErrUserNotFound) {
		return err
	}
	hash := dummyHash
	if u != nil {
		hash = []byte(u.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || u == nil {
		a.loginLimiter.Record(ip)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid username or password")
	}

	token, err := a.Tokens.Issue(u)
	if err != nil {
		return err
	}
	if err := setUserSession(c, u.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

func handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Logged out")
}

func (a *App) handleMe(c echo.Context) error {
	return c.JSON(http.StatusOK, CurrentUser(c))
}
