package blogd

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/blogd/blog"
)

const userContextKey = "blogd.user"

// tokenClaims are the claims carried by bearer tokens. The role is
// informational; the authoritative role is re-read from the store on every
// request.
type tokenClaims struct {
	jwt.RegisteredClaims
	Username string    `json:"name"`
	Role     blog.Role `json:"role"`
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer. issuer is written to and required in
// the iss claim.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue returns a signed token for u.
func (t *TokenIssuer) Issue(u *blog.User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Username: u.Username,
		Role:     u.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies a token and returns the user id in its subject.
func (t *TokenIssuer) Parse(token string) (int64, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return id, nil
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// sessionUserID returns the user id stored in the cookie session, or 0.
func sessionUserID(c echo.Context) int64 {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return 0
	}
	id, _ := sess.Values["user_id"].(int64)
	return id
}

func setUserSession(c echo.Context, userID int64) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["user_id"] = userID
	return sess.Save(c.Request(), c.Response())
}

func clearUserSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, "user_id")
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// authenticate resolves the caller from a bearer token, falling back to the
// cookie session, and stores the user record on the context. Anonymous
// requests pass through; a token that fails verification is rejected.
func (a *App) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var userID int64
		if tok := bearerToken(c); tok != "" {
			id, err := a.Tokens.Parse(tok)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token").SetInternal(err)
			}
			userID = id
		} else {
			userID = sessionUserID(c)
		}
		if userID == 0 {
			return next(c)
		}

		u, err := a.Store.GetUserByID(c.Request().Context(), userID)
		if errors.Is(err, blog.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unknown user")
		}
		if err != nil {
			return err
		}
		c.Set(userContextKey, u)
		return next(c)
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c echo.Context) *blog.User {
	u, _ := c.Get(userContextKey).(*blog.User)
	return u
}

// require rejects callers that are anonymous (401) or whose role lacks the
// capability (403).
func (a *App) require(capability blog.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			if !u.Can(capability) {
				return echo.NewHTTPError(http.StatusForbidden, "Not allowed")
			}
			return next(c)
		}
	}
}
