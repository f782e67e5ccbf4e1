package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

var errInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
}

// issueToken signs an HS256 access token for userID
func (s *Server) issueToken(userID int64) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	})
	return token.SignedString([]byte(s.opts.JWTSecret))
}

// parseToken returns the user id carried by a valid token
func (s *Server) parseToken(raw string) (int64, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errInvalidToken
	}
	return strconv.ParseInt(c.Subject, 10, 64)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// authMiddleware requires a valid bearer token
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		return s.authenticate(c, next, bearerToken(c.Request()))
	}
}

// queryTokenMiddleware accepts the token from ?token= or the header
func (s *Server) queryTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			token = bearerToken(c.Request())
		}
		return s.authenticate(c, next, token)
	}
}

func (s *Server) authenticate(c echo.Context, next echo.HandlerFunc, token string) error {
	if token == "" {
		return fail(http.StatusUnauthorized, "Not authenticated")
	}

	userID, err := s.parseToken(token)
	if err != nil {
		return fail(http.StatusUnauthorized, "Could not validate credentials")
	}

	user, err := s.store.user(userID)
	if err != nil {
		return fail(http.StatusUnauthorized, "Could not validate credentials")
	}
	if !user.IsActive {
		return fail(http.StatusForbidden, "Inactive user")
	}

	c.Set(userIDKey, userID)
	return next(c)
}

func currentUser(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}
