package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type validationItem struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

// validationFailed renders validator errors as {"detail": [{"loc", "msg"}]}
func validationFailed(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(http.StatusUnprocessableEntity, "invalid request")
	}

	items := make([]validationItem, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = field + " is required"
		case "email":
			msg = "invalid email format"
		case "min":
			msg = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "nefield":
			msg = "a match needs two different socks"
		default:
			msg = "invalid " + field
		}
		items = append(items, validationItem{Loc: []string{"body", field}, Msg: msg})
	}
	return c.JSON(http.StatusUnprocessableEntity, map[string]any{"detail": items})
}

// handleRegister creates an account. It does not log the user in.
func (s *Server) handleRegister(c echo.Context) error {
	var req model.Credentials
	if err := c.Bind(&req); err != nil {
		return fail(http.StatusBadRequest, "invalid request")
	}
	if err := s.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user, err := s.store.createUser(req.Email, req.Username, hash, s.now())
	if errors.Is(err, errDuplicateUser) {
		return fail(http.StatusConflict, "Email already registered")
	}
	if err != nil {
		return err
	}

	logger.Info("User registered", logger.F("user_id", user.ID))
	return c.JSON(http.StatusCreated, user)
}

// handleLogin accepts an OAuth2 password form where username may be the
// email or the username.
func (s *Server) handleLogin(c echo.Context) error {
	login := c.FormValue("username")
	password := c.FormValue("password")
	if login == "" || password == "" {
		return fail(http.StatusUnprocessableEntity, "username and password are required")
	}

	user, hash, err := s.store.userByLogin(login)
	if err != nil {
		return fail(http.StatusUnauthorized, "Incorrect email or password")
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return fail(http.StatusUnauthorized, "Incorrect email or password")
	}
	if !user.IsActive {
		return fail(http.StatusForbidden, "Inactive user")
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return err
	}

	logger.Info("User logged in", logger.F("user_id", user.ID))
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleMe returns the current user
func (s *Server) handleMe(c echo.Context) error {
	user, err := s.store.user(currentUser(c))
	if err != nil {
		return fail(http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, user)
}

// handleAcceptTerms records terms and privacy acceptance
func (s *Server) handleAcceptTerms(c echo.Context) error {
	user, err := s.store.acceptTerms(currentUser(c), s.now())
	if err != nil {
		return fail(http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, user)
}
