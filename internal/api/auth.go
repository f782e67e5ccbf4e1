package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/existflow/sockmatch/internal/model"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// AuthAPI wraps /auth/*
type AuthAPI struct {
	c *Client
}

// Auth returns the auth module
func (c *Client) Auth() *AuthAPI {
	return &AuthAPI{c: c}
}

// Register creates an account. It does not authenticate; callers log in
// afterwards with the same credentials.
func (a *AuthAPI) Register(ctx context.Context, creds model.Credentials) (*model.User, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, &Error{Kind: KindValidation, Op: "auth.register", Detail: err.Error()}
	}

	body, err := jsonBody(creds)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "auth.register", Err: err}
	}

	var user model.User
	err = a.c.do(ctx, request{
		op:          "auth.register",
		method:      http.MethodPost,
		path:        "/auth/register",
		body:        body,
		contentType: "application/json",
		overrides:   map[int]Kind{http.StatusConflict: KindValidation},
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a bearer token. The backend expects an
// OAuth2 password form, so the identifier is sent as "username".
func (a *AuthAPI) Login(ctx context.Context, creds model.Credentials) (*model.Token, error) {
	id := loginIdentifier(creds)
	if id == "" || creds.Password == "" {
		return nil, &Error{Kind: KindValidation, Op: "auth.login", Detail: "email and password are required"}
	}

	form := url.Values{}
	form.Set("username", id)
	form.Set("password", creds.Password)

	var tok model.Token
	err := a.c.do(ctx, request{
		op:          "auth.login",
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &Error{Kind: KindServer, Op: "auth.login", Detail: "login response did not include an access token"}
	}
	if tok.TokenType == "" {
		tok.TokenType = "bearer"
	}
	return &tok, nil
}

// Me returns the user owning the attached token
func (a *AuthAPI) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	err := a.c.do(ctx, request{
		op:     "auth.me",
		method: http.MethodGet,
		path:   "/auth/me",
		// an unknown or deactivated owner is indistinguishable from a bad token
		overrides: map[int]Kind{http.StatusNotFound: KindAuthentication, http.StatusForbidden: KindAuthentication},
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AcceptTerms records terms and privacy acceptance for the session owner
func (a *AuthAPI) AcceptTerms(ctx context.Context) error {
	return a.c.do(ctx, request{
		op:     "auth.accept_terms",
		method: http.MethodPost,
		path:   "/auth/accept-terms",
	}, nil)
}

func loginIdentifier(creds model.Credentials) string {
	if s := strings.TrimSpace(creds.Email); s != "" {
		return s
	}
	return strings.TrimSpace(creds.Username)
}

func validateCredentials(creds model.Credentials) error {
	err := validate.Struct(creds)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		field := strings.ToLower(first.Field())
		switch first.Tag() {
		case "required":
			return fmt.Errorf("%s is required", field)
		case "email":
			return fmt.Errorf("invalid email format")
		case "min":
			return fmt.Errorf("%s must be at least %s characters", field, first.Param())
		case "max":
			return fmt.Errorf("%s must be at most %s characters", field, first.Param())
		default:
			return fmt.Errorf("invalid %s", field)
		}
	}
	return fmt.Errorf("invalid credentials payload")
}
