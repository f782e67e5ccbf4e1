// Package server is a cooperative in-memory implementation of the SockMatch
// backend HTTP contract. It backs the client tests and `sockmatch-stub`
// for local development; it is not a production backend.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/existflow/sockmatch/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Options configures the server
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	// MaxUploadBytes bounds a single image upload
	MaxUploadBytes int64
}

// Server is the backend double
type Server struct {
	opts     Options
	store    *store
	echo     *echo.Echo
	validate *validator.Validate
	now      func() time.Time
}

// New creates a server with an empty store
func New(opts Options) *Server {
	if opts.JWTSecret == "" {
		opts.JWTSecret = "sockmatch-dev-secret"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	s := &Server{
		opts:     opts,
		store:    newStore(),
		validate: validator.New(),
		now:      time.Now,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			logger.Info("HTTP Response",
				logger.F("method", req.Method),
				logger.F("uri", logger.RedactURL(req.RequestURI)),
				logger.F("status", res.Status),
				logger.F("size", res.Size),
				logger.F("duration", time.Since(start).String()))
			return nil
		}
	})

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	e.GET("/health", s.handleHealth)

	auth := e.Group("/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.GET("/me", s.handleMe, s.authMiddleware)
	auth.POST("/accept-terms", s.handleAcceptTerms, s.authMiddleware)

	singles := e.Group("/singles")
	// image loads cannot send headers, so the token may ride in the query
	singles.GET("/:id/image", s.handleSockImage, s.queryTokenMiddleware)

	protected := singles.Group("", s.authMiddleware)
	protected.POST("/upload", s.handleUpload)
	protected.GET("/list", s.handleListSocks)
	protected.POST("/search", s.handleSearchByImage)
	protected.GET("/:id", s.handleGetSock)
	protected.DELETE("/:id", s.handleDeleteSock)
	protected.GET("/:id/search", s.handleSearchBySock)

	matches := e.Group("/matches", s.authMiddleware)
	matches.POST("", s.handleCreateMatch)
	matches.GET("", s.handleListMatches)
	matches.GET("/:id", s.handleGetMatch)
	matches.DELETE("/:id", s.handleDeleteMatch)

	s.echo = e
}

// errorHandler renders every error as {"detail": "..."}
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	detail := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(status)
		}
	} else {
		logger.Error("Unhandled error", logger.F("error", err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, detailBody(detail))
}

func detailBody(detail string) map[string]string {
	return map[string]string{"detail": detail}
}

func fail(status int, detail string) error {
	return echo.NewHTTPError(status, detail)
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Close stops the listener started by Start
func (s *Server) Close() error {
	return s.echo.Close()
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "timestamp": s.now().UTC().Format(time.RFC3339)})
}
