package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/existflow/sockmatch/internal/logger"
	"github.com/labstack/echo/v4"
)

const defaultSearchLimit = 10

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fail(http.StatusUnprocessableEntity, "id must be a positive integer")
	}
	return id, nil
}

func storeError(err error, what string) error {
	switch {
	case errors.Is(err, errNotFound):
		return fail(http.StatusNotFound, what+" not found")
	case errors.Is(err, errAlreadyMatched):
		return fail(http.StatusConflict, "Sock is already matched")
	case errors.Is(err, errSameSock):
		return fail(http.StatusUnprocessableEntity, "Cannot match a sock with itself")
	}
	return err
}

// readImage reads the "file" part and checks that it is an image. The part
// header is trusted when sniffing cannot tell, which covers HEIC.
func (s *Server) readImage(c echo.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "", fail(http.StatusUnprocessableEntity, "file is required")
	}
	if fh.Size > s.opts.MaxUploadBytes {
		return nil, "", fail(http.StatusRequestEntityTooLarge, "File too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return nil, "", fail(http.StatusRequestEntityTooLarge, "File too large")
	}
	if len(data) == 0 {
		return nil, "", fail(http.StatusBadRequest, "File is empty")
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		declared := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(declared, "image/") {
			return nil, "", fail(http.StatusBadRequest, "File must be an image")
		}
		contentType = declared
	}
	return data, contentType, nil
}

// handleUpload stores a new sock for the current user
func (s *Server) handleUpload(c echo.Context) error {
	data, contentType, err := s.readImage(c)
	if err != nil {
		return err
	}

	sock := s.store.createSock(currentUser(c), c.FormValue("description"), data, contentType, s.now())
	logger.Info("Sock uploaded",
		logger.F("sock_id", sock.ID),
		logger.F("content_type", contentType),
		logger.F("size", len(data)))
	return c.JSON(http.StatusCreated, sock)
}

// handleListSocks lists the current user's socks
func (s *Server) handleListSocks(c echo.Context) error {
	unmatched, _ := strconv.ParseBool(c.QueryParam("unmatched_only"))
	return c.JSON(http.StatusOK, s.store.listSocks(currentUser(c), unmatched))
}

func (s *Server) handleGetSock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sock, err := s.store.sock(currentUser(c), id)
	if err != nil {
		return storeError(err, "Sock")
	}
	return c.JSON(http.StatusOK, sock)
}

// handleDeleteSock removes an unmatched sock
func (s *Server) handleDeleteSock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.store.deleteSock(currentUser(c), id); err != nil {
		return storeError(err, "Sock")
	}
	return c.NoContent(http.StatusNoContent)
}

func searchLimit(c echo.Context) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		return defaultSearchLimit
	}
	return limit
}

// handleSearchBySock ranks the user's other unmatched socks
func (s *Server) handleSearchBySock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	results, err := s.store.searchSock(currentUser(c), id, searchLimit(c))
	if err != nil {
		return storeError(err, "Sock")
	}
	return c.JSON(http.StatusOK, results)
}

// handleSearchByImage ranks the user's unmatched socks against an image
// that is not stored
func (s *Server) handleSearchByImage(c echo.Context) error {
	data, _, err := s.readImage(c)
	if err != nil {
		return err
	}

	var exclude int64
	if raw := c.FormValue("exclude_sock_id"); raw != "" {
		exclude, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fail(http.StatusUnprocessableEntity, "exclude_sock_id must be an integer")
		}
	}

	return c.JSON(http.StatusOK, s.store.searchImage(currentUser(c), data, exclude, searchLimit(c)))
}

// handleSockImage streams the stored image. processed=true asks for the
// background-removed variant; this backend has none and serves the original.
func (s *Server) handleSockImage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	data, contentType, err := s.store.sockImage(currentUser(c), id)
	if err != nil {
		return storeError(err, "Sock")
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.Blob(http.StatusOK, contentType, data)
}
