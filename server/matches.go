package server

import (
	"net/http"
	"strconv"

	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/model"
	"github.com/labstack/echo/v4"
)

// handleCreateMatch pairs two unmatched socks of the current user
func (s *Server) handleCreateMatch(c echo.Context) error {
	var req model.NewMatchRequest
	if err := c.Bind(&req); err != nil {
		return fail(http.StatusBadRequest, "invalid request")
	}
	if err := s.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	m, err := s.store.createMatch(currentUser(c), req.Sock1ID, req.Sock2ID, s.now())
	if err != nil {
		return storeError(err, "Sock")
	}

	logger.Info("Match created",
		logger.F("match_id", m.ID),
		logger.F("sock1_id", m.Sock1ID),
		logger.F("sock2_id", m.Sock2ID))
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) handleListMatches(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.listMatches(currentUser(c)))
}

func (s *Server) handleGetMatch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	m, err := s.store.match(currentUser(c), id)
	if err != nil {
		return storeError(err, "Match")
	}
	return c.JSON(http.StatusOK, m)
}

// handleDeleteMatch removes a match. decouple=true keeps both socks as
// unmatched; otherwise the socks go with it.
func (s *Server) handleDeleteMatch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	decouple, _ := strconv.ParseBool(c.QueryParam("decouple"))

	if err := s.store.deleteMatch(currentUser(c), id, decouple); err != nil {
		return storeError(err, "Match")
	}

	logger.Info("Match deleted", logger.F("match_id", id), logger.F("decouple", decouple))
	return c.NoContent(http.StatusNoContent)
}
