// Package pairing implements the upload, review and confirm workflows on
// top of the socks and matches APIs.
package pairing

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/model"
)

// Socks is the part of the socks API the workflows use
type Socks interface {
	Upload(ctx context.Context, path, description string) (*model.Sock, error)
	Get(ctx context.Context, id int64) (*model.Sock, error)
	SearchBySockID(ctx context.Context, id int64, limit int) ([]model.SockMatch, error)
}

// Matches is the part of the matches API the workflows use
type Matches interface {
	Create(ctx context.Context, sock1ID, sock2ID int64) (*model.Match, error)
	Delete(ctx context.Context, id int64, decouple bool) error
}

// UploadResult is the outcome of one image in a batch
type UploadResult struct {
	Path       string
	Sock       *model.Sock
	Candidates []model.SockMatch
	// SearchErr is set when the upload succeeded but the follow-up search
	// did not; Candidates is then empty.
	SearchErr error
}

// Service runs the pairing workflows
type Service struct {
	socks   Socks
	matches Matches
	limit   int
}

// NewService creates a service. limit <= 0 uses the API default.
func NewService(socks Socks, matches Matches, limit int) *Service {
	return &Service{socks: socks, matches: matches, limit: limit}
}

// UploadAll uploads paths one at a time and searches for candidates after
// each. The first failed upload stops the batch: the results so far are
// returned along with the error. A failed search is not an error.
func (s *Service) UploadAll(ctx context.Context, paths []string, description string) ([]UploadResult, error) {
	results := make([]UploadResult, 0, len(paths))

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		sock, err := s.socks.Upload(ctx, path, description)
		if err != nil {
			logger.Warn("Upload failed, stopping batch",
				logger.F("file", filepath.Base(path)),
				logger.F("index", i),
				logger.F("error", err))
			return results, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
		}

		res := UploadResult{Path: path, Sock: sock}
		res.Candidates, res.SearchErr = s.Candidates(ctx, sock.ID)
		results = append(results, res)
	}
	return results, nil
}

// Candidates searches for matches of a stored sock. Errors are logged and
// returned alongside an empty, non-nil list.
func (s *Service) Candidates(ctx context.Context, sockID int64) ([]model.SockMatch, error) {
	found, err := s.socks.SearchBySockID(ctx, sockID, s.limit)
	if err != nil {
		logger.Warn("Similarity search failed", logger.F("sock_id", sockID), logger.F("error", err))
		return []model.SockMatch{}, err
	}
	return found, nil
}

// Confirm creates the match and re-reads both socks so the caller never
// shows a match next to a sock that still looks unmatched.
func (s *Service) Confirm(ctx context.Context, sockID, candidateID int64) (*model.Match, error) {
	m, err := s.matches.Create(ctx, sockID, candidateID)
	if err != nil {
		return nil, err
	}

	for _, id := range []int64{m.Sock1ID, m.Sock2ID} {
		sock, err := s.socks.Get(ctx, id)
		if err != nil {
			return m, fmt.Errorf("refresh sock %d: %w", id, err)
		}
		if !sock.IsMatched {
			logger.Warn("Sock not flagged as matched after confirm", logger.F("sock_id", id), logger.F("match_id", m.ID))
		}
		if id == m.Sock1ID {
			m.Sock1 = sock
		} else {
			m.Sock2 = sock
		}
	}

	logger.Info("Pair confirmed", logger.F("match_id", m.ID))
	return m, nil
}

// Unpair deletes a match. decouple keeps both socks as unmatched,
// otherwise they are deleted as well. Callers confirm with the user first.
func (s *Service) Unpair(ctx context.Context, matchID int64, decouple bool) error {
	if err := s.matches.Delete(ctx, matchID, decouple); err != nil {
		return err
	}
	logger.Info("Pair removed", logger.F("match_id", matchID), logger.F("decouple", decouple))
	return nil
}

// RenderCandidate formats a candidate as "#7  92%"
func RenderCandidate(c model.SockMatch) string {
	return fmt.Sprintf("#%d  %d%%", c.SockID, c.Percent())
}
