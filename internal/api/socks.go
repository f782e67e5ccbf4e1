package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/model"
)

// DefaultSearchLimit is used when SearchBySockID is called with limit <= 0
const DefaultSearchLimit = 10

// SocksAPI wraps /singles/*
type SocksAPI struct {
	c        *Client
	uploader Uploader
	tokens   SyncTokenSource
}

// Socks returns the socks module. tokens is used only as the synchronous
// fallback when building image URLs and may be nil.
func (c *Client) Socks(uploader Uploader, tokens SyncTokenSource) *SocksAPI {
	if uploader == nil {
		uploader = StreamUploader{}
	}
	return &SocksAPI{c: c, uploader: uploader, tokens: tokens}
}

func sockPath(id int64, suffix string) string {
	return "/singles/" + strconv.FormatInt(id, 10) + suffix
}

// Upload sends a local image and returns the created sock. Any non-2xx
// response is an upload error carrying the server detail.
func (s *SocksAPI) Upload(ctx context.Context, path, description string) (*model.Sock, error) {
	fields := map[string]string{}
	if description != "" {
		fields["description"] = description
	}

	body, contentType, err := s.uploader.Body(path, fields)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "socks.upload", Detail: err.Error(), Err: err}
	}

	var sock model.Sock
	err = s.c.do(ctx, request{
		op:          "socks.upload",
		method:      http.MethodPost,
		path:        "/singles/upload",
		body:        body,
		contentType: contentType,
		failKind:    KindUpload,
	}, &sock)
	if err != nil {
		return nil, err
	}

	logger.Info("Sock uploaded", logger.F("sock_id", sock.ID), logger.F("uploader", s.uploader.Name()))
	return &sock, nil
}

// List returns the caller's socks, optionally only unmatched ones
func (s *SocksAPI) List(ctx context.Context, unmatchedOnly bool) ([]model.Sock, error) {
	q := url.Values{}
	if unmatchedOnly {
		q.Set("unmatched_only", "true")
	}

	var socks []model.Sock
	err := s.c.do(ctx, request{
		op:     "socks.list",
		method: http.MethodGet,
		path:   "/singles/list",
		query:  q,
	}, &socks)
	if err != nil {
		return nil, err
	}
	if socks == nil {
		socks = []model.Sock{}
	}
	return socks, nil
}

// Get fetches one sock
func (s *SocksAPI) Get(ctx context.Context, id int64) (*model.Sock, error) {
	var sock model.Sock
	err := s.c.do(ctx, request{
		op:     "socks.get",
		method: http.MethodGet,
		path:   sockPath(id, ""),
	}, &sock)
	if err != nil {
		return nil, err
	}
	return &sock, nil
}

// Delete removes an unmatched sock. Deleting a matched sock is rejected by
// the server and surfaces as ErrConflict.
func (s *SocksAPI) Delete(ctx context.Context, id int64) error {
	return s.c.do(ctx, request{
		op:        "socks.delete",
		method:    http.MethodDelete,
		path:      sockPath(id, ""),
		overrides: map[int]Kind{http.StatusBadRequest: KindConflict},
	}, nil)
}

// SearchBySockID returns nearest neighbours of a stored sock, in the order
// the server ranked them.
func (s *SocksAPI) SearchBySockID(ctx context.Context, id int64, limit int) ([]model.SockMatch, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var raw json.RawMessage
	err := s.c.do(ctx, request{
		op:     "socks.search",
		method: http.MethodGet,
		path:   sockPath(id, "/search"),
		query:  q,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeCandidates("socks.search", raw)
}

// Search looks for matches of an image that has not been uploaded yet
func (s *SocksAPI) Search(ctx context.Context, path string, excludeSockID *int64) ([]model.SockMatch, error) {
	fields := map[string]string{}
	if excludeSockID != nil {
		fields["exclude_sock_id"] = strconv.FormatInt(*excludeSockID, 10)
	}

	body, contentType, err := s.uploader.Body(path, fields)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "socks.search_image", Detail: err.Error(), Err: err}
	}

	var raw json.RawMessage
	err = s.c.do(ctx, request{
		op:          "socks.search_image",
		method:      http.MethodPost,
		path:        "/singles/search",
		body:        body,
		contentType: contentType,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeCandidates("socks.search_image", raw)
}

// decodeCandidates accepts a bare [{sock_id, similarity}] list or the
// {"matches": [{"sock": {...}, "similarity": ...}]} envelope.
func decodeCandidates(op string, raw json.RawMessage) ([]model.SockMatch, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []model.SockMatch{}, nil
	}

	if raw[0] == '[' {
		var out []model.SockMatch
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, &Error{Kind: KindServer, Op: op, Err: fmt.Errorf("decode candidates: %w", err)}
		}
		return out, nil
	}

	var envelope struct {
		Matches []struct {
			SockID     int64       `json:"sock_id"`
			Sock       *model.Sock `json:"sock"`
			Similarity float64     `json:"similarity"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &Error{Kind: KindServer, Op: op, Err: fmt.Errorf("decode candidates: %w", err)}
	}

	out := make([]model.SockMatch, 0, len(envelope.Matches))
	for _, m := range envelope.Matches {
		id := m.SockID
		if id == 0 && m.Sock != nil {
			id = m.Sock.ID
		}
		out = append(out, model.SockMatch{SockID: id, Similarity: m.Similarity})
	}
	return out, nil
}

// ImageURL builds the URL of a sock's original image with the token as a
// query parameter, since image loaders cannot send headers. It never fails:
// without a token it returns an unauthenticated URL.
func (s *SocksAPI) ImageURL(id int64, token string) string {
	return s.imageURL(id, token, false)
}

// ImageNoBgURL is ImageURL for the background-removed image
func (s *SocksAPI) ImageNoBgURL(id int64, token string) string {
	return s.imageURL(id, token, true)
}

func (s *SocksAPI) imageURL(id int64, token string, processed bool) string {
	if token == "" {
		token = s.syncToken()
	}

	q := url.Values{}
	if processed {
		q.Set("processed", "true")
	}
	if token != "" {
		q.Set("token", token)
	}
	return s.c.URL(sockPath(id, "/image"), q)
}

func (s *SocksAPI) syncToken() string {
	if s.tokens == nil {
		return ""
	}
	token, err := s.tokens.GetSync()
	if err != nil {
		if !errors.Is(err, ErrPlatformUnsupported) {
			logger.Warn("Synchronous token read failed", logger.F("error", err))
		}
		return ""
	}
	return token
}

// FetchImage downloads an image with the bearer header. Used where the
// caller can make a real request instead of handing a URL to a renderer.
func (s *SocksAPI) FetchImage(ctx context.Context, id int64, processed bool, w io.Writer) (string, error) {
	q := url.Values{}
	if processed {
		q.Set("processed", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.c.URL(sockPath(id, "/image"), q), nil)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Op: "socks.image", Err: err}
	}
	for _, intercept := range s.c.interceptors {
		if err := intercept(ctx, req); err != nil {
			return "", &Error{Kind: KindNetwork, Op: "socks.image", Err: err}
		}
	}

	resp, err := s.c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Op: "socks.image", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &Error{Kind: statusKind(resp.StatusCode), Op: "socks.image", Status: resp.StatusCode, Detail: parseDetail(body)}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", &Error{Kind: KindNetwork, Op: "socks.image", Err: err}
	}
	return resp.Header.Get("Content-Type"), nil
}
