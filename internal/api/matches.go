package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/existflow/sockmatch/internal/model"
)

// MatchesAPI wraps /matches
type MatchesAPI struct {
	c *Client
}

// Matches returns the matches module
func (c *Client) Matches() *MatchesAPI {
	return &MatchesAPI{c: c}
}

func matchPath(id int64) string {
	return "/matches/" + strconv.FormatInt(id, 10)
}

// Create confirms a candidate pairing. Fails with ErrConflict when either
// sock is already matched.
func (m *MatchesAPI) Create(ctx context.Context, sock1ID, sock2ID int64) (*model.Match, error) {
	req := model.NewMatchRequest{Sock1ID: sock1ID, Sock2ID: sock2ID}
	if err := validate.Struct(req); err != nil {
		return nil, &Error{Kind: KindValidation, Op: "matches.create", Detail: "a match needs two different socks"}
	}

	body, err := jsonBody(req)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "matches.create", Err: err}
	}

	var match model.Match
	err = m.c.do(ctx, request{
		op:          "matches.create",
		method:      http.MethodPost,
		path:        "/matches",
		body:        body,
		contentType: "application/json",
		overrides:   map[int]Kind{http.StatusBadRequest: KindConflict},
	}, &match)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// List returns every match of the current user with both socks expanded
func (m *MatchesAPI) List(ctx context.Context) ([]model.Match, error) {
	var matches []model.Match
	err := m.c.do(ctx, request{
		op:     "matches.list",
		method: http.MethodGet,
		path:   "/matches",
	}, &matches)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []model.Match{}
	}
	return matches, nil
}

// Get returns one match with both socks expanded
func (m *MatchesAPI) Get(ctx context.Context, id int64) (*model.Match, error) {
	var match model.Match
	err := m.c.do(ctx, request{
		op:     "matches.get",
		method: http.MethodGet,
		path:   matchPath(id),
	}, &match)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// Delete removes a match. With decouple both socks revert to unmatched and
// are kept; without it both socks are deleted too. Irreversible: the view
// layer must confirm with the user first.
func (m *MatchesAPI) Delete(ctx context.Context, id int64, decouple bool) error {
	q := url.Values{}
	q.Set("decouple", strconv.FormatBool(decouple))
	return m.c.do(ctx, request{
		op:     "matches.delete",
		method: http.MethodDelete,
		path:   matchPath(id),
		query:  q,
	}, nil)
}
