package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/existflow/sockmatch/internal/storage"
	"github.com/existflow/sockmatch/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	headers []string
	has     []bool
}

func (r *recorder) handler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		_, ok := req.Header["Authorization"]
		r.has = append(r.has, ok)
		r.headers = append(r.headers, req.Header.Get("Authorization"))
		r.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestBearerAttachedWhenTokenPresent(t *testing.T) {
	rec := &recorder{}
	ts := httptest.NewServer(rec.handler(http.StatusOK, `[]`))
	defer ts.Close()

	c := NewClient(ts.URL, WithTokenSource(staticTokens("abc")))
	_, err := c.Matches().List(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.headers, 1)
	assert.Equal(t, "Bearer abc", rec.headers[0])
}

func TestNoHeaderWithoutToken(t *testing.T) {
	rec := &recorder{}
	ts := httptest.NewServer(rec.handler(http.StatusUnauthorized, `{"detail":"Not authenticated"}`))
	defer ts.Close()

	c := NewClient(ts.URL, WithTokenSource(staticTokens("")))
	_, err := c.Matches().List(context.Background())

	// the request is still sent and rejected server side
	require.Len(t, rec.has, 1)
	assert.False(t, rec.has[0])
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, "Not authenticated", UserMessage(err))
}

func TestTokenLookupFailureSendsUnauthenticated(t *testing.T) {
	rec := &recorder{}
	ts := httptest.NewServer(rec.handler(http.StatusOK, `[]`))
	defer ts.Close()

	c := NewClient(ts.URL, WithTokenSource(brokenTokens{}))
	_, err := c.Socks(nil, nil).List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, rec.has, 1)
	assert.False(t, rec.has[0])
}

func TestStoredTokenIsReadPerRequest(t *testing.T) {
	rec := &recorder{}
	ts := httptest.NewServer(rec.handler(http.StatusOK, `[]`))
	defer ts.Close()

	tokens := tokenstore.New(storage.NewMemory(), tokenstore.Keys{})
	ctx := context.Background()
	c := NewClient(ts.URL, WithTokenSource(tokens))

	_, err := c.Matches().List(ctx)
	require.NoError(t, err)

	require.NoError(t, tokens.Save(ctx, "tok1"))
	_, err = c.Matches().List(ctx)
	require.NoError(t, err)

	require.NoError(t, tokens.Remove(ctx))
	_, err = c.Matches().List(ctx)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true, false}, rec.has)
	assert.Equal(t, "Bearer tok1", rec.headers[1])
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		detail string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`, ErrAuthentication, "Could not validate credentials"},
		{"forbidden", http.StatusForbidden, `{"detail":"Inactive user"}`, ErrForbidden, "Inactive user"},
		{"not found", http.StatusNotFound, `{"detail":"Sock not found"}`, ErrNotFound, "Sock not found"},
		{"conflict", http.StatusConflict, `{"detail":"Sock is already matched"}`, ErrConflict, "Sock is already matched"},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","email"],"msg":"invalid email format"}]}`, ErrValidation, "invalid email format"},
		{"too large", http.StatusRequestEntityTooLarge, `{"detail":"File too large"}`, ErrValidation, "File too large"},
		{"method not allowed", http.StatusMethodNotAllowed, `{"detail":"Method Not Allowed"}`, ErrValidation, "Method Not Allowed"},
		{"too many requests", http.StatusTooManyRequests, `{"detail":"Slow down"}`, ErrValidation, "Slow down"},
		{"gone", http.StatusGone, ``, ErrValidation, ""},
		{"server", http.StatusInternalServerError, `<html>oops</html>`, ErrServer, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			ts := httptest.NewServer(rec.handler(tt.status, tt.body))
			defer ts.Close()

			_, err := NewClient(ts.URL).Socks(nil, nil).Get(context.Background(), 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.detail, apiErr.Detail)
			assert.Equal(t, "socks.get", apiErr.Op)
		})
	}
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	_, err := NewClient(base).Auth().Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, "Could not reach the server. Check your connection.", UserMessage(err))
}

func TestURLJoin(t *testing.T) {
	c := NewClient("http://localhost:8000/")
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
	assert.Equal(t, "http://localhost:8000/singles/list", c.URL("/singles/list", nil))
	assert.Equal(t, "http://localhost:8000/matches/5?decouple=true", c.URL("matches/5", url.Values{"decouple": {"true"}}))

	proxied := NewClient("/api")
	assert.Equal(t, "/api/singles/3/image", proxied.URL("/singles/3/image", nil))
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindConflict, Op: "socks.delete", Status: 409, Detail: "Sock is already matched"}
	assert.Equal(t, "socks.delete: ConflictError (409): Sock is already matched", err.Error())
}

func TestUploadErrorAlsoMatchesAuthentication(t *testing.T) {
	err := &Error{Kind: KindUpload, Op: "socks.upload", Status: http.StatusUnauthorized}
	assert.ErrorIs(t, err, ErrUpload)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.True(t, IsAuthFailure(err))

	err = &Error{Kind: KindUpload, Op: "socks.upload", Status: http.StatusBadRequest}
	assert.False(t, IsAuthFailure(err))
}
