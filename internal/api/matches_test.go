package api

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairOfSocks(t *testing.T) (*Client, *SocksAPI, int64, int64) {
	t.Helper()
	c, tokens := backend(t)
	signIn(t, c, tokens, "alice@example.com")
	socks := c.Socks(BlobUploader{}, tokens)

	ctx := context.Background()
	a, err := socks.Upload(ctx, writePNG(t, color.White), "left")
	require.NoError(t, err)
	b, err := socks.Upload(ctx, writePNG(t, color.White), "right")
	require.NoError(t, err)
	return c, socks, a.ID, b.ID
}

func TestCreateMatchFlagsBothSocks(t *testing.T) {
	c, socks, a, b := pairOfSocks(t)
	ctx := context.Background()

	m, err := c.Matches().Create(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, a, m.Sock1ID)
	assert.Equal(t, b, m.Sock2ID)
	assert.Equal(t, b, m.Partner(a))

	for _, id := range []int64{a, b} {
		s, err := socks.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, s.IsMatched, "sock %d", id)
	}

	list, err := c.Matches().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Sock1)
	require.NotNil(t, list[0].Sock2)
	assert.Equal(t, "left", list[0].Sock1.Description)
	assert.Equal(t, "right", list[0].Sock2.Description)
}

func TestCreateMatchConflict(t *testing.T) {
	c, socks, a, b := pairOfSocks(t)
	ctx := context.Background()

	third, err := socks.Upload(ctx, writePNG(t, color.Black), "")
	require.NoError(t, err)

	_, err = c.Matches().Create(ctx, a, b)
	require.NoError(t, err)

	_, err = c.Matches().Create(ctx, a, third.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateMatchSameSockRejectedLocally(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).Matches().Create(context.Background(), 3, 3)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, calls.Load())
}

func TestDecoupleKeepsSocks(t *testing.T) {
	c, socks, a, b := pairOfSocks(t)
	ctx := context.Background()

	m, err := c.Matches().Create(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, c.Matches().Delete(ctx, m.ID, true))

	for _, id := range []int64{a, b} {
		s, err := socks.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, s.IsMatched, "sock %d", id)
	}

	_, err = c.Matches().Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// the pair can be confirmed again
	_, err = c.Matches().Create(ctx, a, b)
	assert.NoError(t, err)
}

func TestHardDeleteRemovesSocks(t *testing.T) {
	c, socks, a, b := pairOfSocks(t)
	ctx := context.Background()

	m, err := c.Matches().Create(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, c.Matches().Delete(ctx, m.ID, false))

	for _, id := range []int64{a, b} {
		_, err := socks.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, "sock %d", id)
	}

	list, err := c.Matches().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	var deleted atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/matches/5", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			assert.Equal(t, "false", r.URL.Query().Get("decouple"))
			deleted.Store(true)
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if deleted.Load() {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"Match not found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":5,"sock1_id":1,"sock2_id":2}`))
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	matches := NewClient(ts.URL).Matches()
	ctx := context.Background()

	m, err := matches.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.ID)

	require.NoError(t, matches.Delete(ctx, 5, false))

	_, err = matches.Get(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}
