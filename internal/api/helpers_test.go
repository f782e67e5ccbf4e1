package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/existflow/sockmatch/internal/model"
	"github.com/existflow/sockmatch/internal/storage"
	"github.com/existflow/sockmatch/internal/tokenstore"
	"github.com/existflow/sockmatch/server"
	"github.com/stretchr/testify/require"
)

// backend starts a cooperative backend double and returns a client wired
// to a fresh in-memory token store.
func backend(t *testing.T) (*Client, *tokenstore.Store) {
	t.Helper()
	ts := httptest.NewServer(server.New(server.Options{JWTSecret: "test-secret"}).Router())
	t.Cleanup(ts.Close)

	tokens := tokenstore.New(storage.NewMemory(), tokenstore.Keys{})
	return NewClient(ts.URL, WithTokenSource(tokens)), tokens
}

// signIn registers and logs in, storing the token
func signIn(t *testing.T, c *Client, tokens *tokenstore.Store, email string) *model.User {
	t.Helper()
	ctx := context.Background()
	creds := model.Credentials{Email: email, Password: "secret123"}

	_, err := c.Auth().Register(ctx, creds)
	require.NoError(t, err)
	tok, err := c.Auth().Login(ctx, creds)
	require.NoError(t, err)
	require.NoError(t, tokens.Save(ctx, tok.AccessToken))

	user, err := c.Auth().Me(ctx)
	require.NoError(t, err)
	return user
}

func pngData(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writePNG(t *testing.T, c color.Color) string {
	t.Helper()
	return writeFile(t, "sock.png", pngData(t, c))
}

type staticTokens string

func (s staticTokens) Get(context.Context) (string, error) { return string(s), nil }
func (s staticTokens) GetSync() (string, error)            { return string(s), nil }

type asyncOnlyTokens string

func (s asyncOnlyTokens) Get(context.Context) (string, error) { return string(s), nil }
func (s asyncOnlyTokens) GetSync() (string, error) {
	return "", tokenstore.ErrPlatformUnsupported
}

type brokenTokens struct{}

func (brokenTokens) Get(context.Context) (string, error) {
	return "", errors.New("keychain locked")
}
