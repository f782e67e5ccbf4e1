package tokenstore

import (
	"context"
	"testing"

	"github.com/existflow/sockmatch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []storage.Kind{storage.KindNative, storage.KindWeb, storage.KindMemory} {
		t.Run(string(kind), func(t *testing.T) {
			b, err := storage.Open(kind, t.TempDir())
			require.NoError(t, err)
			s := New(b, Keys{})
			t.Cleanup(func() { _ = s.Close() })

			for _, tok := range []string{"tok1", "eyJhbGciOiJIUzI1NiJ9.e30.sig", "with spaces & ünïcode"} {
				require.NoError(t, s.Save(ctx, tok))
				got, err := s.Get(ctx)
				require.NoError(t, err)
				assert.Equal(t, tok, got)
			}

			require.NoError(t, s.Remove(ctx))
			got, err := s.Get(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, s.Remove(ctx))
		})
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	s := New(storage.NewMemory(), Keys{})
	assert.Error(t, s.Save(context.Background(), ""))
}

func TestGetSync(t *testing.T) {
	ctx := context.Background()

	t.Run("native is unsupported", func(t *testing.T) {
		b, err := storage.OpenSecure(t.TempDir())
		require.NoError(t, err)
		s := New(b, Keys{})
		defer s.Close()

		require.NoError(t, s.Save(ctx, "tok1"))
		assert.False(t, s.SupportsSync())
		_, err = s.GetSync()
		assert.ErrorIs(t, err, ErrPlatformUnsupported)
	})

	t.Run("memory is unsupported", func(t *testing.T) {
		s := New(storage.NewMemory(), Keys{})
		defer s.Close()

		require.NoError(t, s.Save(ctx, "tok1"))
		assert.False(t, s.SupportsSync())
		_, err := s.GetSync()
		assert.ErrorIs(t, err, ErrPlatformUnsupported)
	})

	t.Run("web reads synchronously", func(t *testing.T) {
		b, err := storage.OpenLocal(t.TempDir())
		require.NoError(t, err)
		s := New(b, Keys{})
		defer s.Close()

		tok, err := s.GetSync()
		require.NoError(t, err)
		assert.Empty(t, tok)

		require.NoError(t, s.Save(ctx, "tok1"))
		assert.True(t, s.SupportsSync())
		tok, err = s.GetSync()
		require.NoError(t, err)
		assert.Equal(t, "tok1", tok)
	})
}

func TestTutorialFlagIsIndependentOfToken(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory(), Keys{Token: "session", Tutorial: "onboarding"})

	done, err := s.TutorialCompleted(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.Save(ctx, "tok1"))
	require.NoError(t, s.SetTutorialCompleted(ctx, true))
	require.NoError(t, s.Remove(ctx))

	done, err = s.TutorialCompleted(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestCustomKeysAreUsed(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := New(mem, Keys{Token: "session"})

	require.NoError(t, s.Save(ctx, "tok1"))
	v, ok, err := mem.Get(ctx, "session")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok1", v)

	_, ok, _ = mem.Get(ctx, "auth_token")
	assert.False(t, ok)
}
