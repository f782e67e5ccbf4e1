package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearResolutionEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvDevHost, "")
	t.Setenv(EnvOrigin, "")
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		devHost string
		origin  string
		cfg     Config
		want    string
		source  BaseURLSource
	}{
		{name: "env override wins", env: "https://socks.example.com/", devHost: "10.0.0.5:19000",
			cfg: Config{APIURL: "http://cfg", Platform: PlatformWeb, Production: true},
			want: "https://socks.example.com", source: SourceEnv},
		{name: "config url", cfg: Config{APIURL: "http://cfg:9000", Platform: PlatformNative},
			want: "http://cfg:9000", source: SourceConfig},
		{name: "dev host with scheme", devHost: "exp://10.0.0.5:19000", cfg: Config{Platform: PlatformNative},
			want: "http://10.0.0.5:8000", source: SourceDevHost},
		{name: "dev host ignored in production", devHost: "10.0.0.5:19000", origin: "https://socks.example.com",
			cfg:  Config{Platform: PlatformWeb, Production: true},
			want: "https://socks.example.com/api", source: SourceProxied},
		{name: "origin path and query dropped", origin: "http://localhost:8080/app/?x=1",
			cfg:  Config{Platform: PlatformWeb, Production: true},
			want: "http://localhost:8080/api", source: SourceProxied},
		{name: "web production without origin falls back", cfg: Config{Platform: PlatformWeb, Production: true},
			want: LANFallbackURL, source: SourceFallback},
		{name: "relative origin ignored", origin: "/", cfg: Config{Platform: PlatformWeb, Production: true},
			want: LANFallbackURL, source: SourceFallback},
		{name: "native production falls back", cfg: Config{Platform: PlatformNative, Production: true},
			want: LANFallbackURL, source: SourceFallback},
		{name: "web development falls back", cfg: Config{Platform: PlatformWeb},
			want: LANFallbackURL, source: SourceFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearResolutionEnv(t)
			t.Setenv(EnvAPIURL, tt.env)
			t.Setenv(EnvDevHost, tt.devHost)
			t.Setenv(EnvOrigin, tt.origin)

			got, source := tt.cfg.ResolveBaseURL()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestResolvedBaseURLIsAbsolute(t *testing.T) {
	clearResolutionEnv(t)
	t.Setenv(EnvOrigin, "https://socks.example.com")

	for _, cfg := range []Config{
		{Platform: PlatformWeb, Production: true},
		{Platform: PlatformWeb},
		{Platform: PlatformNative, Production: true},
		{Platform: PlatformNative},
	} {
		got, _ := cfg.ResolveBaseURL()
		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.True(t, u.IsAbs(), "%s/%t resolved to %q", cfg.Platform, cfg.Production, got)
		assert.NotEmpty(t, u.Host)
	}
}

func TestDevHost(t *testing.T) {
	assert.Equal(t, "192.168.1.20", devHost("192.168.1.20:19000"))
	assert.Equal(t, "laptop.local", devHost("http://laptop.local:8081/status"))
	assert.Equal(t, "[::1]", devHost("[::1]:19000"))
	assert.Equal(t, "", devHost("  "))
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.ConfirmDelete)
	assert.Equal(t, DefaultTokenKey, cfg.TokenKey)
	assert.Equal(t, DefaultTutorialKey, cfg.TutorialKey)
	assert.Equal(t, path, cfg.Path())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	cfg.APIURL = "http://10.1.1.1:8000"
	cfg.Platform = PlatformWeb
	cfg.TokenKey = "session"
	require.NoError(t, cfg.Save())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.1.1.1:8000", loaded.APIURL)
	assert.Equal(t, PlatformWeb, loaded.Platform)
	assert.Equal(t, "session", loaded.TokenKey)
}

func TestLoadFileRejectsUnknownPlatform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platform: desktop\n"), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "desktop")
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(EnvAPIURL+"=http://from-dotenv\n"), 0644))

	t.Setenv(EnvAPIURL, "http://from-env")
	LoadDotEnv(envFile)
	assert.Equal(t, "http://from-env", os.Getenv(EnvAPIURL))
}
