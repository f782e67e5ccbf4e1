package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Platform selects the storage and upload strategy used by the client.
type Platform string

const (
	// PlatformNative persists the token in encrypted sqlite and streams uploads.
	PlatformNative Platform = "native"
	// PlatformWeb persists the token in a synchronous local-storage file and
	// uploads buffered blobs.
	PlatformWeb Platform = "web"
)

// Valid reports whether p is a known platform
func (p Platform) Valid() bool {
	return p == PlatformNative || p == PlatformWeb
}

// Config holds user preferences
type Config struct {
	ConfirmDelete bool `yaml:"confirm_delete" json:"confirm_delete"` // Require confirmation for destructive commands

	// Backend
	APIURL     string   `yaml:"api_url,omitempty" json:"api_url,omitempty"` // Explicit base URL, overrides resolution
	Platform   Platform `yaml:"platform" json:"platform"`                     // native or web
	Production bool     `yaml:"production" json:"production"`                 // Web builds served behind the reverse proxy

	// Persistence
	DataDir     string `yaml:"data_dir" json:"data_dir"`         // Token store location
	TokenKey    string `yaml:"token_key" json:"token_key"`       // Storage key for the bearer token
	TutorialKey string `yaml:"tutorial_key" json:"tutorial_key"` // Storage key for the tutorial flag

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging

	path string
}

const (
	// EnvAPIURL is the explicit base URL override
	EnvAPIURL = "SOCKMATCH_API_URL"
	// EnvDevHost is the address reported by the dev tooling, e.g. "192.168.1.20:19000"
	EnvDevHost = "SOCKMATCH_DEV_HOST"
	// EnvOrigin is the origin serving a production web build, e.g.
	// "https://socks.example.com". The backend is proxied under it.
	EnvOrigin = "SOCKMATCH_ORIGIN"
	// EnvHome overrides the ~/.sockmatch directory
	EnvHome = "SOCKMATCH_HOME"

	// DevBackendPort is the port the backend listens on during development
	DevBackendPort = "8000"
	// LANFallbackURL is used when nothing else resolves
	LANFallbackURL = "http://192.168.1.100:8000"
	// ProxiedAPIPath is the path production web builds reach the backend at
	ProxiedAPIPath = "/api"

	DefaultTokenKey    = "auth_token"
	DefaultTutorialKey = "tutorial_completed"
)

// HomeDir returns the directory holding config, logs and the token store
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sockmatch"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	base, _ := HomeDir()
	logPath := ""
	dataDir := ""
	if base != "" {
		logPath = filepath.Join(base, "logs", "sockmatch.log")
		dataDir = filepath.Join(base, "data")
	}

	platform := Platform(getEnv("SOCKMATCH_PLATFORM", string(PlatformNative)))
	if !platform.Valid() {
		platform = PlatformNative
	}

	return &Config{
		ConfirmDelete: true,
		Platform:      platform,
		Production:    getEnv("SOCKMATCH_PRODUCTION", "false") == "true",
		DataDir:       getEnv("SOCKMATCH_DATA_DIR", dataDir),
		TokenKey:      DefaultTokenKey,
		TutorialKey:   DefaultTutorialKey,
		LogLevel:      getEnv("SOCKMATCH_LOG_LEVEL", "INFO"),
		LogFile:       getEnv("SOCKMATCH_LOG_FILE", logPath),
		LogConsole:    getEnv("SOCKMATCH_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// LoadDotEnv loads .env from the working directory. Variables already set
// in the environment win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Load loads config from ~/.sockmatch/config.yaml
func Load() (*Config, error) {
	base, err := HomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFile(filepath.Join(base, "config.yaml"))
}

// LoadFile loads config from path, returning defaults when it does not exist
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !cfg.Platform.Valid() {
		return nil, fmt.Errorf("invalid platform %q (want native or web)", cfg.Platform)
	}
	if cfg.TokenKey == "" {
		cfg.TokenKey = DefaultTokenKey
	}
	if cfg.TutorialKey == "" {
		cfg.TutorialKey = DefaultTutorialKey
	}

	return cfg, nil
}

// Save writes config back to the file it was loaded from, or to
// ~/.sockmatch/config.yaml
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		base, err := HomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(base, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	c.path = path
	return nil
}

// Path returns the file the config is bound to, empty for unsaved defaults
func (c *Config) Path() string {
	return c.path
}

// BaseURLSource names the rule that produced a base URL
type BaseURLSource string

const (
	SourceEnv      BaseURLSource = "env"
	SourceConfig   BaseURLSource = "config"
	SourceDevHost  BaseURLSource = "dev-host"
	SourceProxied  BaseURLSource = "proxied"
	SourceFallback BaseURLSource = "lan-fallback"
)

// ResolveBaseURL picks the backend base URL once at startup:
// explicit override, dev host heuristic, /api under the serving origin for
// production web, then the LAN fallback. The result is always absolute.
func (c *Config) ResolveBaseURL() (string, BaseURLSource) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		return strings.TrimRight(v, "/"), SourceEnv
	}
	if v := strings.TrimSpace(c.APIURL); v != "" {
		return strings.TrimRight(v, "/"), SourceConfig
	}
	if !c.Production {
		if host := devHost(os.Getenv(EnvDevHost)); host != "" {
			return "http://" + host + ":" + DevBackendPort, SourceDevHost
		}
	}
	if c.Platform == PlatformWeb && c.Production {
		if origin := webOrigin(os.Getenv(EnvOrigin)); origin != "" {
			return origin + ProxiedAPIPath, SourceProxied
		}
	}
	return LANFallbackURL, SourceFallback
}

// webOrigin normalises an origin to scheme://host[:port]. Anything that is
// not an absolute http(s) URL yields "".
func webOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// devHost extracts the host part from the dev tooling's reported address,
// which may be "host:port", "exp://host:port" or a full URL.
func devHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if i := strings.Index(addr, "://"); i >= 0 {
		addr = addr[i+3:]
	}
	if i := strings.IndexAny(addr, "/?"); i >= 0 {
		addr = addr[:i]
	}
	if strings.HasPrefix(addr, "[") {
		if i := strings.Index(addr, "]"); i > 0 {
			return addr[:i+1]
		}
	}
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		addr = addr[:i]
	}
	return addr
}
