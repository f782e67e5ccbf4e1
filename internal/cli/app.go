package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/existflow/sockmatch/internal/api"
	"github.com/existflow/sockmatch/internal/config"
	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/pairing"
	"github.com/existflow/sockmatch/internal/session"
	"github.com/existflow/sockmatch/internal/storage"
	"github.com/existflow/sockmatch/internal/tokenstore"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app holds everything a command needs, built once per invocation
type app struct {
	cfg     *config.Config
	baseURL string
	source  config.BaseURLSource

	tokens  *tokenstore.Store
	client  *api.Client
	session *session.Manager
	socks   *api.SocksAPI
	matches *api.MatchesAPI
	pairing *pairing.Service

	out   io.Writer
	in    *bufio.Reader
	stdin io.Reader
}

func (a *app) setup(cmd *cobra.Command, opts *rootOptions) error {
	config.LoadDotEnv()

	// Load config from file (or defaults if not exists)
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("Failed to load config, using defaults", logger.F("error", err))
		cfg = config.DefaultConfig()
	}

	// Override with CLI flags if provided
	configChanged := false
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
		configChanged = true
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = opts.logFile
		configChanged = true
	}
	if cmd.Flags().Changed("log-console") {
		cfg.LogConsole = opts.logConsole
		configChanged = true
	}
	if cmd.Flags().Changed("platform") {
		p := config.Platform(opts.platform)
		if !p.Valid() {
			return fmt.Errorf("invalid platform %q (want native or web)", opts.platform)
		}
		cfg.Platform = p
		configChanged = true
	}

	// Save config if changed via CLI flags
	if configChanged {
		if err := cfg.Save(); err != nil {
			logger.Warn("Failed to save config", logger.F("error", err))
		}
	}

	// --api-url applies to this run only
	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = opts.apiURL
	}

	logConfig := logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		FilePath:   cfg.LogFile,
		MaxSize:    10 * 1024 * 1024, // 10MB
		MaxAge:     7,
		MaxBackups: 5,
		Console:    cfg.LogConsole,
	}
	if err := logger.Init(logConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	kind := storage.Kind(cfg.Platform)
	if opts.ephemeral {
		kind = storage.KindMemory
	}
	backend, err := storage.Open(kind, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open token storage: %w", err)
	}

	a.cfg = cfg
	a.tokens = tokenstore.New(backend, tokenstore.Keys{Token: cfg.TokenKey, Tutorial: cfg.TutorialKey})
	a.baseURL, a.source = cfg.ResolveBaseURL()
	a.client = api.NewClient(a.baseURL,
		api.WithTokenSource(a.tokens),
		api.WithUserAgent("sockmatch-cli/"+Version))
	a.session = session.New(a.client.Auth(), a.tokens)
	a.socks = a.client.Socks(api.UploaderFor(string(cfg.Platform)), a.tokens)
	a.matches = a.client.Matches()
	a.pairing = pairing.NewService(a.socks, a.matches, 0)

	a.out = cmd.OutOrStdout()
	a.stdin = cmd.InOrStdin()
	a.in = bufio.NewReader(a.stdin)

	logger.Info("SockMatch started",
		logger.F("command", cmd.Name()),
		logger.F("platform", string(cfg.Platform)),
		logger.F("storage", string(kind)),
		logger.F("base_url", a.baseURL),
		logger.F("base_url_source", string(a.source)))
	return nil
}

func (a *app) close() {
	if a.tokens == nil {
		return
	}
	if err := a.tokens.Close(); err != nil {
		logger.Warn("Failed to close token storage", logger.F("error", err))
	}
	a.tokens = nil
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(args ...interface{}) {
	fmt.Fprintln(a.out, args...)
}

// userError carries the message shown to the user and keeps the cause
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// fail turns an API error into a user facing one. An authentication
// failure also ends the local session.
func (a *app) fail(ctx context.Context, err error) error {
	msg := api.UserMessage(err)
	if a.session.HandleAuthFailure(ctx, err) {
		msg += " Run 'sockmatch auth login' to sign in."
	}
	return &userError{msg: msg, err: err}
}

// readLine prompts and reads one trimmed line
func (a *app) readLine(prompt string) string {
	a.printf("%s", prompt)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// readPassword reads without echo on a terminal and falls back to a plain
// line otherwise, so passwords can be piped in
func (a *app) readPassword(prompt string) string {
	a.printf("%s", prompt)
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, _ := term.ReadPassword(int(f.Fd()))
		a.println()
		return string(b)
	}
	line, _ := a.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

// confirm asks a y/N question unless force is set or confirmations are off
func (a *app) confirm(force bool, question string) bool {
	if force || !a.cfg.ConfirmDelete {
		return true
	}
	answer := a.readLine(question + " [y/N]: ")
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
