package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/model"
	"github.com/existflow/sockmatch/internal/pairing"
	"github.com/existflow/sockmatch/internal/session"
)

// Screen is the page currently shown
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenLogin
	ScreenSocks
	ScreenUpload
	ScreenCandidates
	ScreenMatches
	ScreenHelp
)

// SessionManager is the part of the session the TUI drives
type SessionManager interface {
	Start(ctx context.Context) session.Snapshot
	Login(ctx context.Context, creds model.Credentials) (*model.User, error)
	Logout(ctx context.Context)
	HandleAuthFailure(ctx context.Context, err error) bool
	TutorialCompleted(ctx context.Context) (bool, error)
	CompleteTutorial(ctx context.Context) error
}

// SockLister lists and removes single socks
type SockLister interface {
	List(ctx context.Context, unmatchedOnly bool) ([]model.Sock, error)
	Delete(ctx context.Context, id int64) error
}

// MatchLister lists confirmed pairs
type MatchLister interface {
	List(ctx context.Context) ([]model.Match, error)
}

// Pairer runs the upload, search and confirm workflow
type Pairer interface {
	UploadAll(ctx context.Context, paths []string, description string) ([]pairing.UploadResult, error)
	Candidates(ctx context.Context, sockID int64) ([]model.SockMatch, error)
	Confirm(ctx context.Context, sockID, candidateID int64) (*model.Match, error)
	Unpair(ctx context.Context, matchID int64, decouple bool) error
}

// Deps are the services the TUI talks to
type Deps struct {
	Session  SessionManager
	Socks    SockLister
	Matches  MatchLister
	Pairing  Pairer
	Platform string
}

// pending is an action waiting for a y/n answer
type pending struct {
	question string
	run      func(m *Model) tea.Cmd
}

// Model is the main TUI model
type Model struct {
	deps Deps
	ctx  context.Context

	// UI state
	width  int
	height int
	screen Screen
	prev   Screen
	busy   bool

	user         *model.User
	tutorialDone bool

	// Login form
	email    textinput.Model
	password textinput.Model
	focus    int

	// Upload form
	upload textinput.Model

	socks         []model.Sock
	unmatchedOnly bool
	sockCursor    int

	candidateFor int64
	candidates   []model.SockMatch
	searchFailed bool
	candCursor   int

	matches     []model.Match
	matchCursor int

	confirm *pending

	// epoch changes whenever the session ends; see scoped
	epoch uint64

	// notice is an error that stays until dismissed
	notice  string
	message string
}

// NewModel creates a new TUI model
func NewModel(deps Deps) Model {
	logger.Info("Initializing TUI model", logger.F("platform", deps.Platform))

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 40

	upload := textinput.New()
	upload.Placeholder = "left.jpg right.heic"
	upload.CharLimit = 1024
	upload.Width = 50

	return Model{
		deps:     deps,
		ctx:      context.Background(),
		screen:   ScreenLoading,
		email:    email,
		password: password,
		upload:   upload,
	}
}

// Screen returns the page currently shown
func (m Model) Screen() Screen {
	return m.screen
}

func (m *Model) currentSock() *model.Sock {
	if m.sockCursor < len(m.socks) {
		return &m.socks[m.sockCursor]
	}
	return nil
}

func (m *Model) currentCandidate() *model.SockMatch {
	if m.candCursor < len(m.candidates) {
		return &m.candidates[m.candCursor]
	}
	return nil
}

func (m *Model) currentMatch() *model.Match {
	if m.matchCursor < len(m.matches) {
		return &m.matches[m.matchCursor]
	}
	return nil
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
