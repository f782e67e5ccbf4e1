package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/sockmatch/internal/api"
	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/model"
	"github.com/existflow/sockmatch/internal/session"
)

// Init checks for a stored session
func (m Model) Init() tea.Cmd {
	return checkSession(m.ctx, m.deps)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case scopedMsg:
		if msg.epoch != m.epoch {
			logger.Debug("Dropping response from an earlier session",
				logger.F("response", fmt.Sprintf("%T", msg.msg)))
			return m, nil
		}
		return m.Update(msg.msg)

	case sessionMsg:
		m.tutorialDone = msg.tutorialDone
		if msg.snap.State != session.Authenticated {
			m.toLogin()
			return m, nil
		}
		m.user = msg.snap.User
		m.screen = ScreenSocks
		m.busy = true
		return m, m.scoped(loadSocks(m.ctx, m.deps, m.unmatchedOnly))

	case loginMsg:
		m.busy = false
		m.password.SetValue("")
		if msg.err != nil {
			m.notice = api.UserMessage(msg.err)
			return m, nil
		}
		m.user = msg.user
		m.notice = ""
		m.message = "Welcome, " + msg.user.DisplayName()
		m.screen = ScreenSocks
		m.busy = true
		return m, m.scoped(loadSocks(m.ctx, m.deps, m.unmatchedOnly))

	case socksMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.handleErr(msg.err)
		}
		m.socks = msg.socks
		m.sockCursor = clampCursor(m.sockCursor, len(m.socks))
		return m, nil

	case matchesMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.handleErr(msg.err)
		}
		m.matches = msg.matches
		m.matchCursor = clampCursor(m.matchCursor, len(m.matches))
		return m, nil

	case uploadMsg:
		return m.afterUpload(msg)

	case candidatesMsg:
		m.busy = false
		if msg.err != nil && api.IsAuthFailure(msg.err) {
			return m, m.handleErr(msg.err)
		}
		m.showCandidates(msg.sockID, msg.candidates, msg.err != nil)
		return m, nil

	case pairedMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.handleErr(msg.err)
		}
		m.message = fmt.Sprintf("Paired sock #%d with #%d", msg.match.Sock1ID, msg.match.Sock2ID)
		m.screen = ScreenMatches
		m.candidates = nil
		return m, tea.Batch(m.scoped(loadSocks(m.ctx, m.deps, m.unmatchedOnly)), m.scoped(loadMatches(m.ctx, m.deps)))

	case removedMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.handleErr(msg.err)
		}
		m.message = msg.text
		return m, tea.Batch(m.scoped(loadSocks(m.ctx, m.deps, m.unmatchedOnly)), m.scoped(loadMatches(m.ctx, m.deps)))

	case tutorialMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.tutorialDone = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleErr shows an error and drops back to the login form when the
// session is no longer valid
func (m *Model) handleErr(err error) tea.Cmd {
	logger.Warn("TUI request failed", logger.F("error", err))
	if m.deps.Session.HandleAuthFailure(m.ctx, err) {
		m.toLogin()
		m.notice = api.UserMessage(err)
		if !strings.Contains(m.notice, "log in") {
			m.notice += " Please log in again."
		}
		return nil
	}
	m.notice = api.UserMessage(err)
	return nil
}

func (m *Model) toLogin() {
	m.epoch++
	m.screen = ScreenLogin
	m.user = nil
	m.busy = false
	m.confirm = nil
	m.socks = nil
	m.matches = nil
	m.candidates = nil
	m.focus = 0
	m.email.Focus()
	m.password.Blur()
	m.password.SetValue("")
}

func (m Model) afterUpload(msg uploadMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.upload.SetValue("")
	m.screen = ScreenSocks

	var cmd tea.Cmd
	if msg.err != nil {
		cmd = m.handleErr(msg.err)
		if m.screen == ScreenLogin {
			return m, cmd
		}
	}

	if n := len(msg.results); n > 0 {
		m.message = fmt.Sprintf("Uploaded %d photo(s)", n)
		last := msg.results[n-1]
		m.showCandidates(last.Sock.ID, last.Candidates, last.SearchErr != nil)
	}
	return m, tea.Batch(cmd, m.scoped(loadSocks(m.ctx, m.deps, m.unmatchedOnly)))
}

func (m *Model) showCandidates(sockID int64, list []model.SockMatch, failed bool) {
	m.screen = ScreenCandidates
	m.candidateFor = sockID
	m.candidates = list
	m.searchFailed = failed
	m.candCursor = 0
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.confirm != nil {
		return m.handleConfirmKeys(msg)
	}

	if m.notice != "" && key.Matches(msg, keys.Escape) {
		m.notice = ""
		return m, nil
	}

	switch m.screen {
	case ScreenLoading:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	case ScreenLogin:
		return m.handleLoginKeys(msg)
	case ScreenUpload:
		return m.handleUploadKeys(msg)
	case ScreenHelp:
		m.screen = m.prev
		return m, nil
	}

	return m.handleNormalKeys(msg)
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Yes):
		p := m.confirm
		m.confirm = nil
		m.busy = true
		return m, p.run(&m)
	case key.Matches(msg, keys.No):
		m.confirm = nil
		m.message = "Cancelled"
	}
	return m, nil
}

func (m Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.switchFocus()
		return m, nil
	case tea.KeyEnter:
		if m.focus == 0 {
			m.switchFocus()
			return m, nil
		}
		return m.submitLogin()
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) switchFocus() {
	if m.focus == 0 {
		m.focus = 1
		m.email.Blur()
		m.password.Focus()
		return
	}
	m.focus = 0
	m.password.Blur()
	m.email.Focus()
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	creds := model.Credentials{
		Email:    strings.TrimSpace(m.email.Value()),
		Password: m.password.Value(),
	}
	if creds.Email == "" || creds.Password == "" {
		m.notice = "Email and password are required."
		return m, nil
	}
	m.notice = ""
	m.message = "Logging in..."
	m.busy = true
	return m, login(m.ctx, m.deps, creds)
}

func (m Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.upload.Blur()
		m.screen = ScreenSocks
		return m, nil
	case tea.KeyEnter:
		paths := splitPaths(m.upload.Value())
		if len(paths) == 0 {
			m.notice = "Enter at least one image path."
			return m, nil
		}
		m.upload.Blur()
		m.busy = true
		m.message = fmt.Sprintf("Uploading %d photo(s)...", len(paths))
		return m, m.scoped(uploadPhotos(m.ctx, m.deps, paths))
	}

	var cmd tea.Cmd
	m.upload, cmd = m.upload.Update(msg)
	return m, cmd
}

// handleNormalKeys handles the list screens
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.prev = m.screen
		m.screen = ScreenHelp
		return m, nil

	case key.Matches(msg, keys.Logout):
		m.deps.Session.Logout(m.ctx)
		m.toLogin()
		m.message = "Logged out"
		return m, nil

	case key.Matches(msg, keys.Refresh):
		m.busy = true
		return m, tea.Batch(m.scoped(loadSocks(m.ctx, m.deps, m.unmatchedOnly)), m.scoped(loadMatches(m.ctx, m.deps)))

	case key.Matches(msg, keys.Tab):
		if m.screen == ScreenMatches {
			m.screen = ScreenSocks
			return m, m.scoped(loadSocks(m.ctx, m.deps, m.unmatchedOnly))
		}
		m.screen = ScreenMatches
		return m, m.scoped(loadMatches(m.ctx, m.deps))

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
		return m, nil
	}

	switch m.screen {
	case ScreenSocks:
		return m.handleSockKeys(msg)
	case ScreenCandidates:
		return m.handleCandidateKeys(msg)
	case ScreenMatches:
		return m.handleMatchKeys(msg)
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.screen {
	case ScreenSocks:
		m.sockCursor = clampCursor(m.sockCursor+delta, len(m.socks))
	case ScreenCandidates:
		m.candCursor = clampCursor(m.candCursor+delta, len(m.candidates))
	case ScreenMatches:
		m.matchCursor = clampCursor(m.matchCursor+delta, len(m.matches))
	}
}

func (m Model) handleSockKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Upload):
		m.screen = ScreenUpload
		m.upload.SetValue("")
		m.upload.Focus()
		return m, nil

	case key.Matches(msg, keys.Filter):
		m.unmatchedOnly = !m.unmatchedOnly
		m.sockCursor = 0
		m.busy = true
		return m, m.scoped(loadSocks(m.ctx, m.deps, m.unmatchedOnly))

	case key.Matches(msg, keys.Tutorial):
		if m.tutorialDone {
			return m, nil
		}
		return m, completeTutorial(m.ctx, m.deps)

	case key.Matches(msg, keys.Enter):
		s := m.currentSock()
		if s == nil {
			return m, nil
		}
		if s.IsMatched {
			m.message = fmt.Sprintf("Sock #%d is already paired", s.ID)
			return m, nil
		}
		m.busy = true
		m.message = fmt.Sprintf("Searching partners for sock #%d...", s.ID)
		return m, m.scoped(searchCandidates(m.ctx, m.deps, s.ID))

	case key.Matches(msg, keys.Delete):
		s := m.currentSock()
		if s == nil {
			return m, nil
		}
		if s.IsMatched {
			m.notice = fmt.Sprintf("Sock #%d is part of a pair. Split or delete the pair first.", s.ID)
			return m, nil
		}
		id := s.ID
		m.confirm = &pending{
			question: fmt.Sprintf("Delete sock #%d? This cannot be undone.", id),
			run: func(m *Model) tea.Cmd {
				return m.scoped(deleteSock(m.ctx, m.deps, id))
			},
		}
	}
	return m, nil
}

func (m Model) handleCandidateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.screen = ScreenSocks
		m.candidates = nil
		return m, nil

	case key.Matches(msg, keys.Enter):
		c := m.currentCandidate()
		if c == nil {
			return m, nil
		}
		sockID, candID := m.candidateFor, c.SockID
		m.confirm = &pending{
			question: fmt.Sprintf("Pair sock #%d with #%d (%d%% similar)?", sockID, candID, c.Percent()),
			run: func(m *Model) tea.Cmd {
				return m.scoped(confirmPair(m.ctx, m.deps, sockID, candID))
			},
		}
	}
	return m, nil
}

func (m Model) handleMatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mt := m.currentMatch()
	if mt == nil {
		return m, nil
	}
	id := mt.ID

	switch {
	case key.Matches(msg, keys.Delete):
		m.confirm = &pending{
			question: fmt.Sprintf("Delete pair #%d and both socks (#%d, #%d)?", id, mt.Sock1ID, mt.Sock2ID),
			run: func(m *Model) tea.Cmd {
				return m.scoped(unpair(m.ctx, m.deps, id, false))
			},
		}
	case key.Matches(msg, keys.Split):
		m.confirm = &pending{
			question: fmt.Sprintf("Split pair #%d and keep both socks as singles?", id),
			run: func(m *Model) tea.Cmd {
				return m.scoped(unpair(m.ctx, m.deps, id, true))
			},
		}
	}
	return m, nil
}
