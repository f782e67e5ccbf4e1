package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/sockmatch/internal/model"
	"github.com/existflow/sockmatch/internal/pairing"
	"github.com/existflow/sockmatch/internal/session"
)

// sessionMsg carries the outcome of the startup token check
type sessionMsg struct {
	snap         session.Snapshot
	tutorialDone bool
}

type loginMsg struct {
	user *model.User
	err  error
}

type socksMsg struct {
	socks []model.Sock
	err   error
}

type matchesMsg struct {
	matches []model.Match
	err     error
}

type uploadMsg struct {
	results []pairing.UploadResult
	err     error
}

type candidatesMsg struct {
	sockID     int64
	candidates []model.SockMatch
	err        error
}

type pairedMsg struct {
	match *model.Match
	err   error
}

// removedMsg reports a finished delete of a sock or a match
type removedMsg struct {
	text string
	err  error
}

type tutorialMsg struct{ err error }

// scopedMsg tags a response with the session epoch it was requested in
type scopedMsg struct {
	epoch uint64
	msg   tea.Msg
}

// scoped tags the result of cmd with the current epoch. Update drops it
// if the user logged out or the session expired in the meantime.
func (m Model) scoped(cmd tea.Cmd) tea.Cmd {
	epoch := m.epoch
	return func() tea.Msg {
		return scopedMsg{epoch: epoch, msg: cmd()}
	}
}

func checkSession(ctx context.Context, d Deps) tea.Cmd {
	return func() tea.Msg {
		snap := d.Session.Start(ctx)
		done, _ := d.Session.TutorialCompleted(ctx)
		return sessionMsg{snap: snap, tutorialDone: done}
	}
}

func login(ctx context.Context, d Deps, creds model.Credentials) tea.Cmd {
	return func() tea.Msg {
		user, err := d.Session.Login(ctx, creds)
		return loginMsg{user: user, err: err}
	}
}

func loadSocks(ctx context.Context, d Deps, unmatchedOnly bool) tea.Cmd {
	return func() tea.Msg {
		socks, err := d.Socks.List(ctx, unmatchedOnly)
		return socksMsg{socks: socks, err: err}
	}
}

func loadMatches(ctx context.Context, d Deps) tea.Cmd {
	return func() tea.Msg {
		matches, err := d.Matches.List(ctx)
		return matchesMsg{matches: matches, err: err}
	}
}

func uploadPhotos(ctx context.Context, d Deps, paths []string) tea.Cmd {
	return func() tea.Msg {
		results, err := d.Pairing.UploadAll(ctx, paths, "")
		return uploadMsg{results: results, err: err}
	}
}

func searchCandidates(ctx context.Context, d Deps, sockID int64) tea.Cmd {
	return func() tea.Msg {
		list, err := d.Pairing.Candidates(ctx, sockID)
		return candidatesMsg{sockID: sockID, candidates: list, err: err}
	}
}

func confirmPair(ctx context.Context, d Deps, sockID, candidateID int64) tea.Cmd {
	return func() tea.Msg {
		m, err := d.Pairing.Confirm(ctx, sockID, candidateID)
		return pairedMsg{match: m, err: err}
	}
}

func deleteSock(ctx context.Context, d Deps, id int64) tea.Cmd {
	return func() tea.Msg {
		err := d.Socks.Delete(ctx, id)
		return removedMsg{text: "Sock deleted", err: err}
	}
}

func unpair(ctx context.Context, d Deps, id int64, decouple bool) tea.Cmd {
	return func() tea.Msg {
		err := d.Pairing.Unpair(ctx, id, decouple)
		text := "Pair and socks deleted"
		if decouple {
			text = "Pair split, both socks are single again"
		}
		return removedMsg{text: text, err: err}
	}
}

func completeTutorial(ctx context.Context, d Deps) tea.Cmd {
	return func() tea.Msg {
		return tutorialMsg{err: d.Session.CompleteTutorial(ctx)}
	}
}
