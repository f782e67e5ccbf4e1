package tui

import (
	"context"
	"errors"
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/sockmatch/internal/api"
	"github.com/existflow/sockmatch/internal/model"
	"github.com/existflow/sockmatch/internal/pairing"
	"github.com/existflow/sockmatch/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	snap      session.Snapshot
	loginErr  error
	loggedOut bool
	tutorial  bool
}

func (f *fakeSession) Start(context.Context) session.Snapshot { return f.snap }

func (f *fakeSession) Login(_ context.Context, creds model.Credentials) (*model.User, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &model.User{ID: 1, Email: creds.Email}, nil
}

func (f *fakeSession) Logout(context.Context) { f.loggedOut = true }

func (f *fakeSession) HandleAuthFailure(_ context.Context, err error) bool {
	if api.IsAuthFailure(err) {
		f.loggedOut = true
		return true
	}
	return false
}

func (f *fakeSession) TutorialCompleted(context.Context) (bool, error) { return f.tutorial, nil }

func (f *fakeSession) CompleteTutorial(context.Context) error {
	f.tutorial = true
	return nil
}

type fakeSocks struct {
	socks     []model.Sock
	listErr   error
	unmatched bool
	deleted   []int64
}

func (f *fakeSocks) List(_ context.Context, unmatchedOnly bool) ([]model.Sock, error) {
	f.unmatched = unmatchedOnly
	return f.socks, f.listErr
}

func (f *fakeSocks) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeMatches struct{ matches []model.Match }

func (f *fakeMatches) List(context.Context) ([]model.Match, error) { return f.matches, nil }

type fakePairing struct {
	uploaded   []string
	candidates []model.SockMatch
	searchErr  error
	confirmed  [2]int64
	unpaired   int64
	decoupled  bool
}

func (f *fakePairing) UploadAll(_ context.Context, paths []string, _ string) ([]pairing.UploadResult, error) {
	f.uploaded = paths
	var out []pairing.UploadResult
	for i, p := range paths {
		out = append(out, pairing.UploadResult{
			Path:       p,
			Sock:       &model.Sock{ID: int64(10 + i)},
			Candidates: f.candidates,
			SearchErr:  f.searchErr,
		})
	}
	return out, nil
}

func (f *fakePairing) Candidates(context.Context, int64) ([]model.SockMatch, error) {
	return f.candidates, f.searchErr
}

func (f *fakePairing) Confirm(_ context.Context, a, b int64) (*model.Match, error) {
	f.confirmed = [2]int64{a, b}
	return &model.Match{ID: 3, Sock1ID: a, Sock2ID: b}, nil
}

func (f *fakePairing) Unpair(_ context.Context, id int64, decouple bool) error {
	f.unpaired, f.decoupled = id, decouple
	return nil
}

type harness struct {
	sess    *fakeSession
	socks   *fakeSocks
	matches *fakeMatches
	pairing *fakePairing
}

func newHarness() *harness {
	return &harness{
		sess:    &fakeSession{},
		socks:   &fakeSocks{},
		matches: &fakeMatches{},
		pairing: &fakePairing{},
	}
}

func (h *harness) model() Model {
	return NewModel(Deps{Session: h.sess, Socks: h.socks, Matches: h.matches, Pairing: h.pairing, Platform: "native"})
}

// step feeds msg to the model and runs the returned command once,
// feeding its message back as well
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	return drain(t, m, cmd)
}

func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
		return m
	case tea.QuitMsg:
		return m
	default:
		next, more := m.Update(msg)
		return drain(t, next.(Model), more)
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, s string) Model {
	for _, r := range s {
		next, _ := m.Update(keyRunes(string(r)))
		m = next.(Model)
	}
	return m
}

func started(t *testing.T, h *harness) Model {
	t.Helper()
	m := h.model()
	m = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return drain(t, m, m.Init())
}

func TestStartWithoutSessionShowsLogin(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Unauthenticated}

	m := started(t, h)
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Contains(t, m.View(), "Log in")
}

func TestStartWithSessionLoadsSocks(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1, Username: "alice"}}
	h.socks.socks = []model.Sock{{ID: 1, Description: "red wool"}, {ID: 2, IsMatched: true}}

	m := started(t, h)
	require.Equal(t, ScreenSocks, m.Screen())
	view := m.View()
	assert.Contains(t, view, "alice")
	assert.Contains(t, view, "red wool")
	assert.Contains(t, view, "Tip:")
}

func TestLoginFlow(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Unauthenticated}
	m := started(t, h)

	m = typeText(t, m, "alice@example.com")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "secret123")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ScreenSocks, m.Screen())
	require.NotNil(t, m.user)
	assert.Equal(t, "alice@example.com", m.user.Email)
	assert.Empty(t, m.password.Value())
}

func TestLoginFailureShowsDismissibleNotice(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Unauthenticated}
	h.sess.loginErr = &api.Error{Kind: api.KindAuthentication, Op: "auth.login", Status: http.StatusUnauthorized, Detail: "Incorrect email or password"}
	m := started(t, h)

	m = typeText(t, m, "alice@example.com")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "wrong-pass")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Contains(t, m.View(), "Incorrect email or password")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.notice)
}

func TestEmptyLoginIsRejectedLocally(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Unauthenticated}
	m := started(t, h)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Email and password are required.", m.notice)
	assert.False(t, m.busy)
}

func TestUploadShowsCandidatesAndConfirmsPair(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	h.pairing.candidates = []model.SockMatch{{SockID: 7, Similarity: 0.92}}
	m := started(t, h)

	m = step(t, m, keyRunes("u"))
	require.Equal(t, ScreenUpload, m.Screen())
	m = typeText(t, m, "left.jpg")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"left.jpg"}, h.pairing.uploaded)
	require.Equal(t, ScreenCandidates, m.Screen())
	assert.Contains(t, m.View(), "#7  92%")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "Pair sock #10 with #7")

	m = step(t, m, keyRunes("y"))
	assert.Equal(t, [2]int64{10, 7}, h.pairing.confirmed)
	assert.Equal(t, ScreenMatches, m.Screen())
}

func TestSearchFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	h.socks.socks = []model.Sock{{ID: 4}}
	h.pairing.candidates = []model.SockMatch{}
	h.pairing.searchErr = errors.New("search down")
	m := started(t, h)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ScreenCandidates, m.Screen())
	assert.True(t, m.searchFailed)
	assert.Empty(t, m.notice)
	assert.Contains(t, m.View(), "Could not search")
}

func TestAuthFailureReturnsToLogin(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	h.socks.listErr = &api.Error{Kind: api.KindAuthentication, Op: "socks.list", Status: http.StatusUnauthorized}

	m := started(t, h)
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.True(t, h.sess.loggedOut)
	assert.Contains(t, m.notice, "log in again")
}

func TestDeleteMatchedSockIsRefused(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	h.socks.socks = []model.Sock{{ID: 2, IsMatched: true}}
	m := started(t, h)

	m = step(t, m, keyRunes("d"))
	assert.Nil(t, m.confirm)
	assert.Contains(t, m.notice, "part of a pair")
	assert.Empty(t, h.socks.deleted)
}

func TestDeleteSockAsksFirst(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	h.socks.socks = []model.Sock{{ID: 5}}
	m := started(t, h)

	m = step(t, m, keyRunes("d"))
	require.NotNil(t, m.confirm)
	m = step(t, m, keyRunes("n"))
	assert.Nil(t, m.confirm)
	assert.Empty(t, h.socks.deleted)

	m = step(t, m, keyRunes("d"))
	m = step(t, m, keyRunes("y"))
	assert.Equal(t, []int64{5}, h.socks.deleted)
	assert.Equal(t, "Sock deleted", m.message)
}

func TestSplitAndDeletePairs(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	h.matches.matches = []model.Match{{ID: 9, Sock1ID: 1, Sock2ID: 2}}
	m := started(t, h)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, ScreenMatches, m.Screen())
	assert.Contains(t, m.View(), "sock #1 + sock #2")

	m = step(t, m, keyRunes("s"))
	assert.Contains(t, m.confirm.question, "keep both socks")
	m = step(t, m, keyRunes("y"))
	assert.Equal(t, int64(9), h.pairing.unpaired)
	assert.True(t, h.pairing.decoupled)

	m = step(t, m, keyRunes("d"))
	assert.Contains(t, m.confirm.question, "both socks")
	m = step(t, m, keyRunes("y"))
	assert.False(t, h.pairing.decoupled)
}

func TestFilterAndLogout(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	m := started(t, h)

	m = step(t, m, keyRunes("f"))
	assert.True(t, h.socks.unmatched)
	assert.Contains(t, m.View(), "unmatched only")

	m = step(t, m, keyRunes("L"))
	assert.True(t, h.sess.loggedOut)
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Nil(t, m.user)
}

func TestSearchResultAfterLogoutIsDropped(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	h.socks.socks = []model.Sock{{ID: 4}}
	h.pairing.candidates = []model.SockMatch{{SockID: 7, Similarity: 0.8}}
	m := started(t, h)

	next, inFlight := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, inFlight)

	m = step(t, m, keyRunes("L"))
	require.Equal(t, ScreenLogin, m.Screen())

	m = drain(t, m, inFlight)
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Nil(t, m.user)
	assert.Empty(t, m.candidates)
	assert.Empty(t, m.socks)
	assert.NotContains(t, m.View(), "#7")
}

func TestUploadResultAfterLogoutIsDropped(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	h.pairing.candidates = []model.SockMatch{{SockID: 7, Similarity: 0.92}}
	h.socks.socks = []model.Sock{{ID: 10, Description: "old session sock"}}
	m := started(t, h)

	m = step(t, m, keyRunes("u"))
	m = typeText(t, m, "left.jpg")
	next, inFlight := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, inFlight)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = step(t, m, keyRunes("L"))
	require.Equal(t, ScreenLogin, m.Screen())

	m = drain(t, m, inFlight)
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Empty(t, m.candidates)
	assert.Empty(t, m.socks)
	assert.NotContains(t, m.message, "Uploaded")

	// a new session still receives its own responses
	m = typeText(t, m, "bob@example.com")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "secret123")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ScreenSocks, m.Screen())
	assert.Len(t, m.socks, 1)
}

func TestTutorialTipCanBeHidden(t *testing.T) {
	h := newHarness()
	h.sess.snap = session.Snapshot{State: session.Authenticated, User: &model.User{ID: 1}}
	m := started(t, h)

	m = step(t, m, keyRunes("t"))
	assert.True(t, h.sess.tutorial)
	assert.NotContains(t, m.View(), "Tip:")
}

func TestTruncateAndBar(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "█████████░", bar(92))
	assert.Equal(t, "░░░░░░░░░░", bar(-5))
}
