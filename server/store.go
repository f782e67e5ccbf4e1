package server

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/existflow/sockmatch/internal/model"
	"github.com/google/uuid"
)

var (
	errNotFound       = errors.New("not found")
	errDuplicateUser  = errors.New("email or username already registered")
	errAlreadyMatched = errors.New("sock is already matched")
	errSameSock       = errors.New("cannot match a sock with itself")
)

type userRecord struct {
	user model.User
	hash []byte
}

type sockRecord struct {
	sock        model.Sock
	image       []byte
	contentType string
	hist        histogram
}

// store holds all backend state. Every method takes the lock for its
// whole duration so match bookkeeping stays consistent.
type store struct {
	mu sync.Mutex

	nextUserID  int64
	nextSockID  int64
	nextMatchID int64

	users   map[int64]*userRecord
	logins  map[string]int64
	socks   map[int64]*sockRecord
	matches map[int64]model.Match
}

func newStore() *store {
	return &store{
		users:   make(map[int64]*userRecord),
		logins:  make(map[string]int64),
		socks:   make(map[int64]*sockRecord),
		matches: make(map[int64]model.Match),
	}
}

func loginKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (st *store) createUser(email, username string, hash []byte, now time.Time) (model.User, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.logins[loginKey(email)]; ok {
		return model.User{}, errDuplicateUser
	}
	if username != "" {
		if _, ok := st.logins[loginKey(username)]; ok {
			return model.User{}, errDuplicateUser
		}
	}

	st.nextUserID++
	u := model.User{
		ID:        st.nextUserID,
		Email:     strings.TrimSpace(email),
		Username:  strings.TrimSpace(username),
		IsActive:  true,
		CreatedAt: now.UTC(),
	}
	st.users[u.ID] = &userRecord{user: u, hash: hash}
	st.logins[loginKey(email)] = u.ID
	if username != "" {
		st.logins[loginKey(username)] = u.ID
	}
	return u, nil
}

// userByLogin resolves an email or username
func (st *store) userByLogin(login string) (model.User, []byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	id, ok := st.logins[loginKey(login)]
	if !ok {
		return model.User{}, nil, errNotFound
	}
	rec := st.users[id]
	return rec.user, rec.hash, nil
}

func (st *store) user(id int64) (model.User, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, ok := st.users[id]
	if !ok {
		return model.User{}, errNotFound
	}
	return rec.user, nil
}

func (st *store) acceptTerms(id int64, now time.Time) (model.User, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, ok := st.users[id]
	if !ok {
		return model.User{}, errNotFound
	}
	at := now.UTC()
	rec.user.TermsAcceptedAt = &at
	rec.user.PrivacyAcceptedAt = &at
	return rec.user, nil
}

func (st *store) createSock(owner int64, description string, image []byte, contentType string, now time.Time) model.Sock {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.nextSockID++
	hist := histogramOf(image)
	s := model.Sock{
		ID:            st.nextSockID,
		OwnerID:       owner,
		ImagePath:     "uploads/" + uuid.NewString(),
		Description:   description,
		DominantColor: hist.dominantColor(),
		CreatedAt:     now.UTC(),
	}
	st.socks[s.ID] = &sockRecord{sock: s, image: image, contentType: contentType, hist: hist}
	return cloneSock(s)
}

// ownedSock returns the record when it exists and belongs to owner.
// Callers must hold the lock.
func (st *store) ownedSock(owner, id int64) (*sockRecord, error) {
	rec, ok := st.socks[id]
	if !ok || rec.sock.OwnerID != owner {
		return nil, errNotFound
	}
	return rec, nil
}

func (st *store) sock(owner, id int64) (model.Sock, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, err := st.ownedSock(owner, id)
	if err != nil {
		return model.Sock{}, err
	}
	return cloneSock(rec.sock), nil
}

func (st *store) sockImage(owner, id int64) ([]byte, string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, err := st.ownedSock(owner, id)
	if err != nil {
		return nil, "", err
	}
	return rec.image, rec.contentType, nil
}

func (st *store) listSocks(owner int64, unmatchedOnly bool) []model.Sock {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]model.Sock, 0)
	for _, rec := range st.socks {
		if rec.sock.OwnerID != owner {
			continue
		}
		if unmatchedOnly && rec.sock.IsMatched {
			continue
		}
		out = append(out, cloneSock(rec.sock))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *store) deleteSock(owner, id int64) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, err := st.ownedSock(owner, id)
	if err != nil {
		return err
	}
	if rec.sock.IsMatched {
		return errAlreadyMatched
	}
	delete(st.socks, id)
	return nil
}

// searchSock ranks the owner's other unmatched socks against sock id
func (st *store) searchSock(owner, id int64, limit int) ([]model.SockMatch, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, err := st.ownedSock(owner, id)
	if err != nil {
		return nil, err
	}
	return st.rank(owner, rec.hist, id, limit), nil
}

// searchImage ranks the owner's unmatched socks against an uploaded image
func (st *store) searchImage(owner int64, image []byte, exclude int64, limit int) []model.SockMatch {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.rank(owner, histogramOf(image), exclude, limit)
}

// rank must be called with the lock held
func (st *store) rank(owner int64, target histogram, exclude int64, limit int) []model.SockMatch {
	out := make([]model.SockMatch, 0)
	for _, rec := range st.socks {
		if rec.sock.OwnerID != owner || rec.sock.ID == exclude || rec.sock.IsMatched {
			continue
		}
		out = append(out, model.SockMatch{SockID: rec.sock.ID, Similarity: target.similarity(rec.hist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].SockID < out[j].SockID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (st *store) createMatch(owner, sock1, sock2 int64, now time.Time) (model.Match, error) {
	if sock1 == sock2 {
		return model.Match{}, errSameSock
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	r1, err := st.ownedSock(owner, sock1)
	if err != nil {
		return model.Match{}, err
	}
	r2, err := st.ownedSock(owner, sock2)
	if err != nil {
		return model.Match{}, err
	}
	if r1.sock.IsMatched || r2.sock.IsMatched {
		return model.Match{}, errAlreadyMatched
	}

	r1.sock.IsMatched = true
	r2.sock.IsMatched = true

	st.nextMatchID++
	m := model.Match{ID: st.nextMatchID, Sock1ID: sock1, Sock2ID: sock2, MatchedAt: now.UTC()}
	st.matches[m.ID] = m
	return st.expand(m), nil
}

// ownedMatch must be called with the lock held
func (st *store) ownedMatch(owner, id int64) (model.Match, error) {
	m, ok := st.matches[id]
	if !ok {
		return model.Match{}, errNotFound
	}
	if r, ok := st.socks[m.Sock1ID]; !ok || r.sock.OwnerID != owner {
		return model.Match{}, errNotFound
	}
	return m, nil
}

func (st *store) match(owner, id int64) (model.Match, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	m, err := st.ownedMatch(owner, id)
	if err != nil {
		return model.Match{}, err
	}
	return st.expand(m), nil
}

func (st *store) listMatches(owner int64) []model.Match {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]model.Match, 0)
	for id := range st.matches {
		m, err := st.ownedMatch(owner, id)
		if err != nil {
			continue
		}
		out = append(out, st.expand(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// deleteMatch removes a match. decouple keeps both socks as unmatched,
// otherwise both socks are deleted with it.
func (st *store) deleteMatch(owner, id int64, decouple bool) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	m, err := st.ownedMatch(owner, id)
	if err != nil {
		return err
	}
	delete(st.matches, id)

	for _, sid := range []int64{m.Sock1ID, m.Sock2ID} {
		if decouple {
			if rec, ok := st.socks[sid]; ok {
				rec.sock.IsMatched = false
			}
			continue
		}
		delete(st.socks, sid)
	}
	return nil
}

// expand must be called with the lock held
func (st *store) expand(m model.Match) model.Match {
	if r, ok := st.socks[m.Sock1ID]; ok {
		s := cloneSock(r.sock)
		m.Sock1 = &s
	}
	if r, ok := st.socks[m.Sock2ID]; ok {
		s := cloneSock(r.sock)
		m.Sock2 = &s
	}
	return m
}

func cloneSock(s model.Sock) model.Sock {
	if s.ColorPalette != nil {
		s.ColorPalette = append([]string(nil), s.ColorPalette...)
	}
	return s
}
