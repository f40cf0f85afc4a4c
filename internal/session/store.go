package session

import (
	"sync"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// Store keeps sessions in memory by id. Sessions never share tables. When the
// store is full, creating a session evicts the oldest one.
type Store struct {
	mu       sync.Mutex
	capacity int
	opt      table.LoadOptions
	sessions map[string]*Session
	order    []string // creation order, oldest first
}

// NewStore returns a store holding at most capacity sessions (<= 0 means 64).
func NewStore(capacity int, opt table.LoadOptions) *Store {
	if capacity <= 0 {
		capacity = 64
	}
	return &Store{capacity: capacity, opt: opt, sessions: make(map[string]*Session)}
}

// Create adds an empty session. The second return value is the id of a
// session evicted to make room, if any.
func (st *Store) Create() (*Session, string) {
	s := st.Detached()
	return s, st.Add(s)
}

// Detached returns a new session using the store's load options without
// adding it. Load it first and call Add only on success, so a failed upload
// never evicts anything.
func (st *Store) Detached() *Session {
	return New(st.opt)
}

// Add inserts s, evicting the oldest session when the store is full. It
// returns the evicted id, if any. Adding a session already held is a no-op.
func (st *Store) Add(s *Session) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[s.ID()]; ok {
		return ""
	}
	var evicted string
	if len(st.order) >= st.capacity {
		evicted = st.order[0]
		st.order = st.order[1:]
		delete(st.sessions, evicted)
	}
	st.sessions[s.ID()] = s
	st.order = append(st.order, s.ID())
	return evicted
}

// Get returns the session with id or ErrNotFound.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes a session. Unknown ids return ErrNotFound.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	for i, v := range st.order {
		if v == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// List returns session metadata, oldest first.
func (st *Store) List() []Info {
	st.mu.Lock()
	ids := make([]*Session, 0, len(st.order))
	for _, id := range st.order {
		ids = append(ids, st.sessions[id])
	}
	st.mu.Unlock()
	out := make([]Info, len(ids))
	for i, s := range ids {
		out[i] = s.Info()
	}
	return out
}
