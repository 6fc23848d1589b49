// Package session keeps per-browser in-memory state behind a signed cookie.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// CookieName is the name of the session cookie.
const CookieName = "mom_session"

// ErrInvalidCookie is returned for cookies that fail verification.
var ErrInvalidCookie = errors.New("session: invalid cookie")

// Options configure a Manager.
type Options struct {
	Secret        []byte
	TTL           time.Duration
	SecureCookies bool

	// MaxSessions caps live sessions; the least recently seen one is
	// evicted to make room. Zero means no cap.
	MaxSessions int

	// OnEvict runs for each state dropped by Sweep.
	OnEvict func(*State)
}

// Manager maps cookie tokens to states.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*State

	key     []byte
	ttl     time.Duration
	secure  bool
	max     int
	onEvict func(*State)
	now     func() time.Time
}

func NewManager(opts Options) (*Manager, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("session: secret is required")
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("session: invalid ttl %s", opts.TTL)
	}
	// blake2b keys are capped at 64 bytes; derive a fixed-size key.
	key := blake2b.Sum256(opts.Secret)
	return &Manager{
		sessions: make(map[string]*State),
		key:      key[:],
		ttl:      opts.TTL,
		secure:   opts.SecureCookies,
		max:      opts.MaxSessions,
		onEvict:  opts.OnEvict,
		now:      time.Now,
	}, nil
}

// Load returns the caller's state, creating one and setting the cookie when
// the request carries no valid session.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *State {
	now := m.now()

	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := m.verify(c.Value); err == nil {
			m.mu.Lock()
			st, ok := m.sessions[id]
			m.mu.Unlock()
			if ok {
				st.touch(now)
				return st
			}
		}
	}

	st := newState(newToken(), now)
	var evicted *State
	m.mu.Lock()
	if m.max > 0 && len(m.sessions) >= m.max {
		evicted = m.leastRecentLocked(now)
		delete(m.sessions, evicted.ID)
	}
	m.sessions[st.ID] = st
	m.mu.Unlock()

	if evicted != nil {
		slog.Warn("session: limit reached, evicting least recent session", "limit", m.max)
		if m.onEvict != nil {
			m.onEvict(evicted)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.sign(st.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return st
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the TTL.
func (m *Manager) Sweep() int {
	now := m.now()

	var evicted []*State
	m.mu.Lock()
	for id, st := range m.sessions {
		if st.idleSince(now) > m.ttl {
			delete(m.sessions, id)
			evicted = append(evicted, st)
		}
	}
	m.mu.Unlock()

	if m.onEvict != nil {
		for _, st := range evicted {
			m.onEvict(st)
		}
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("session: evicted idle sessions", "count", n)
			}
		}
	}
}

func (m *Manager) leastRecentLocked(now time.Time) *State {
	var (
		oldest *State
		idle   time.Duration
	)
	for _, st := range m.sessions {
		if d := st.idleSince(now); oldest == nil || d > idle {
			oldest, idle = st, d
		}
	}
	return oldest
}

func (m *Manager) sign(id string) string {
	return id + "." + hex.EncodeToString(m.mac(id))
}

func (m *Manager) verify(value string) (string, error) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", ErrInvalidCookie
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return "", ErrInvalidCookie
	}
	if subtle.ConstantTimeCompare(got, m.mac(id)) != 1 {
		return "", ErrInvalidCookie
	}
	return id, nil
}

func (m *Manager) mac(id string) []byte {
	h, err := blake2b.New256(m.key)
	if err != nil {
		// Only possible for keys over 64 bytes, which NewManager rules out.
		panic(err)
	}
	h.Write([]byte(id))
	return h.Sum(nil)
}

func newToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
