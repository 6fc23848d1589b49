package session

import (
	"sync"
	"time"

	"github.com/minutes/internal/form"
	"github.com/minutes/internal/intake"
	"github.com/minutes/internal/model"
)

// State is everything one browser holds in memory: the form being edited
// and the record waiting to be shown on the Details Screen.
type State struct {
	ID   string
	Form *form.Workspace

	mu       sync.Mutex
	handoff  *model.MeetingRecord
	rejected []intake.Rejection
	lastSeen time.Time
}

func newState(id string, now time.Time) *State {
	return &State{ID: id, Form: form.NewWorkspace(), lastSeen: now}
}

// HandOff passes rec to the next Details Screen render. The state owns rec
// from here on; a newer hand-off replaces an unread one.
func (s *State) HandOff(rec *model.MeetingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handoff = rec
}

// TakeHandoff returns the pending record, or nil, and clears it.
func (s *State) TakeHandoff() *model.MeetingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.handoff
	s.handoff = nil
	return rec
}

// AddRejections queues rejections for the next Form Screen render.
func (s *State) AddRejections(rs []intake.Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, rs...)
}

// TakeRejections returns and clears the queued rejections.
func (s *State) TakeRejections() []intake.Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.rejected
	s.rejected = nil
	return rs
}

// DetailsScope names the preview scope of this session's Details Screen.
func (s *State) DetailsScope() string {
	return "details:" + s.ID
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
