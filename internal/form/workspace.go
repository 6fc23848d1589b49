// Package form owns the record edited on the Form Screen.
package form

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minutes/internal/intake"
	"github.com/minutes/internal/model"
)

// Processor turns candidate files into an ordered, preview-resolved batch.
type Processor interface {
	Process(ctx context.Context, candidates []model.Candidate) (intake.Batch, error)
}

// Fields are the text inputs of the form.
type Fields struct {
	Participants string
	ScheduledAt  string
	Minutes      string
}

// Workspace is the single writer of one Form Screen record. Every reset
// (submit or cancel) starts a new epoch; batches begun in an older epoch are
// dropped when they finish.
type Workspace struct {
	mu     sync.Mutex
	record *model.MeetingRecord
	epoch  uint64
}

func NewWorkspace() *Workspace {
	return &Workspace{record: &model.MeetingRecord{}}
}

// SetFields overwrites the text fields in place.
func (w *Workspace) SetFields(f Fields) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.record.Participants = f.Participants
	w.record.ScheduledAt = f.ScheduledAt
	w.record.Minutes = f.Minutes
}

// Snapshot returns a copy of the record safe to render without the lock.
func (w *Workspace) Snapshot() model.MeetingRecord {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec := *w.record
	rec.Attachments = append([]model.Attachment(nil), w.record.Attachments...)
	return rec
}

// Len returns the number of attachments currently held.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.record.Attachments)
}

// Epoch identifies the current form generation.
func (w *Workspace) Epoch() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.epoch
}

// Attach runs candidates through p without holding the lock, then appends
// the accepted files in one step. Concurrent batches append in the order
// they complete.
func (w *Workspace) Attach(ctx context.Context, p Processor, candidates []model.Candidate) (intake.Batch, error) {
	epoch := w.Epoch()

	batch, err := p.Process(ctx, candidates)
	if err != nil {
		return intake.Batch{}, fmt.Errorf("attach: %w", err)
	}

	if err := w.Commit(epoch, batch.Accepted); err != nil {
		return batch, err
	}
	return batch, nil
}

// Commit appends attachments if the form is still in the given epoch.
func (w *Workspace) Commit(epoch uint64, atts []model.Attachment) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if epoch != w.epoch {
		return ErrStale
	}
	w.record.Attachments = append(w.record.Attachments, atts...)
	return nil
}

// Remove deletes the attachment at index; later attachments shift down.
func (w *Workspace) Remove(index int) (model.Attachment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	atts := w.record.Attachments
	if index < 0 || index >= len(atts) {
		return model.Attachment{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(atts))
	}

	removed := atts[index]
	next := make([]model.Attachment, 0, len(atts)-1)
	next = append(next, atts[:index]...)
	next = append(next, atts[index+1:]...)
	w.record.Attachments = next
	return removed, nil
}

// Submit validates the record and, on success, hands it over. The caller
// becomes its only owner; the workspace starts over with an empty record.
// On failure the record is left untouched.
func (w *Workspace) Submit() (*model.MeetingRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if strings.TrimSpace(w.record.Minutes) == "" {
		return nil, &ValidationError{Field: "minutes", Message: MinutesRequiredMessage}
	}

	rec := w.record
	// Form previews are not carried over; the receiving screen builds its own.
	for i := range rec.Attachments {
		rec.Attachments[i].Preview = ""
	}
	w.reset()
	return rec, nil
}

// Cancel clears the form when confirmed and reports whether it did.
func (w *Workspace) Cancel(confirmed bool) bool {
	if !confirmed {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
	return true
}

func (w *Workspace) reset() {
	w.record = &model.MeetingRecord{}
	w.epoch++
}
