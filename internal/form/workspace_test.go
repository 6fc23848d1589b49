package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minutes/internal/intake"
	"github.com/minutes/internal/model"
)

// stubProcessor accepts every candidate, optionally waiting on gate first.
type stubProcessor struct {
	gate    chan struct{}
	started chan struct{}
	err     error
}

func (p *stubProcessor) Process(ctx context.Context, candidates []model.Candidate) (intake.Batch, error) {
	if p.started != nil {
		close(p.started)
	}
	if p.gate != nil {
		<-p.gate
	}
	if p.err != nil {
		return intake.Batch{}, p.err
	}
	var b intake.Batch
	for _, c := range candidates {
		b.Accepted = append(b.Accepted, model.Attachment{
			Name:      c.Name,
			Kind:      model.KindImage,
			SizeBytes: c.Size,
			Data:      c.Data,
			Preview:   "data:image/png;base64,AA==",
		})
	}
	return b, nil
}

func candidates(names ...string) []model.Candidate {
	out := make([]model.Candidate, len(names))
	for i, n := range names {
		out[i] = model.Candidate{Name: n, ContentType: "image/png", Size: 1, Data: []byte{byte(i)}}
	}
	return out
}

func attachmentNames(rec model.MeetingRecord) []string {
	out := make([]string, len(rec.Attachments))
	for i, a := range rec.Attachments {
		out[i] = a.Name
	}
	return out
}

func TestAttach_AppendsInOrder(t *testing.T) {
	w := NewWorkspace()
	p := &stubProcessor{}

	_, err := w.Attach(context.Background(), p, candidates("a", "b"))
	require.NoError(t, err)
	_, err = w.Attach(context.Background(), p, candidates("c"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, attachmentNames(w.Snapshot()))
}

func TestAttach_BatchesAppendInCompletionOrder(t *testing.T) {
	w := NewWorkspace()
	slow := &stubProcessor{gate: make(chan struct{}), started: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := w.Attach(context.Background(), slow, candidates("slow1", "slow2"))
		done <- err
	}()
	<-slow.started

	_, err := w.Attach(context.Background(), &stubProcessor{}, candidates("fast"))
	require.NoError(t, err)

	close(slow.gate)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"fast", "slow1", "slow2"}, attachmentNames(w.Snapshot()))
}

func TestAttach_StaleBatchDiscarded(t *testing.T) {
	w := NewWorkspace()
	slow := &stubProcessor{gate: make(chan struct{}), started: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := w.Attach(context.Background(), slow, candidates("late"))
		done <- err
	}()
	<-slow.started

	require.True(t, w.Cancel(true))
	close(slow.gate)

	assert.ErrorIs(t, <-done, ErrStale)
	assert.Equal(t, 0, w.Len())
}

func TestAttach_ProcessorError(t *testing.T) {
	w := NewWorkspace()
	boom := errors.New("boom")

	_, err := w.Attach(context.Background(), &stubProcessor{err: boom}, candidates("a"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, w.Len())
}

func TestRemove_ShiftsLaterEntries(t *testing.T) {
	w := NewWorkspace()
	_, err := w.Attach(context.Background(), &stubProcessor{}, candidates("a", "b", "c", "d"))
	require.NoError(t, err)

	removed, err := w.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.Name)
	assert.Equal(t, []string{"a", "c", "d"}, attachmentNames(w.Snapshot()))
}

func TestRemove_IndexZeroTwice(t *testing.T) {
	w := NewWorkspace()
	_, err := w.Attach(context.Background(), &stubProcessor{}, candidates("a", "b", "c"))
	require.NoError(t, err)

	first, err := w.Remove(0)
	require.NoError(t, err)
	second, err := w.Remove(0)
	require.NoError(t, err)

	assert.Equal(t, "a", first.Name)
	assert.Equal(t, "b", second.Name)
	assert.Equal(t, []string{"c"}, attachmentNames(w.Snapshot()))
}

func TestRemove_OutOfRange(t *testing.T) {
	w := NewWorkspace()
	_, err := w.Attach(context.Background(), &stubProcessor{}, candidates("a"))
	require.NoError(t, err)

	for _, idx := range []int{-1, 1, 5} {
		_, err := w.Remove(idx)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	}
	assert.Equal(t, 1, w.Len())
}

func TestSubmit_RejectsBlankMinutes(t *testing.T) {
	for _, minutes := range []string{"", "   ", "\n\t"} {
		w := NewWorkspace()
		w.SetFields(Fields{Participants: "Jane", ScheduledAt: "Mon 10:00", Minutes: minutes})
		_, err := w.Attach(context.Background(), &stubProcessor{}, candidates("a"))
		require.NoError(t, err)
		before := w.Snapshot()

		rec, err := w.Submit()
		require.Error(t, err)
		assert.Nil(t, rec)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "minutes", verr.Field)
		assert.Equal(t, MinutesRequiredMessage, verr.Message)

		assert.Equal(t, before, w.Snapshot(), "record must be unchanged after a failed submit")
	}
}

func TestSubmit_HandsOffAndResets(t *testing.T) {
	w := NewWorkspace()
	w.SetFields(Fields{Participants: "Jane, Raj", ScheduledAt: "Oct 24", Minutes: "Discussed budget."})
	_, err := w.Attach(context.Background(), &stubProcessor{}, candidates("one.png", "two.png"))
	require.NoError(t, err)
	epoch := w.Epoch()

	rec, err := w.Submit()
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "Discussed budget.", rec.Minutes)
	assert.Equal(t, []string{"one.png", "two.png"}, attachmentNames(*rec))
	for _, a := range rec.Attachments {
		assert.Empty(t, a.Preview, "form previews are released at hand-off")
		assert.NotEmpty(t, a.Data, "raw content travels with the record")
	}

	after := w.Snapshot()
	assert.True(t, after.IsEmpty())
	assert.NotEqual(t, epoch, w.Epoch())

	// Edits after the hand-off must not reach the handed-off record.
	w.SetFields(Fields{Minutes: "new meeting"})
	assert.Equal(t, "Discussed budget.", rec.Minutes)
}

func TestCancel(t *testing.T) {
	w := NewWorkspace()
	w.SetFields(Fields{Minutes: "draft"})

	assert.False(t, w.Cancel(false))
	assert.Equal(t, "draft", w.Snapshot().Minutes)

	assert.True(t, w.Cancel(true))
	snap := w.Snapshot()
	assert.True(t, snap.IsEmpty())
}
