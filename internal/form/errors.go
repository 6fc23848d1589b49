package form

import "errors"

// MinutesRequiredMessage is shown inline when minutes are missing at submit.
const MinutesRequiredMessage = "Please fill in the Minutes of Meeting field"

var (
	// ErrIndexOutOfRange is returned by Remove for an index with no attachment.
	ErrIndexOutOfRange = errors.New("form: attachment index out of range")

	// ErrStale is returned when a batch completes after the form it was
	// started on has been submitted or cancelled.
	ErrStale = errors.New("form: stale batch discarded")
)

// ValidationError reports a field that blocks submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "form: invalid " + e.Field + ": " + e.Message
}
