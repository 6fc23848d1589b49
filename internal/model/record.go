package model

// MimeKind classifies an attachment for preview purposes.
type MimeKind string

const (
	KindImage    MimeKind = "image"
	KindPDF      MimeKind = "pdf"
	KindRejected MimeKind = "rejected"
)

// PDFPlaceholder is the fixed preview used for every PDF attachment.
const PDFPlaceholder = "pdf"

// Attachment is an accepted file together with its raw content.
type Attachment struct {
	Name        string
	Kind        MimeKind
	ContentType string
	SizeBytes   int64
	Data        []byte

	// Preview is an inline data URL for images or PDFPlaceholder for PDFs.
	// It is only meaningful on the screen that produced it.
	Preview string
}

// IsImage reports whether the attachment renders as an image.
func (a Attachment) IsImage() bool { return a.Kind == KindImage }

// MeetingRecord is the transient form record for one meeting.
type MeetingRecord struct {
	Participants string
	ScheduledAt  string
	Minutes      string
	Attachments  []Attachment
}

// IsEmpty reports whether no field has been filled and nothing is attached.
func (r *MeetingRecord) IsEmpty() bool {
	return r.Participants == "" && r.ScheduledAt == "" && r.Minutes == "" && len(r.Attachments) == 0
}

// Candidate is a file offered to intake before filtering.
type Candidate struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}
