// Package details builds the read-only summary shown after a submission.
package details

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/minutes/internal/media"
	"github.com/minutes/internal/model"
	"github.com/minutes/internal/preview"
)

const (
	notProvided = "Not provided"
	noMinutes   = "No minutes provided"
)

// PreviewPath is the route prefix preview handles are served under.
const PreviewPath = "/preview/"

// Card is one attachment as shown on the Details Screen.
type Card struct {
	Name      string
	IsImage   bool
	URL       string
	SizeLabel string
}

// View holds display copies of a handed-off record. Nothing in it points
// back into the record.
type View struct {
	Participants string
	ScheduledAt  string
	Minutes      string
	Attachments  []Card
}

// Builder regenerates preview handles for a record inside a scope.
type Builder struct {
	previews *preview.Registry
	logger   *slog.Logger
}

func NewBuilder(previews *preview.Registry, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{previews: previews, logger: logger}
}

// Build acquires one preview handle per image attachment under scope and
// returns the view. PDFs get the placeholder card. Order follows the record.
func (b *Builder) Build(scope string, rec *model.MeetingRecord) *View {
	v := &View{
		Participants: valueOrDefault(rec.Participants, notProvided),
		ScheduledAt:  valueOrDefault(rec.ScheduledAt, notProvided),
		Minutes:      valueOrDefault(rec.Minutes, noMinutes),
		Attachments:  make([]Card, 0, len(rec.Attachments)),
	}

	for _, att := range rec.Attachments {
		card := Card{
			Name:      att.Name,
			IsImage:   att.IsImage(),
			SizeLabel: humanize.Bytes(uint64(att.SizeBytes)),
		}
		if card.IsImage {
			card.URL = PreviewPath + b.previews.Acquire(scope, b.resource(att))
		}
		v.Attachments = append(v.Attachments, card)
	}
	return v
}

// Release drops every preview handle held by scope.
func (b *Builder) Release(scope string) int {
	return b.previews.ReleaseScope(scope)
}

func (b *Builder) resource(att model.Attachment) preview.Resource {
	data, err := media.StripMetadata(att.Data, att.ContentType)
	if err != nil {
		b.logger.Warn("details: metadata strip failed, serving original", "name", att.Name, "err", err)
		data = att.Data
	}
	return preview.Resource{ContentType: att.ContentType, Data: data}
}

func valueOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
