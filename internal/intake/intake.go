// Package intake filters candidate files and resolves their previews.
package intake

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/minutes/internal/media"
	"github.com/minutes/internal/model"
)

const (
	defaultPreviewWidth = 480
	defaultWorkers      = 4
)

// Rejection names a candidate that was excluded from the record and why.
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Batch is the outcome of one intake call. Accepted keeps the candidates'
// original relative order.
type Batch struct {
	Accepted []model.Attachment
	Rejected []Rejection
}

// Config controls filtering and preview generation.
type Config struct {
	MaxFileSize  int64
	PreviewWidth int
	Workers      int
}

// Intake classifies batches of candidate files.
type Intake struct {
	cfg    Config
	logger *slog.Logger
}

// New returns an Intake. Zero config values fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Intake {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = media.MaxAttachmentSize
	}
	if cfg.PreviewWidth <= 0 {
		cfg.PreviewWidth = defaultPreviewWidth
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{cfg: cfg, logger: logger}
}

// MaxFileSize returns the per-file limit in bytes.
func (in *Intake) MaxFileSize() int64 { return in.cfg.MaxFileSize }

// Process filters candidates and resolves a preview for every accepted one.
// It returns only after all previews of the batch have resolved, so callers
// can append the whole batch at once.
func (in *Intake) Process(ctx context.Context, candidates []model.Candidate) (Batch, error) {
	var batch Batch
	for _, c := range candidates {
		kind, reason := media.Classify(c.ContentType, c.Size, in.cfg.MaxFileSize)
		if kind == model.KindRejected {
			in.logger.DebugContext(ctx, "intake: file rejected", "name", c.Name, "reason", reason)
			batch.Rejected = append(batch.Rejected, Rejection{Name: c.Name, Reason: reason})
			continue
		}
		batch.Accepted = append(batch.Accepted, model.Attachment{
			Name:        c.Name,
			Kind:        kind,
			ContentType: c.ContentType,
			SizeBytes:   c.Size,
			Data:        c.Data,
		})
	}

	if len(batch.Accepted) == 0 {
		return batch, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.Workers)

	// Each task writes only its own slot.
	for i := range batch.Accepted {
		att := &batch.Accepted[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			att.Preview = in.preview(gctx, att)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Batch{}, fmt.Errorf("resolving previews: %w", err)
	}

	in.logger.DebugContext(ctx, "intake: batch resolved",
		"accepted", len(batch.Accepted),
		"rejected", len(batch.Rejected),
	)
	return batch, nil
}

func (in *Intake) preview(ctx context.Context, att *model.Attachment) string {
	if att.Kind == model.KindPDF {
		return model.PDFPlaceholder
	}

	url, err := media.InlinePreview(att.Data, att.ContentType, in.cfg.PreviewWidth)
	if err != nil {
		in.logger.WarnContext(ctx, "intake: preview failed, inlining original", "name", att.Name, "err", err)
		return media.DataURL(att.ContentType, att.Data)
	}
	return url
}
