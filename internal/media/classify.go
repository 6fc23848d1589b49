package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/minutes/internal/model"
)

// MaxAttachmentSize is the default per-file limit (10MB).
const MaxAttachmentSize int64 = 10 << 20

const (
	pdfContentType     = "application/pdf"
	genericContentType = "application/octet-stream"
)

// ResolveContentType returns the declared media type without parameters.
// When the client declared nothing useful, the type is sniffed from data.
func ResolveContentType(declared string, data []byte) string {
	ct := baseType(declared)
	if ct != "" && ct != genericContentType {
		return ct
	}
	if len(data) == 0 {
		return genericContentType
	}
	return baseType(mimetype.Detect(data).String())
}

// Classify decides whether a file of the given type and size may be attached.
// A rejected file comes back with KindRejected and a human readable reason.
func Classify(contentType string, size, limit int64) (model.MimeKind, string) {
	ct := baseType(contentType)

	var kind model.MimeKind
	switch {
	case strings.HasPrefix(ct, "image/"):
		kind = model.KindImage
	case ct == pdfContentType:
		kind = model.KindPDF
	default:
		if ct == "" {
			ct = "unknown"
		}
		return model.KindRejected, fmt.Sprintf("unsupported type %s", ct)
	}

	if size > limit {
		return model.KindRejected, fmt.Sprintf("exceeds %s", formatLimit(limit))
	}
	return kind, ""
}

func baseType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func formatLimit(limit int64) string {
	if limit >= 1<<20 && limit%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", limit>>20)
	}
	return fmt.Sprintf("%d bytes", limit)
}
