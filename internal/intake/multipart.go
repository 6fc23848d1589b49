package intake

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/minutes/internal/media"
	"github.com/minutes/internal/model"
)

// sniffLen is how much of an oversized file is read to name its type.
const sniffLen = 3072

// maxFilenameLen caps stored names in bytes, cut on a rune boundary.
const maxFilenameLen = 100

// FromFileHeaders reads uploaded parts into candidates, preserving order.
// Files larger than limit are not read past sniffLen; intake rejects them
// on size anyway.
func FromFileHeaders(files []*multipart.FileHeader, limit int64) ([]model.Candidate, error) {
	candidates := make([]model.Candidate, 0, len(files))
	for _, fh := range files {
		c, err := readCandidate(fh, limit)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func readCandidate(fh *multipart.FileHeader, limit int64) (model.Candidate, error) {
	f, err := fh.Open()
	if err != nil {
		return model.Candidate{}, fmt.Errorf("opening %q: %w", fh.Filename, err)
	}
	defer f.Close()

	oversized := fh.Size > limit
	var r io.Reader = f
	if oversized {
		r = io.LimitReader(f, sniffLen)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("reading %q: %w", fh.Filename, err)
	}

	c := model.Candidate{
		Name:        SanitizeFilename(fh.Filename),
		ContentType: media.ResolveContentType(fh.Header.Get("Content-Type"), data),
		Size:        fh.Size,
	}
	if !oversized {
		c.Data = data
	}
	return c, nil
}

// SanitizeFilename removes path components and dangerous characters.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.TrimSpace(name)
	if len(name) > maxFilenameLen {
		cut := maxFilenameLen
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	if name == "" {
		name = "attachment"
	}
	return name
}
