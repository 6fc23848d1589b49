package intake

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minutes/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func imageCandidate(t *testing.T, name string) model.Candidate {
	data := pngBytes(t, 8, 8)
	return model.Candidate{Name: name, ContentType: "image/png", Size: int64(len(data)), Data: data}
}

func pdfCandidate(name string) model.Candidate {
	data := []byte("%PDF-1.4 minimal")
	return model.Candidate{Name: name, ContentType: "application/pdf", Size: int64(len(data)), Data: data}
}

func names(atts []model.Attachment) []string {
	out := make([]string, len(atts))
	for i, a := range atts {
		out[i] = a.Name
	}
	return out
}

func TestProcess_RejectsUnsupportedAndOversized(t *testing.T) {
	in := New(Config{}, nil)

	batch, err := in.Process(context.Background(), []model.Candidate{
		{Name: "notes.txt", ContentType: "text/plain", Size: 10, Data: []byte("hello")},
		{Name: "huge.png", ContentType: "image/png", Size: 10<<20 + 1},
		{Name: "clip.mp4", ContentType: "video/mp4", Size: 100},
	})
	require.NoError(t, err)

	assert.Empty(t, batch.Accepted)
	require.Len(t, batch.Rejected, 3)
	assert.Equal(t, "notes.txt", batch.Rejected[0].Name)
	assert.Equal(t, "exceeds 10MB", batch.Rejected[1].Reason)
}

func TestProcess_PreservesOrderWithinBatch(t *testing.T) {
	in := New(Config{Workers: 3}, nil)

	candidates := []model.Candidate{
		imageCandidate(t, "a.png"),
		pdfCandidate("b.pdf"),
		{Name: "skip.txt", ContentType: "text/plain", Size: 1, Data: []byte("x")},
		imageCandidate(t, "c.png"),
		imageCandidate(t, "d.png"),
	}

	batch, err := in.Process(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.png", "b.pdf", "c.png", "d.png"}, names(batch.Accepted))
	for _, a := range batch.Accepted {
		if a.Kind == model.KindPDF {
			assert.Equal(t, model.PDFPlaceholder, a.Preview)
			continue
		}
		assert.Equal(t, model.KindImage, a.Kind)
		assert.True(t, strings.HasPrefix(a.Preview, "data:image/"), "image preview should be a data URL")
	}
}

func TestProcess_KeepsRawContent(t *testing.T) {
	in := New(Config{}, nil)
	c := imageCandidate(t, "a.png")

	batch, err := in.Process(context.Background(), []model.Candidate{c})
	require.NoError(t, err)
	require.Len(t, batch.Accepted, 1)

	assert.Equal(t, c.Data, batch.Accepted[0].Data)
	assert.Equal(t, c.Size, batch.Accepted[0].SizeBytes)
}

func TestProcess_CancelledContext(t *testing.T) {
	in := New(Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := in.Process(ctx, []model.Candidate{imageCandidate(t, "a.png")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_EmptyBatch(t *testing.T) {
	batch, err := New(Config{}, nil).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batch.Accepted)
	assert.Empty(t, batch.Rejected)
}

func TestNew_Defaults(t *testing.T) {
	in := New(Config{Workers: -1}, nil)
	assert.Equal(t, int64(10<<20), in.MaxFileSize())
	assert.Equal(t, defaultWorkers, in.cfg.Workers)
	assert.Equal(t, defaultPreviewWidth, in.cfg.PreviewWidth)
}

type part struct {
	name        string
	contentType string
	data        []byte
}

func fileHeaders(t *testing.T, parts ...part) []*multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		fw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

func TestFromFileHeaders(t *testing.T) {
	img := pngBytes(t, 2, 2)
	headers := fileHeaders(t,
		part{name: "photo.png", contentType: "image/png", data: img},
		part{name: "scan.bin", contentType: "application/octet-stream", data: []byte("%PDF-1.7 body")},
		part{name: "big.png", contentType: "image/png", data: bytes.Repeat([]byte{0}, 64)},
	)

	candidates, err := FromFileHeaders(headers, 32)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, "photo.png", candidates[0].Name)
	assert.Equal(t, "image/png", candidates[0].ContentType)
	assert.Equal(t, img, candidates[0].Data)

	assert.Equal(t, "application/pdf", candidates[1].ContentType, "generic type should be sniffed")

	assert.Equal(t, int64(64), candidates[2].Size)
	assert.Nil(t, candidates[2].Data, "oversized content should not be kept")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{`C:\tmp\a.png`, "C:_tmp_a.png"},
		{"nul\x00byte.png", "nulbyte.png"},
		{"", "attachment"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
		{strings.Repeat("x", 99) + "é.png", strings.Repeat("x", 99)},
		{strings.Repeat("日", 40), strings.Repeat("日", 33)},
	}
	for _, tt := range tests {
		got := SanitizeFilename(tt.in)
		assert.Equal(t, tt.want, got)
		assert.True(t, utf8.ValidString(got), "sanitized %q must stay valid UTF-8", tt.in)
	}
}
