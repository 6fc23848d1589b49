package handler

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/minutes/internal/form"
	"github.com/minutes/internal/intake"
	"github.com/minutes/internal/model"
	"github.com/minutes/internal/session"
)

const (
	// previewSlots is how many attachments get a thumbnail tile on the form.
	previewSlots = 2

	multipartMemory = 32 << 20
)

type attachmentIntake interface {
	form.Processor
	MaxFileSize() int64
}

type scopeReleaser interface {
	Release(scope string) int
}

// FormOptions configure a FormHandler.
type FormOptions struct {
	MaxUploadBytes int64
	ShowRejected   bool
}

// FormHandler serves the Form Screen and its actions.
type FormHandler struct {
	BaseHandler
	intake  attachmentIntake
	details scopeReleaser
	opts    FormOptions
}

func NewFormHandler(logger *slog.Logger, tmpl *template.Template, in attachmentIntake, details scopeReleaser, opts FormOptions) *FormHandler {
	return &FormHandler{
		BaseHandler: BaseHandler{Logger: logger, Templates: tmpl},
		intake:      in,
		details:     details,
		opts:        opts,
	}
}

type slot struct {
	Index      int
	Attachment *model.Attachment
	PreviewURL template.URL
}

type formPage struct {
	Record      model.MeetingRecord
	Error       string
	Rejected    []intake.Rejection
	MaxFileSize string
	Slots       []slot
	Extra       []slot
}

// Show renders the Form Screen. Coming back here unmounts the Details
// Screen, so its preview handles are released.
func (h *FormHandler) Show(w http.ResponseWriter, r *http.Request) {
	st := h.state(w, r)
	if st == nil {
		return
	}

	if n := h.details.Release(st.DetailsScope()); n > 0 {
		h.Logger.DebugContext(r.Context(), "form: released details previews", "count", n)
	}

	var rejected []intake.Rejection
	if h.opts.ShowRejected {
		rejected = st.TakeRejections()
	}
	h.render(w, r, http.StatusOK, "form.html", h.page(st, "", rejected))
}

// Attach takes in one batch of files and appends the accepted ones.
func (h *FormHandler) Attach(w http.ResponseWriter, r *http.Request) {
	st := h.state(w, r)
	if st == nil {
		return
	}
	if !h.parse(w, r) {
		return
	}
	defer cleanup(r)

	h.saveFields(st, r)

	batch, err := h.attach(r, st)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	// Notices show on the next form render for JSON callers too.
	if h.opts.ShowRejected {
		st.AddRejections(batch.Rejected)
	}

	if wantsJSON(r) {
		rejected := batch.Rejected
		if rejected == nil {
			rejected = []intake.Rejection{}
		}
		env := envelope{"attached": len(batch.Accepted), "rejected": rejected}
		if err := h.writeJSON(w, http.StatusOK, env, nil); err != nil {
			h.logError(r, err)
		}
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Remove deletes the attachment at the index in the URL. An index past the
// end leaves the form untouched.
func (h *FormHandler) Remove(w http.ResponseWriter, r *http.Request) {
	st := h.state(w, r)
	if st == nil {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.badRequestResponse(w, r, "invalid attachment index")
		return
	}
	if !h.parse(w, r) {
		return
	}
	defer cleanup(r)

	h.saveFields(st, r)

	removed, err := st.Form.Remove(index)
	switch {
	case errors.Is(err, form.ErrIndexOutOfRange):
		h.Logger.DebugContext(r.Context(), "form: remove ignored", "err", err)
	case err != nil:
		h.serverErrorResponse(w, r, err)
		return
	default:
		h.Logger.DebugContext(r.Context(), "form: attachment removed", "index", index, "name", removed.Name)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Submit validates the form and hands the record to the Details Screen.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	st := h.state(w, r)
	if st == nil {
		return
	}
	if !h.parse(w, r) {
		return
	}
	defer cleanup(r)

	h.saveFields(st, r)

	// Files picked without a separate attach round trip still count.
	batch, err := h.attach(r, st)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	rec, err := st.Form.Submit()
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			var rejected []intake.Rejection
			if h.opts.ShowRejected {
				rejected = append(st.TakeRejections(), batch.Rejected...)
			}
			h.render(w, r, http.StatusUnprocessableEntity, "form.html", h.page(st, verr.Message, rejected))
			return
		}
		h.serverErrorResponse(w, r, err)
		return
	}

	st.HandOff(rec)
	h.Logger.InfoContext(r.Context(), "form: submitted",
		"attachments", len(rec.Attachments),
		"filled_fields", filledFields(rec),
	)
	http.Redirect(w, r, "/details", http.StatusSeeOther)
}

// Cancel clears the form once the user has confirmed it.
func (h *FormHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	st := h.state(w, r)
	if st == nil {
		return
	}
	if !h.parse(w, r) {
		return
	}
	defer cleanup(r)

	confirmed := r.PostFormValue("confirm") == "yes"
	if !confirmed {
		h.saveFields(st, r)
	}

	if st.Form.Cancel(confirmed) {
		st.TakeRejections()
		h.Logger.DebugContext(r.Context(), "form: cancelled")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *FormHandler) parse(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		h.Logger.WarnContext(r.Context(), "form: parse failed", "err", err)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.badRequestResponse(w, r, fmt.Sprintf("request must not be larger than %dMB", maxBytesErr.Limit>>20))
			return false
		}
		h.badRequestResponse(w, r, "Form too large or invalid")
		return false
	}
	return true
}

func cleanup(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// saveFields writes the posted text inputs into the record. Requests that
// carry none of them, such as a bare file drop, leave the text alone.
func (h *FormHandler) saveFields(st *session.State, r *http.Request) {
	_, p := r.PostForm["participants"]
	_, s := r.PostForm["scheduled_at"]
	_, m := r.PostForm["minutes"]
	if !p && !s && !m {
		return
	}

	st.Form.SetFields(form.Fields{
		Participants: r.PostFormValue("participants"),
		ScheduledAt:  r.PostFormValue("scheduled_at"),
		Minutes:      r.PostFormValue("minutes"),
	})
}

func (h *FormHandler) attach(r *http.Request, st *session.State) (intake.Batch, error) {
	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["files"]
	}
	if len(files) == 0 {
		return intake.Batch{}, nil
	}

	candidates, err := intake.FromFileHeaders(files, h.intake.MaxFileSize())
	if err != nil {
		return intake.Batch{}, fmt.Errorf("reading uploads: %w", err)
	}

	// The upload is fully read; a client disconnect must not drop the batch.
	// Batches that outlive their form are still dropped by the epoch check.
	ctx := context.WithoutCancel(r.Context())
	batch, err := st.Form.Attach(ctx, h.intake, candidates)
	if errors.Is(err, form.ErrStale) {
		h.Logger.DebugContext(r.Context(), "form: discarded batch from a previous form", "files", len(candidates))
		batch.Accepted = nil
		return batch, nil
	}
	if err != nil {
		return intake.Batch{}, err
	}

	h.Logger.DebugContext(r.Context(), "form: batch attached",
		"accepted", len(batch.Accepted),
		"rejected", len(batch.Rejected),
	)
	return batch, nil
}

func (h *FormHandler) page(st *session.State, errMsg string, rejected []intake.Rejection) formPage {
	rec := st.Form.Snapshot()
	p := formPage{
		Record:      rec,
		Error:       errMsg,
		Rejected:    rejected,
		MaxFileSize: fmt.Sprintf("%dMB", h.intake.MaxFileSize()>>20),
	}

	for i := 0; i < previewSlots; i++ {
		s := slot{Index: i}
		if i < len(rec.Attachments) {
			s.Attachment = &rec.Attachments[i]
			s.PreviewURL = previewURL(s.Attachment)
		}
		p.Slots = append(p.Slots, s)
	}
	for i := previewSlots; i < len(rec.Attachments); i++ {
		p.Extra = append(p.Extra, slot{Index: i, Attachment: &rec.Attachments[i]})
	}
	return p
}

// previewURL trusts only the data URLs produced during intake.
func previewURL(att *model.Attachment) template.URL {
	if !att.IsImage() || !strings.HasPrefix(att.Preview, "data:image/") {
		return ""
	}
	return template.URL(att.Preview)
}

func filledFields(rec *model.MeetingRecord) int {
	n := 0
	for _, v := range []string{rec.Participants, rec.ScheduledAt, rec.Minutes} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
