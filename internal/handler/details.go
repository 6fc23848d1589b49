package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/minutes/internal/details"
	"github.com/minutes/internal/preview"
)

type previewLookup interface {
	Lookup(scope, handle string) (preview.Resource, error)
}

// DetailsHandler serves the read-only Details Screen and the preview
// handles it issues.
type DetailsHandler struct {
	BaseHandler
	views    *details.Builder
	previews previewLookup
}

func NewDetailsHandler(logger *slog.Logger, tmpl *template.Template, views *details.Builder, previews previewLookup) *DetailsHandler {
	return &DetailsHandler{
		BaseHandler: BaseHandler{Logger: logger, Templates: tmpl},
		views:       views,
		previews:    previews,
	}
}

// Show renders the record handed off by the last submit, or the fallback
// when there is none. The hand-off is consumed, so a reload shows the
// fallback.
func (h *DetailsHandler) Show(w http.ResponseWriter, r *http.Request) {
	st := h.state(w, r)
	if st == nil {
		return
	}

	scope := st.DetailsScope()
	h.views.Release(scope)

	rec := st.TakeHandoff()
	if rec == nil {
		h.render(w, r, http.StatusOK, "details.html", nil)
		return
	}

	view := h.views.Build(scope, rec)
	h.Logger.DebugContext(r.Context(), "details: rendered", "attachments", len(view.Attachments))
	h.render(w, r, http.StatusOK, "details.html", view)
}

// Preview writes the bytes behind a handle owned by the caller's session.
func (h *DetailsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	st := h.state(w, r)
	if st == nil {
		return
	}

	res, err := h.previews.Lookup(st.DetailsScope(), chi.URLParam(r, "handle"))
	if errors.Is(err, preview.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	// Uploaded SVGs must not run scripts when opened directly.
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = w.Write(res.Data)
}
