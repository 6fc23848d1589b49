package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minutes/internal/middleware"
	"github.com/minutes/internal/session"
)

type envelope map[string]any

var errNoSession = errors.New("handler: no session in request context")

type BaseHandler struct {
	Logger    *slog.Logger
	Templates *template.Template
}

func (h *BaseHandler) logError(r *http.Request, err error) {
	method := r.Method
	uri := r.URL.RequestURI()

	h.Logger.ErrorContext(r.Context(), err.Error(), "method", method, "uri", uri)
}

func (h *BaseHandler) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	env := envelope{"error": message}

	err := h.writeJSON(w, status, env, nil)
	if err != nil {
		h.logError(r, err)
		w.WriteHeader(500)
	}
}

func (h *BaseHandler) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.logError(r, err)

	message := "the server encountered a problem and could not process your request"
	if wantsJSON(r) {
		h.errorResponse(w, r, http.StatusInternalServerError, message)
		return
	}
	http.Error(w, message, http.StatusInternalServerError)
}

func (h *BaseHandler) badRequestResponse(w http.ResponseWriter, r *http.Request, message string) {
	if wantsJSON(r) {
		h.errorResponse(w, r, http.StatusBadRequest, message)
		return
	}
	http.Error(w, message, http.StatusBadRequest)
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	for k, v := range headers {
		for _, value := range v {
			w.Header().Add(k, value)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)

	if err := encoder.Encode(data); err != nil {
		return err
	}

	return nil
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written page behind.
func (h *BaseHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.Templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// state returns the caller's session or writes a 500 when the session
// middleware did not run.
func (h *BaseHandler) state(w http.ResponseWriter, r *http.Request) *session.State {
	st := middleware.SessionFromContext(r.Context())
	if st == nil {
		h.serverErrorResponse(w, r, errNoSession)
	}
	return st
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
