package handler

import (
	"net/http"

	"github.com/logbook-api/internal/application/verification"
)

// CodeHandler serves the email verification-code endpoints.
type CodeHandler struct {
	svc verification.Service
}

func NewCodeHandler(svc verification.Service) *CodeHandler { return &CodeHandler{svc: svc} }

// Generate issues a code and emails it. The code itself is never returned.
func (h *CodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req verification.IssueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.Issue(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Note: res.Note})
}

func (h *CodeHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verification.VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, err)
		return
	}
	if _, err := h.svc.Verify(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true})
}
