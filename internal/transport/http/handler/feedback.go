package handler

import (
	"net/http"

	"github.com/logbook-api/internal/application/feedback"
)

type FeedbackHandler struct {
	svc feedback.Service
}

func NewFeedbackHandler(svc feedback.Service) *FeedbackHandler { return &FeedbackHandler{svc: svc} }

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req feedback.Request
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, err)
		return
	}
	if _, err := h.svc.Submit(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true})
}
