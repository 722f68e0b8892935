package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/service"
	"github.com/amanpal108/Zenno-Concierge/internal/voice"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
)

// VoiceHandler serves the voice documents the telephony provider fetches
// mid-call. These endpoints must never fail: a broken response here
// strands a live phone call, so every path ends in a well-formed
// document.
type VoiceHandler struct {
	negotiation *service.NegotiationService
	logger      *logger.Logger
}

// NewVoiceHandler creates a new voice handler.
func NewVoiceHandler(negotiation *service.NegotiationService, log *logger.Logger) *VoiceHandler {
	return &VoiceHandler{negotiation: negotiation, logger: log}
}

// Prompt handles POST /voice/{sessionID}/{callID}/prompt
func (h *VoiceHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	callID := chi.URLParam(r, "callID")
	stage := model.Stage(r.URL.Query().Get("stage"))
	attempt := parseAttempt(r.URL.Query().Get("attempt"))

	doc := h.negotiation.Prompt(r.Context(), sessionID, callID, stage, attempt)
	h.writeVoice(w, sessionID, callID, doc)
}

// Gather handles POST /voice/{sessionID}/{callID}/gather. The provider
// posts the caller's speech transcript and any keypad digits as form
// fields.
func (h *VoiceHandler) Gather(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	callID := chi.URLParam(r, "callID")

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("malformed gather form",
			zap.String("session_id", sessionID), zap.String("call_id", callID), zap.Error(err))
	}
	transcript := r.PostFormValue("SpeechResult")
	digits := r.PostFormValue("Digits")

	doc := h.negotiation.Gather(r.Context(), sessionID, callID, transcript, digits)
	h.writeVoice(w, sessionID, callID, doc)
}

func (h *VoiceHandler) writeVoice(w http.ResponseWriter, sessionID, callID string, doc *voice.Document) {
	h.logger.Debug("serving voice document",
		zap.String("session_id", sessionID), zap.String("call_id", callID))
	voice.Write(w, doc)
}

func parseAttempt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
