// Package handler provides HTTP handlers for the API server.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/amanpal108/Zenno-Concierge/internal/middleware"
	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/payment"
	"github.com/amanpal108/Zenno-Concierge/internal/service"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
	"github.com/amanpal108/Zenno-Concierge/pkg/metrics"
)

// SessionHandler handles session, chat, call, and payment endpoints.
type SessionHandler struct {
	concierge   *service.ConciergeService
	negotiation *service.NegotiationService
	payments    *payment.Coordinator
	logger      *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(
	concierge *service.ConciergeService,
	negotiation *service.NegotiationService,
	payments *payment.Coordinator,
	log *logger.Logger,
) *SessionHandler {
	return &SessionHandler{
		concierge:   concierge,
		negotiation: negotiation,
		payments:    payments,
		logger:      log,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.concierge.CreateSession(r.Context())
	writeJSON(w, http.StatusCreated, sess)
}

// Get handles GET /api/v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.concierge.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Chat handles POST /api/v1/sessions/{sessionID}/messages. An empty
// sessionID path segment is not routable, so first-contact chat goes
// through POST /api/v1/messages with no session yet.
func (h *SessionHandler) Chat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID != "" {
		if err := middleware.ValidateSessionID(sessionID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateChatContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, resp, err := h.concierge.Chat(r.Context(), sessionID, req.Content)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("chat turn failed", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	resp.SessionID = id
	writeJSON(w, http.StatusOK, resp)
}

// StartCall handles POST /api/v1/sessions/{sessionID}/vendors/{vendorID}/call
func (h *SessionHandler) StartCall(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	vendorID := chi.URLParam(r, "vendorID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateVendorID(vendorID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.negotiation.StartCall(r.Context(), sessionID, vendorID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrVendorNotFound):
			writeError(w, http.StatusNotFound, "vendor not found in session")
		default:
			h.logger.Error("failed to start call",
				zap.String("session_id", sessionID), zap.String("vendor_id", vendorID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start call")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ApprovePayment handles POST /api/v1/sessions/{sessionID}/payment/approve
func (h *SessionHandler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	h.paymentTransition(w, r, h.payments.Approve)
}

// RejectPayment handles POST /api/v1/sessions/{sessionID}/payment/reject
func (h *SessionHandler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	h.paymentTransition(w, r, h.payments.Reject)
}

// ProcessPayment handles POST /api/v1/sessions/{sessionID}/payment/process
func (h *SessionHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.payments.Process(r.Context(), sessionID)
	if err != nil {
		h.writePaymentError(w, sessionID, err)
		return
	}
	metrics.TransactionsTotal.WithLabelValues(string(tx.Status)).Inc()
	writeJSON(w, http.StatusOK, tx)
}

func (h *SessionHandler) paymentTransition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, sessionID string) (*model.Transaction, error),
) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := fn(r.Context(), sessionID)
	if err != nil {
		h.writePaymentError(w, sessionID, err)
		return
	}
	metrics.TransactionsTotal.WithLabelValues(string(tx.Status)).Inc()
	writeJSON(w, http.StatusOK, tx)
}

func (h *SessionHandler) writePaymentError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, payment.ErrNoNegotiatedPrice), errors.Is(err, payment.ErrNoTransaction):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrNotApproved), errors.Is(err, payment.ErrAlreadySettled):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("payment operation failed", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "payment operation failed")
	}
}
