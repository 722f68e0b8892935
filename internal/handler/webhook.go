package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/amanpal108/Zenno-Concierge/internal/call"
	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
)

// WebhookHandler receives call status callbacks from the telephony
// provider. The provider retries non-2xx responses, so processing
// failures on events we can never act on still return 200.
type WebhookHandler struct {
	reconciler *call.Reconciler
	logger     *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(reconciler *call.Reconciler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, logger: log}
}

// CallStatus handles POST /webhooks/call-status. The call is identified
// by the call_id query parameter we put on the callback URL at placement
// time; CallSid is the provider's own reference and only used as a
// fallback.
func (h *WebhookHandler) CallStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}

	callID := r.URL.Query().Get("call_id")
	if callID == "" {
		callID = r.PostFormValue("CallSid")
	}
	status := r.PostFormValue("CallStatus")
	if callID == "" || status == "" {
		writeError(w, http.StatusBadRequest, "missing call identifier or status")
		return
	}

	duration, _ := strconv.Atoi(r.PostFormValue("CallDuration"))

	event := model.StatusEvent{
		CallID:          callID,
		Status:          status,
		DurationSeconds: duration,
		AnsweredBy:      r.PostFormValue("AnsweredBy"),
	}

	if err := h.reconciler.Apply(r.Context(), event); err != nil {
		h.logger.Error("failed to apply call status event",
			zap.String("call_id", callID), zap.String("provider_status", status), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}
