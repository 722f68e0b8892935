package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	callpkg "github.com/amanpal108/Zenno-Concierge/internal/call"
	"github.com/amanpal108/Zenno-Concierge/internal/dialog"
	"github.com/amanpal108/Zenno-Concierge/internal/events"
	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/service"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/internal/telephony"
	"github.com/amanpal108/Zenno-Concierge/internal/voice"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
)

func newVoiceEnv(t *testing.T) (chi.Router, string) {
	t.Helper()

	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	st := store.New()
	machine := dialog.NewMachine(dialog.DefaultConfig(), dialog.NewKeywordClassifier())
	renderer := voice.NewRenderer(voice.Options{
		BaseURL:  "https://example.com",
		Defaults: dialog.Defaults{Quantity: 5, InitialPrice: 8000},
	})
	reconciler := callpkg.NewReconciler(st, nil, nil, log)
	simulator := callpkg.NewSimulator(st, reconciler, machine, time.Hour, log)
	t.Cleanup(simulator.Stop)

	negotiationSvc := service.NewNegotiationService(
		st, machine, renderer,
		telephony.NewRESTDialer("https://api.example.com", "", "", ""),
		simulator, events.NoopPublisher{},
		service.NegotiationOptions{OpeningOffer: 8000, CallbackBaseURL: "https://example.com"},
		log,
	)
	h := NewVoiceHandler(negotiationSvc, log)

	r := chi.NewRouter()
	r.Post("/voice/{sessionID}/{callID}/prompt", h.Prompt)
	r.Post("/voice/{sessionID}/{callID}/gather", h.Gather)

	sess := st.Create()
	_ = st.Update(sess.ID, func(live *model.Session) error {
		live.SelectedVendor = &model.Vendor{ID: "v1"}
		return nil
	})
	_, _ = st.AttachCall(sess.ID, &model.Call{
		ID:       "c1",
		VendorID: "v1",
		Status:   model.CallInProgress,
		Conversation: model.ConversationState{
			Stage:        model.StageGreeting,
			InitialPrice: 8000,
		},
	})
	return r, sess.ID
}

func TestPromptServesGreeting(t *testing.T) {
	r, sessionID := newVoiceEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/voice/"+sessionID+"/c1/prompt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Errorf("expected XML content type, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Do you sell sarees") {
		t.Errorf("expected greeting prompt, got: %s", body)
	}
	if !strings.Contains(body, "<Gather") {
		t.Errorf("expected gather verb, got: %s", body)
	}
}

func TestPromptUnknownSessionIsSafe(t *testing.T) {
	r, _ := newVoiceEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/voice/ghost/c1/prompt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("voice endpoints must still answer, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Hangup") {
		t.Errorf("expected safe hangup document, got: %s", w.Body.String())
	}
}

func TestGatherAdvancesDialog(t *testing.T) {
	r, sessionID := newVoiceEnv(t)

	form := url.Values{"Digits": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/voice/"+sessionID+"/c1/gather", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	// Pressing 1 at the greeting moves to the requirements question.
	if !strings.Contains(body, "How many do you have") {
		t.Errorf("expected requirements prompt, got: %s", body)
	}
}
