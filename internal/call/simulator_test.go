package call

import (
	"context"
	"testing"
	"time"

	"github.com/amanpal108/Zenno-Concierge/internal/dialog"
	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
)

func newSimFixture(t *testing.T, handoff chan struct{}) (*store.Store, *Simulator, string) {
	t.Helper()

	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	st := store.New()
	rec := NewReconciler(st, nil, func(context.Context, string) {
		if handoff != nil {
			close(handoff)
		}
	}, log)
	machine := dialog.NewMachine(dialog.DefaultConfig(), dialog.NewKeywordClassifier())
	sim := NewSimulator(st, rec, machine, 5*time.Millisecond, log)

	sess := st.Create()
	_ = st.Update(sess.ID, func(live *model.Session) error {
		live.SelectedVendor = &model.Vendor{ID: "v1"}
		return nil
	})
	_, _ = st.AttachCall(sess.ID, &model.Call{
		ID:       "c1",
		VendorID: "v1",
		Status:   model.CallInitiating,
		Conversation: model.ConversationState{
			Stage:        model.StageGreeting,
			InitialPrice: 8000,
		},
	})
	return st, sim, sess.ID
}

func TestSimulatedCallCompletesNegotiation(t *testing.T) {
	handoff := make(chan struct{})
	st, sim, sessionID := newSimFixture(t, handoff)

	sim.Start("c1")
	defer sim.Stop()

	select {
	case <-handoff:
	case <-time.After(2 * time.Second):
		t.Fatal("simulated call never handed off to payment")
	}

	sess, err := st.Get(sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	c := sess.Call
	if c.Status != model.CallCompleted {
		t.Errorf("expected completed, got %s", c.Status)
	}
	if c.Conversation.Stage != model.StageFinalAgreement {
		t.Errorf("expected final_agreement, got %s", c.Conversation.Stage)
	}
	// Scripted vendor quotes 9500, comes down to 9000, accepts the 8500
	// counter.
	if c.NegotiatedPrice != 8500 {
		t.Errorf("expected negotiated price 8500, got %d", c.NegotiatedPrice)
	}
	if c.Conversation.Quantity != 6 {
		t.Errorf("expected quantity 6 from the vendor script, got %d", c.Conversation.Quantity)
	}
	if sess.Journey != model.JourneyProcessingPayment {
		t.Errorf("expected processing_payment journey, got %s", sess.Journey)
	}
}

func TestCancelStopsProgression(t *testing.T) {
	st, sim, sessionID := newSimFixture(t, nil)

	sim.Start("c1")
	sim.Cancel("c1")

	time.Sleep(50 * time.Millisecond)

	sess, _ := st.Get(sessionID)
	if sess.Call.Status == model.CallCompleted {
		t.Error("canceled simulation still completed the call")
	}
}
