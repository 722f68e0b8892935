package call

import (
	"context"
	"sync"
	"testing"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	statuses []model.CallStatus
}

func (f *fakeNotifier) NotifySession(_ context.Context, _ string, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
}

func (f *fakeNotifier) CallStatusChanged(_ context.Context, _ string, c *model.Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, c.Status)
}

type fixture struct {
	store      *store.Store
	reconciler *Reconciler
	notifier   *fakeNotifier
	sessionID  string
	handoffs   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	f := &fixture{store: store.New(), notifier: &fakeNotifier{}}
	f.reconciler = NewReconciler(f.store, f.notifier, func(context.Context, string) {
		f.handoffs++
	}, log)

	sess := f.store.Create()
	f.sessionID = sess.ID
	_ = f.store.Update(sess.ID, func(live *model.Session) error {
		live.SelectedVendor = &model.Vendor{ID: "v1", Name: "Silk House"}
		live.Journey = model.JourneyCallingVendor
		return nil
	})
	_, _ = f.store.AttachCall(sess.ID, &model.Call{
		ID:       "c1",
		VendorID: "v1",
		Status:   model.CallInitiating,
		Conversation: model.ConversationState{
			Stage:        model.StageGreeting,
			InitialPrice: 8000,
		},
	})
	return f
}

func (f *fixture) call(t *testing.T) *model.Call {
	t.Helper()
	sess, err := f.store.Get(f.sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	return sess.Call
}

func (f *fixture) apply(t *testing.T, ev model.StatusEvent) {
	t.Helper()
	if err := f.reconciler.Apply(context.Background(), ev); err != nil {
		t.Fatalf("apply %+v: %v", ev, err)
	}
}

func TestLifecycleProgression(t *testing.T) {
	f := newFixture(t)

	f.apply(t, model.StatusEvent{CallID: "c1", Status: "ringing"})
	if got := f.call(t).Status; got != model.CallRinging {
		t.Errorf("expected ringing, got %s", got)
	}

	f.apply(t, model.StatusEvent{CallID: "c1", Status: "in-progress"})
	if got := f.call(t).Status; got != model.CallInProgress {
		t.Errorf("expected in_progress, got %s", got)
	}
}

func TestDuplicateEventIsNoOp(t *testing.T) {
	f := newFixture(t)

	f.apply(t, model.StatusEvent{CallID: "c1", Status: "ringing"})
	f.apply(t, model.StatusEvent{CallID: "c1", Status: "ringing"})

	if len(f.notifier.statuses) != 1 {
		t.Errorf("expected one status change, got %d", len(f.notifier.statuses))
	}
}

func TestShortCompletedCallIsHangUp(t *testing.T) {
	f := newFixture(t)

	f.apply(t, model.StatusEvent{CallID: "c1", Status: "completed", DurationSeconds: 5})

	c := f.call(t)
	if c.Status != model.CallHungUp {
		t.Errorf("expected hung_up, got %s", c.Status)
	}
	if !c.Finalized {
		t.Error("expected call finalized")
	}
	sess, _ := f.store.Get(f.sessionID)
	if sess.Journey != model.JourneySelectingVendor {
		t.Errorf("expected journey back to selecting_vendor, got %s", sess.Journey)
	}
	if f.handoffs != 0 {
		t.Errorf("expected no payment handoff, got %d", f.handoffs)
	}
}

func TestCompletedWithoutPriceIsIncomplete(t *testing.T) {
	f := newFixture(t)

	f.apply(t, model.StatusEvent{CallID: "c1", Status: "completed", DurationSeconds: 45})

	c := f.call(t)
	if c.Status != model.CallHungUp {
		t.Errorf("expected hung_up for incomplete negotiation, got %s", c.Status)
	}
	if f.handoffs != 0 {
		t.Errorf("expected no payment handoff, got %d", f.handoffs)
	}
}

func TestCompletedWithPriceHandsOffPayment(t *testing.T) {
	f := newFixture(t)

	_ = f.store.Update(f.sessionID, func(live *model.Session) error {
		live.Call.NegotiatedPrice = 8500
		live.Call.Conversation.Stage = model.StageFinalAgreement
		return nil
	})

	f.apply(t, model.StatusEvent{CallID: "c1", Status: "completed", DurationSeconds: 90})

	c := f.call(t)
	if c.Status != model.CallCompleted {
		t.Errorf("expected completed, got %s", c.Status)
	}
	sess, _ := f.store.Get(f.sessionID)
	if sess.Journey != model.JourneyProcessingPayment {
		t.Errorf("expected processing_payment journey, got %s", sess.Journey)
	}
	if f.handoffs != 1 {
		t.Errorf("expected exactly one payment handoff, got %d", f.handoffs)
	}

	// A late duplicate of the final status must not hand off again.
	f.apply(t, model.StatusEvent{CallID: "c1", Status: "completed", DurationSeconds: 90})
	if f.handoffs != 1 {
		t.Errorf("duplicate completion caused extra handoff: %d", f.handoffs)
	}
}

func TestLongCompletedWithoutPriceReturnsToSelection(t *testing.T) {
	f := newFixture(t)

	f.apply(t, model.StatusEvent{CallID: "c1", Status: "completed", DurationSeconds: 120})

	c := f.call(t)
	if c.Status != model.CallCompleted {
		t.Errorf("expected completed, got %s", c.Status)
	}
	sess, _ := f.store.Get(f.sessionID)
	if sess.Journey != model.JourneySelectingVendor {
		t.Errorf("expected selecting_vendor journey, got %s", sess.Journey)
	}
	if f.handoffs != 0 {
		t.Errorf("expected no handoff without a price, got %d", f.handoffs)
	}
}

func TestNoAnswerFinalizes(t *testing.T) {
	f := newFixture(t)

	f.apply(t, model.StatusEvent{CallID: "c1", Status: "no-answer"})

	c := f.call(t)
	if c.Status != model.CallNoAnswer {
		t.Errorf("expected no_answer, got %s", c.Status)
	}
	if !c.Finalized {
		t.Error("expected call finalized")
	}

	// Out-of-order events after the terminal classification are dropped.
	f.apply(t, model.StatusEvent{CallID: "c1", Status: "in-progress"})
	if got := f.call(t).Status; got != model.CallNoAnswer {
		t.Errorf("finalized call moved to %s", got)
	}

	if len(f.notifier.messages) != 1 {
		t.Errorf("expected one notification, got %d", len(f.notifier.messages))
	}
}

func TestStaleCallIsNotAnError(t *testing.T) {
	f := newFixture(t)

	if err := f.reconciler.Apply(context.Background(), model.StatusEvent{CallID: "ghost", Status: "completed"}); err != nil {
		t.Errorf("stale event must not error: %v", err)
	}
}

func TestUnknownStatusIsAnError(t *testing.T) {
	f := newFixture(t)

	err := f.reconciler.Apply(context.Background(), model.StatusEvent{CallID: "c1", Status: "levitating"})
	if err == nil {
		t.Error("expected error for unknown provider status")
	}
}
