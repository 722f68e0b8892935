package dialog

import (
	"testing"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
)

func newTestMachine() *Machine {
	return NewMachine(DefaultConfig(), NewKeywordClassifier())
}

func start(initialPrice int) model.ConversationState {
	return model.ConversationState{
		Stage:        model.StageGreeting,
		InitialPrice: initialPrice,
	}
}

func TestFullNegotiationScenario(t *testing.T) {
	m := newTestMachine()
	cs := start(8000)

	// Vendor presses 1 at the greeting.
	res := m.Next(cs, Input{Digits: "1"})
	if res.State.Stage != model.StageAskRequirements {
		t.Fatalf("expected ask_requirements, got %s", res.State.Stage)
	}
	if res.State.Attempts != 0 {
		t.Errorf("expected attempts reset on transition, got %d", res.State.Attempts)
	}

	// Vendor names quantity and a first quote.
	res = m.Next(res.State, Input{Transcript: "haan we have 6 sarees, 9500 each"})
	if res.State.Stage != model.StageNegotiatePrice {
		t.Fatalf("expected negotiate_price, got %s", res.State.Stage)
	}
	if res.State.Quantity != 6 {
		t.Errorf("expected quantity 6, got %d", res.State.Quantity)
	}
	if res.State.VendorPrice != 9500 {
		t.Errorf("expected vendor price 9500, got %d", res.State.VendorPrice)
	}

	// Vendor rejects the opening offer but comes down to 9000.
	res = m.Next(res.State, Input{Transcript: "nahi nahi, 9000 is my best price"})
	if res.State.Stage != model.StageCounterOffer {
		t.Fatalf("expected counter_offer, got %s", res.State.Stage)
	}
	if res.State.VendorPrice != 9000 {
		t.Errorf("expected vendor price 9000, got %d", res.State.VendorPrice)
	}
	if res.State.FinalPrice != 8500 {
		t.Errorf("expected counter at midpoint 8500, got %d", res.State.FinalPrice)
	}

	// Vendor accepts the counter.
	res = m.Next(res.State, Input{Digits: "1"})
	if res.State.Stage != model.StageFinalAgreement {
		t.Fatalf("expected final_agreement, got %s", res.State.Stage)
	}
	if !res.Agreed {
		t.Error("expected Agreed on final agreement")
	}
	if res.State.FinalPrice != 8500 {
		t.Errorf("expected final price 8500, got %d", res.State.FinalPrice)
	}
}

func TestGreetingDecline(t *testing.T) {
	m := newTestMachine()

	res := m.Next(start(8000), Input{Digits: "2"})
	if res.State.Stage != model.StageNoSaree {
		t.Fatalf("expected no_saree, got %s", res.State.Stage)
	}
	if !res.Declined {
		t.Error("expected Declined")
	}
	if res.Outcome != OutcomeTerminal {
		t.Errorf("expected terminal outcome, got %s", res.Outcome)
	}
}

func TestGreetingUnrecognizedExhaustsToNoSaree(t *testing.T) {
	m := newTestMachine()
	cs := start(8000)

	for i := 0; i < 2; i++ {
		res := m.Next(cs, Input{Transcript: "static noise"})
		if res.Outcome != OutcomeRetry {
			t.Fatalf("turn %d: expected retry, got %s", i, res.Outcome)
		}
		cs = res.State
	}
	if cs.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", cs.Attempts)
	}

	res := m.Next(cs, Input{Transcript: "more static"})
	if res.State.Stage != model.StageNoSaree {
		t.Fatalf("expected no_saree after third failure, got %s", res.State.Stage)
	}
	if !res.Declined {
		t.Error("expected Declined on greeting exhaustion")
	}
}

func TestEmptyInputTimesOutAfterMaxAttempts(t *testing.T) {
	m := newTestMachine()
	cs := model.ConversationState{Stage: model.StageNegotiatePrice, InitialPrice: 8000, VendorPrice: 9000}

	for i := 0; i < 2; i++ {
		res := m.Next(cs, Input{})
		if res.Outcome != OutcomeRetry {
			t.Fatalf("turn %d: expected retry, got %s", i, res.Outcome)
		}
		cs = res.State
	}

	res := m.Next(cs, Input{})
	if res.State.Stage != model.StageTimeout {
		t.Fatalf("expected timeout stage, got %s", res.State.Stage)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
}

func TestAskRequirementsDefaultsQuantity(t *testing.T) {
	m := newTestMachine()
	cs := model.ConversationState{Stage: model.StageAskRequirements, InitialPrice: 8000}

	res := m.Next(cs, Input{Transcript: "we have plenty of silk sarees"})
	if res.State.Stage != model.StageNegotiatePrice {
		t.Fatalf("expected negotiate_price, got %s", res.State.Stage)
	}
	if res.State.Quantity != 5 {
		t.Errorf("expected default quantity 5, got %d", res.State.Quantity)
	}
}

func TestNegotiateAcceptsOpeningOffer(t *testing.T) {
	m := newTestMachine()
	cs := model.ConversationState{Stage: model.StageNegotiatePrice, InitialPrice: 8000}

	res := m.Next(cs, Input{Transcript: "haan okay done"})
	if res.State.Stage != model.StageFinalAgreement {
		t.Fatalf("expected final_agreement, got %s", res.State.Stage)
	}
	if res.State.FinalPrice != 8000 {
		t.Errorf("expected final price at opening offer 8000, got %d", res.State.FinalPrice)
	}
	if !res.Agreed {
		t.Error("expected Agreed")
	}
}

func TestNegotiateFallbackIncrementWhenNoQuote(t *testing.T) {
	m := newTestMachine()
	cs := model.ConversationState{Stage: model.StageNegotiatePrice, InitialPrice: 8000}

	// A refusal with no number and no prior quote synthesizes a vendor
	// price above the opening offer.
	res := m.Next(cs, Input{Transcript: "that is too low"})
	if res.State.VendorPrice != 10000 {
		t.Errorf("expected synthesized vendor price 10000, got %d", res.State.VendorPrice)
	}
	if res.State.FinalPrice != 9000 {
		t.Errorf("expected counter 9000, got %d", res.State.FinalPrice)
	}
}

func TestNegotiateKeepsEarlierQuote(t *testing.T) {
	m := newTestMachine()
	cs := model.ConversationState{Stage: model.StageNegotiatePrice, InitialPrice: 8000, VendorPrice: 9000}

	// Refusal with no number keeps the earlier quote rather than
	// synthesizing a new one.
	res := m.Next(cs, Input{Transcript: "nahi"})
	if res.State.VendorPrice != 9000 {
		t.Errorf("expected vendor price kept at 9000, got %d", res.State.VendorPrice)
	}
	if res.State.FinalPrice != 8500 {
		t.Errorf("expected counter 8500, got %d", res.State.FinalPrice)
	}
}

func TestNegativeDigitIsNotAPrice(t *testing.T) {
	m := newTestMachine()
	cs := model.ConversationState{Stage: model.StageNegotiatePrice, InitialPrice: 8000}

	// Keypad "2" means no; the digit must not be read as a quote of 2.
	res := m.Next(cs, Input{Digits: "2"})
	if res.State.VendorPrice != 10000 {
		t.Errorf("expected synthesized vendor price 10000, got %d", res.State.VendorPrice)
	}
}

func TestCounterOfferConcessionOnRefusal(t *testing.T) {
	m := newTestMachine()
	cs := model.ConversationState{
		Stage:        model.StageCounterOffer,
		InitialPrice: 8000,
		VendorPrice:  9000,
		FinalPrice:   8500,
	}

	res := m.Next(cs, Input{Transcript: "no, too low"})
	if res.State.Stage != model.StageFinalAgreement {
		t.Fatalf("expected final_agreement, got %s", res.State.Stage)
	}
	if res.State.FinalPrice != 9000 {
		t.Errorf("expected concession to 9000, got %d", res.State.FinalPrice)
	}
	if !res.Agreed {
		t.Error("expected Agreed even after refusal concession")
	}
}

func TestTerminalStageIsInert(t *testing.T) {
	m := newTestMachine()
	cs := model.ConversationState{Stage: model.StageFinalAgreement, FinalPrice: 8500}

	res := m.Next(cs, Input{Transcript: "hello?"})
	if res.State != cs {
		t.Errorf("expected unchanged state, got %+v", res.State)
	}
	if res.Outcome != OutcomeTerminal {
		t.Errorf("expected terminal outcome, got %s", res.Outcome)
	}
}

func TestMidpointRoundsHalfUp(t *testing.T) {
	if got := midpoint(8000, 9001); got != 8501 {
		t.Errorf("midpoint(8000, 9001) = %d, want 8501", got)
	}
	if got := midpoint(8000, 9000); got != 8500 {
		t.Errorf("midpoint(8000, 9000) = %d, want 8500", got)
	}
}
