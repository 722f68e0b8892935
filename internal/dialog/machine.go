package dialog

import (
	"regexp"
	"strconv"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
)

// Config holds the negotiation tuning constants.
type Config struct {
	// MaxAttempts is the number of consecutive failed turns allowed on one
	// stage before a forced terminal transition.
	MaxAttempts int
	// DefaultQuantity is assumed when the vendor answers without a number.
	DefaultQuantity int
	// FallbackIncrement is added to the opening offer to synthesize a
	// vendor price when the vendor declines without naming one.
	FallbackIncrement int
	// ConcessionBump is the final concession added when the counter-offer
	// is not accepted outright.
	ConcessionBump int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		DefaultQuantity:   5,
		FallbackIncrement: 2000,
		ConcessionBump:    500,
	}
}

// Input is one gathered turn: a free-text transcript and/or keypad digits,
// either possibly empty.
type Input struct {
	Transcript string
	Digits     string
}

// Empty reports whether the turn carried no input at all.
func (in Input) Empty() bool {
	return in.Transcript == "" && in.Digits == ""
}

// Outcome categorizes what a turn did, for logging and metrics.
type Outcome string

const (
	OutcomeAdvance  Outcome = "advance"
	OutcomeRetry    Outcome = "retry"
	OutcomeTerminal Outcome = "terminal"
)

// Result is the product of one state machine turn.
type Result struct {
	State   model.ConversationState
	Outcome Outcome

	// TimedOut is set on a forced transition into the timeout stage.
	TimedOut bool
	// Declined is set when the vendor declined and the call entered the
	// no-saree stage.
	Declined bool
	// Agreed is set when the call reached final agreement.
	Agreed bool
}

// Machine drives the negotiation dialog tree. It is a pure function over
// ConversationState; persistence and messaging are the caller's concern.
type Machine struct {
	cfg        Config
	classifier Classifier
}

// NewMachine creates a negotiation machine with the given classifier.
func NewMachine(cfg Config, classifier Classifier) *Machine {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	return &Machine{cfg: cfg, classifier: classifier}
}

var numberPattern = regexp.MustCompile(`[0-9]+`)

// extractNumbers returns all numeric tokens in order of appearance.
func extractNumbers(text string) []int {
	var nums []int
	for _, tok := range numberPattern.FindAllString(text, -1) {
		if n, err := strconv.Atoi(tok); err == nil {
			nums = append(nums, n)
		}
	}
	return nums
}

// midpoint is the simple counter-offer heuristic: the average of the two
// prices, rounded half up.
func midpoint(a, b int) int {
	return (a + b + 1) / 2
}

// Next computes the transition for one turn. Attempts reset to zero on
// every stage transition and only on a stage transition.
func (m *Machine) Next(cs model.ConversationState, in Input) Result {
	switch cs.Stage {
	case model.StageGreeting:
		return m.greeting(cs, in)
	case model.StageAskRequirements:
		return m.askRequirements(cs, in)
	case model.StageNegotiatePrice:
		return m.negotiatePrice(cs, in)
	case model.StageCounterOffer:
		return m.counterOffer(cs, in)
	default:
		// Terminal stages issue no further turns.
		return Result{State: cs, Outcome: OutcomeTerminal}
	}
}

func (m *Machine) greeting(cs model.ConversationState, in Input) Result {
	switch m.classifier.Classify(in.Transcript, in.Digits) {
	case Yes:
		return m.advance(cs, model.StageAskRequirements)
	case No:
		r := m.advance(cs, model.StageNoSaree)
		r.Outcome = OutcomeTerminal
		r.Declined = true
		return r
	}

	cs.Attempts++
	if cs.Attempts >= m.cfg.MaxAttempts {
		r := m.advance(cs, model.StageNoSaree)
		r.Outcome = OutcomeTerminal
		r.Declined = true
		return r
	}
	return Result{State: cs, Outcome: OutcomeRetry}
}

func (m *Machine) askRequirements(cs model.ConversationState, in Input) Result {
	if in.Empty() {
		return m.retryOrTimeout(cs)
	}

	nums := extractNumbers(in.Transcript)
	if len(nums) > 0 {
		cs.Quantity = nums[0]
	} else {
		cs.Quantity = m.cfg.DefaultQuantity
	}
	if len(nums) > 1 {
		cs.VendorPrice = nums[1]
	}

	return m.advance(cs, model.StageNegotiatePrice)
}

func (m *Machine) negotiatePrice(cs model.ConversationState, in Input) Result {
	if in.Empty() {
		return m.retryOrTimeout(cs)
	}

	if m.classifier.Classify(in.Transcript, in.Digits) == Yes {
		cs.FinalPrice = cs.InitialPrice
		r := m.advance(cs, model.StageFinalAgreement)
		r.Outcome = OutcomeTerminal
		r.Agreed = true
		return r
	}

	// Not an acceptance: take the vendor's stated price if one was spoken.
	// Without a price and with no earlier quote, assume the vendor wants a
	// fixed increment over our opening offer.
	nums := extractNumbers(in.Transcript)
	if len(nums) > 0 {
		cs.VendorPrice = nums[0]
	} else if cs.VendorPrice == 0 {
		cs.VendorPrice = cs.InitialPrice + m.cfg.FallbackIncrement
	}

	cs.FinalPrice = midpoint(cs.InitialPrice, cs.VendorPrice)
	return m.advance(cs, model.StageCounterOffer)
}

func (m *Machine) counterOffer(cs model.ConversationState, in Input) Result {
	if in.Empty() {
		return m.retryOrTimeout(cs)
	}

	// The negotiation always closes after one counter-round: a
	// non-affirmative answer gets one more small concession and the deal
	// is declared anyway.
	if m.classifier.Classify(in.Transcript, in.Digits) != Yes {
		cs.FinalPrice += m.cfg.ConcessionBump
	}

	r := m.advance(cs, model.StageFinalAgreement)
	r.Outcome = OutcomeTerminal
	r.Agreed = true
	return r
}

func (m *Machine) advance(cs model.ConversationState, next model.Stage) Result {
	cs.Stage = next
	cs.Attempts = 0
	return Result{State: cs, Outcome: OutcomeAdvance}
}

func (m *Machine) retryOrTimeout(cs model.ConversationState) Result {
	cs.Attempts++
	if cs.Attempts >= m.cfg.MaxAttempts {
		r := m.advance(cs, model.StageTimeout)
		r.Outcome = OutcomeTerminal
		r.TimedOut = true
		return r
	}
	return Result{State: cs, Outcome: OutcomeRetry}
}
