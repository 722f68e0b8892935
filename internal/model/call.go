package model

import (
	"time"
)

// CallStatus is the lifecycle state of one telephony negotiation attempt.
type CallStatus string

const (
	CallInitiating  CallStatus = "initiating"
	CallRinging     CallStatus = "ringing"
	CallInProgress  CallStatus = "in_progress"
	CallNegotiating CallStatus = "negotiating"
	CallCompleted   CallStatus = "completed"
	CallNoAnswer    CallStatus = "no_answer"
	CallHungUp      CallStatus = "hung_up"
	CallTimeout     CallStatus = "timeout"
	CallFailed      CallStatus = "failed"
)

// Stage is a named point in the negotiation dialog tree.
type Stage string

const (
	StageGreeting        Stage = "greeting"
	StageAskRequirements Stage = "ask_requirements"
	StageNegotiatePrice  Stage = "negotiate_price"
	StageCounterOffer    Stage = "counter_offer"
	StageFinalAgreement  Stage = "final_agreement"
	StageNoSaree         Stage = "no_saree"
	StageTimeout         Stage = "timeout"
	StageEnded           Stage = "ended"
)

// Terminal reports whether no further input is solicited after this stage.
func (s Stage) Terminal() bool {
	switch s {
	case StageFinalAgreement, StageNoSaree, StageTimeout, StageEnded:
		return true
	}
	return false
}

// ConversationState holds the negotiation variables threaded through stage
// transitions. Prices are integer currency minor units. Attempts counts
// consecutive failed turns on the current stage and resets to zero on
// every stage transition.
type ConversationState struct {
	Stage        Stage `json:"stage"`
	Quantity     int   `json:"quantity,omitempty"`
	InitialPrice int   `json:"initial_price"`
	VendorPrice  int   `json:"vendor_price,omitempty"`
	FinalPrice   int   `json:"final_price,omitempty"`
	Attempts     int   `json:"attempts"`
}

// Call is one telephony negotiation attempt. A session holds at most one
// live call; starting a new one replaces it.
type Call struct {
	ID              string            `json:"id"`
	VendorID        string            `json:"vendor_id"`
	Status          CallStatus        `json:"status"`
	DurationSeconds int               `json:"duration_seconds,omitempty"`
	NegotiatedPrice int               `json:"negotiated_price,omitempty"`
	Transcript      []string          `json:"transcript,omitempty"`
	Conversation    ConversationState `json:"conversation_state"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`

	// Reconciliation bookkeeping, not exposed over the API.
	LastProviderStatus string `json:"-"`
	Finalized          bool   `json:"-"`
	PaymentHandedOff   bool   `json:"-"`
}

// StatusEvent is an asynchronous call-status event from the telephony
// provider.
type StatusEvent struct {
	CallID          string `json:"call_id"`
	Status          string `json:"status"`
	DurationSeconds int    `json:"duration_seconds"`
	AnsweredBy      string `json:"answered_by,omitempty"`
}
