// Package model defines data structures for the concierge platform.
package model

import (
	"time"
)

// JourneyStatus tracks where a session is in the shopping journey.
type JourneyStatus string

const (
	JourneyChatting          JourneyStatus = "chatting"
	JourneySearchingVendors  JourneyStatus = "searching_vendors"
	JourneySelectingVendor   JourneyStatus = "selecting_vendor"
	JourneyCallingVendor     JourneyStatus = "calling_vendor"
	JourneyProcessingPayment JourneyStatus = "processing_payment"
	JourneyCompleted         JourneyStatus = "completed"
)

// Session is one shopping journey. Messages are append-only; Vendors are
// replaced wholesale on each new search. Call and Transaction are only
// meaningful while SelectedVendor is set.
type Session struct {
	ID             string        `json:"id"`
	Messages       []Message     `json:"messages"`
	Vendors        []Vendor      `json:"vendors,omitempty"`
	SelectedVendor *Vendor       `json:"selected_vendor,omitempty"`
	Call           *Call         `json:"call,omitempty"`
	Transaction    *Transaction  `json:"transaction,omitempty"`
	Journey        JourneyStatus `json:"journey_status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ChatRequest is the request for a chat turn.
type ChatRequest struct {
	Content string `json:"content"`
}

// ChatResponse is the response to a chat turn.
type ChatResponse struct {
	SessionID        string        `json:"session_id"`
	UserMessage      *Message      `json:"user_message"`
	AssistantMessage *Message      `json:"assistant_message"`
	Journey          JourneyStatus `json:"journey_status"`
	Vendors          []Vendor      `json:"vendors,omitempty"`
}

// StartCallResponse is returned after a vendor call has been initiated.
type StartCallResponse struct {
	Call    *Call         `json:"call"`
	Journey JourneyStatus `json:"journey_status"`
}
