package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	callpkg "github.com/amanpal108/Zenno-Concierge/internal/call"
	"github.com/amanpal108/Zenno-Concierge/internal/dialog"
	"github.com/amanpal108/Zenno-Concierge/internal/events"
	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/internal/telephony"
	"github.com/amanpal108/Zenno-Concierge/internal/voice"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
	"github.com/amanpal108/Zenno-Concierge/pkg/metrics"
)

// ErrVendorNotFound is returned when the selected vendor is not in the
// session's discovered list.
var ErrVendorNotFound = errors.New("vendor not found in session")

// NegotiationOptions configures the negotiation driver.
type NegotiationOptions struct {
	// OpeningOffer is the buyer's initial price per saree.
	OpeningOffer int
	// CallbackBaseURL prefixes the status-callback URL handed to the
	// telephony provider.
	CallbackBaseURL string
	// MaxAttempts mirrors the machine's per-stage retry threshold.
	MaxAttempts int
}

// NegotiationService drives voice-call negotiations: placing calls,
// serving voice documents, and running gathered input through the state
// machine.
type NegotiationService struct {
	store     *store.Store
	machine   *dialog.Machine
	renderer  *voice.Renderer
	dialer    telephony.Dialer
	simulator *callpkg.Simulator
	publisher events.Publisher
	opts      NegotiationOptions
	logger    *logger.Logger
}

// NewNegotiationService creates a negotiation service.
func NewNegotiationService(
	st *store.Store,
	machine *dialog.Machine,
	renderer *voice.Renderer,
	dialer telephony.Dialer,
	simulator *callpkg.Simulator,
	publisher events.Publisher,
	opts NegotiationOptions,
	log *logger.Logger,
) *NegotiationService {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	return &NegotiationService{
		store:     st,
		machine:   machine,
		renderer:  renderer,
		dialer:    dialer,
		simulator: simulator,
		publisher: publisher,
		opts:      opts,
		logger:    log,
	}
}

// StartCall selects a vendor and places a negotiation call. Any live call
// on the session is replaced and its simulated timers canceled.
func (s *NegotiationService) StartCall(ctx context.Context, sessionID, vendorID string) (*model.StartCallResponse, error) {
	var vendor model.Vendor
	err := s.store.Update(sessionID, func(sess *model.Session) error {
		for _, v := range sess.Vendors {
			if v.ID == vendorID {
				vendor = v
				sess.SelectedVendor = &v
				sess.Journey = model.JourneyCallingVendor
				return nil
			}
		}
		return ErrVendorNotFound
	})
	if err != nil {
		return nil, err
	}

	c := &model.Call{
		ID:       uuid.Must(uuid.NewV7()).String(),
		VendorID: vendor.ID,
		Status:   model.CallInitiating,
		Conversation: model.ConversationState{
			Stage:        model.StageGreeting,
			InitialPrice: s.opts.OpeningOffer,
		},
		StartedAt: time.Now(),
	}

	replaced, err := s.store.AttachCall(sessionID, c)
	if err != nil {
		return nil, err
	}
	if replaced != "" {
		// A superseded call must not resurrect a stale negotiation.
		s.simulator.Cancel(replaced)
	}

	voiceURL := s.renderer.PromptURL(sessionID, c.ID, model.StageGreeting, 0)
	callbackURL := fmt.Sprintf("%s/webhooks/call-status?call_id=%s", s.opts.CallbackBaseURL, c.ID)

	callRef, dialErr := s.dialer.PlaceCall(ctx, vendor.Phone, voiceURL, callbackURL)
	if dialErr != nil {
		// Placement failure degrades to the simulated progression path.
		if !errors.Is(dialErr, telephony.ErrNotConfigured) {
			s.logger.Warn("call placement failed, simulating call",
				zap.String("session_id", sessionID), zap.String("call_id", c.ID), zap.Error(dialErr))
		}
		metrics.CallsStarted.WithLabelValues("simulated").Inc()
		s.simulator.Start(c.ID)
	} else {
		metrics.CallsStarted.WithLabelValues("provider").Inc()
		s.logger.Info("call placed",
			zap.String("session_id", sessionID), zap.String("call_id", c.ID), zap.String("call_ref", callRef))
	}

	s.NotifyCallStarted(ctx, sessionID, vendor, c)

	snapshot, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return &model.StartCallResponse{Call: snapshot.Call, Journey: snapshot.Journey}, nil
}

// NotifyCallStarted surfaces the call start in the chat and on the audit
// stream.
func (s *NegotiationService) NotifyCallStarted(ctx context.Context, sessionID string, vendor model.Vendor, c *model.Call) {
	text := fmt.Sprintf("Calling %s now to negotiate the best price. I'll let you know how it goes!", vendor.Name)
	if msg, err := s.store.AppendMessage(sessionID, model.RoleAssistant, text); err == nil {
		if perr := s.publisher.PublishMessage(ctx, msg); perr != nil {
			s.logger.Warn("failed to publish call-start message", zap.Error(perr))
		}
	}
	if err := s.publisher.PublishCallEvent(ctx, sessionID, c); err != nil {
		s.logger.Warn("failed to publish call event", zap.Error(err))
	}
}

// Prompt returns the voice document for the current turn of a call. It
// must always produce a valid document: unknown session or call state
// degrades to the safe apology-and-hangup fallback.
func (s *NegotiationService) Prompt(ctx context.Context, sessionID, callID string, stage model.Stage, attempt int) *voice.Document {
	snapshot, err := s.store.Get(sessionID)
	if err != nil || snapshot.Call == nil || snapshot.Call.ID != callID {
		return s.renderer.SafeFallback()
	}

	cs := snapshot.Call.Conversation
	if stage == "" {
		stage = cs.Stage
	}

	// The redirect chain carries the attempt count for turns where the
	// provider delivered no input at all. Hitting the threshold here is a
	// forced timeout, same as in the machine.
	if !stage.Terminal() && attempt >= s.opts.MaxAttempts {
		s.applyTimeout(ctx, sessionID, callID)
	}

	return s.renderer.Render(sessionID, callID, stage, cs, attempt)
}

// Gather runs one gathered input through the state machine and returns
// the next voice document.
func (s *NegotiationService) Gather(ctx context.Context, sessionID, callID string, transcript, digits string) *voice.Document {
	var (
		res      dialog.Result
		prev     model.Stage
		callCopy model.Call
	)

	err := s.store.Update(sessionID, func(sess *model.Session) error {
		c := sess.Call
		if c == nil || c.ID != callID {
			return store.ErrCallNotFound
		}

		prev = c.Conversation.Stage
		res = s.machine.Next(c.Conversation, dialog.Input{Transcript: transcript, Digits: digits})
		c.Conversation = res.State

		if transcript != "" {
			c.Transcript = append(c.Transcript, transcript)
		}
		if res.State.FinalPrice > 0 {
			c.NegotiatedPrice = res.State.FinalPrice
		}

		if res.TimedOut {
			// Stage-level timeout is a terminal classification in its own
			// right: finalize so the provider's trailing completed callback
			// cannot reclassify the call. The journey goes back to vendor
			// selection.
			now := time.Now()
			c.Status = model.CallTimeout
			c.CompletedAt = &now
			c.Finalized = true
			sess.Journey = model.JourneySelectingVendor
		} else if !prev.Terminal() && !c.Finalized {
			// The dialog is moving; the call is mid-negotiation. Agreement
			// and decline leave the status for the provider's final
			// status callback to resolve.
			c.Status = model.CallNegotiating
		}

		callCopy = *c
		return nil
	})
	if err != nil {
		return s.renderer.SafeFallback()
	}

	metrics.RecordNegotiationTurn(string(prev), string(res.Outcome))
	if err := s.publisher.PublishCallEvent(ctx, sessionID, &callCopy); err != nil {
		s.logger.Warn("failed to publish call event", zap.Error(err))
	}

	switch {
	case res.TimedOut:
		s.appendAssistant(ctx, sessionID, "I couldn't hear the vendor clearly and the call timed out. Want me to try another vendor from the list?")
	case res.Declined:
		s.appendAssistant(ctx, sessionID, "This vendor doesn't carry what we're after. Shall we try another one from the list?")
	}

	return s.renderer.Render(sessionID, callID, res.State.Stage, res.State, res.State.Attempts)
}

// applyTimeout marks the call timed out after the no-input redirect chain
// exhausts its attempts.
func (s *NegotiationService) applyTimeout(ctx context.Context, sessionID, callID string) {
	already := false
	err := s.store.Update(sessionID, func(sess *model.Session) error {
		c := sess.Call
		if c == nil || c.ID != callID {
			return store.ErrCallNotFound
		}
		if c.Status == model.CallTimeout || c.Finalized {
			already = true
			return nil
		}
		now := time.Now()
		c.Status = model.CallTimeout
		c.Conversation.Stage = model.StageTimeout
		c.Conversation.Attempts = 0
		c.CompletedAt = &now
		c.Finalized = true
		sess.Journey = model.JourneySelectingVendor
		return nil
	})
	if err != nil || already {
		return
	}
	s.appendAssistant(ctx, sessionID, "I couldn't hear the vendor clearly and the call timed out. Want me to try another vendor from the list?")
}

func (s *NegotiationService) appendAssistant(ctx context.Context, sessionID, text string) {
	msg, err := s.store.AppendMessage(sessionID, model.RoleAssistant, text)
	if err != nil {
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	if perr := s.publisher.PublishMessage(ctx, msg); perr != nil {
		s.logger.Warn("failed to publish message", zap.Error(perr))
	}
}
