// Package call maps asynchronous telephony provider events onto the call
// lifecycle and simulates call progression when no live channel exists.
package call

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
	"github.com/amanpal108/Zenno-Concierge/pkg/metrics"
)

const (
	// shortCallSeconds: a completed call under this is a hang-up, too
	// short to be a real negotiation.
	shortCallSeconds = 10
	// incompleteCallSeconds: a completed call under this with no
	// negotiated price is an incomplete negotiation.
	incompleteCallSeconds = 60
)

// Notifier appends user-facing assistant messages and publishes call
// lifecycle events. Implemented by the concierge service layer.
type Notifier interface {
	NotifySession(ctx context.Context, sessionID, text string)
	CallStatusChanged(ctx context.Context, sessionID string, call *model.Call)
}

// PaymentHandoff is invoked exactly once when a call completes with a
// negotiated price.
type PaymentHandoff func(ctx context.Context, sessionID string)

// Reconciler translates provider status events into call lifecycle state.
// It runs independently of the negotiation machine and is idempotent under
// duplicate and out-of-order delivery.
type Reconciler struct {
	store    *store.Store
	notifier Notifier
	handoff  PaymentHandoff
	logger   *logger.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(st *store.Store, notifier Notifier, handoff PaymentHandoff, log *logger.Logger) *Reconciler {
	return &Reconciler{store: st, notifier: notifier, handoff: handoff, logger: log}
}

// applyResult captures the decisions made inside the session critical
// section, acted on after the lock is released.
type applyResult struct {
	sessionID string
	duplicate bool
	stale     bool
	notify    string
	handoff   bool
	finished  model.CallStatus
	call      model.Call
}

// Apply maps one provider status event onto the owning call.
func (r *Reconciler) Apply(ctx context.Context, ev model.StatusEvent) error {
	var res applyResult

	err := r.store.UpdateByCall(ev.CallID, func(sess *model.Session) error {
		res.sessionID = sess.ID

		c := sess.Call
		if c == nil || c.ID != ev.CallID {
			return store.ErrCallNotFound
		}

		// Duplicate delivery of the same provider status is a no-op, and
		// nothing moves a call that already reached a terminal
		// classification.
		if c.LastProviderStatus == ev.Status || c.Finalized {
			res.duplicate = true
			return nil
		}
		c.LastProviderStatus = ev.Status

		switch ev.Status {
		case "initiated", "queued":
			c.Status = model.CallInitiating
		case "ringing":
			c.Status = model.CallRinging
		case "in-progress", "answered":
			c.Status = model.CallInProgress
		case "no-answer", "busy":
			r.finish(sess, c, ev, model.CallNoAnswer, &res)
			res.notify = "The vendor didn't answer the call. Would you like to try another vendor from the list?"
		case "failed":
			r.finish(sess, c, ev, model.CallFailed, &res)
			res.notify = "The call couldn't be connected. Shall we try another vendor?"
		case "canceled":
			r.finish(sess, c, ev, model.CallHungUp, &res)
			res.notify = "The vendor hung up before we could finish. Want to pick another vendor?"
		case "completed":
			r.finishCompleted(sess, c, ev, &res)
		default:
			return fmt.Errorf("unknown provider status %q", ev.Status)
		}

		res.call = *c
		return nil
	})

	if err == store.ErrCallNotFound {
		// Superseded or unknown call; the event is stale, not an error
		// worth failing the webhook over.
		metrics.RecordWebhookEvent(ev.Status, "stale")
		r.logger.Warn("status event for unknown call", zap.String("call_id", ev.CallID), zap.String("status", ev.Status))
		return nil
	}
	if err != nil {
		metrics.RecordWebhookEvent(ev.Status, "error")
		return err
	}

	if res.duplicate {
		metrics.RecordWebhookEvent(ev.Status, "duplicate")
		return nil
	}
	metrics.RecordWebhookEvent(ev.Status, "applied")
	if res.finished != "" {
		metrics.CallsFinished.WithLabelValues(string(res.finished)).Inc()
	}

	// Side effects run outside the session lock: the notifier and payment
	// hand-off take the same lock again.
	if r.notifier != nil {
		r.notifier.CallStatusChanged(ctx, res.sessionID, &res.call)
		if res.notify != "" {
			r.notifier.NotifySession(ctx, res.sessionID, res.notify)
		}
	}
	if res.handoff && r.handoff != nil {
		r.handoff(ctx, res.sessionID)
	}

	return nil
}

// finish applies a terminal classification that sends the journey back to
// vendor selection.
func (r *Reconciler) finish(sess *model.Session, c *model.Call, ev model.StatusEvent, status model.CallStatus, res *applyResult) {
	now := time.Now()
	c.Status = status
	c.DurationSeconds = ev.DurationSeconds
	c.CompletedAt = &now
	c.Finalized = true
	sess.Journey = model.JourneySelectingVendor
	res.finished = status
}

// finishCompleted classifies the ambiguous provider "completed" status:
// a genuine success only when the negotiation produced a price and the
// call lasted long enough to have been real.
func (r *Reconciler) finishCompleted(sess *model.Session, c *model.Call, ev model.StatusEvent, res *applyResult) {
	switch {
	case ev.DurationSeconds < shortCallSeconds:
		r.finish(sess, c, ev, model.CallHungUp, res)
		res.notify = "The call ended almost immediately. Want to try another vendor?"

	case c.NegotiatedPrice == 0 && ev.DurationSeconds < incompleteCallSeconds:
		r.finish(sess, c, ev, model.CallHungUp, res)
		res.notify = "The call ended before we could agree on a price. Shall we try another vendor?"

	case c.NegotiatedPrice > 0:
		now := time.Now()
		c.Status = model.CallCompleted
		c.DurationSeconds = ev.DurationSeconds
		c.CompletedAt = &now
		c.Finalized = true
		sess.Journey = model.JourneyProcessingPayment
		res.finished = model.CallCompleted
		res.notify = fmt.Sprintf("Great news! I negotiated a price of %d per saree with the vendor. Shall I proceed with the payment?", c.NegotiatedPrice)
		if !c.PaymentHandedOff {
			c.PaymentHandedOff = true
			res.handoff = true
		}

	default:
		// Long enough to have been a real conversation, but no price was
		// reached. Record the completion and let the user reselect.
		now := time.Now()
		c.Status = model.CallCompleted
		c.DurationSeconds = ev.DurationSeconds
		c.CompletedAt = &now
		c.Finalized = true
		sess.Journey = model.JourneySelectingVendor
		res.finished = model.CallCompleted
		res.notify = "The call finished but I couldn't confirm a final price. Would you like to try another vendor?"
	}
}
