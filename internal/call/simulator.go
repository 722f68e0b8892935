package call

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amanpal108/Zenno-Concierge/internal/dialog"
	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
)

// simulatedDuration is the call length reported by simulated completions,
// long enough to classify as a real negotiation.
const simulatedDuration = 75

// Simulator models call progression when no live telephony channel is
// available: ringing, in-progress, negotiating, completed, fired on
// deferred transitions. Each call's progression carries a cancellation
// token; superseding the call cancels outstanding transitions so a stale
// negotiation cannot resurrect.
type Simulator struct {
	store      *store.Store
	reconciler *Reconciler
	machine    *dialog.Machine
	step       time.Duration
	logger     *logger.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewSimulator creates a simulator whose stage transitions fire every
// step interval.
func NewSimulator(st *store.Store, rec *Reconciler, machine *dialog.Machine, step time.Duration, log *logger.Logger) *Simulator {
	if step <= 0 {
		step = 3 * time.Second
	}
	return &Simulator{
		store:      st,
		reconciler: rec,
		machine:    machine,
		step:       step,
		logger:     log,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// vendorScript is the scripted vendor side of a simulated negotiation:
// agrees to talk, quotes six sarees at 9500, declines the opening offer
// at 9000, then accepts the counter.
var vendorScript = []dialog.Input{
	{Digits: "1"},
	{Transcript: "haan we have 6 sarees, 9500 each"},
	{Transcript: "nahi nahi, 9000 is my best price"},
	{Digits: "1"},
}

// Start begins simulated progression for a call. Any prior simulation for
// the same call is replaced.
func (s *Simulator) Start(callID string) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if prev, ok := s.cancels[callID]; ok {
		prev()
	}
	s.cancels[callID] = cancel
	s.mu.Unlock()

	go s.run(ctx, callID)
}

// Cancel stops any outstanding simulated transitions for a call.
func (s *Simulator) Cancel(callID string) {
	s.mu.Lock()
	cancel, ok := s.cancels[callID]
	if ok {
		delete(s.cancels, callID)
	}
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

// Stop cancels all outstanding simulated progressions. Used at shutdown.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (s *Simulator) run(ctx context.Context, callID string) {
	defer s.Cancel(callID)

	steps := []func(context.Context, string) bool{
		s.fireStatus("ringing"),
		s.fireStatus("in-progress"),
		s.negotiate,
		s.complete,
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.step):
		}
		if !step(ctx, callID) {
			return
		}
	}
}

func (s *Simulator) fireStatus(status string) func(context.Context, string) bool {
	return func(ctx context.Context, callID string) bool {
		err := s.reconciler.Apply(ctx, model.StatusEvent{CallID: callID, Status: status})
		if err != nil {
			s.logger.Warn("simulated status not applied", zap.String("call_id", callID), zap.String("status", status), zap.Error(err))
			return false
		}
		return true
	}
}

// negotiate runs the scripted vendor through the real state machine so the
// simulated call produces a genuine ConversationState and price.
func (s *Simulator) negotiate(ctx context.Context, callID string) bool {
	err := s.store.UpdateByCall(callID, func(sess *model.Session) error {
		c := sess.Call
		if c == nil || c.ID != callID || c.Finalized {
			return store.ErrCallNotFound
		}

		c.Status = model.CallNegotiating
		for _, in := range vendorScript {
			if c.Conversation.Stage.Terminal() {
				break
			}
			res := s.machine.Next(c.Conversation, in)
			c.Conversation = res.State
			if in.Transcript != "" {
				c.Transcript = append(c.Transcript, in.Transcript)
			}
		}
		if c.Conversation.FinalPrice > 0 {
			c.NegotiatedPrice = c.Conversation.FinalPrice
		}
		return nil
	})
	if err != nil {
		return false
	}
	return true
}

func (s *Simulator) complete(ctx context.Context, callID string) bool {
	err := s.reconciler.Apply(ctx, model.StatusEvent{
		CallID:          callID,
		Status:          "completed",
		DurationSeconds: simulatedDuration,
	})
	if err != nil {
		s.logger.Warn("simulated completion not applied", zap.String("call_id", callID), zap.Error(err))
		return false
	}
	return true
}
