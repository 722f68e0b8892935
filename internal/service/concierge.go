// Package service provides business logic for the concierge platform.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/amanpal108/Zenno-Concierge/internal/events"
	"github.com/amanpal108/Zenno-Concierge/internal/llm"
	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/places"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
	"github.com/amanpal108/Zenno-Concierge/pkg/metrics"
)

// historyWindow bounds how much chat history is sent to the LLM.
const historyWindow = 20

// ConciergeService handles the chat surface: sessions, messages, LLM
// intent extraction, and vendor discovery.
type ConciergeService struct {
	store     *store.Store
	llmClient llm.Client
	searcher  places.Searcher
	publisher events.Publisher
	logger    *logger.Logger
}

// NewConciergeService creates a new concierge service.
func NewConciergeService(
	st *store.Store,
	llmClient llm.Client,
	searcher places.Searcher,
	publisher events.Publisher,
	log *logger.Logger,
) *ConciergeService {
	return &ConciergeService{
		store:     st,
		llmClient: llmClient,
		searcher:  searcher,
		publisher: publisher,
		logger:    log,
	}
}

// CreateSession creates a new session.
func (s *ConciergeService) CreateSession(ctx context.Context) *model.Session {
	sess := s.store.Create()
	metrics.SessionsTotal.Inc()
	s.logger.Info("session created", zap.String("session_id", sess.ID))
	return sess
}

// GetSession returns a full session snapshot for UI polling.
func (s *ConciergeService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.store.Get(sessionID)
}

// Chat runs one chat turn. An empty sessionID creates a session first, so
// the journey starts on the first inbound message.
func (s *ConciergeService) Chat(ctx context.Context, sessionID, content string) (string, *model.ChatResponse, error) {
	if sessionID == "" {
		sessionID = s.CreateSession(ctx).ID
	}

	userMsg, err := s.store.AppendMessage(sessionID, model.RoleUser, content)
	if err != nil {
		return sessionID, nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()
	if err := s.publisher.PublishMessage(ctx, userMsg); err != nil {
		s.logger.Warn("failed to publish user message", zap.Error(err))
	}

	snapshot, err := s.store.Get(sessionID)
	if err != nil {
		return sessionID, nil, err
	}

	turn := s.assistantTurn(ctx, snapshot, content)

	var vendors []model.Vendor
	if turn.Intent.WantToSearch {
		vendors = s.searchVendors(ctx, sessionID, turn.Intent)
		if len(vendors) > 0 {
			turn.Text += "\n\n" + formatVendorList(vendors)
		}
	}

	assistantMsg, err := s.store.AppendMessage(sessionID, model.RoleAssistant, turn.Text)
	if err != nil {
		return sessionID, nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	if err := s.publisher.PublishMessage(ctx, assistantMsg); err != nil {
		s.logger.Warn("failed to publish assistant message", zap.Error(err))
	}

	final, err := s.store.Get(sessionID)
	if err != nil {
		return sessionID, nil, err
	}

	return sessionID, &model.ChatResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Journey:          final.Journey,
		Vendors:          vendors,
	}, nil
}

// assistantTurn asks the LLM for a reply and intent, degrading to a
// scripted reply when no client is configured or the call fails.
func (s *ConciergeService) assistantTurn(ctx context.Context, sess *model.Session, content string) *llm.AssistantTurn {
	if s.llmClient == nil {
		return scriptedTurn(content)
	}

	history := make([]llm.ChatMessage, 0, historyWindow)
	msgs := sess.Messages
	if len(msgs) > historyWindow {
		msgs = msgs[len(msgs)-historyWindow:]
	}
	// The just-appended user message goes in separately.
	if len(msgs) > 0 && msgs[len(msgs)-1].Role == model.RoleUser {
		msgs = msgs[:len(msgs)-1]
	}
	for _, m := range msgs {
		history = append(history, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	turn, err := llm.GenerateWithIntent(ctx, s.llmClient, content, history, sess.Journey, sess.Vendors)
	if err != nil {
		s.logger.Warn("LLM turn failed", zap.String("session_id", sess.ID), zap.Error(err))
		return &llm.AssistantTurn{Text: "Sorry, I hit a snag there. Could you say that again?"}
	}
	return turn
}

// scriptedTurn is the no-LLM degraded mode: a fixed flow that still lets
// the journey progress to vendor search.
func scriptedTurn(content string) *llm.AssistantTurn {
	lower := strings.ToLower(content)
	if strings.Contains(lower, "saree") || strings.Contains(lower, "sari") {
		return &llm.AssistantTurn{
			Text:   "I can help with that! Let me look up saree vendors near you.",
			Intent: llm.Intent{WantToSearch: true},
		}
	}
	return &llm.AssistantTurn{
		Text: "Namaste! I'm your saree shopping concierge. Tell me what you're looking for and where you are, and I'll find vendors and negotiate a price for you.",
	}
}

// searchVendors runs discovery and replaces the session's vendor list
// wholesale. Discovery failures never fail the chat turn.
func (s *ConciergeService) searchVendors(ctx context.Context, sessionID string, intent llm.Intent) []model.Vendor {
	_ = s.store.Update(sessionID, func(sess *model.Session) error {
		sess.Journey = model.JourneySearchingVendors
		return nil
	})

	query := "saree shop"
	if intent.Preferences != "" {
		query = intent.Preferences + " saree shop"
	}

	vendors, err := s.searcher.Search(ctx, query, intent.Location)
	if err != nil {
		s.logger.Warn("vendor search failed", zap.String("session_id", sessionID), zap.Error(err))
		vendors = places.FallbackVendors()
	}

	_ = s.store.Update(sessionID, func(sess *model.Session) error {
		sess.Vendors = vendors
		sess.Journey = model.JourneySelectingVendor
		return nil
	})

	return vendors
}

func formatVendorList(vendors []model.Vendor) string {
	var b strings.Builder
	b.WriteString("Here's what I found nearby:")
	for i, v := range vendors {
		fmt.Fprintf(&b, "\n%d. %s, %s", i+1, v.Name, v.Address)
		if v.Rating > 0 {
			fmt.Fprintf(&b, " (%.1f stars)", v.Rating)
		}
	}
	b.WriteString("\nPick one and I'll call them to negotiate.")
	return b.String()
}

// NotifySession appends a user-facing assistant message. Used by the call
// reconciler to surface call outcomes.
func (s *ConciergeService) NotifySession(ctx context.Context, sessionID, text string) {
	msg, err := s.store.AppendMessage(sessionID, model.RoleAssistant, text)
	if err != nil {
		s.logger.Warn("failed to append notification", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	if err := s.publisher.PublishMessage(ctx, msg); err != nil {
		s.logger.Warn("failed to publish notification", zap.Error(err))
	}
}

// CallStatusChanged records a call lifecycle transition on the audit
// stream.
func (s *ConciergeService) CallStatusChanged(ctx context.Context, sessionID string, c *model.Call) {
	if err := s.publisher.PublishCallEvent(ctx, sessionID, c); err != nil {
		s.logger.Warn("failed to publish call event", zap.String("session_id", sessionID), zap.Error(err))
	}
}
