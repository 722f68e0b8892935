package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
)

type failingTreasury struct {
	*SimulatedRails
	failPayout bool
}

func (f *failingTreasury) Payout(ctx context.Context, amount int, currency, destination string) (string, error) {
	if f.failPayout {
		return "", errors.New("destination unreachable")
	}
	return f.SimulatedRails.Payout(ctx, amount, currency, destination)
}

func newPaymentFixture(t *testing.T, treasury Treasury) (*store.Store, *Coordinator, string) {
	t.Helper()

	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	rails := NewSimulatedRails()
	if treasury == nil {
		treasury = rails
	}
	st := store.New()
	coord := NewCoordinator(st, rails, treasury, Options{
		SourceCurrency: "INR",
		TargetCurrency: "USDC",
		Destination:    "vendor-wallet",
	}, log)

	sess := st.Create()
	_ = st.Update(sess.ID, func(live *model.Session) error {
		live.SelectedVendor = &model.Vendor{ID: "v1", Name: "Silk House"}
		live.Call = &model.Call{
			ID:              "c1",
			VendorID:        "v1",
			Status:          model.CallCompleted,
			NegotiatedPrice: 8500,
			Conversation: model.ConversationState{
				Stage:      model.StageFinalAgreement,
				Quantity:   6,
				FinalPrice: 8500,
			},
		}
		live.Journey = model.JourneyProcessingPayment
		return nil
	})
	return st, coord, sess.ID
}

func TestRequestApprovalCreatesTransaction(t *testing.T) {
	_, coord, sessionID := newPaymentFixture(t, nil)

	tx, err := coord.RequestApproval(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("RequestApproval failed: %v", err)
	}
	if tx.Status != model.TxAwaitingApproval {
		t.Errorf("expected awaiting_approval, got %s", tx.Status)
	}
	if tx.Amount != 8500*6 {
		t.Errorf("expected amount 51000, got %d", tx.Amount)
	}

	// A second request returns the same transaction rather than minting a
	// new one.
	again, err := coord.RequestApproval(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("second RequestApproval failed: %v", err)
	}
	if again.ID != tx.ID {
		t.Errorf("expected same transaction, got %s and %s", tx.ID, again.ID)
	}
}

func TestRequestApprovalWithoutPrice(t *testing.T) {
	st, coord, sessionID := newPaymentFixture(t, nil)
	_ = st.Update(sessionID, func(live *model.Session) error {
		live.Call.NegotiatedPrice = 0
		return nil
	})

	if _, err := coord.RequestApproval(context.Background(), sessionID); !errors.Is(err, ErrNoNegotiatedPrice) {
		t.Errorf("expected ErrNoNegotiatedPrice, got %v", err)
	}
}

func TestApproveThenProcessSettles(t *testing.T) {
	st, coord, sessionID := newPaymentFixture(t, nil)
	ctx := context.Background()

	if _, err := coord.RequestApproval(ctx, sessionID); err != nil {
		t.Fatalf("RequestApproval failed: %v", err)
	}
	if _, err := coord.Approve(ctx, sessionID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	tx, err := coord.Process(ctx, sessionID)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if tx.Status != model.TxCompleted {
		t.Errorf("expected completed, got %s", tx.Status)
	}
	if tx.ConversionRef == "" || tx.TransferRef == "" || tx.PayoutRef == "" {
		t.Errorf("expected all pipeline refs recorded: %+v", tx)
	}
	if tx.ExchangeRate == 0 || tx.TotalSource <= tx.Amount {
		t.Errorf("expected conversion economics recorded: %+v", tx)
	}

	sess, _ := st.Get(sessionID)
	if sess.Journey != model.JourneyCompleted {
		t.Errorf("expected completed journey, got %s", sess.Journey)
	}
}

func TestProcessRequiresApproval(t *testing.T) {
	_, coord, sessionID := newPaymentFixture(t, nil)
	ctx := context.Background()

	if _, err := coord.RequestApproval(ctx, sessionID); err != nil {
		t.Fatalf("RequestApproval failed: %v", err)
	}

	if _, err := coord.Process(ctx, sessionID); !errors.Is(err, ErrNotApproved) {
		t.Errorf("expected ErrNotApproved, got %v", err)
	}
}

func TestProcessSynthesizesApprovedTransaction(t *testing.T) {
	_, coord, sessionID := newPaymentFixture(t, nil)

	// Direct processing with no prior transaction settles off the
	// negotiated price.
	tx, err := coord.Process(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if tx.Status != model.TxCompleted {
		t.Errorf("expected completed, got %s", tx.Status)
	}
}

func TestProcessTwiceIsRejected(t *testing.T) {
	_, coord, sessionID := newPaymentFixture(t, nil)
	ctx := context.Background()

	if _, err := coord.Process(ctx, sessionID); err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	if _, err := coord.Process(ctx, sessionID); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("expected ErrAlreadySettled, got %v", err)
	}
}

func TestRejectReturnsJourneyToSelection(t *testing.T) {
	st, coord, sessionID := newPaymentFixture(t, nil)
	ctx := context.Background()

	if _, err := coord.RequestApproval(ctx, sessionID); err != nil {
		t.Fatalf("RequestApproval failed: %v", err)
	}
	tx, err := coord.Reject(ctx, sessionID)
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if tx.Status != model.TxRejected {
		t.Errorf("expected rejected, got %s", tx.Status)
	}

	sess, _ := st.Get(sessionID)
	if sess.Journey != model.JourneySelectingVendor {
		t.Errorf("expected selecting_vendor, got %s", sess.Journey)
	}
}

func TestPipelineFailureMarksFailed(t *testing.T) {
	st, coord, sessionID := newPaymentFixture(t, &failingTreasury{SimulatedRails: NewSimulatedRails(), failPayout: true})
	ctx := context.Background()

	_, err := coord.Process(ctx, sessionID)
	if err == nil {
		t.Fatal("expected pipeline failure")
	}

	sess, _ := st.Get(sessionID)
	tx := sess.Transaction
	if tx.Status != model.TxFailed {
		t.Errorf("expected failed, got %s", tx.Status)
	}
	if !strings.Contains(tx.FailureReason, "payout failed") {
		t.Errorf("expected payout failure recorded, got %q", tx.FailureReason)
	}
	// The earlier steps stay on the record for diagnosis.
	if tx.ConversionRef == "" || tx.TransferRef == "" {
		t.Errorf("expected partial pipeline refs preserved: %+v", tx)
	}
}
