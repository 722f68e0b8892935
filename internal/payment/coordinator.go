// Package payment sequences the post-negotiation transaction through
// approval, conversion, and settlement.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
	"github.com/amanpal108/Zenno-Concierge/pkg/metrics"
)

var (
	ErrNoNegotiatedPrice = errors.New("no negotiated price on record")
	ErrNoTransaction     = errors.New("no transaction on record")
	ErrNotApproved       = errors.New("transaction is not approved")
	ErrAlreadySettled    = errors.New("transaction already settled")
)

// Conversion is the result of a currency conversion step.
type Conversion struct {
	ID        string
	AmountOut int
	Rate      float64
	Fee       int
}

// Converter quotes and executes currency conversion.
type Converter interface {
	Convert(ctx context.Context, amount int, from, to, destination string) (*Conversion, error)
}

// Treasury moves balance and pays out to the destination.
type Treasury interface {
	Transfer(ctx context.Context, amount int, currency string) (ref string, err error)
	Payout(ctx context.Context, amount int, currency, destination string) (ref string, err error)
}

// Options configures the coordinator's currencies and payout destination.
type Options struct {
	SourceCurrency string
	TargetCurrency string
	Destination    string
}

// Coordinator drives Transaction.status: pending/awaiting-approval ->
// approved -> processing -> completed, awaiting-approval -> rejected, and
// any active state -> failed on error.
type Coordinator struct {
	store     *store.Store
	converter Converter
	treasury  Treasury
	opts      Options
	logger    *logger.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(st *store.Store, converter Converter, treasury Treasury, opts Options, log *logger.Logger) *Coordinator {
	return &Coordinator{store: st, converter: converter, treasury: treasury, opts: opts, logger: log}
}

// RequestApproval creates the transaction for a completed negotiation and
// parks it awaiting user approval. Requires a negotiated price.
func (c *Coordinator) RequestApproval(ctx context.Context, sessionID string) (*model.Transaction, error) {
	var out model.Transaction
	err := c.store.Update(sessionID, func(sess *model.Session) error {
		if sess.Call == nil || sess.Call.NegotiatedPrice == 0 || sess.SelectedVendor == nil {
			return ErrNoNegotiatedPrice
		}
		if sess.Transaction != nil {
			out = *sess.Transaction
			return nil
		}

		sess.Transaction = c.newTransaction(sess, model.TxAwaitingApproval)
		out = *sess.Transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsTotal.WithLabelValues(string(out.Status)).Inc()
	return &out, nil
}

// Approve moves an awaiting transaction to approved.
func (c *Coordinator) Approve(ctx context.Context, sessionID string) (*model.Transaction, error) {
	return c.transition(sessionID, model.TxApproved, model.TxPending, model.TxAwaitingApproval)
}

// Reject declines the transaction and sends the journey back to vendor
// selection.
func (c *Coordinator) Reject(ctx context.Context, sessionID string) (*model.Transaction, error) {
	tx, err := c.transition(sessionID, model.TxRejected, model.TxPending, model.TxAwaitingApproval)
	if err != nil {
		return nil, err
	}
	_ = c.store.Update(sessionID, func(sess *model.Session) error {
		sess.Journey = model.JourneySelectingVendor
		return nil
	})
	return tx, nil
}

// Process runs the settlement pipeline: currency conversion, balance
// transfer, destination payout. Each step is recorded on the transaction
// before the next begins, so a mid-pipeline failure leaves a partial,
// diagnosable record. The transaction must be exactly approved; a direct
// call with no transaction on record synthesizes an approved one from the
// negotiated price.
func (c *Coordinator) Process(ctx context.Context, sessionID string) (*model.Transaction, error) {
	var tx model.Transaction
	err := c.store.Update(sessionID, func(sess *model.Session) error {
		if sess.Transaction == nil {
			if sess.Call == nil || sess.Call.NegotiatedPrice == 0 || sess.SelectedVendor == nil {
				return ErrNoNegotiatedPrice
			}
			sess.Transaction = c.newTransaction(sess, model.TxApproved)
		}
		switch sess.Transaction.Status {
		case model.TxApproved:
		case model.TxCompleted:
			return ErrAlreadySettled
		default:
			return ErrNotApproved
		}
		sess.Transaction.Status = model.TxProcessing
		tx = *sess.Transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsTotal.WithLabelValues(string(model.TxProcessing)).Inc()

	// Step 1: currency conversion.
	conv, err := c.converter.Convert(ctx, tx.Amount, c.opts.SourceCurrency, c.opts.TargetCurrency, c.opts.Destination)
	if err != nil {
		return nil, c.fail(sessionID, fmt.Errorf("conversion failed: %w", err))
	}
	if err := c.store.Update(sessionID, func(sess *model.Session) error {
		sess.Transaction.ConversionRef = conv.ID
		sess.Transaction.ExchangeRate = conv.Rate
		sess.Transaction.ConversionFee = conv.Fee
		sess.Transaction.TotalSource = tx.Amount + conv.Fee
		return nil
	}); err != nil {
		return nil, err
	}

	// Step 2: balance transfer.
	transferRef, err := c.treasury.Transfer(ctx, conv.AmountOut, c.opts.TargetCurrency)
	if err != nil {
		return nil, c.fail(sessionID, fmt.Errorf("transfer failed: %w", err))
	}
	if err := c.store.Update(sessionID, func(sess *model.Session) error {
		sess.Transaction.TransferRef = transferRef
		return nil
	}); err != nil {
		return nil, err
	}

	// Step 3: destination payout.
	payoutRef, err := c.treasury.Payout(ctx, conv.AmountOut, c.opts.TargetCurrency, c.opts.Destination)
	if err != nil {
		return nil, c.fail(sessionID, fmt.Errorf("payout failed: %w", err))
	}

	var out model.Transaction
	err = c.store.Update(sessionID, func(sess *model.Session) error {
		now := time.Now()
		sess.Transaction.PayoutRef = payoutRef
		sess.Transaction.Status = model.TxCompleted
		sess.Transaction.CompletedAt = &now
		sess.Journey = model.JourneyCompleted
		out = *sess.Transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionsTotal.WithLabelValues(string(model.TxCompleted)).Inc()
	c.logger.Info("transaction settled",
		zap.String("session_id", sessionID),
		zap.String("transaction_id", out.ID),
		zap.Int("amount", out.Amount),
		zap.String("payout_ref", out.PayoutRef),
	)
	return &out, nil
}

func (c *Coordinator) newTransaction(sess *model.Session, status model.TransactionStatus) *model.Transaction {
	quantity := sess.Call.Conversation.Quantity
	if quantity == 0 {
		quantity = 1
	}
	return &model.Transaction{
		ID:        uuid.Must(uuid.NewV7()).String(),
		VendorID:  sess.SelectedVendor.ID,
		Amount:    sess.Call.NegotiatedPrice * quantity,
		Currency:  c.opts.SourceCurrency,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func (c *Coordinator) transition(sessionID string, to model.TransactionStatus, from ...model.TransactionStatus) (*model.Transaction, error) {
	var out model.Transaction
	err := c.store.Update(sessionID, func(sess *model.Session) error {
		if sess.Transaction == nil {
			return ErrNoTransaction
		}
		ok := false
		for _, f := range from {
			if sess.Transaction.Status == f {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("cannot move transaction from %s to %s", sess.Transaction.Status, to)
		}
		sess.Transaction.Status = to
		out = *sess.Transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsTotal.WithLabelValues(string(to)).Inc()
	return &out, nil
}

// fail marks the transaction failed with the pipeline error. Financial
// steps are never silently retried.
func (c *Coordinator) fail(sessionID string, cause error) error {
	_ = c.store.Update(sessionID, func(sess *model.Session) error {
		if sess.Transaction != nil {
			sess.Transaction.Status = model.TxFailed
			sess.Transaction.FailureReason = cause.Error()
		}
		return nil
	})
	metrics.TransactionsTotal.WithLabelValues(string(model.TxFailed)).Inc()
	c.logger.Error("settlement pipeline failed", zap.String("session_id", sessionID), zap.Error(cause))
	return cause
}
