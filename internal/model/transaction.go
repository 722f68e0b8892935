package model

import (
	"time"
)

// TransactionStatus is the lifecycle state of a payment record.
type TransactionStatus string

const (
	TxPending          TransactionStatus = "pending"
	TxAwaitingApproval TransactionStatus = "awaiting_approval"
	TxApproved         TransactionStatus = "approved"
	TxRejected         TransactionStatus = "rejected"
	TxProcessing       TransactionStatus = "processing"
	TxCompleted        TransactionStatus = "completed"
	TxFailed           TransactionStatus = "failed"
)

// Transaction is the payment record tied to a call outcome. Amounts are
// integer currency minor units. Provider references are recorded as each
// settlement step completes, so a mid-pipeline failure leaves a partial,
// diagnosable record.
type Transaction struct {
	ID       string            `json:"id"`
	VendorID string            `json:"vendor_id"`
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Status   TransactionStatus `json:"status"`

	ExchangeRate  float64 `json:"exchange_rate,omitempty"`
	ConversionFee int     `json:"conversion_fee,omitempty"`
	TotalSource   int     `json:"total_in_source_currency,omitempty"`

	ConversionRef string `json:"conversion_ref,omitempty"`
	TransferRef   string `json:"transfer_ref,omitempty"`
	PayoutRef     string `json:"payout_ref,omitempty"`

	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
