package payment

import (
	"context"
	"math"

	"github.com/google/uuid"
)

// SimulatedRails is a deterministic in-process implementation of the
// conversion and treasury collaborators, used when no settlement provider
// is configured so the pipeline can run end-to-end locally.
type SimulatedRails struct {
	// Rate converts source minor units into target minor units.
	Rate float64
	// FeeBasisPoints is the conversion fee in basis points of the amount.
	FeeBasisPoints int
}

// NewSimulatedRails returns rails with a fixed INR to USDC style rate.
func NewSimulatedRails() *SimulatedRails {
	return &SimulatedRails{Rate: 0.012, FeeBasisPoints: 150}
}

// Convert implements Converter.
func (r *SimulatedRails) Convert(ctx context.Context, amount int, from, to, destination string) (*Conversion, error) {
	return &Conversion{
		ID:        "conv_" + uuid.New().String(),
		AmountOut: int(math.Round(float64(amount) * r.Rate)),
		Rate:      r.Rate,
		Fee:       amount * r.FeeBasisPoints / 10000,
	}, nil
}

// Transfer implements Treasury.
func (r *SimulatedRails) Transfer(ctx context.Context, amount int, currency string) (string, error) {
	return "xfer_" + uuid.New().String(), nil
}

// Payout implements Treasury.
func (r *SimulatedRails) Payout(ctx context.Context, amount int, currency, destination string) (string, error) {
	return "payout_" + uuid.New().String(), nil
}
