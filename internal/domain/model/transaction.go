package model

import (
	"math"
	"strings"
	"time"
)

type State string

const (
	StateDraft     State = "draft"     // created locally; checkout may or may not have started
	StatePending   State = "pending"   // gateway reported payment in flight
	StateDone      State = "done"      // settled; amount and currency validated
	StateCancelled State = "cancelled" // failed, cancelled or expired at the gateway
	StateError     State = "error"     // needs operator attention; never entered from done/cancelled
)

// Terminal reports whether no further state transitions are allowed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// Open reports whether the transaction may still be settled. Error is
// open: it waits for manual intervention or a consistent re-check.
func (s State) Open() bool {
	return !s.Terminal()
}

// Outcome is the canonical result of mapping a gateway status string.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomePending   Outcome = "pending"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeUnknown   Outcome = "unknown"
)

// Provider codes.
const (
	ProviderMonnify  = "monnify"
	ProviderPaystack = "paystack"
)

// AmountTolerance is the absolute tolerance, in major currency units,
// when comparing the gateway-reported paid amount against the expected
// amount. Covers float rounding only; unit conversion (e.g. kobo) is
// the gateway client's job.
const AmountTolerance = 0.01

// Transaction records one checkout attempt against a payment gateway.
type Transaction struct {
	ID                string  // UUID
	Reference         string  // merchant-generated, unique, immutable
	ProviderReference string  // gateway-assigned; set once, never overwritten
	Provider          string  // "monnify" | "paystack"
	Amount            float64 // major currency units
	Currency          string  // ISO code, e.g. "NGN"
	State             State
	StateMessage      string // gateway reason / mismatch detail for cancelled/error
	CustomerName      string
	CustomerEmail     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	SettledAt         *time.Time // set when state becomes done
}

// AmountMatches compares a gateway-reported amount (already in major
// units) against the expected amount within AmountTolerance. The
// difference is rounded to whole minor units first so boundary values
// like 99.99 vs 100.00 are not lost to float representation.
func (t *Transaction) AmountMatches(paid float64) bool {
	cents := math.Round(math.Abs(t.Amount-paid) * 100)
	return cents <= AmountTolerance*100
}

// CurrencyMatches requires currency equality, case-insensitively.
func (t *Transaction) CurrencyMatches(currency string) bool {
	return strings.EqualFold(t.Currency, currency)
}
