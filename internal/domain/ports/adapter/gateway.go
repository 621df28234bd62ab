package adapter

import (
	"context"

	"commerce-payment-providers/internal/domain/model"
)

// InitiateRequest carries everything a gateway needs to open a hosted
// checkout for a transaction.
type InitiateRequest struct {
	Reference     string
	Amount        float64 // major units; clients convert to minor units where the gateway requires it
	Currency      string
	CustomerName  string
	CustomerEmail string
	ReturnURL     string
	Metadata      map[string]any
}

// InitiateResult is the gateway's answer to a checkout initiation.
type InitiateResult struct {
	CheckoutURL       string
	ProviderReference string
}

// VerifyResult is the gateway's ground-truth view of a transaction,
// fetched server-to-server. AmountPaid is normalized to major units.
type VerifyResult struct {
	Status     string
	AmountPaid float64
	HasAmount  bool
	Currency   string
	Reason     string
}

// Notification is the normalized content of an inbound webhook or
// redirect. Raw body and signature are kept for gateways that sign.
type Notification struct {
	Reference         string
	ProviderReference string
	Status            string
	AmountPaid        float64
	HasAmount         bool
	Currency          string
	Reason            string
	RawBody           []byte
	Signature         string
}

// GatewayClient is the outbound side of one payment gateway.
// Initiate and Verify are single-attempt; callers decide about retries.
type GatewayClient interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	MapStatus(gatewayStatus string) model.Outcome
}

// SignatureVerifier is implemented by gateways that sign their webhook
// payloads. Gateways without it are authenticated by a Verify round
// trip instead, and the verify payload replaces the inbound body as
// the source of truth.
type SignatureVerifier interface {
	VerifySignature(rawPayload []byte, suppliedSignature string) bool
}
