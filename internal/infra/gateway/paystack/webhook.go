package paystack

import (
	"encoding/json"
	"fmt"

	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/ports/adapter"
)

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		Amount          int64  `json:"amount"`
		Currency        string `json:"currency"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

// ParseWebhook extracts the reference from a Paystack event body. The
// inbound payload is attacker-reachable and Paystack notifications are
// not signature-checked here, so everything except the reference is
// discarded; the reconciler fetches ground truth via Verify.
func ParseWebhook(rawBody []byte) (event string, n adapter.Notification, err error) {
	var ev webhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return "", adapter.Notification{}, fmt.Errorf("paystack webhook body: %w", domain.ErrMalformedNotification)
	}
	return ev.Event, adapter.Notification{
		Reference: ev.Data.Reference,
		RawBody:   rawBody,
	}, nil
}
