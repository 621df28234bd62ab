package monnify

import (
	"encoding/json"
	"fmt"

	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/ports/adapter"
)

// EventSuccessfulTransaction is the only webhook event Monnify sends
// for settlements; everything else is acknowledged and ignored.
const EventSuccessfulTransaction = "SUCCESSFUL_TRANSACTION"

type webhookEvent struct {
	EventType string      `json:"eventType"`
	EventData webhookData `json:"eventData"`
}

type webhookData struct {
	PaymentReference     string      `json:"paymentReference"`
	TransactionReference string      `json:"transactionReference"`
	PaymentStatus        string      `json:"paymentStatus"`
	AmountPaid           json.Number `json:"amountPaid"`
	Currency             string      `json:"currency"`
	PaymentDescription   string      `json:"paymentDescription"`
}

// ParseWebhook decodes the Monnify webhook envelope into a normalized
// notification. The raw body and signature ride along for the
// reconciler's authenticity check.
func ParseWebhook(rawBody []byte, signature string) (eventType string, n adapter.Notification, err error) {
	var ev webhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return "", adapter.Notification{}, fmt.Errorf("monnify webhook body: %w", domain.ErrMalformedNotification)
	}
	n = adapter.Notification{
		Reference:         ev.EventData.PaymentReference,
		ProviderReference: ev.EventData.TransactionReference,
		Status:            ev.EventData.PaymentStatus,
		Currency:          ev.EventData.Currency,
		Reason:            ev.EventData.PaymentDescription,
		RawBody:           rawBody,
		Signature:         signature,
	}
	if amt, aerr := ev.EventData.AmountPaid.Float64(); aerr == nil && ev.EventData.AmountPaid != "" {
		n.AmountPaid = amt
		n.HasAmount = true
	}
	return ev.EventType, n, nil
}
