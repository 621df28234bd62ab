package paystack

import (
	"strings"

	"commerce-payment-providers/internal/domain/model"
)

var statusTable = map[string]model.Outcome{
	"success":   model.OutcomeDone,
	"pending":   model.OutcomePending,
	"failed":    model.OutcomeCancelled,
	"cancelled": model.OutcomeCancelled,
	"expired":   model.OutcomeCancelled,
}

// MapStatus is case-insensitive; unlisted statuses (e.g. "abandoned",
// "reversed") map to unknown and park the transaction in error for an
// operator to inspect.
func MapStatus(gatewayStatus string) model.Outcome {
	if out, ok := statusTable[strings.ToLower(gatewayStatus)]; ok {
		return out
	}
	return model.OutcomeUnknown
}
