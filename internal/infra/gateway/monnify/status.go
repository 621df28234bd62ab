package monnify

import (
	"strings"

	"commerce-payment-providers/internal/domain/model"
)

// statusTable translates Monnify payment statuses to canonical
// outcomes. Mapping to done is not sufficient to settle a transaction;
// the reconciler still validates amount and currency.
var statusTable = map[string]model.Outcome{
	"paid":           model.OutcomeDone,
	"overpaid":       model.OutcomeDone,
	"partially_paid": model.OutcomeDone,
	"pending":        model.OutcomePending,
	"failed":         model.OutcomeCancelled,
	"cancelled":      model.OutcomeCancelled,
	"expired":        model.OutcomeCancelled,
}

// MapStatus is case-insensitive; unlisted statuses map to unknown.
func MapStatus(gatewayStatus string) model.Outcome {
	if out, ok := statusTable[strings.ToLower(gatewayStatus)]; ok {
		return out
	}
	return model.OutcomeUnknown
}
