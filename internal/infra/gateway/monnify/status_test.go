package monnify_test

import (
	"testing"

	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/infra/gateway/monnify"
)

func TestMapStatus(t *testing.T) {
	cases := map[string]model.Outcome{
		"PAID":           model.OutcomeDone,
		"paid":           model.OutcomeDone,
		"OVERPAID":       model.OutcomeDone,
		"PARTIALLY_PAID": model.OutcomeDone,
		"PENDING":        model.OutcomePending,
		"FAILED":         model.OutcomeCancelled,
		"CANCELLED":      model.OutcomeCancelled,
		"EXPIRED":        model.OutcomeCancelled,
		"REVERSED":       model.OutcomeUnknown,
		"":               model.OutcomeUnknown,
	}
	for status, want := range cases {
		if got := monnify.MapStatus(status); got != want {
			t.Errorf("MapStatus(%q) = %s, want %s", status, got, want)
		}
	}
}
