//go:build !integration

package model

import "testing"

func TestStateTerminal(t *testing.T) {
	cases := map[State]bool{
		StateDraft:     false,
		StatePending:   false,
		StateDone:      true,
		StateCancelled: true,
		StateError:     false,
	}
	for state, want := range cases {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
		if got := state.Open(); got == want {
			t.Errorf("%s.Open() must be the inverse of Terminal()", state)
		}
	}
}

func TestAmountMatches(t *testing.T) {
	tx := &Transaction{Amount: 100.00}

	for _, paid := range []float64{100.00, 99.99, 100.01, 100.005} {
		if !tx.AmountMatches(paid) {
			t.Errorf("AmountMatches(%v) = false, want true", paid)
		}
	}
	for _, paid := range []float64{99.98, 100.02, 95, 105, 0} {
		if tx.AmountMatches(paid) {
			t.Errorf("AmountMatches(%v) = true, want false", paid)
		}
	}
}

func TestCurrencyMatches(t *testing.T) {
	tx := &Transaction{Currency: "NGN"}

	if !tx.CurrencyMatches("NGN") || !tx.CurrencyMatches("ngn") {
		t.Error("same currency must match regardless of case")
	}
	if tx.CurrencyMatches("USD") || tx.CurrencyMatches("") {
		t.Error("different currency must not match")
	}
}
