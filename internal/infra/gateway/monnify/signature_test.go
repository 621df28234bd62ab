package monnify_test

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"commerce-payment-providers/internal/infra/gateway/monnify"
)

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_abc123"
	payload := []byte(`{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{"paymentReference":"TX-1"}}`)
	good := sign(payload, secret)

	t.Run("accepts a correctly signed payload", func(t *testing.T) {
		if !monnify.VerifySignature(payload, good, secret) {
			t.Fatal("valid signature rejected")
		}
	})

	t.Run("rejects a payload signed with another secret", func(t *testing.T) {
		if monnify.VerifySignature(payload, sign(payload, "other-secret"), secret) {
			t.Fatal("signature from wrong secret accepted")
		}
	})

	t.Run("rejects a mutated payload", func(t *testing.T) {
		mutated := append([]byte{}, payload...)
		mutated[len(mutated)-2] = '2' // TX-1 -> TX-2
		if monnify.VerifySignature(mutated, good, secret) {
			t.Fatal("mutated payload accepted")
		}
	})

	t.Run("rejects a tampered signature", func(t *testing.T) {
		for _, bad := range []string{"", good[:len(good)-1], good + "00", "deadbeef"} {
			if monnify.VerifySignature(payload, bad, secret) {
				t.Fatalf("tampered signature %q accepted", bad)
			}
		}
	})
}
