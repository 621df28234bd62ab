package monnify

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// WebhookSignatureHeader carries the detached HMAC on Monnify webhooks.
const WebhookSignatureHeader = "monnify-signature"

// VerifySignature checks the HMAC-SHA512 of the raw webhook payload
// against the supplied hex signature in constant time.
func VerifySignature(rawPayload []byte, suppliedSignature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawPayload)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(suppliedSignature))
}

// VerifySignature implements adapter.SignatureVerifier using the
// provider secret bound to this client's configuration.
func (c *Client) VerifySignature(rawPayload []byte, suppliedSignature string) bool {
	return VerifySignature(rawPayload, suppliedSignature, c.secretKey)
}
