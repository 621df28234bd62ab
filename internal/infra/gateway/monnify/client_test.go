package monnify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/config"
	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/ports/adapter"
	"commerce-payment-providers/internal/infra/gateway/monnify"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testConfig() config.MonnifyConfig {
	return config.MonnifyConfig{APIKey: "MK_TEST", SecretKey: "SK_TEST", ContractCode: "0001", Sandbox: true}
}

func loginOK(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"requestSuccessful": true,
		"responseMessage":   "success",
		"responseBody":      map[string]any{"accessToken": "tok-123"},
	})
}

func TestNewClient(t *testing.T) {
	t.Run("rejects incomplete credentials", func(t *testing.T) {
		for _, cfg := range []config.MonnifyConfig{
			{},
			{APIKey: "MK"},
			{APIKey: "MK", SecretKey: "SK"},
		} {
			if _, err := monnify.NewClient(cfg, testLogger()); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("cfg %+v: expected ErrConfiguration, got %v", cfg, err)
			}
		}
	})
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("logs in, initiates and returns the checkout URL", func(t *testing.T) {
		var gotAuth, gotBearer string
		var gotPayload map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v1/auth/login":
				gotAuth = r.Header.Get("Authorization")
				loginOK(w)
			case "/api/v1/merchant/transactions/init-transaction":
				gotBearer = r.Header.Get("Authorization")
				_ = json.NewDecoder(r.Body).Decode(&gotPayload)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"requestSuccessful": true,
					"responseBody": map[string]any{
						"transactionReference": "MNFY|77|001",
						"paymentReference":     gotPayload["paymentReference"],
						"checkoutUrl":          "https://sandbox.monnify.com/checkout/xyz",
					},
				})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		c, err := monnify.NewClientWithBaseURL(testConfig(), srv.URL, testLogger())
		if err != nil {
			t.Fatal(err)
		}
		res, err := c.Initiate(ctx, adapter.InitiateRequest{
			Reference: "TX-1",
			Amount:    2500.00,
			Currency:  "NGN",
			ReturnURL: "https://shop.example.test/payment/monnify/return",
		})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if res.CheckoutURL != "https://sandbox.monnify.com/checkout/xyz" {
			t.Errorf("checkout url = %q", res.CheckoutURL)
		}
		if res.ProviderReference != "MNFY|77|001" {
			t.Errorf("provider reference = %q", res.ProviderReference)
		}
		if gotAuth == "" || gotAuth[:6] != "Basic " {
			t.Errorf("login auth header = %q", gotAuth)
		}
		if gotBearer != "Bearer tok-123" {
			t.Errorf("init auth header = %q", gotBearer)
		}
		if gotPayload["contractCode"] != "0001" {
			t.Errorf("contractCode = %v", gotPayload["contractCode"])
		}
		if gotPayload["redirectUrl"] != "https://shop.example.test/payment/monnify/return" {
			t.Errorf("redirectUrl = %v", gotPayload["redirectUrl"])
		}
	})

	t.Run("rejected login surfaces ErrAuthentication", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"requestSuccessful": false, "responseMessage": "invalid credentials"})
		}))
		defer srv.Close()

		c, _ := monnify.NewClientWithBaseURL(testConfig(), srv.URL, testLogger())
		_, err := c.Initiate(ctx, adapter.InitiateRequest{Reference: "TX-1", Amount: 1, Currency: "NGN"})
		if !errors.Is(err, domain.ErrAuthentication) {
			t.Fatalf("expected ErrAuthentication, got: %v", err)
		}
	})

	t.Run("declined initiation surfaces ErrGateway", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/auth/login" {
				loginOK(w)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"requestSuccessful": false, "responseMessage": "duplicate reference"})
		}))
		defer srv.Close()

		c, _ := monnify.NewClientWithBaseURL(testConfig(), srv.URL, testLogger())
		_, err := c.Initiate(ctx, adapter.InitiateRequest{Reference: "TX-1", Amount: 1, Currency: "NGN"})
		if !errors.Is(err, domain.ErrGateway) {
			t.Fatalf("expected ErrGateway, got: %v", err)
		}
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the gateway view of the transaction", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v1/auth/login":
				loginOK(w)
			case "/api/v2/transactions/MNFY|77|001":
				_ = json.NewEncoder(w).Encode(map[string]any{
					"requestSuccessful": true,
					"responseBody": map[string]any{
						"transactionReference": "MNFY|77|001",
						"paymentReference":     "TX-1",
						"paymentStatus":        "PAID",
						"amountPaid":           2500.00,
						"currency":             "NGN",
					},
				})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		c, _ := monnify.NewClientWithBaseURL(testConfig(), srv.URL, testLogger())
		vr, err := c.Verify(ctx, "MNFY|77|001")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if vr.Status != "PAID" {
			t.Errorf("status = %q", vr.Status)
		}
		if !vr.HasAmount || vr.AmountPaid != 2500.00 {
			t.Errorf("amount = %v (has=%v)", vr.AmountPaid, vr.HasAmount)
		}
		if vr.Currency != "NGN" {
			t.Errorf("currency = %q", vr.Currency)
		}
	})

	t.Run("server errors surface ErrGateway", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/auth/login" {
				loginOK(w)
				return
			}
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]any{"requestSuccessful": false})
		}))
		defer srv.Close()

		c, _ := monnify.NewClientWithBaseURL(testConfig(), srv.URL, testLogger())
		_, err := c.Verify(ctx, "MNFY|1")
		if !errors.Is(err, domain.ErrGateway) {
			t.Fatalf("expected ErrGateway, got: %v", err)
		}
	})
}

func TestParseWebhook(t *testing.T) {
	t.Run("decodes a settlement event", func(t *testing.T) {
		body := []byte(`{
			"eventType": "SUCCESSFUL_TRANSACTION",
			"eventData": {
				"paymentReference": "TX-1",
				"transactionReference": "MNFY|77|001",
				"paymentStatus": "PAID",
				"amountPaid": 2500.00,
				"currency": "NGN"
			}
		}`)
		eventType, n, err := monnify.ParseWebhook(body, "sig")
		if err != nil {
			t.Fatal(err)
		}
		if eventType != monnify.EventSuccessfulTransaction {
			t.Errorf("event type = %q", eventType)
		}
		if n.Reference != "TX-1" || n.ProviderReference != "MNFY|77|001" {
			t.Errorf("references = %q / %q", n.Reference, n.ProviderReference)
		}
		if !n.HasAmount || n.AmountPaid != 2500.00 {
			t.Errorf("amount = %v (has=%v)", n.AmountPaid, n.HasAmount)
		}
		if string(n.RawBody) != string(body) || n.Signature != "sig" {
			t.Error("raw body or signature not preserved")
		}
	})

	t.Run("rejects an unparsable body", func(t *testing.T) {
		_, _, err := monnify.ParseWebhook([]byte("not json"), "sig")
		if !errors.Is(err, domain.ErrMalformedNotification) {
			t.Fatalf("expected ErrMalformedNotification, got: %v", err)
		}
	})
}
