package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/config"
	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/adapter"
	"commerce-payment-providers/internal/infra/gateway"
	"commerce-payment-providers/internal/infra/metrics"
)

var _ adapter.GatewayClient = (*Client)(nil)

// minorUnitFactor converts Paystack amounts: the API speaks kobo
// (minor units), transactions are stored in major units.
const minorUnitFactor = 100

// Client talks to the Paystack REST API with bearer-token auth.
// Paystack does not use a per-transaction signature here; notifications
// are authenticated through a Verify round trip instead, so this client
// deliberately does not implement adapter.SignatureVerifier.
type Client struct {
	secretKey string
	baseURL   string
	caller    *gateway.Caller
	log       *zerolog.Logger
}

func NewClient(cfg config.PaystackConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("paystack: secret_key is required: %w", domain.ErrConfiguration)
	}
	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   "https://api.paystack.co",
		caller:    gateway.NewCaller(model.ProviderPaystack),
		log:       logger,
	}, nil
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(cfg config.PaystackConfig, baseURL string, logger *zerolog.Logger) (*Client, error) {
	c, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.baseURL = baseURL
	return c, nil
}

func (c *Client) Name() string { return model.ProviderPaystack }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"` // kobo
	Currency        string `json:"currency"`
	GatewayResponse string `json:"gateway_response"`
}

func (c *Client) Initiate(ctx context.Context, r adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	payload := map[string]any{
		"reference":    r.Reference,
		"amount":       toKobo(r.Amount),
		"currency":     r.Currency,
		"email":        r.CustomerEmail,
		"callback_url": r.ReturnURL,
	}
	if r.Metadata != nil {
		payload["metadata"] = r.Metadata
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("paystack init: %w", domain.ErrGateway)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("paystack init: %w", domain.ErrGateway)
	}
	c.setHeaders(req)

	env, status, err := c.do(req, "init")
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, fmt.Errorf("paystack init: %w", domain.ErrAuthentication)
	}
	if !env.Status {
		c.log.Warn().Str("response", env.Message).Str("reference", r.Reference).Msg("paystack init rejected")
		return nil, fmt.Errorf("paystack init: %w", domain.ErrGateway)
	}
	var data initData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack init response: %w", domain.ErrGateway)
	}
	return &adapter.InitiateResult{
		CheckoutURL:       data.AuthorizationURL,
		ProviderReference: data.Reference,
	}, nil
}

// Verify fetches ground truth for a transaction. Paystack reports the
// amount in kobo; it is converted to major units here so the
// reconciler compares like with like.
func (c *Client) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("paystack verify: %w", domain.ErrGateway)
	}
	c.setHeaders(req)

	env, status, err := c.do(req, "verify")
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, fmt.Errorf("paystack verify: %w", domain.ErrAuthentication)
	}
	if !env.Status {
		c.log.Warn().Str("response", env.Message).Str("reference", reference).Msg("paystack verify rejected")
		return nil, fmt.Errorf("paystack verify: %w", domain.ErrGateway)
	}
	var data verifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack verify response: %w", domain.ErrGateway)
	}
	return &adapter.VerifyResult{
		Status:     data.Status,
		AmountPaid: float64(data.Amount) / minorUnitFactor,
		HasAmount:  true,
		Currency:   data.Currency,
		Reason:     data.GatewayResponse,
	}, nil
}

func (c *Client) MapStatus(gatewayStatus string) model.Outcome {
	return MapStatus(gatewayStatus)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) do(req *http.Request, op string) (*envelope, int, error) {
	resp, err := c.caller.Do(req)
	if err != nil {
		metrics.IncGatewayRequest(model.ProviderPaystack, op, "error")
		c.log.Error().Err(err).Str("op", op).Msg("paystack request failed")
		return nil, 0, fmt.Errorf("paystack %s: %w", op, domain.ErrGateway)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncGatewayRequest(model.ProviderPaystack, op, "error")
		return nil, resp.StatusCode, fmt.Errorf("paystack %s: %w", op, domain.ErrGateway)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.IncGatewayRequest(model.ProviderPaystack, op, "error")
		c.log.Error().Err(err).Str("op", op).Str("body", string(raw)).Msg("paystack response unparsable")
		return nil, resp.StatusCode, fmt.Errorf("paystack %s: %w", op, domain.ErrGateway)
	}
	if resp.StatusCode >= 500 {
		metrics.IncGatewayRequest(model.ProviderPaystack, op, "error")
		c.log.Error().Int("status", resp.StatusCode).Str("op", op).Msg("paystack server error")
		return nil, resp.StatusCode, fmt.Errorf("paystack %s: %w", op, domain.ErrGateway)
	}
	metrics.IncGatewayRequest(model.ProviderPaystack, op, "ok")
	return &env, resp.StatusCode, nil
}

func toKobo(major float64) int64 {
	return int64(math.Round(major * minorUnitFactor))
}
