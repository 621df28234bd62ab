package monnify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/config"
	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/adapter"
	"commerce-payment-providers/internal/infra/gateway"
	"commerce-payment-providers/internal/infra/metrics"
)

var (
	_ adapter.GatewayClient     = (*Client)(nil)
	_ adapter.SignatureVerifier = (*Client)(nil)
)

// Client talks to the Monnify REST API. Every call is single-attempt
// with a fixed timeout; credentials are exchanged for a short-lived
// bearer token per request.
type Client struct {
	apiKey       string
	secretKey    string
	contractCode string
	baseURL      string
	caller       *gateway.Caller
	log          *zerolog.Logger
}

func NewClient(cfg config.MonnifyConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" || cfg.ContractCode == "" {
		return nil, fmt.Errorf("monnify: api_key, secret_key and contract_code are required: %w", domain.ErrConfiguration)
	}
	baseURL := "https://api.monnify.com"
	if cfg.Sandbox {
		baseURL = "https://sandbox.monnify.com"
	}
	return &Client{
		apiKey:       cfg.APIKey,
		secretKey:    cfg.SecretKey,
		contractCode: cfg.ContractCode,
		baseURL:      baseURL,
		caller:       gateway.NewCaller(model.ProviderMonnify),
		log:          logger,
	}, nil
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(cfg config.MonnifyConfig, baseURL string, logger *zerolog.Logger) (*Client, error) {
	c, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.baseURL = baseURL
	return c, nil
}

func (c *Client) Name() string { return model.ProviderMonnify }

// envelope is the standard Monnify response wrapper.
type envelope struct {
	RequestSuccessful bool            `json:"requestSuccessful"`
	ResponseMessage   string          `json:"responseMessage"`
	ResponseBody      json.RawMessage `json:"responseBody"`
}

type loginBody struct {
	AccessToken string `json:"accessToken"`
}

type initBody struct {
	TransactionReference string `json:"transactionReference"`
	PaymentReference     string `json:"paymentReference"`
	CheckoutURL          string `json:"checkoutUrl"`
}

type verifyBody struct {
	TransactionReference string      `json:"transactionReference"`
	PaymentReference     string      `json:"paymentReference"`
	PaymentStatus        string      `json:"paymentStatus"`
	AmountPaid           json.Number `json:"amountPaid"`
	Currency             string      `json:"currency"`
	PaymentDescription   string      `json:"paymentDescription"`
}

// authenticate exchanges the basic-auth credentials for a bearer token.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/login", nil)
	if err != nil {
		return "", fmt.Errorf("monnify login: %w", domain.ErrGateway)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(c.apiKey + ":" + c.secretKey))
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/json")

	env, status, err := c.do(req, "login")
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden || !env.RequestSuccessful {
		c.log.Warn().Str("response", env.ResponseMessage).Msg("monnify login rejected")
		return "", fmt.Errorf("monnify login: %w", domain.ErrAuthentication)
	}
	var body loginBody
	if err := json.Unmarshal(env.ResponseBody, &body); err != nil || body.AccessToken == "" {
		return "", fmt.Errorf("monnify login response: %w", domain.ErrGateway)
	}
	return body.AccessToken, nil
}

func (c *Client) Initiate(ctx context.Context, r adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"amount":             r.Amount,
		"customerName":       r.CustomerName,
		"customerEmail":      r.CustomerEmail,
		"paymentReference":   r.Reference,
		"paymentDescription": r.Reference,
		"currencyCode":       r.Currency,
		"contractCode":       c.contractCode,
		"redirectUrl":        r.ReturnURL,
		"paymentMethods":     []string{"CARD", "ACCOUNT_TRANSFER"},
	}
	if r.Metadata != nil {
		payload["metadata"] = r.Metadata
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("monnify init: %w", domain.ErrGateway)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/merchant/transactions/init-transaction", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("monnify init: %w", domain.ErrGateway)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	env, _, err := c.do(req, "init")
	if err != nil {
		return nil, err
	}
	if !env.RequestSuccessful {
		c.log.Warn().Str("response", env.ResponseMessage).Str("reference", r.Reference).Msg("monnify init rejected")
		return nil, fmt.Errorf("monnify init: %w", domain.ErrGateway)
	}
	var body initBody
	if err := json.Unmarshal(env.ResponseBody, &body); err != nil {
		return nil, fmt.Errorf("monnify init response: %w", domain.ErrGateway)
	}
	return &adapter.InitiateResult{
		CheckoutURL:       body.CheckoutURL,
		ProviderReference: body.TransactionReference,
	}, nil
}

func (c *Client) Verify(ctx context.Context, providerRef string) (*adapter.VerifyResult, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/transactions/"+providerRef, nil)
	if err != nil {
		return nil, fmt.Errorf("monnify verify: %w", domain.ErrGateway)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	env, _, err := c.do(req, "verify")
	if err != nil {
		return nil, err
	}
	if !env.RequestSuccessful {
		c.log.Warn().Str("response", env.ResponseMessage).Str("provider_reference", providerRef).Msg("monnify verify rejected")
		return nil, fmt.Errorf("monnify verify: %w", domain.ErrGateway)
	}
	var body verifyBody
	if err := json.Unmarshal(env.ResponseBody, &body); err != nil {
		return nil, fmt.Errorf("monnify verify response: %w", domain.ErrGateway)
	}
	res := &adapter.VerifyResult{
		Status:   body.PaymentStatus,
		Currency: body.Currency,
		Reason:   body.PaymentDescription,
	}
	if amt, err := body.AmountPaid.Float64(); err == nil && body.AmountPaid != "" {
		res.AmountPaid = amt
		res.HasAmount = true
	}
	return res, nil
}

func (c *Client) MapStatus(gatewayStatus string) model.Outcome {
	return MapStatus(gatewayStatus)
}

// do executes the request and decodes the Monnify envelope. Transport
// failures and unparsable bodies surface as ErrGateway; the raw detail
// is logged, never returned.
func (c *Client) do(req *http.Request, op string) (*envelope, int, error) {
	resp, err := c.caller.Do(req)
	if err != nil {
		metrics.IncGatewayRequest(model.ProviderMonnify, op, "error")
		c.log.Error().Err(err).Str("op", op).Msg("monnify request failed")
		return nil, 0, fmt.Errorf("monnify %s: %w", op, domain.ErrGateway)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncGatewayRequest(model.ProviderMonnify, op, "error")
		return nil, resp.StatusCode, fmt.Errorf("monnify %s: %w", op, domain.ErrGateway)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.IncGatewayRequest(model.ProviderMonnify, op, "error")
		c.log.Error().Err(err).Str("op", op).Str("body", string(raw)).Msg("monnify response unparsable")
		return nil, resp.StatusCode, fmt.Errorf("monnify %s: %w", op, domain.ErrGateway)
	}
	if resp.StatusCode >= 500 {
		metrics.IncGatewayRequest(model.ProviderMonnify, op, "error")
		c.log.Error().Int("status", resp.StatusCode).Str("op", op).Msg("monnify server error")
		return nil, resp.StatusCode, fmt.Errorf("monnify %s: %w", op, domain.ErrGateway)
	}
	metrics.IncGatewayRequest(model.ProviderMonnify, op, "ok")
	return &env, resp.StatusCode, nil
}
