package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/domain"
	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/infra/gateway/monnify"
	"commerce-payment-providers/internal/infra/gateway/paystack"
	"commerce-payment-providers/internal/infra/logging"
)

// Gateways retry webhooks aggressively on non-2xx responses, so every
// webhook path acknowledges with 200 and a small JSON body; recoverable
// internal errors are logged, not surfaced.
type webhookAck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func ackSuccess(w http.ResponseWriter) {
	writeAck(w, webhookAck{Status: "success"})
}

func ackError(w http.ResponseWriter, msg string) {
	writeAck(w, webhookAck{Status: "error", Message: msg})
}

func writeAck(w http.ResponseWriter, ack webhookAck) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ack)
}

const handlerTimeout = 50 * time.Second

type checkoutRequest struct {
	Provider      string  `json:"provider"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
}

type checkoutResponse struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
}

// checkout creates a draft transaction and hands back the hosted
// payment page URL for the requested provider.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	ctx = logging.WithProvider(ctx, req.Provider)
	l := logging.With(ctx, s.log)

	t, checkoutURL, err := s.checkoutUC.Initiate(ctx, req.Provider, req.Amount, req.Currency, req.CustomerName, req.CustomerEmail, nil)
	if err != nil {
		l.Error().Err(err).Msg("checkout initiation failed")
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrConfiguration):
			http.Error(w, `{"error":"invalid checkout request"}`, http.StatusBadRequest)
		default:
			http.Error(w, `{"error":"payment could not be started"}`, http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(checkoutResponse{Reference: t.Reference, CheckoutURL: checkoutURL})
}

func (s *Server) monnifyWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	ctx = logging.WithProvider(ctx, model.ProviderMonnify)
	l := logging.With(ctx, s.log)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ackError(w, "unreadable body")
		return
	}

	// Reject unsigned deliveries before any transaction lookup.
	signature := r.Header.Get(monnify.WebhookSignatureHeader)
	if signature == "" {
		l.Warn().Msg("webhook received without signature")
		ackError(w, "missing signature")
		return
	}

	eventType, n, err := monnify.ParseWebhook(body, signature)
	if err != nil {
		l.Warn().Err(err).Msg("webhook body unparsable")
		ackError(w, "malformed notification")
		return
	}
	if eventType != monnify.EventSuccessfulTransaction {
		l.Info().Str("event_type", eventType).Msg("ignoring webhook event type")
		ackSuccess(w)
		return
	}

	if _, err := s.reconcileUC.ProcessNotification(ctx, model.ProviderMonnify, n); err != nil {
		s.logReconcileError(l, err, "webhook processing failed")
		ackError(w, ackMessage(err))
		return
	}
	ackSuccess(w)
}

func (s *Server) paystackWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	ctx = logging.WithProvider(ctx, model.ProviderPaystack)
	l := logging.With(ctx, s.log)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ackError(w, "unreadable body")
		return
	}

	event, n, err := paystack.ParseWebhook(body)
	if err != nil {
		l.Warn().Err(err).Msg("webhook body unparsable")
		ackError(w, "malformed notification")
		return
	}
	l.Info().Str("event", event).Str("reference", n.Reference).Msg("paystack webhook received")

	if _, err := s.reconcileUC.ProcessNotification(ctx, model.ProviderPaystack, n); err != nil {
		s.logReconcileError(l, err, "webhook processing failed")
		ackError(w, ackMessage(err))
		return
	}
	ackSuccess(w)
}

// monnifyReturn handles the browser coming back from Monnify checkout.
// Reconciliation here is best effort; the webhook is the primary
// settlement path, so failures are logged and the user still lands on
// the status page.
func (s *Server) monnifyReturn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	ctx = logging.WithProvider(ctx, model.ProviderMonnify)
	l := logging.With(ctx, s.log)

	reference := returnParam(r, "paymentReference")
	if reference == "" {
		reference = returnParam(r, "transactionReference")
	}
	if reference == "" {
		l.Warn().Msg("return data does not contain a reference")
		s.redirectToStatus(w, r, model.ProviderMonnify, "")
		return
	}

	t, err := s.reconcileUC.Reverify(ctx, model.ProviderMonnify, reference)
	if err != nil {
		s.logReconcileError(l, err, "return-flow verification failed")
		s.redirectToStatus(w, r, model.ProviderMonnify, reference)
		return
	}
	s.redirectToStatus(w, r, model.ProviderMonnify, t.Reference)
}

func (s *Server) paystackReturn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	ctx = logging.WithProvider(ctx, model.ProviderPaystack)
	l := logging.With(ctx, s.log)

	reference := returnParam(r, "reference")
	if reference == "" {
		reference = returnParam(r, "trxref")
	}
	if reference == "" {
		l.Warn().Msg("return data does not contain a reference")
		s.redirectToStatus(w, r, model.ProviderPaystack, "")
		return
	}

	t, err := s.reconcileUC.Reverify(ctx, model.ProviderPaystack, reference)
	if err != nil {
		s.logReconcileError(l, err, "return-flow verification failed")
		s.redirectToStatus(w, r, model.ProviderPaystack, reference)
		return
	}
	s.redirectToStatus(w, r, model.ProviderPaystack, t.Reference)
}

// returnParam reads a parameter from the query string or a posted form,
// since gateways redirect with GET or POST depending on the flow.
func returnParam(r *http.Request, key string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		return r.PostFormValue(key)
	}
	return ""
}

// logReconcileError picks the level the error taxonomy asks for:
// suspicious-but-expected inputs log at warn, everything else at error.
func (s *Server) logReconcileError(l *zerolog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrUnknownTransaction),
		errors.Is(err, domain.ErrSignatureMismatch),
		errors.Is(err, domain.ErrMalformedNotification):
		l.Warn().Err(err).Msg(msg)
	default:
		l.Error().Err(err).Msg(msg)
	}
}

// ackMessage maps internal errors to the generic acknowledgment text;
// raw detail stays in the logs.
func ackMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedNotification):
		return "malformed notification"
	case errors.Is(err, domain.ErrUnknownTransaction):
		return "unknown transaction"
	case errors.Is(err, domain.ErrSignatureMismatch):
		return "invalid signature"
	default:
		return "processing failed"
	}
}
