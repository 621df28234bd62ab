package api

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/repository"
	"commerce-payment-providers/internal/usecase"
)

// StatusPath is where browsers land after a gateway redirect,
// whatever the reconciliation outcome was.
const StatusPath = "/payment/status"

// Server exposes the gateway-facing payment endpoints: checkout
// initiation, webhooks, browser returns and the payment-status page.
type Server struct {
	checkoutUC  usecase.CheckoutUseCase
	reconcileUC usecase.ReconcileUseCase
	txs         repository.TransactionRepository
	log         *zerolog.Logger
}

func NewServer(checkoutUC usecase.CheckoutUseCase, reconcileUC usecase.ReconcileUseCase, txs repository.TransactionRepository, logger *zerolog.Logger) *Server {
	return &Server{checkoutUC: checkoutUC, reconcileUC: reconcileUC, txs: txs, log: logger}
}

// Register attaches all payment routes to the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/payment/checkout", s.checkout)
	r.Post("/payment/monnify/webhook", s.monnifyWebhook)
	r.HandleFunc("/payment/monnify/return", s.monnifyReturn)
	r.Post("/payment/paystack/webhook", s.paystackWebhook)
	r.HandleFunc("/payment/paystack/return", s.paystackReturn)
	r.Get(StatusPath, s.statusPage)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

var statusTmpl = template.Must(template.New("status").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment Status</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.done{color:#057a55} .cancelled{color:#b00020} .pending{color:#946200}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
{{if .Known}}
  <h2 class="{{.StateClass}}">{{.Headline}}</h2>
  <p>Reference: <code>{{.Reference}}</code></p>
  {{if .Detail}}<p class="small">{{.Detail}}</p>{{end}}
{{else}}
  <h2>Payment Processed</h2>
  <p>Your payment has been received and is being processed. You will be notified once it is confirmed.</p>
{{end}}
</div>
</body>
</html>`))

type statusView struct {
	Known      bool
	Reference  string
	StateClass string
	Headline   string
	Detail     string
}

// statusPage renders the generic post-checkout page. Reconciliation
// errors are never surfaced here; an unknown or missing reference just
// gets the generic message.
func (s *Server) statusPage(w http.ResponseWriter, r *http.Request) {
	view := statusView{}
	ref := r.URL.Query().Get("reference")
	provider := r.URL.Query().Get("provider")
	if ref != "" && provider != "" {
		if t, err := s.txs.FindByReference(r.Context(), nil, provider, ref); err == nil {
			view.Known = true
			view.Reference = t.Reference
			switch t.State {
			case model.StateDone:
				view.StateClass, view.Headline = "done", "Payment Successful"
			case model.StateCancelled:
				view.StateClass, view.Headline = "cancelled", "Payment Not Completed"
				view.Detail = t.StateMessage
			default:
				view.StateClass, view.Headline = "pending", "Payment Processing"
			}
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = statusTmpl.Execute(w, view)
}

// redirectToStatus concludes every return flow, whatever happened.
func (s *Server) redirectToStatus(w http.ResponseWriter, r *http.Request, provider, reference string) {
	target := StatusPath
	if reference != "" {
		q := url.Values{"provider": {provider}, "reference": {reference}}
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
