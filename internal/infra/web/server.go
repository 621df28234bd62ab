package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"commerce-payment-providers/internal/domain/model"
	"commerce-payment-providers/internal/domain/ports/repository"
	"commerce-payment-providers/internal/usecase"
)

// Server is the operator-facing API: inspecting transactions and
// forcing a re-verification for rows parked in error.
type Server struct {
	txs         repository.TransactionRepository
	reconcileUC usecase.ReconcileUseCase
	apiKey      string
	auth        *AuthManager
	log         *zerolog.Logger
}

func NewServer(txs repository.TransactionRepository, reconcileUC usecase.ReconcileUseCase, apiKey string, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{txs: txs, reconcileUC: reconcileUC, apiKey: apiKey, auth: auth, log: logger}
}

// Register attaches the operator routes under /admin/api.
func (s *Server) Register(r chi.Router) {
	r.Post("/admin/api/login", s.login)
	r.Group(func(gr chi.Router) {
		gr.Use(s.sessionMiddleware)
		gr.Get("/admin/api/transactions", s.listTransactions)
		gr.Post("/admin/api/transactions/{reference}/reverify", s.reverify)
	})
}

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.apiKey == "" {
		s.log.Error().Msg("operator API key is not configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(s.apiKey)) != 1 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	state := model.State(r.URL.Query().Get("state"))

	txs, err := s.txs.ListByState(ctx, nil, state, offset, limit)
	if err != nil {
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	response := struct {
		Transactions []*model.Transaction `json:"transactions"`
		Offset       int                  `json:"offset"`
		Limit        int                  `json:"limit"`
	}{
		Transactions: txs,
		Offset:       offset,
		Limit:        limit,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// reverify forces a fresh gateway verification for one transaction.
// This is the operator path out of the error state.
func (s *Server) reverify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := chi.URLParam(r, "reference")
	provider := r.URL.Query().Get("provider")
	if reference == "" || provider == "" {
		http.Error(w, "reference and provider are required", http.StatusBadRequest)
		return
	}

	t, err := s.reconcileUC.Reverify(ctx, provider, reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("manual reverify failed")
		http.Error(w, "Reverify failed", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(t)
}
