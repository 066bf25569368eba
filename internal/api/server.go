// Package api exposes the verification core over HTTP. The verdict is
// the payload: both accepted and rejected verifications answer 200, and
// non-200 statuses are reserved for transport-level problems.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zkgate/go-backend/internal/accounts"
	"zkgate/go-backend/internal/platform/ratelimiter"
	"zkgate/go-backend/pkg/models"
)

// VerificationService is the slice of the orchestrator the API needs.
type VerificationService interface {
	Verify(ctx context.Context, req models.VerificationRequest) models.VerificationResponse
}

// Server serves the verification and registration endpoints.
type Server struct {
	svc      VerificationService
	accounts *accounts.Store
	limiter  *ratelimiter.MapLimiter
	log      *slog.Logger
	httpSrv  *http.Server
}

// NewServer wires the HTTP surface. limiter may be nil to disable rate
// limiting; a nil logger disables logging.
func NewServer(addr string, svc VerificationService, accts *accounts.Store, limiter *ratelimiter.MapLimiter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		svc:      svc,
		accounts: accts,
		limiter:  limiter,
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/verify", s.handleVerify)
	mux.HandleFunc("POST /v1/register", s.handleRegister)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}
	var req models.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Verify(r.Context(), req))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}
	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	verdict := s.svc.Verify(r.Context(), req.VerificationRequest)
	resp := models.RegistrationResponse{Verification: verdict}
	if verdict.Outcome != models.OutcomeAccepted {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	acct, err := s.accounts.AddAccount(verdict.Identifier.Decimal, req.DisplayName)
	switch {
	case errors.Is(err, accounts.ErrAlreadyRegistered):
		resp.AlreadyRegistered = true
	case errors.Is(err, accounts.ErrInvalidAccount):
		resp.Verification = models.VerificationResponse{
			Outcome: models.OutcomeRejected,
			Reason:  models.ReasonInvalidInput,
			Detail:  "display name is required",
		}
	case err != nil:
		s.log.ErrorContext(r.Context(), "account creation failed", slog.String("error", err.Error()))
		http.Error(w, "account store failure", http.StatusInternalServerError)
		return
	default:
		resp.Account = &acct
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter.Allow(clientKey(r), time.Now()) {
		return true
	}
	http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	return false
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
