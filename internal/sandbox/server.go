// Package sandbox is a local stand-in for the two payment backends: the
// merchant payment API (signed requests) and the VAS aggregator (static
// header auth). It speaks the same wire protocols as the real services,
// including verification of the RSA Authorization header when a merchant
// public key is configured, so the client packages can be exercised end to
// end without network access to the UAT environments.
package sandbox

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/khomabhena/h5-airtime/internal/config"
	"github.com/khomabhena/h5-airtime/internal/signature"
	"github.com/khomabhena/h5-airtime/internal/version"
)

type Server struct {
	cfg       *config.Environment
	logger    *slog.Logger
	router    *chi.Mux
	publicKey *rsa.PublicKey
	payments  *paymentStore
	vas       *vasState
}

// NewServer creates the sandbox server. If the config names a merchant public
// key, incoming payment requests must carry a valid signature; otherwise they
// are accepted unverified (dev only).
func NewServer(cfg *config.Environment, logger *slog.Logger) (*Server, error) {
	server := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		payments: newPaymentStore(),
		vas:      newVASState(),
	}

	if cfg.MerchantPublicKeyPath != "" {
		publicKey, err := signature.LoadPublicKey(cfg.MerchantPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load merchant public key: %w", err)
		}
		server.publicKey = publicKey
		logger.Info("signature verification enabled",
			slog.String("public_key", cfg.MerchantPublicKeyPath))
	} else {
		logger.Warn("no merchant public key configured - accepting unverified requests")
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// Router exposes the configured handler (used by tests).
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(60 * time.Second))
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(SecurityHeaders(s.cfg.Environment))
	s.router.Use(RateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))
	s.router.Use(RequestSizeLimit(s.cfg.MaxRequestBytes))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", handleHealth)
	s.router.Get("/version", handleVersion)

	s.router.Route("/v1/pay", func(r chi.Router) {
		r.Post("/pre-transaction/order/place", s.handlePlaceOrder)
		r.Post("/transaction/result", s.handleQueryResult)
	})

	s.router.Route("/vas/"+s.cfg.VASAPIVersion, func(r chi.Router) {
		r.Get("/Connect", s.handleVASConnect)
		r.Get("/Countries", s.handleVASCountries)
		r.Get("/Services", s.handleVASServices)
		r.Get("/ServiceProviders", s.handleVASServiceProviders)
		r.Get("/Products", s.handleVASProducts)
		r.Get("/Product", s.handleVASProduct)
		r.Post("/ValidatePayment", s.handleVASValidatePayment)
		r.Post("/PostPayment", s.handleVASPostPayment)
		r.Get("/PaymentStatus", s.handleVASPaymentStatus)
		r.Get("/ReversePayment", s.handleVASReversePayment)
		r.Post("/GetLastToken", s.handleVASGetLastToken)
	})
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("sandbox listening",
			slog.String("environment", s.cfg.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// handleHealth godoc
//
//	@Summary		Health (liveness) check
//	@Description	Check if the sandbox is alive and responding.
//	@Tags			Common
//	@Produce		plain
//	@Success		200	{string}	string	"OK"
//	@Router			/health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleVersion godoc
//
//	@Summary		Get version information
//	@Description	Returns the version and build information for the sandbox
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	version.Info	"Version information"
//	@Router			/version [get]
func handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, version.Get())
}
