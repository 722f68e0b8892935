// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	callpkg "github.com/amanpal108/Zenno-Concierge/internal/call"
	"github.com/amanpal108/Zenno-Concierge/internal/config"
	"github.com/amanpal108/Zenno-Concierge/internal/dialog"
	"github.com/amanpal108/Zenno-Concierge/internal/events"
	"github.com/amanpal108/Zenno-Concierge/internal/handler"
	"github.com/amanpal108/Zenno-Concierge/internal/llm"
	"github.com/amanpal108/Zenno-Concierge/internal/middleware"
	"github.com/amanpal108/Zenno-Concierge/internal/payment"
	"github.com/amanpal108/Zenno-Concierge/internal/places"
	"github.com/amanpal108/Zenno-Concierge/internal/service"
	"github.com/amanpal108/Zenno-Concierge/internal/store"
	"github.com/amanpal108/Zenno-Concierge/internal/telephony"
	"github.com/amanpal108/Zenno-Concierge/internal/voice"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
	"github.com/amanpal108/Zenno-Concierge/pkg/tracing"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "zenno-concierge", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// The audit stream is optional: no NATS URL means a no-op publisher.
	var (
		publisher    events.Publisher = events.NoopPublisher{}
		eventsClient *events.Client
	)
	if cfg.NATSURL != "" {
		eventsClient, err = events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer eventsClient.Close()

		streamPublisher := events.NewStreamPublisher(eventsClient)
		if err := streamPublisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		publisher = streamPublisher
	}

	// Initialize LLM client
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client, scripted replies only", zap.Error(err))
		}
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client, scripted replies only", zap.Error(err))
		}
	}

	st := store.New()
	searcher := places.NewClient(cfg.PlacesBaseURL, cfg.PlacesAPIKey, log)
	dialer := telephony.NewRESTDialer(cfg.TwilioBaseURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)

	machine := dialog.NewMachine(dialog.Config{
		MaxAttempts:       cfg.MaxAttempts,
		DefaultQuantity:   cfg.DefaultQuantity,
		FallbackIncrement: cfg.FallbackIncrement,
		ConcessionBump:    cfg.ConcessionBump,
	}, dialog.NewKeywordClassifier())

	renderer := voice.NewRenderer(voice.Options{
		BaseURL:          cfg.PublicBaseURL,
		GatherTimeoutSec: int(cfg.GatherTimeout.Seconds()),
		MaxDigits:        cfg.GatherMaxDigits,
		MaxAttempts:      cfg.MaxAttempts,
		Defaults: dialog.Defaults{
			Quantity:     cfg.DefaultQuantity,
			InitialPrice: cfg.DefaultOfferPrice,
		},
	})

	// Initialize services
	conciergeSvc := service.NewConciergeService(st, llmClient, searcher, publisher, log)
	rails := payment.NewSimulatedRails()
	paymentSvc := payment.NewCoordinator(st, rails, rails, payment.Options{
		SourceCurrency: cfg.PaymentSourceCurrency,
		TargetCurrency: cfg.PaymentTargetCurrency,
		Destination:    cfg.PayoutDestination,
	}, log)

	reconciler := callpkg.NewReconciler(st, conciergeSvc, func(ctx context.Context, sessionID string) {
		if _, err := paymentSvc.RequestApproval(ctx, sessionID); err != nil {
			log.Warn("payment handoff failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}, log)
	simulator := callpkg.NewSimulator(st, reconciler, machine, 2*time.Second, log)
	negotiationSvc := service.NewNegotiationService(st, machine, renderer, dialer, simulator, publisher, service.NegotiationOptions{
		OpeningOffer:    cfg.DefaultOfferPrice,
		CallbackBaseURL: cfg.PublicBaseURL,
		MaxAttempts:     cfg.MaxAttempts,
	}, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(eventsClient)
	sessionHandler := handler.NewSessionHandler(conciergeSvc, negotiationSvc, paymentSvc, log)
	voiceHandler := handler.NewVoiceHandler(negotiationSvc, log)
	webhookHandler := handler.NewWebhookHandler(reconciler, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// First-contact chat: creates the session on the first message.
		r.Post("/messages", sessionHandler.Chat)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Post("/messages", sessionHandler.Chat)
				r.Post("/vendors/{vendorID}/call", sessionHandler.StartCall)

				r.Route("/payment", func(r chi.Router) {
					r.Post("/approve", sessionHandler.ApprovePayment)
					r.Post("/reject", sessionHandler.RejectPayment)
					r.Post("/process", sessionHandler.ProcessPayment)
				})
			})
		})
	})

	// Provider-facing endpoints: signed by the telephony provider, not by
	// our own JWTs.
	r.Group(func(r chi.Router) {
		r.Use(middleware.VerifySignature(cfg.WebhookSecret, cfg.PublicBaseURL))

		r.Post("/voice/{sessionID}/{callID}/prompt", voiceHandler.Prompt)
		r.Post("/voice/{sessionID}/{callID}/gather", voiceHandler.Gather)
		r.Post("/webhooks/call-status", webhookHandler.CallStatus)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Stop simulated call timers before draining connections.
	simulator.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
