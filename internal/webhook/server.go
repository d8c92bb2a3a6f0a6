package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phanesguild/licensegw/internal/audit"
	"github.com/phanesguild/licensegw/internal/order"
)

// Server is the webhook HTTP gateway: it authenticates inbound order
// notifications, classifies them, and hands matched items to the fulfiller.
type Server struct {
	config    Config
	fulfiller Fulfiller
	recorder  *audit.Recorder
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new webhook server instance.
func New(config Config, fulfiller Fulfiller, recorder *audit.Recorder, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}

	return &Server{
		config:    config,
		fulfiller: fulfiller,
		recorder:  recorder,
		logger:    logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // fulfillment is synchronous end-to-end
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the configured HTTP handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(s.config.Path, s.handleOrder)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.recorder.Eventf(audit.LevelWarn, "Invalid request method: %s", r.Method)
		s.respondText(w, http.StatusMethodNotAllowed, "Method not allowed - POST required")
	})

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleOrder processes one inbound order notification synchronously.
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s.recorder.Eventf(audit.LevelInfo, "Received webhook request from: %s", r.RemoteAddr)

	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondText(w, http.StatusInternalServerError, "Failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.recorder.Eventf(audit.LevelWarn, "Webhook payload exceeds limit: %d bytes", len(body))
		s.respondText(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	s.recorder.Eventf(audit.LevelInfo, "Webhook payload size: %d bytes", len(body))

	signature := r.Header.Get(s.config.SignatureHeader)
	if !VerifySignature(body, signature, s.config.Secret) {
		s.recorder.Event(audit.LevelError, "Webhook verification failed - unauthorized request")
		s.respondText(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.recorder.Event(audit.LevelInfo, "Webhook verified successfully")

	o, err := order.Parse(body)
	if err != nil {
		s.recorder.Event(audit.LevelError, "Failed to parse JSON payload")
		s.respondText(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	items := o.MatchingItems(s.config.ProductMatch)
	if len(items) == 0 {
		s.recorder.Event(audit.LevelInfo, "Not a HakPak order - skipping")
		s.respondText(w, http.StatusOK, "Not a HakPak order")
		return
	}
	s.recorder.Eventf(audit.LevelInfo, "HakPak order detected with %d items", len(items))

	if o.Email == "" {
		s.recorder.Event(audit.LevelError, "No customer email found in order")
		s.respondText(w, http.StatusBadRequest, "No customer email")
		return
	}

	s.recorder.Eventf(audit.LevelInfo, "Processing order for: %s (%s) - Order: %s", o.BuyerName, o.Email, o.ID)

	res := s.fulfiller.Process(ctx, o, items)

	if res.Delivered > 0 {
		s.recorder.Eventf(audit.LevelInfo, "Successfully processed %d licenses for order %s", res.Delivered, o.ID)
		s.respondText(w, http.StatusOK, fmt.Sprintf("Licenses delivered successfully (%d items)", res.Delivered))
		return
	}

	s.recorder.Eventf(audit.LevelError, "Failed to process any licenses for order %s", o.ID)
	s.respondText(w, http.StatusInternalServerError, "License delivery failed")
}

// respondText sends a short plain-text response.
func (s *Server) respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
