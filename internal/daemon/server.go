package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"log/slog"

	"hikari/internal/config"
	"hikari/internal/logging"
	"hikari/internal/telegram"
)

const (
	webhookPath  = "/webhook"
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"

	// maxUpdateBytes bounds the webhook request body; real updates are
	// tiny since files never travel through the webhook.
	maxUpdateBytes = 1 << 20
)

type webhookServer struct {
	bind   string
	secret string
	logger *slog.Logger
	daemon *Daemon

	runCtx   context.Context
	listener net.Listener
	server   *http.Server
}

func newWebhookServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *webhookServer {
	srv := &webhookServer{
		bind:   cfg.Telegram.WebhookBind,
		secret: cfg.Telegram.WebhookSecret,
		logger: logger,
		daemon: d,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(webhookPath, srv.handleWebhook)
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/api/status", srv.handleStatus)
	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *webhookServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.runCtx = ctx
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("webhook server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("webhook server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *webhookServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *webhookServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleWebhook accepts one update per request. Telegram always gets a 200
// once the secret checks out, even for undecodable bodies, so a poison
// update is never redelivered forever.
func (s *webhookServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.secret != "" && r.Header.Get(secretHeader) != s.secret {
		s.writeError(w, http.StatusUnauthorized, "bad secret token")
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		s.log().Warn("webhook decode failed", logging.Error(err))
	} else {
		// Dispatch on the daemon context, not the request context, so the
		// handler survives this request returning its 200.
		go s.daemon.handler.HandleUpdate(s.runCtx, update)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (s *webhookServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (s *webhookServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *webhookServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *webhookServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *webhookServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "webhook-server"))
	}
	return logging.NewNop()
}
