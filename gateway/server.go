// Package gateway exposes the client's session, activity feed and
// notifications over a read-only HTTP surface for the dashboard.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"veloracloud/events"
	"veloracloud/gateway/middleware"
	"veloracloud/notify"
	"veloracloud/wallet"
)

// SessionSource exposes the wallet state the gateway reports.
type SessionSource interface {
	Snapshot() wallet.Snapshot
}

// EventSource exposes the in-memory activity feed.
type EventSource interface {
	Recent() []events.Record
}

// ArchiveSource exposes the persistent event archive. Optional.
type ArchiveSource interface {
	Recent(ctx context.Context, limit int) ([]events.Record, error)
	CountByType(ctx context.Context) (map[events.Type]int64, error)
}

// NotificationSource exposes notification history and live subscription.
type NotificationSource interface {
	History() []notify.Notification
	Subscribe() (<-chan notify.Notification, func())
}

// Server serves the read-only dashboard API.
type Server struct {
	session       SessionSource
	feed          EventSource
	notifications NotificationSource
	archive       ArchiveSource
	logger        *slog.Logger
	cors          middleware.CORSConfig
}

// Option customises a Server.
type Option func(*Server)

// WithArchive enables the /v1/events/archive endpoints.
func WithArchive(a ArchiveSource) Option {
	return func(s *Server) { s.archive = a }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithCORS overrides the default cross-origin policy.
func WithCORS(cfg middleware.CORSConfig) Option {
	return func(s *Server) { s.cors = cfg }
}

// NewServer builds the gateway over the given sources.
func NewServer(session SessionSource, feed EventSource, notifications NotificationSource, opts ...Option) *Server {
	s := &Server{
		session:       session,
		feed:          feed,
		notifications: notifications,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(s.cors))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/session", s.handleSession)
		v1.Get("/events", s.handleEvents)
		v1.Get("/events/archive", s.handleArchive)
		v1.Get("/events/archive/stats", s.handleArchiveStats)
		v1.Get("/notifications", s.handleNotifications)
		v1.Get("/stream", s.handleStream)
	})
	return r
}

// Serve runs the gateway until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("gateway listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type sessionPayload struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account,omitempty"`
	ChainID   uint64 `json:"chainId,omitempty"`
	Loading   bool   `json:"loading"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snapshot := s.session.Snapshot()
	payload := sessionPayload{
		Connected: snapshot.Connected,
		Loading:   snapshot.Loading,
	}
	if snapshot.Connected {
		payload.Account = snapshot.Account.Hex()
		payload.ChainID = snapshot.ChainID
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	recent := s.feed.Recent()
	if recent == nil {
		recent = []events.Record{}
	}
	s.writeJSON(w, http.StatusOK, recent)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "event archive disabled", http.StatusNotFound)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	records, err := s.archive.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("read archive", "error", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []events.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleArchiveStats(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "event archive disabled", http.StatusNotFound)
		return
	}
	counts, err := s.archive.CountByType(r.Context())
	if err != nil {
		s.logger.Error("read archive stats", "error", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	history := s.notifications.History()
	if history == nil {
		history = []notify.Notification{}
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch, cancel := s.notifications.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, n); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
