// Package server exposes the search and chat operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/placechat/placechat/internal/chat"
	"github.com/placechat/placechat/internal/search"
	"github.com/placechat/placechat/internal/telemetry"
)

// Searcher runs a place search. Satisfied by search.Orchestrator.
type Searcher interface {
	Run(ctx context.Context, q search.Query) (*search.Result, error)
}

// Chatter runs one chat turn. Satisfied by chat.Orchestrator.
type Chatter interface {
	Converse(ctx context.Context, sessionID, message string, autoRun bool) (*chat.Reply, error)
}

// Server is the HTTP surface over the search and chat orchestrators.
type Server struct {
	searcher Searcher
	chatter  Chatter
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	// autoRunDefault applies when a chat request leaves autoRun unset.
	autoRunDefault bool

	httpServer *http.Server
}

// Options configures a Server.
type Options struct {
	Addr           string
	Searcher       Searcher
	Chatter        Chatter
	Metrics        *telemetry.Metrics
	Logger         *slog.Logger
	AutoRunDefault bool
}

// New creates an HTTP server with all routes registered.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewMetrics()
	}

	s := &Server{
		searcher:       opts.Searcher,
		chatter:        opts.Chatter,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		autoRunDefault: opts.AutoRunDefault,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", opts.Metrics.Handler())
	mux.HandleFunc("GET /api/search", s.handleSearchGet)
	mux.HandleFunc("POST /api/search", s.handleSearchPost)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.withRequestContext(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the fully wired handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe blocks serving HTTP until Shutdown or a listener
// error. http.ErrServerClosed is reported as nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// withRequestContext attaches a correlation ID to every request and
// logs the request line on completion.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := telemetry.WithCorrelationID(r.Context(), r.Header.Get("X-Correlation-Id"))
		w.Header().Set("X-Correlation-Id", telemetry.CorrelationID(ctx))

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		telemetry.RequestLogger(s.logger, ctx).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Area    string `json:"area"`
	Keyword string `json:"keyword"`
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.runSearch(w, r, searchRequest{
		Area:    q.Get("area"),
		Keyword: q.Get("keyword"),
	})
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req searchRequest) {
	area := strings.TrimSpace(req.Area)
	if area == "" {
		writeError(w, http.StatusBadRequest, "area is required")
		return
	}

	start := time.Now()
	result, err := s.searcher.Run(r.Context(), search.Query{
		Area:    area,
		Keyword: strings.TrimSpace(req.Keyword),
	})
	if err != nil {
		telemetry.RequestLogger(s.logger, r.Context()).Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.metrics.RecordSearch(time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	// AutoRunAPI overrides the configured default when present.
	AutoRunAPI *bool `json:"autoRunApi,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	autoRun := s.autoRunDefault
	if req.AutoRunAPI != nil {
		autoRun = *req.AutoRunAPI
	}

	reply, err := s.chatter.Converse(r.Context(), req.SessionID, req.Message, autoRun)
	if err != nil {
		if errors.Is(err, chat.ErrBlankMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		telemetry.RequestLogger(s.logger, r.Context()).Error("chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
