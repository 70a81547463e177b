package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-go-golems/supportchat/pkg/predictor"
	"github.com/go-go-golems/supportchat/pkg/tickets"
)

// HealthText is served on GET /.
const HealthText = "Chatbot API is running!"

// Responder answers one user message. *supportbot.Bot implements it.
type Responder interface {
	HandleUser(ctx context.Context, text string) string
}

type ResponderFunc func(ctx context.Context, text string) string

func (f ResponderFunc) HandleUser(ctx context.Context, text string) string { return f(ctx, text) }

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("response write failed")
	}
}

// NewPredictHandler serves POST /api/predict. The request's history is
// accepted and ignored: the responder keeps its own.
func NewPredictHandler(r Responder, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r == nil {
			http.Error(w, "predictor not initialized", http.StatusServiceUnavailable)
			return
		}

		var in predictor.Request
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"}, logger)
			return
		}

		reply := r.HandleUser(req.Context(), in.Message)
		writeJSON(w, http.StatusOK, predictor.Response{Reply: reply}, logger)
	}
}

// NewTicketsHandler serves GET /api/tickets?intent=&limit=.
func NewTicketsHandler(store tickets.Store, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if store == nil {
			http.Error(w, "ticket store not enabled", http.StatusNotFound)
			return
		}
		intent := strings.TrimSpace(req.URL.Query().Get("intent"))
		limit := 0
		if s := strings.TrimSpace(req.URL.Query().Get("limit")); s != "" {
			var v int
			_, _ = fmt.Sscanf(s, "%d", &v)
			if v > 0 {
				limit = v
			}
		}

		list, err := store.List(req.Context(), intent, limit)
		if err != nil {
			logger.Error().Err(err).Str("intent", intent).Msg("ticket list failed")
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "ticket list failed"}, logger)
			return
		}
		if list == nil {
			list = []tickets.Ticket{}
		}
		writeJSON(w, http.StatusOK, list, logger)
	}
}

func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(HealthText))
	}
}

// WithCORS allows any origin and answers preflight requests itself.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithRequestLog logs one line per request at debug level.
func WithRequestLog(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		logger.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// NewMux mounts the service routes. store may be nil, in which case the
// tickets route answers 404.
func NewMux(r Responder, store tickets.Store, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/predict", NewPredictHandler(r, logger))
	mux.Handle("/api/tickets", NewTicketsHandler(store, logger))
	mux.Handle("/", NewHealthHandler())
	return WithRequestLog(WithCORS(mux), logger)
}
