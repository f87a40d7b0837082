// Package httpadapter exposes the batch question-answering pipeline over
// a thin net/http surface.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clauseq/clauseq/internal/core/domain"
	"github.com/clauseq/clauseq/internal/core/ports"
	"github.com/clauseq/clauseq/internal/observability/metrics"
)

type Router struct {
	runService ports.RunService
	runQueue   ports.RunQueue
	logger     *slog.Logger
	metrics    *metrics.HTTPServerMetrics

	authToken      string
	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type Options struct {
	// RunQueue enables the async mode of the run endpoint. Nil keeps the
	// endpoint synchronous only.
	RunQueue       ports.RunQueue
	AuthToken      string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	Metrics        *metrics.HTTPServerMetrics
	Logger         *slog.Logger
}

func NewRouter(runService ports.RunService, options Options) *Router {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		runService:     runService,
		runQueue:       options.RunQueue,
		logger:         logger,
		metrics:        options.Metrics,
		authToken:      options.AuthToken,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/api/v1/hackrx/run", rt.authMiddleware(http.HandlerFunc(rt.runBatch)))

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, 50*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = metricsMiddleware(handler, rt.metrics)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runBatchRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

type runBatchResponse struct {
	Answers []string `json:"answers"`
}

func (rt *Router) runBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req runBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Documents) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "documents url is required"})
		return
	}
	if len(req.Questions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "questions are required"})
		return
	}

	if r.URL.Query().Get("mode") == "async" {
		rt.enqueueRun(w, r, req)
		return
	}

	answers, err := rt.runService.Run(r.Context(), req.Documents, req.Questions)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.logger.Error("run_failed",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, runBatchResponse{Answers: answers})
}

// enqueueRun hands the batch to the worker fleet instead of answering inline.
// Answers land in the audit store and on the completion subject.
func (rt *Router) enqueueRun(w http.ResponseWriter, r *http.Request, req runBatchRequest) {
	if rt.runQueue == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "async mode is not enabled"})
		return
	}

	runReq := domain.RunRequest{
		ID:          uuid.NewString(),
		DocumentURL: req.Documents,
		Questions:   req.Questions,
	}
	if err := rt.runQueue.PublishRunRequested(r.Context(), runReq); err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.logger.Error("run_enqueue_failed",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runReq.ID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
