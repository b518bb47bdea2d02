// Package httpadapter exposes the query pipeline over HTTP.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
	"github.com/agrovoice/agri-assistant/internal/core/ports"
	"github.com/agrovoice/agri-assistant/internal/observability/metrics"
)

type Router struct {
	service   string
	queries   ports.QueryService
	knowledge ports.KnowledgeBase
	metrics   *metrics.Metrics
	logger    *slog.Logger

	rateLimitRPS   float64
	rateLimitBurst int
}

type RouterOptions struct {
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(queries ports.QueryService, knowledge ports.KnowledgeBase, m *metrics.Metrics, logger *slog.Logger, options RouterOptions) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	service := options.Service
	if service == "" {
		service = "api"
	}
	return &Router{
		service:        service,
		queries:        queries,
		knowledge:      knowledge,
		metrics:        m,
		logger:         logger,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/readyz", rt.readyz)
	mux.HandleFunc("/v1/query", rt.query)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(rt.rateLimitRPS, rt.rateLimitBurst, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports whether the knowledge base snapshot is loaded. The service
// still answers queries without it, so this gates traffic, not liveness.
func (rt *Router) readyz(w http.ResponseWriter, _ *http.Request) {
	if rt.knowledge == nil || !rt.knowledge.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "index not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Question          string              `json:"question"`
	CorrectedQuestion string              `json:"corrected_question"`
	Corrections       []correctionPayload `json:"corrections"`
	Intent            string              `json:"intent"`
	Answer            string              `json:"answer"`
	ResponseType      string              `json:"response_type"`
	Retrieved         []retrievedPayload  `json:"retrieved"`
	Timings           timingsPayload      `json:"timings"`
	CacheHit          bool                `json:"cache_hit"`
	RequestID         string              `json:"request_id,omitempty"`
}

type correctionPayload struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
}

type retrievedPayload struct {
	ChunkID    string   `json:"chunk_id"`
	Text       string   `json:"text"`
	Section    string   `json:"section,omitempty"`
	Subsection string   `json:"subsection,omitempty"`
	Entities   []string `json:"entities,omitempty"`
	Score      float64  `json:"score"`
}

type timingsPayload struct {
	ClassifyMs float64 `json:"classify_ms"`
	RetrieveMs float64 `json:"retrieve_ms"`
	GenerateMs float64 `json:"generate_ms"`
	TotalMs    float64 `json:"total_ms"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	envelope, err := rt.queries.Process(r.Context(), req.Question)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.logger.Error("query failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	rt.observe(envelope)
	writeJSON(w, http.StatusOK, toQueryResponse(envelope, requestIDFromContext(r.Context())))
}

func (rt *Router) observe(envelope *domain.AnswerEnvelope) {
	if rt.metrics == nil {
		return
	}
	if envelope.CacheHit {
		rt.metrics.RecordCacheLookup(rt.service, true)
		return
	}
	rt.metrics.RecordCacheLookup(rt.service, false)
	rt.metrics.RecordQuery(
		rt.service,
		string(envelope.ResponseType),
		string(envelope.Intent),
		len(envelope.Retrieved),
		envelope.Timings.Classify,
		envelope.Timings.Retrieve,
		envelope.Timings.Generate,
		envelope.Timings.Total,
	)
}

func toQueryResponse(envelope *domain.AnswerEnvelope, requestID string) queryResponse {
	corrections := make([]correctionPayload, 0, len(envelope.Corrections))
	for _, c := range envelope.Corrections {
		corrections = append(corrections, correctionPayload{Original: c.Original, Corrected: c.Corrected})
	}
	retrieved := make([]retrievedPayload, 0, len(envelope.Retrieved))
	for _, chunk := range envelope.Retrieved {
		retrieved = append(retrieved, retrievedPayload{
			ChunkID:    chunk.ChunkID,
			Text:       chunk.Text,
			Section:    chunk.Section,
			Subsection: chunk.Subsection,
			Entities:   chunk.Entities,
			Score:      chunk.Score,
		})
	}
	return queryResponse{
		Question:          envelope.Question,
		CorrectedQuestion: envelope.CorrectedQuestion,
		Corrections:       corrections,
		Intent:            string(envelope.Intent),
		Answer:            envelope.Answer,
		ResponseType:      string(envelope.ResponseType),
		Retrieved:         retrieved,
		Timings: timingsPayload{
			ClassifyMs: durationMs(envelope.Timings.Classify),
			RetrieveMs: durationMs(envelope.Timings.Retrieve),
			GenerateMs: durationMs(envelope.Timings.Generate),
			TotalMs:    durationMs(envelope.Timings.Total),
		},
		CacheHit:  envelope.CacheHit,
		RequestID: requestID,
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
