// Package httpapi exposes the RFQ submission boundary over HTTP. It owns
// transport concerns only; pipeline semantics live in the pipeline packages.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"

	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/models"
	"rfq-pipeline/internal/pipeline/orchestrator"
)

// RFQPipeline runs the matching pipeline for one submission.
type RFQPipeline interface {
	Run(ctx context.Context, rfq models.RFQRequest) orchestrator.Summary
}

// MatchLister reads persisted matches for one RFQ.
type MatchLister interface {
	ListMatches(ctx context.Context, rfqID string) ([]models.MatchResult, error)
}

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	pipeline RFQPipeline
	matches  MatchLister
	pingers  map[string]Pinger
	logger   logger.Logger
	router   chi.Router
}

func NewServer(pipeline RFQPipeline, matches MatchLister, pingers map[string]Pinger, log logger.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		matches:  matches,
		pingers:  pingers,
		logger:   log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/rfqs", s.handleSubmitRFQ)
		r.Get("/rfqs/{rfqID}/matches", s.handleListMatches)
	})
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type submitRFQRequest struct {
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Quantity    string          `json:"quantity"`
	Budget      string          `json:"budget"`
	Deadline    *time.Time      `json:"deadline"`
	Urgency     string          `json:"urgency"`
	SpecTags    []string        `json:"specTags"`
	Location    models.Location `json:"location"`
}

func (s *Server) handleSubmitRFQ(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.NewInvalidPayloadError("body is not valid JSON"))
		return
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(rfqSchema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.NewInvalidPayloadError(err.Error()))
		return
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		s.writeError(w, http.StatusBadRequest, errors.NewInvalidPayloadError(strings.Join(details, "; ")))
		return
	}

	// buyers send quantity/budget as text or bare numbers; normalize to
	// text before the typed decode, the extractor parses either
	for _, k := range []string{"quantity", "budget"} {
		if v, ok := raw[k]; ok {
			if _, isStr := v.(string); !isStr {
				raw[k] = fmt.Sprint(v)
			}
		}
	}

	// re-decode into the typed request now that the shape is known good
	var req submitRFQRequest
	data, _ := json.Marshal(raw)
	if err := json.Unmarshal(data, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.NewInvalidPayloadError(err.Error()))
		return
	}

	rfq := models.RFQRequest{
		ID:          uuid.NewString(),
		Category:    req.Category,
		Description: req.Description,
		Quantity:    req.Quantity,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
		Urgency:     models.Urgency(req.Urgency),
		SpecTags:    req.SpecTags,
		Location:    req.Location,
		CreatedAt:   time.Now().UTC(),
	}

	summary := s.pipeline.Run(r.Context(), rfq)
	s.writeJSON(w, statusForSummary(summary), summary)
}

// statusForSummary maps a terminal pipeline state onto an HTTP status.
func statusForSummary(summary orchestrator.Summary) int {
	if summary.FinalState == orchestrator.StateCompleted {
		return http.StatusCreated
	}
	switch summary.FailedStage {
	case orchestrator.StateExtracting:
		return http.StatusUnprocessableEntity
	case orchestrator.StatePersisting:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	rfqID := chi.URLParam(r, "rfqID")

	matches, err := s.matches.ListMatches(r.Context(), rfqID)
	if err != nil {
		s.logger.WithError(err).Error("list matches failed", map[string]interface{}{
			"rfqId": rfqID,
		})
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if matches == nil {
		matches = []models.MatchResult{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rfqId":   rfqID,
		"matches": matches,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.pingers))
	for name, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": checks,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("write response failed", nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]interface{}{"error": err.Error()}
	var stdErr *errors.StandardError
	if e, ok := err.(*errors.StandardError); ok {
		stdErr = e
	}
	if stdErr != nil {
		body = map[string]interface{}{
			"code":    stdErr.Code,
			"message": stdErr.Message,
			"details": stdErr.Details,
		}
	}
	s.writeJSON(w, status, body)
}
