// Package orchestrator sequences one RFQ submission through extraction,
// candidate lookup, scoring, persistence and notification. The state machine
// is in-process and single-flight per RFQ: no broker, no shared mutable
// state between runs.
package orchestrator

import (
	"context"
	"time"

	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/common/metrics"
	"rfq-pipeline/internal/models"
	"rfq-pipeline/internal/pipeline/extractor"
	"rfq-pipeline/internal/pipeline/scorer"
	"rfq-pipeline/internal/pipeline/supplierindex"
)

// State is a pipeline stage. Runs move strictly forward; Failed is terminal
// and reachable from any stage.
type State string

const (
	StateReceived   State = "Received"
	StateExtracting State = "Extracting"
	StateScoring    State = "Scoring"
	StatePersisting State = "Persisting"
	StateNotifying  State = "Notifying"
	StateCompleted  State = "Completed"
	StateFailed     State = "Failed"
)

// Summary is the terminal report of one pipeline run.
type Summary struct {
	RFQID                   string `json:"rfqId"`
	MatchCount              int    `json:"matchCount"`
	NotifiedCount           int    `json:"notifiedCount"`
	FailedNotificationCount int    `json:"failedNotificationCount"`
	FinalState              State  `json:"finalState"`
	FailedStage             State  `json:"failedStage,omitempty"`
	Error                   string `json:"error,omitempty"`
}

// MatchPersister is the persistence contract the orchestrator depends on.
type MatchPersister interface {
	Persist(ctx context.Context, rfqID string, results []models.MatchResult) (int, error)
}

// Notifier delivers one match notification.
type Notifier interface {
	Notify(ctx context.Context, rfq models.RFQRequest, match models.MatchResult, supplier models.SupplierProfile) (models.NotificationRecord, error)
}

type Orchestrator struct {
	index     supplierindex.Index
	scorer    *scorer.Scorer
	persister MatchPersister
	notifier  Notifier
	logger    logger.Logger
}

func New(index supplierindex.Index, sc *scorer.Scorer, persister MatchPersister, notifier Notifier, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		index:     index,
		scorer:    sc,
		persister: persister,
		notifier:  notifier,
		logger:    log,
	}
}

// Run executes the full pipeline for one RFQ and always returns a terminal
// summary. Extraction and persistence failures abort the run; notification
// failures only show up in the counts.
func (o *Orchestrator) Run(ctx context.Context, rfq models.RFQRequest) Summary {
	started := time.Now()
	log := o.logger.WithFields(map[string]interface{}{"rfqId": rfq.ID})
	log.Info("pipeline run started", nil)

	summary := Summary{RFQID: rfq.ID, FinalState: StateReceived}

	// Extracting
	features, err := runStage(StateExtracting, func() (models.FeatureVector, error) {
		return extractor.Extract(rfq)
	})
	if err != nil {
		return o.fail(log, summary, StateExtracting, err, started)
	}

	// Scoring
	matches, err := runStage(StateScoring, func() ([]scorer.RankedMatch, error) {
		it, err := o.index.Candidates(ctx, features.Category, supplierindex.Filters{})
		if err != nil {
			return nil, err
		}
		defer it.Close()
		return o.scorer.ScoreCandidates(ctx, rfq.ID, features, it)
	})
	if err != nil {
		return o.fail(log, summary, StateScoring, err, started)
	}
	summary.MatchCount = len(matches)

	// Persisting runs even with zero matches so every run converges on a
	// consistent stored state.
	_, err = runStage(StatePersisting, func() (int, error) {
		results := make([]models.MatchResult, len(matches))
		for i, m := range matches {
			results[i] = m.MatchResult
		}
		return o.persister.Persist(ctx, rfq.ID, results)
	})
	if err != nil {
		return o.fail(log, summary, StatePersisting, err, started)
	}

	// Notifying
	notifyStart := time.Now()
	for _, m := range matches {
		if ctx.Err() != nil {
			log.Warn("run canceled, skipping remaining notifications", map[string]interface{}{
				"remaining": summary.MatchCount - summary.NotifiedCount - summary.FailedNotificationCount,
			})
			summary.FailedNotificationCount = summary.MatchCount - summary.NotifiedCount
			break
		}

		rec, err := o.notifier.Notify(ctx, rfq, m.MatchResult, m.Supplier)
		if err != nil {
			log.Error("notification record write failed", map[string]interface{}{
				"supplierId": m.SupplierID,
				"error":      err.Error(),
			})
		}
		if rec.Status == models.NotificationSent {
			summary.NotifiedCount++
		} else {
			summary.FailedNotificationCount++
		}
	}
	metrics.PipelineStageDuration.WithLabelValues(string(StateNotifying)).
		Observe(time.Since(notifyStart).Seconds())

	summary.FinalState = StateCompleted
	metrics.PipelineRunsTotal.WithLabelValues(string(StateCompleted)).Inc()
	metrics.MatchesScored.Observe(float64(summary.MatchCount))
	log.Info("pipeline run completed", map[string]interface{}{
		"matchCount":    summary.MatchCount,
		"notifiedCount": summary.NotifiedCount,
		"failedCount":   summary.FailedNotificationCount,
		"durationMs":    time.Since(started).Milliseconds(),
	})
	return summary
}

// runStage times a stage and records its duration metric.
func runStage[T any](state State, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	metrics.PipelineStageDuration.WithLabelValues(string(state)).
		Observe(time.Since(start).Seconds())
	return out, err
}

func (o *Orchestrator) fail(log logger.Logger, summary Summary, stage State, err error, started time.Time) Summary {
	summary.FinalState = StateFailed
	summary.FailedStage = stage
	if code := errors.CodeOf(err); code != "" {
		summary.Error = string(code)
	} else {
		summary.Error = err.Error()
	}

	metrics.PipelineRunsTotal.WithLabelValues(string(StateFailed)).Inc()
	log.WithError(err).Error("pipeline run failed", map[string]interface{}{
		"stage":      stage,
		"durationMs": time.Since(started).Milliseconds(),
	})
	return summary
}
