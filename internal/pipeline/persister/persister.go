// Package persister writes match results transactionally. All matches for a
// run commit together or not at all, and replaying the same run converges on
// the same stored state.
package persister

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"rfq-pipeline/internal/common/config"
	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/models"
)

const upsertMatchQuery = `INSERT INTO match_results (rfq_id, supplier_id, score, factors, rank, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	ON CONFLICT (rfq_id, supplier_id)
	DO UPDATE SET score = EXCLUDED.score, factors = EXCLUDED.factors,
		rank = EXCLUDED.rank, updated_at = NOW()`

type Persister struct {
	db     *sql.DB
	cfg    config.PersistenceConfig
	logger logger.Logger
	sleep  func(time.Duration)
}

func New(db *sql.DB, cfg config.PersistenceConfig, log logger.Logger) *Persister {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500
	}
	return &Persister{
		db:     db,
		cfg:    cfg,
		logger: log,
		sleep:  time.Sleep,
	}
}

// Persist upserts all match results for one RFQ in a single transaction and
// returns the number of rows written. A failed transaction is retried with a
// fixed delay; once the budget is spent the run fails with no rows visible.
func (p *Persister) Persist(ctx context.Context, rfqID string, results []models.MatchResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}

	var lastErr error
	attempts := p.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		n, err := p.persistOnce(ctx, results)
		if err == nil {
			p.logger.Info("matches persisted", map[string]interface{}{
				"rfqId":   rfqID,
				"count":   n,
				"attempt": attempt,
			})
			return n, nil
		}

		lastErr = err
		p.logger.Warn("match persistence attempt failed", map[string]interface{}{
			"rfqId":   rfqID,
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt < attempts {
			p.sleep(config.GetDuration(p.cfg.RetryDelay))
		}
	}

	return 0, errors.NewPersistenceFailedError(lastErr)
}

func (p *Persister) persistOnce(ctx context.Context, results []models.MatchResult) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertMatchQuery)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range results {
		factors, err := json.Marshal(r.Factors)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, r.RFQID, r.SupplierID, r.Score, factors, r.Rank); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(results), nil
}

// ListMatches returns the persisted matches for one RFQ in rank order.
func (p *Persister) ListMatches(ctx context.Context, rfqID string) ([]models.MatchResult, error) {
	const query = `SELECT rfq_id, supplier_id, score, factors, rank
		FROM match_results WHERE rfq_id = $1 ORDER BY rank`

	rows, err := p.db.QueryContext(ctx, query, rfqID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(err)
	}
	defer rows.Close()

	var results []models.MatchResult
	for rows.Next() {
		var (
			r       models.MatchResult
			factors []byte
		)
		if err := rows.Scan(&r.RFQID, &r.SupplierID, &r.Score, &factors, &r.Rank); err != nil {
			return nil, errors.NewQueryExecutionFailedError(err)
		}
		if len(factors) > 0 {
			if err := json.Unmarshal(factors, &r.Factors); err != nil {
				return nil, errors.NewQueryExecutionFailedError(err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(err)
	}
	return results, nil
}
