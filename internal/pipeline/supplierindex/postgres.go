package supplierindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/models"
)

const profileCacheKeyPrefix = "supplier:profile:"

// PostgresIndex reads candidates from the suppliers table. It pages supplier
// ids with keyset pagination and resolves full profiles through a Redis
// read-through cache, so repeated runs against a hot category skip the
// profile rows entirely.
type PostgresIndex struct {
	db           *sql.DB
	cache        redis.Cmdable
	pageSize     int
	cacheTTL     time.Duration
	queryTimeout time.Duration
	logger       logger.Logger
}

func NewPostgresIndex(db *sql.DB, cache redis.Cmdable, pageSize int, cacheTTL, queryTimeout time.Duration, log logger.Logger) *PostgresIndex {
	if pageSize <= 0 {
		pageSize = 200
	}
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Minute
	}
	return &PostgresIndex{
		db:           db,
		cache:        cache,
		pageSize:     pageSize,
		cacheTTL:     cacheTTL,
		queryTimeout: queryTimeout,
		logger:       log,
	}
}

func (p *PostgresIndex) Candidates(ctx context.Context, category string, filters Filters) (Iterator, error) {
	// a description-only RFQ has no category to search on; it is a valid
	// submission that simply matches nobody
	if strings.TrimSpace(category) == "" {
		return emptyIterator{}, nil
	}
	return &pgIterator{
		index:    p,
		category: strings.ToLower(category),
		filters:  filters,
	}, nil
}

// pgIterator walks supplier ids in ascending order, one page at a time.
type pgIterator struct {
	index    *PostgresIndex
	category string
	filters  Filters

	page   []string
	pos    int
	lastID string
	done   bool
}

func (it *pgIterator) Next(ctx context.Context) (models.SupplierProfile, bool, error) {
	for {
		if it.pos < len(it.page) {
			id := it.page[it.pos]
			it.pos++
			it.lastID = id

			profile, err := it.index.getProfile(ctx, id)
			if errors.IsCode(err, errors.ErrCodeCandidateDataInvalid) {
				// the supplier row vanished between paging and the
				// profile fetch; skip it, the run keeps going
				it.index.logger.Warn("skipping candidate with missing profile", map[string]interface{}{
					"supplierId": id,
				})
				continue
			}
			if err != nil {
				return models.SupplierProfile{}, false, err
			}
			return profile, true, nil
		}

		if it.done {
			return models.SupplierProfile{}, false, nil
		}
		if err := it.fetchPage(ctx); err != nil {
			return models.SupplierProfile{}, false, err
		}
		if len(it.page) == 0 {
			it.done = true
		}
	}
}

func (it *pgIterator) Close() error { return nil }

func (it *pgIterator) fetchPage(ctx context.Context) error {
	query := `SELECT id FROM suppliers WHERE $1 = ANY(categories)`
	args := []interface{}{it.category}

	if it.filters.Region != "" {
		args = append(args, strings.ToLower(it.filters.Region))
		query += fmt.Sprintf(" AND LOWER(location_region) = $%d", len(args))
	}
	if it.filters.Country != "" {
		args = append(args, strings.ToLower(it.filters.Country))
		query += fmt.Sprintf(" AND LOWER(location_country) = $%d", len(args))
	}
	if it.filters.Verified != nil {
		args = append(args, *it.filters.Verified)
		query += fmt.Sprintf(" AND verified = $%d", len(args))
	}

	args = append(args, it.lastID)
	query += fmt.Sprintf(" AND id > $%d", len(args))
	args = append(args, it.index.pageSize)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))

	queryCtx, cancel := context.WithTimeout(ctx, it.index.queryTimeout)
	defer cancel()

	rows, err := it.index.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return errors.NewQueryExecutionFailedError(err)
	}
	defer rows.Close()

	it.page = it.page[:0]
	it.pos = 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return errors.NewQueryExecutionFailedError(err)
		}
		it.page = append(it.page, id)
	}
	if err := rows.Err(); err != nil {
		return errors.NewQueryExecutionFailedError(err)
	}

	if len(it.page) < it.index.pageSize {
		it.done = true
	}
	return nil
}

// getProfile resolves a supplier profile, cache first. Cache errors are
// logged and fall through to Postgres.
func (p *PostgresIndex) getProfile(ctx context.Context, id string) (models.SupplierProfile, error) {
	cacheKey := profileCacheKeyPrefix + id

	if p.cache != nil {
		cached, err := p.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var profile models.SupplierProfile
			if jsonErr := json.Unmarshal([]byte(cached), &profile); jsonErr == nil {
				return profile, nil
			}
			p.logger.Warn("corrupt cached supplier profile, refetching", map[string]interface{}{
				"supplierId": id,
			})
		} else if err != redis.Nil {
			p.logger.Warn("supplier profile cache read failed", map[string]interface{}{
				"supplierId": id,
				"error":      err.Error(),
			})
		}
	}

	profile, err := p.queryProfile(ctx, id)
	if err != nil {
		return models.SupplierProfile{}, err
	}

	if p.cache != nil {
		if data, jsonErr := json.Marshal(profile); jsonErr == nil {
			if setErr := p.cache.Set(ctx, cacheKey, data, p.cacheTTL).Err(); setErr != nil {
				p.logger.Warn("supplier profile cache write failed", map[string]interface{}{
					"supplierId": id,
					"error":      setErr.Error(),
				})
			}
		}
	}

	return profile, nil
}

func (p *PostgresIndex) queryProfile(ctx context.Context, id string) (models.SupplierProfile, error) {
	const query = `SELECT id, name, categories, location_region, location_country,
		verified, rating, response_rate, spec_tags,
		email, email_verified, phone, webhook_url
		FROM suppliers WHERE id = $1`

	var (
		profile       models.SupplierProfile
		rating        sql.NullFloat64
		name          sql.NullString
		email         sql.NullString
		emailVerified sql.NullBool
		phone         sql.NullString
		webhookURL    sql.NullString
	)

	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&name,
		pq.Array(&profile.Categories),
		&profile.Location.Region,
		&profile.Location.Country,
		&profile.Verified,
		&rating,
		&profile.ResponseRate,
		pq.Array(&profile.SpecTags),
		&email,
		&emailVerified,
		&phone,
		&webhookURL,
	)
	if err == sql.ErrNoRows {
		return models.SupplierProfile{}, errors.NewCandidateDataError(id, "supplier row missing")
	}
	if err != nil {
		return models.SupplierProfile{}, errors.NewQueryExecutionFailedError(err)
	}

	profile.Name = name.String
	profile.Email = email.String
	profile.EmailVerified = emailVerified.Bool
	profile.Phone = phone.String
	profile.WebhookURL = webhookURL.String
	if rating.Valid {
		r := rating.Float64
		profile.Rating = &r
	}

	return profile, nil
}
