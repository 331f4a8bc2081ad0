package persister

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfq-pipeline/internal/common/config"
	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/models"
)

func newTestPersister(t *testing.T) (*Persister, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p := New(db, config.PersistenceConfig{MaxRetries: 2, RetryDelay: 500}, logger.NewNoOpLogger())
	p.sleep = func(time.Duration) {} // no real waiting in tests
	return p, mock
}

func sampleResults() []models.MatchResult {
	return []models.MatchResult{
		{RFQID: "rfq-1", SupplierID: "sup-1", Score: 72.5, Rank: 1, Factors: []models.MatchFactor{
			{Name: "tag_overlap", Weight: 0.35, Value: 0.5},
		}},
		{RFQID: "rfq-1", SupplierID: "sup-2", Score: 41.0, Rank: 2},
	}
}

func expectUpsertTx(mock sqlmock.Sqlmock, results []models.MatchResult) {
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO match_results`)
	for _, r := range results {
		prep.ExpectExec().
			WithArgs(r.RFQID, r.SupplierID, r.Score, sqlmock.AnyArg(), r.Rank).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
}

func TestPersist_CommitsAllMatches(t *testing.T) {
	p, mock := newTestPersister(t)
	results := sampleResults()

	expectUpsertTx(mock, results)

	n, err := p.Persist(context.Background(), "rfq-1", results)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_ZeroResultsNoTransaction(t *testing.T) {
	p, mock := newTestPersister(t)

	n, err := p.Persist(context.Background(), "rfq-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_RetriesThenFails(t *testing.T) {
	p, mock := newTestPersister(t)
	results := sampleResults()

	// three attempts: first + two retries, all roll back
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(`INSERT INTO match_results`)
		prep.ExpectExec().
			WithArgs(results[0].RFQID, results[0].SupplierID, results[0].Score, sqlmock.AnyArg(), results[0].Rank).
			WillReturnError(fmt.Errorf("connection reset"))
		mock.ExpectRollback()
	}

	var slept int
	p.sleep = func(time.Duration) { slept++ }

	n, err := p.Persist(context.Background(), "rfq-1", results)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, errors.IsCode(err, errors.ErrCodePersistenceFailed))
	assert.Equal(t, 2, slept)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_RecoverOnSecondAttempt(t *testing.T) {
	p, mock := newTestPersister(t)
	results := sampleResults()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO match_results`)
	prep.ExpectExec().
		WithArgs(results[0].RFQID, results[0].SupplierID, results[0].Score, sqlmock.AnyArg(), results[0].Rank).
		WillReturnError(fmt.Errorf("deadlock detected"))
	mock.ExpectRollback()

	expectUpsertTx(mock, results)

	n, err := p.Persist(context.Background(), "rfq-1", results)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_ReplayIsIdempotentUpsert(t *testing.T) {
	p, mock := newTestPersister(t)
	results := sampleResults()

	// same statement shape both times; ON CONFLICT makes the second run a
	// no-op state-wise
	expectUpsertTx(mock, results)
	expectUpsertTx(mock, results)

	_, err := p.Persist(context.Background(), "rfq-1", results)
	require.NoError(t, err)
	_, err = p.Persist(context.Background(), "rfq-1", results)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMatches_ReturnsRankOrder(t *testing.T) {
	p, mock := newTestPersister(t)

	mock.ExpectQuery(`SELECT rfq_id, supplier_id, score, factors, rank\s+FROM match_results WHERE rfq_id = \$1 ORDER BY rank`).
		WithArgs("rfq-1").
		WillReturnRows(sqlmock.NewRows([]string{"rfq_id", "supplier_id", "score", "factors", "rank"}).
			AddRow("rfq-1", "sup-1", 72.5, []byte(`[{"name":"tag_overlap","weight":0.35,"value":0.5}]`), 1).
			AddRow("rfq-1", "sup-2", 41.0, []byte(`[]`), 2))

	matches, err := p.ListMatches(context.Background(), "rfq-1")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "sup-1", matches[0].SupplierID)
	assert.Equal(t, 1, matches[0].Rank)
	require.Len(t, matches[0].Factors, 1)
	assert.Equal(t, "tag_overlap", matches[0].Factors[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
