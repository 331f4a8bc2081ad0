package supplierindex

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func profileColumns() []string {
	return []string{
		"id", "name", "categories", "location_region", "location_country",
		"verified", "rating", "response_rate", "spec_tags",
		"email", "email_verified", "phone", "webhook_url",
	}
}

func TestPostgresIndex_StreamsCandidates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	_, cache := newTestRedis(t)

	mock.ExpectQuery(`SELECT id FROM suppliers WHERE \$1 = ANY\(categories\) AND id > \$2 ORDER BY id LIMIT \$3`).
		WithArgs("valves", "", 200).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sup-1").AddRow("sup-2"))

	mock.ExpectQuery(`SELECT id, name, categories, .+ FROM suppliers WHERE id = \$1`).
		WithArgs("sup-1").
		WillReturnRows(sqlmock.NewRows(profileColumns()).AddRow(
			"sup-1", "Acme Valves", pq.Array([]string{"valves"}), "west", "in",
			true, 4.5, 0.9, pq.Array([]string{"dn50"}),
			"sales@acme.test", true, "+911234", "",
		))

	mock.ExpectQuery(`SELECT id, name, categories, .+ FROM suppliers WHERE id = \$1`).
		WithArgs("sup-2").
		WillReturnRows(sqlmock.NewRows(profileColumns()).AddRow(
			"sup-2", "Budget Valves", pq.Array([]string{"valves"}), "north", "in",
			false, nil, 0.4, pq.Array([]string{}),
			"", false, "", "https://hooks.budget.test/rfq",
		))

	idx := NewPostgresIndex(db, cache, 200, time.Minute, 0, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "Valves", Filters{})
	require.NoError(t, err)
	defer it.Close()

	first, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sup-1", first.ID)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 4.5, *first.Rating)

	second, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sup-2", second.ID)
	assert.Nil(t, second.Rating)
	assert.Equal(t, "https://hooks.budget.test/rfq", second.WebhookURL)

	_, ok, err = it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_ProfileCacheHitSkipsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mr, cache := newTestRedis(t)

	cached := models.SupplierProfile{
		ID:           "sup-9",
		Name:         "Cached Supplier",
		Categories:   []string{"valves"},
		Verified:     true,
		ResponseRate: 0.8,
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, mr.Set("supplier:profile:sup-9", string(data)))

	mock.ExpectQuery(`SELECT id FROM suppliers`).
		WithArgs("valves", "", 200).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sup-9"))

	idx := NewPostgresIndex(db, cache, 200, time.Minute, 0, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "valves", Filters{})
	require.NoError(t, err)

	got, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cached, got)

	// No profile query expected: the cache answered.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_CacheMissPopulatesCache(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mr, cache := newTestRedis(t)

	mock.ExpectQuery(`SELECT id FROM suppliers`).
		WithArgs("valves", "", 200).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sup-3"))

	mock.ExpectQuery(`SELECT id, name, categories, .+ FROM suppliers WHERE id = \$1`).
		WithArgs("sup-3").
		WillReturnRows(sqlmock.NewRows(profileColumns()).AddRow(
			"sup-3", "Fresh Supplier", pq.Array([]string{"valves"}), "", "",
			true, 3.0, 0.7, pq.Array([]string{}),
			"", false, "", "",
		))

	idx := NewPostgresIndex(db, cache, 200, time.Minute, 0, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "valves", Filters{})
	require.NoError(t, err)

	_, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, mr.Exists("supplier:profile:sup-3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_CacheOutageFallsThroughToDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	cache, cacheMock := redismock.NewClientMock()
	cacheMock.ExpectGet("supplier:profile:sup-5").SetErr(fmt.Errorf("connection refused"))
	cacheMock.Regexp().ExpectSet("supplier:profile:sup-5", `.*`, time.Minute).
		SetErr(fmt.Errorf("connection refused"))

	mock.ExpectQuery(`SELECT id FROM suppliers`).
		WithArgs("valves", "", 200).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sup-5"))

	mock.ExpectQuery(`SELECT id, name, categories, .+ FROM suppliers WHERE id = \$1`).
		WithArgs("sup-5").
		WillReturnRows(sqlmock.NewRows(profileColumns()).AddRow(
			"sup-5", "Resilient Supplier", pq.Array([]string{"valves"}), "", "",
			true, 4.0, 0.6, pq.Array([]string{}),
			"", false, "", "",
		))

	idx := NewPostgresIndex(db, cache, 200, time.Minute, 0, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "valves", Filters{})
	require.NoError(t, err)

	got, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sup-5", got.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_SkipsMissingProfileRow(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	_, cache := newTestRedis(t)

	mock.ExpectQuery(`SELECT id FROM suppliers`).
		WithArgs("valves", "", 200).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sup-1").AddRow("sup-2"))

	// sup-1 was deleted between the page query and the profile fetch
	mock.ExpectQuery(`SELECT id, name, categories, .+ FROM suppliers WHERE id = \$1`).
		WithArgs("sup-1").
		WillReturnRows(sqlmock.NewRows(profileColumns()))

	mock.ExpectQuery(`SELECT id, name, categories, .+ FROM suppliers WHERE id = \$1`).
		WithArgs("sup-2").
		WillReturnRows(sqlmock.NewRows(profileColumns()).AddRow(
			"sup-2", "Still Here", pq.Array([]string{"valves"}), "", "",
			true, 4.0, 0.8, pq.Array([]string{}),
			"", false, "", "",
		))

	idx := NewPostgresIndex(db, cache, 200, time.Minute, 0, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "valves", Filters{})
	require.NoError(t, err)

	got, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sup-2", got.ID)

	_, ok, err = it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_EmptyCategoryYieldsNoCandidates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	_, cache := newTestRedis(t)
	idx := NewPostgresIndex(db, cache, 200, time.Minute, 0, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "  ", Filters{})
	require.NoError(t, err)
	defer it.Close()

	_, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// no query was issued
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_QueryTimeoutBoundsPageQuery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	_, cache := newTestRedis(t)

	mock.ExpectQuery(`SELECT id FROM suppliers`).
		WithArgs("valves", "", 200).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	idx := NewPostgresIndex(db, cache, 200, time.Minute, 10*time.Millisecond, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "valves", Filters{})
	require.NoError(t, err)

	_, _, err = it.Next(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryExecutionFailed))
}

func TestPostgresIndex_FilterArguments(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	_, cache := newTestRedis(t)

	verified := true
	mock.ExpectQuery(`SELECT id FROM suppliers WHERE \$1 = ANY\(categories\) AND LOWER\(location_region\) = \$2 AND LOWER\(location_country\) = \$3 AND verified = \$4 AND id > \$5 ORDER BY id LIMIT \$6`).
		WithArgs("valves", "west", "in", true, "", 50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	idx := NewPostgresIndex(db, cache, 50, time.Minute, 0, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "valves", Filters{
		Region:   "West",
		Country:  "IN",
		Verified: &verified,
	})
	require.NoError(t, err)

	_, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryIndex_FiltersAndOrders(t *testing.T) {
	idx := NewMemoryIndex(
		models.SupplierProfile{ID: "b", Categories: []string{"valves"}, Location: models.Location{Region: "west"}},
		models.SupplierProfile{ID: "a", Categories: []string{"valves"}, Location: models.Location{Region: "west"}},
		models.SupplierProfile{ID: "c", Categories: []string{"pumps"}},
		models.SupplierProfile{ID: "d", Categories: []string{"valves"}, Location: models.Location{Region: "east"}},
	)

	it, err := idx.Candidates(context.Background(), "valves", Filters{Region: "west"})
	require.NoError(t, err)

	var ids []string
	for {
		p, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, p.ID)
	}

	assert.Equal(t, []string{"a", "b"}, ids)
}
