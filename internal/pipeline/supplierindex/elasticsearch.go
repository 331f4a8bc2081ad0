package supplierindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/models"
)

// ElasticIndex reads candidates from an Elasticsearch index. Intended for
// large catalogs where array-containment scans on Postgres get slow.
type ElasticIndex struct {
	client       *elasticsearch.Client
	indexName    string
	pageSize     int
	queryTimeout time.Duration
	logger       logger.Logger
}

func NewElasticIndex(client *elasticsearch.Client, indexName string, pageSize int, queryTimeout time.Duration, log logger.Logger) *ElasticIndex {
	if pageSize <= 0 {
		pageSize = 200
	}
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Minute
	}
	return &ElasticIndex{
		client:       client,
		indexName:    indexName,
		pageSize:     pageSize,
		queryTimeout: queryTimeout,
		logger:       log,
	}
}

func (e *ElasticIndex) Candidates(ctx context.Context, category string, filters Filters) (Iterator, error) {
	// same contract as the Postgres driver: no category, no candidates
	if strings.TrimSpace(category) == "" {
		return emptyIterator{}, nil
	}
	return &esIterator{
		index: e,
		query: buildCandidateQuery(strings.ToLower(category), filters),
	}, nil
}

// buildCandidateQuery assembles the bool filter query for one RFQ category.
func buildCandidateQuery(category string, filters Filters) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"categories": category},
		},
	}

	if filters.Region != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"location.region": strings.ToLower(filters.Region)},
		})
	}
	if filters.Country != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"location.country": strings.ToLower(filters.Country)},
		})
	}
	if filters.Verified != nil {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"verified": *filters.Verified},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
	}
}

type esIterator struct {
	index *ElasticIndex
	query map[string]interface{}

	page []models.SupplierProfile
	pos  int
	from int
	done bool
}

func (it *esIterator) Next(ctx context.Context) (models.SupplierProfile, bool, error) {
	for {
		if it.pos < len(it.page) {
			p := it.page[it.pos]
			it.pos++
			return p, true, nil
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

func (it *esIterator) Close() error { return nil }

func (it *esIterator) fetchPage(ctx context.Context) error {
	body, _ := json.Marshal(it.query)

	size := it.index.pageSize
	from := it.from
	req := esapi.SearchRequest{
		Index: []string{it.index.indexName},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &size,
	}

	queryCtx, cancel := context.WithTimeout(ctx, it.index.queryTimeout)
	defer cancel()

	res, err := req.Do(queryCtx, it.index.client)
	if err != nil {
		return errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchQueryFailedError(fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.SupplierProfile `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return errors.NewSearchQueryFailedError(fmt.Errorf("decode search response: %w", err))
	}

	it.page = it.page[:0]
	it.pos = 0
	for _, hit := range parsed.Hits.Hits {
		it.page = append(it.page, hit.Source)
	}

	it.from += len(parsed.Hits.Hits)
	if len(parsed.Hits.Hits) < it.index.pageSize {
		it.done = true
	}
	return nil
}
