package supplierindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfq-pipeline/internal/common/logger"
)

func TestElasticIndex_EmptyCategoryYieldsNoCandidates(t *testing.T) {
	// nil client: an empty category must short-circuit before any search
	idx := NewElasticIndex(nil, "suppliers", 10, 0, logger.NewNoOpLogger())

	it, err := idx.Candidates(context.Background(), "", Filters{})
	require.NoError(t, err)
	defer it.Close()

	_, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildCandidateQuery(t *testing.T) {
	verified := true
	q := buildCandidateQuery("valves", Filters{Region: "West", Verified: &verified})

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	clauses := boolQuery["filter"].([]interface{})
	require.Len(t, clauses, 3)

	assert.Equal(t, map[string]interface{}{
		"term": map[string]interface{}{"categories": "valves"},
	}, clauses[0])
	assert.Equal(t, map[string]interface{}{
		"term": map[string]interface{}{"location.region": "west"},
	}, clauses[1])
	assert.Equal(t, map[string]interface{}{
		"term": map[string]interface{}{"verified": true},
	}, clauses[2])
}
