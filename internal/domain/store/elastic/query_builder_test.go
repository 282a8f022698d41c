package elastic

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/store"
)

func TestBuildEventQuery_EmptyFilterMatchesAll(t *testing.T) {
	query := buildEventQuery(store.Filter{})

	body, err := json.Marshal(query)
	require.NoError(t, err)

	expected := `{
		"query": {"match_all": {}},
		"sort": [{"timestamp": {"order": "desc"}}]
	}`
	assert.JSONEq(t, expected, string(body))
}

func TestBuildEventQuery_FiltersBecomeTermClauses(t *testing.T) {
	query := buildEventQuery(store.Filter{
		TraceID:  "trc_01ABC",
		System:   "backend",
		Severity: event.SeverityError,
	})

	body, err := json.Marshal(query)
	require.NoError(t, err)

	expected := `{
		"query": {
			"bool": {
				"filter": [
					{"term": {"traceId": "trc_01ABC"}},
					{"term": {"system": "backend"}},
					{"term": {"severity": "error"}}
				]
			}
		},
		"sort": [{"timestamp": {"order": "desc"}}]
	}`
	assert.JSONEq(t, expected, string(body))
}

func TestBuildEventQuery_TimeRange(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	query := buildEventQuery(store.Filter{Start: start, End: end})

	body, err := json.Marshal(query)
	require.NoError(t, err)

	expected := `{
		"query": {
			"bool": {
				"filter": [
					{"range": {"timestamp": {
						"gte": "2024-03-01T10:00:00Z",
						"lte": "2024-03-01T12:00:00Z"
					}}}
				]
			}
		},
		"sort": [{"timestamp": {"order": "desc"}}]
	}`
	assert.JSONEq(t, expected, string(body))
}

func TestBuildEventQuery_OpenEndedRange(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	query := buildEventQuery(store.Filter{Start: start})

	body, err := json.Marshal(query)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"gte":"2024-03-01T10:00:00Z"`)
	assert.NotContains(t, string(body), `"lte"`)
}

func TestBuildDeleteQuery_NoSortClause(t *testing.T) {
	// _delete_by_query rejects a sort in the body
	query := buildDeleteQuery(store.Filter{TraceID: "trc_01ABC"})

	body, err := json.Marshal(query)
	require.NoError(t, err)

	expected := `{
		"query": {
			"bool": {
				"filter": [
					{"term": {"traceId": "trc_01ABC"}}
				]
			}
		}
	}`
	assert.JSONEq(t, expected, string(body))
}

func TestBuildDeleteQuery_EmptyFilterWipesAll(t *testing.T) {
	query := buildDeleteQuery(store.Filter{})

	body, err := json.Marshal(query)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query": {"match_all": {}}}`, string(body))
}

func TestBuildSummaryQuery_Shape(t *testing.T) {
	query := buildSummaryQuery(25)

	body, err := json.Marshal(query)
	require.NoError(t, err)

	expected := `{
		"size": 0,
		"aggs": {
			"traces": {
				"terms": {
					"field": "traceId",
					"size": 25,
					"order": {"latest_ts": "desc"}
				},
				"aggs": {
					"latest_ts": {"max": {"field": "timestamp"}},
					"latest": {
						"top_hits": {
							"size": 1,
							"sort": [{"timestamp": {"order": "desc"}}]
						}
					}
				}
			}
		}
	}`
	assert.JSONEq(t, expected, string(body))
}
