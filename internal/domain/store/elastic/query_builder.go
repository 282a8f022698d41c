package elastic

import (
	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/store"
)

// buildEventQuery wraps the filter query with the newest-first sort used
// by searches.
func buildEventQuery(f store.Filter) map[string]interface{} {
	return map[string]interface{}{
		"query": buildFilterQuery(f),
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
}

// buildDeleteQuery is the body for _delete_by_query, which rejects a sort
// clause. An empty filter yields match_all for a full wipe.
func buildDeleteQuery(f store.Filter) map[string]interface{} {
	return map[string]interface{}{
		"query": buildFilterQuery(f),
	}
}

// buildFilterQuery translates a Filter into a bool query, match_all when
// the filter is empty.
func buildFilterQuery(f store.Filter) map[string]interface{} {
	var filters []map[string]interface{}

	if f.TraceID != "" {
		filters = append(filters, term("traceId", f.TraceID))
	}
	if f.System != "" {
		filters = append(filters, term("system", f.System))
	}
	if f.Severity != "" {
		filters = append(filters, term("severity", string(f.Severity)))
	}
	if !f.Start.IsZero() || !f.End.IsZero() {
		rangeBounds := map[string]interface{}{}
		if !f.Start.IsZero() {
			rangeBounds["gte"] = f.Start.UTC().Format(event.TimestampLayout)
		}
		if !f.End.IsZero() {
			rangeBounds["lte"] = f.End.UTC().Format(event.TimestampLayout)
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": rangeBounds,
			},
		})
	}

	if len(filters) == 0 {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": filters,
		},
	}
}

// buildSummaryQuery aggregates events per trace id, ordered by each
// trace's most recent event, carrying one top hit for display fields.
func buildSummaryQuery(limit int) map[string]interface{} {
	return map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"traces": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "traceId",
					"size":  limit,
					"order": map[string]interface{}{"latest_ts": "desc"},
				},
				"aggs": map[string]interface{}{
					"latest_ts": map[string]interface{}{
						"max": map[string]interface{}{"field": "timestamp"},
					},
					"latest": map[string]interface{}{
						"top_hits": map[string]interface{}{
							"size": 1,
							"sort": []map[string]interface{}{
								{"timestamp": map[string]interface{}{"order": "desc"}},
							},
						},
					},
				},
			},
		},
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			field: value,
		},
	}
}
