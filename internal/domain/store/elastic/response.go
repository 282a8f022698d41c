package elastic

import "github.com/devpulse/devpulse/internal/domain/event"

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source event.Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type summaryResponse struct {
	Aggregations struct {
		Traces struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int    `json:"doc_count"`
				Latest   struct {
					Hits struct {
						Hits []struct {
							Source event.Record `json:"_source"`
						} `json:"hits"`
					} `json:"hits"`
				} `json:"latest"`
			} `json:"buckets"`
		} `json:"traces"`
	} `json:"aggregations"`
}

type deleteResponse struct {
	Deleted int64 `json:"deleted"`
}
