package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"example.com/backstage/dashboard/config"
	"example.com/backstage/dashboard/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultSearchSize = 100

// EventIndex mirrors the simulation log into Elasticsearch for text search
type EventIndex struct {
	client *elasticsearch.Client
	index  string
}

type eventDoc struct {
	ID      *int   `json:"id,omitempty"`
	Type    string `json:"type"`
	Day     string `json:"day,omitempty"`
	SimDate string `json:"sim_date,omitempty"`
	Detail  string `json:"detail"`
}

// NewEventIndex creates the index client, or returns nil when search is disabled
func NewEventIndex(cfg config.ElasticConfig) (*EventIndex, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &EventIndex{client: client, index: config.FormatIndex(cfg)}, nil
}

// IndexEvents upserts events in one bulk request. Events without an id are
// keyed by their day and position so reindexing the same history is idempotent.
func (e *EventIndex) IndexEvents(ctx context.Context, events []models.ProductionEvent) error {
	if len(events) == 0 {
		return nil
	}

	var body bytes.Buffer
	perDay := map[string]int{}
	for _, event := range events {
		doc := eventDoc{
			ID:     event.ID,
			Type:   event.Type,
			Day:    event.Day().ISO(),
			Detail: event.Detail,
		}
		// undated events carry no date fields so they decode back as undated
		if !event.SimDate.IsZero() {
			doc.SimDate = event.SimDate.Format("2006-01-02T15:04:05")
		}

		docID := ""
		if event.ID != nil {
			docID = strconv.Itoa(*event.ID)
		} else {
			dayKey := doc.Day
			if dayKey == "" {
				dayKey = "undated"
			}
			docID = fmt.Sprintf("%s-%d", dayKey, perDay[dayKey])
			perDay[dayKey]++
		}

		meta, _ := json.Marshal(map[string]interface{}{"index": map[string]string{"_index": e.index, "_id": docID}})
		data, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, "failed to marshal event document")
		}
		body.Write(meta)
		body.WriteByte('\n')
		body.Write(data)
		body.WriteByte('\n')
	}

	req := esapi.BulkRequest{
		Index: e.index,
		Body:  &body,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch bulk request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("Elasticsearch bulk error: %s", res.Status())
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "failed to parse Elasticsearch bulk response")
	}
	if result.Errors {
		return errors.New("Elasticsearch rejected some events")
	}

	log.Debug().Int("events", len(events)).Str("index", e.index).Msg("events indexed")
	return nil
}

// SearchEvents returns events whose type or detail match text, oldest first
func (e *EventIndex) SearchEvents(ctx context.Context, text string) ([]models.ProductionEvent, error) {
	query := map[string]interface{}{
		"size": defaultSearchSize,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"detail", "type"},
			},
		},
		"sort": []interface{}{
			map[string]string{"sim_date": "asc"},
		},
	}
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(queryJSON),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.Errorf("Elasticsearch search error: %s", res.Status())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	events := make([]models.ProductionEvent, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var event models.ProductionEvent
		if err := json.Unmarshal(hit.Source, &event); err != nil {
			log.Warn().Err(err).Msg("skipping malformed event document")
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
