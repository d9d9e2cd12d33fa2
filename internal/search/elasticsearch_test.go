package search

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"example.com/backstage/dashboard/config"
	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/simday"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T, handler http.HandlerFunc) *EventIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	idx, err := NewEventIndex(config.ElasticConfig{URL: srv.URL, Prefix: "dashboard", Index: "simulation-events", Enabled: true})
	require.NoError(t, err)
	return idx
}

func TestDisabledIndexIsNil(t *testing.T) {
	idx, err := NewEventIndex(config.ElasticConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, idx)
}

func TestIndexEventsWritesBulkBody(t *testing.T) {
	var lines []string
	var path string
	idx := newIndex(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		_, _ = w.Write([]byte(`{"took":1,"errors":false,"items":[]}`))
	})

	id := 7
	day := simday.StampOf(simday.MustParse("2024-05-11"))
	err := idx.IndexEvents(context.Background(), []models.ProductionEvent{
		{ID: &id, Type: "production", SimDate: day, Detail: "5 x P3"},
		{Type: "purchase", SimDate: day, Detail: "30 x acero"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/dashboard-simulation-events/_bulk", path)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_id":"7"`)
	assert.Contains(t, lines[2], `"_id":"2024-05-11-0"`)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &doc))
	assert.Equal(t, "2024-05-11", doc["day"])
	assert.Equal(t, "30 x acero", doc["detail"])
}

func TestUndatedEventsStayUndated(t *testing.T) {
	var lines []string
	idx := newIndex(t, func(w http.ResponseWriter, r *http.Request) {
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		_, _ = w.Write([]byte(`{"took":1,"errors":false,"items":[]}`))
	})

	undated := models.ProductionEvent{Type: "note", Detail: "sin fecha"}
	require.NoError(t, idx.IndexEvents(context.Background(), []models.ProductionEvent{undated}))

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"_id":"undated-0"`)
	assert.NotContains(t, lines[1], "sim_date")
	assert.NotContains(t, lines[1], "0001-01-01")

	// the stored document reads back as an event without a day
	var decoded models.ProductionEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.True(t, decoded.SimDate.IsZero())
	assert.True(t, decoded.Day().IsZero())
	assert.Empty(t, decoded.FormattedDate())
}

func TestIndexEventsReportsRejections(t *testing.T) {
	idx := newIndex(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"took":1,"errors":true,"items":[]}`))
	})

	err := idx.IndexEvents(context.Background(), []models.ProductionEvent{{Type: "production"}})
	assert.Error(t, err)
}

func TestIndexNothingSkipsRequest(t *testing.T) {
	called := false
	idx := newIndex(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	require.NoError(t, idx.IndexEvents(context.Background(), nil))
	assert.False(t, called)
}

func TestSearchEventsDecodesHits(t *testing.T) {
	var query string
	idx := newIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/_search"))
		buf := new(strings.Builder)
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			buf.WriteString(scanner.Text())
		}
		query = buf.String()
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"id":7,"type":"production","day":"2024-05-11","sim_date":"2024-05-11T00:00:00","detail":"5 x P3"}},
			{"_source":{"type":"purchase","day":"2024-05-12","sim_date":"2024-05-12T08:00:00","detail":"P3 parts"}}
		]}}`))
	})

	events, err := idx.SearchEvents(context.Background(), "P3")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Contains(t, query, `"multi_match"`)
	assert.Contains(t, query, `"P3"`)
	assert.Equal(t, 7, *events[0].ID)
	assert.Equal(t, "12/05/2024", events[1].FormattedDate())
}

func TestSearchEventsServerError(t *testing.T) {
	idx := newIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	_, err := idx.SearchEvents(context.Background(), "x")
	assert.Error(t, err)
}
