package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/propdata-cli/internal/config"
	"github.com/sells-group/propdata-cli/internal/gate"
	"github.com/sells-group/propdata-cli/internal/model"
	"github.com/sells-group/propdata-cli/pkg/propstream"
)

type fakeService struct {
	record      *model.PropertyRecord
	suggestions []model.AddressSuggestion
	results     []model.PropertyRecord
	stats       model.UsageStats
	err         error
}

func (f *fakeService) Lookup(ctx context.Context, address string) (*model.PropertyRecord, error) {
	return f.record, f.err
}

func (f *fakeService) Search(ctx context.Context, query string) ([]model.AddressSuggestion, error) {
	return f.suggestions, f.err
}

func (f *fakeService) SearchProperties(ctx context.Context, c propstream.SearchCriteria) ([]model.PropertyRecord, error) {
	return f.results, f.err
}

func (f *fakeService) UsageStats() model.UsageStats {
	return f.stats
}

func serveRequest(t *testing.T, svc propertyService, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := buildRouter(svc, nil, config.ExportConfig{}, []string{"*"})
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealth(t *testing.T) {
	rr := serveRequest(t, &fakeService{}, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouterLookupFound(t *testing.T) {
	svc := &fakeService{record: &model.PropertyRecord{ID: "1863342326"}}
	rr := serveRequest(t, svc, http.MethodGet, "/api/lookup?address=123+Main+St")

	assert.Equal(t, http.StatusOK, rr.Code)

	var body model.PropertyRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "1863342326", body.ID)
}

func TestRouterLookupNotFound(t *testing.T) {
	rr := serveRequest(t, &fakeService{}, http.MethodGet, "/api/lookup?address=nowhere")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "no property found")
}

func TestRouterLookupMissingAddress(t *testing.T) {
	rr := serveRequest(t, &fakeService{}, http.MethodGet, "/api/lookup")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "address is required")
}

func TestRouterLookupQuotaRefusal(t *testing.T) {
	svc := &fakeService{err: &gate.QuotaError{
		Scope:      gate.ScopeHourly,
		Limit:      100,
		RetryAfter: 30 * time.Minute,
	}}
	rr := serveRequest(t, svc, http.MethodGet, "/api/lookup?address=123+Main+St")

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "hourly", body["scope"])
	assert.Equal(t, float64(1800), body["retry_after_seconds"])
}

func TestRouterLookupUpstreamError(t *testing.T) {
	svc := &fakeService{err: &propstream.UpstreamError{StatusCode: 403, Body: "forbidden"}}
	rr := serveRequest(t, svc, http.MethodGet, "/api/lookup?address=123+Main+St")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestRouterSearch(t *testing.T) {
	svc := &fakeService{suggestions: []model.AddressSuggestion{{ID: "100", Label: "123 Main St"}}}
	rr := serveRequest(t, svc, http.MethodGet, "/api/search?q=123+Main")

	assert.Equal(t, http.StatusOK, rr.Code)

	var body []model.AddressSuggestion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "100", body[0].ID)
}

func TestRouterSearchMissingQuery(t *testing.T) {
	rr := serveRequest(t, &fakeService{}, http.MethodGet, "/api/search")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouterStats(t *testing.T) {
	svc := &fakeService{stats: model.UsageStats{SessionRequests: 5, HourlyLimit: 100}}
	rr := serveRequest(t, svc, http.MethodGet, "/api/stats")

	assert.Equal(t, http.StatusOK, rr.Code)

	var body model.UsageStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 5, body.SessionRequests)
	assert.Equal(t, 100, body.HourlyLimit)
}

func TestRouterFind(t *testing.T) {
	svc := &fakeService{results: []model.PropertyRecord{{ID: "1"}, {ID: "2"}}}
	rr := serveRequest(t, svc, http.MethodGet, "/api/find?city=Phoenix&state=AZ&limit=10")

	assert.Equal(t, http.StatusOK, rr.Code)

	var body []model.PropertyRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body, 2)
}
