package propdata

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/propdata-cli/internal/gate"
	"github.com/sells-group/propdata-cli/internal/ledger"
	"github.com/sells-group/propdata-cli/pkg/propstream"
)

// fakeClient scripts upstream responses and counts calls.
type fakeClient struct {
	suggestions     json.RawMessage
	suggestionsErr  error
	property        json.RawMessage
	propertyErr     error
	search          json.RawMessage
	connectionOK    bool
	suggestionCalls int
	propertyCalls   int
	searchCalls     int
}

func (f *fakeClient) Suggestions(context.Context, string) (json.RawMessage, error) {
	f.suggestionCalls++
	return f.suggestions, f.suggestionsErr
}

func (f *fakeClient) PropertyByID(context.Context, string, propstream.PropertyQuery) (json.RawMessage, error) {
	f.propertyCalls++
	return f.property, f.propertyErr
}

func (f *fakeClient) SearchProperties(context.Context, propstream.SearchCriteria) (json.RawMessage, error) {
	f.searchCalls++
	return f.search, nil
}

func (f *fakeClient) TestConnection(context.Context) bool {
	return f.connectionOK
}

func testService(t *testing.T, client *fakeClient) *Service {
	t.Helper()
	led := ledger.New(filepath.Join(t.TempDir(), "requests.log"))
	g := gate.New(led, gate.Config{
		MinDelay:    time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		HourlyLimit: 100,
		DailyLimit:  500,
	},
		gate.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	return New(client, g)
}

func TestLookup_Found(t *testing.T) {
	client := &fakeClient{
		suggestions: json.RawMessage(`[{"id":"321","label":"9 Elm St, Tulsa, OK"}]`),
		property:    json.RawMessage(`{"properties":[{"id":"321","apn":"9-9-9","bedrooms":4}]}`),
	}
	svc := testService(t, client)

	rec, err := svc.Lookup(context.Background(), "9 Elm St")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "321", rec.ID)
	assert.Equal(t, "9-9-9", rec.APN)
	require.NotNil(t, rec.Details.Bedrooms)
	assert.Equal(t, 4, *rec.Details.Bedrooms)

	assert.Equal(t, 1, client.suggestionCalls)
	assert.Equal(t, 1, client.propertyCalls)
}

func TestLookup_NoSuggestionsIsNotFound(t *testing.T) {
	client := &fakeClient{suggestions: json.RawMessage(`[]`)}
	svc := testService(t, client)

	rec, err := svc.Lookup(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 0, client.propertyCalls, "no detail fetch without a suggestion")
}

func TestLookup_SuggestionWithoutIDIsNotFound(t *testing.T) {
	client := &fakeClient{
		suggestions: json.RawMessage(`[{"label":"ambiguous match"}]`),
	}
	svc := testService(t, client)

	rec, err := svc.Lookup(context.Background(), "123 ambiguous")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 0, client.propertyCalls)
}

func TestLookup_EmptyAddressSkipsNetwork(t *testing.T) {
	client := &fakeClient{}
	svc := testService(t, client)

	rec, err := svc.Lookup(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 0, client.suggestionCalls)
}

func TestLookup_UpstreamErrorPropagates(t *testing.T) {
	wantErr := errors.New("upstream down")
	client := &fakeClient{suggestionsErr: wantErr}
	svc := testService(t, client)

	_, err := svc.Lookup(context.Background(), "1 Main St")
	assert.ErrorIs(t, err, wantErr)
}

func TestSearch_ShortQuerySkipsNetwork(t *testing.T) {
	client := &fakeClient{}
	svc := testService(t, client)

	got, err := svc.Search(context.Background(), "ab")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Equal(t, 0, client.suggestionCalls, "short query must not hit the network")
}

func TestSearch_ReturnsSuggestions(t *testing.T) {
	client := &fakeClient{
		suggestions: json.RawMessage(`{"suggestions":[{"id":"1","label":"1 A St"},{"id":"2","label":"2 B St"}]}`),
	}
	svc := testService(t, client)

	got, err := svc.Search(context.Background(), "main st")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1 A St", got[0].Label)
}

func TestSearchProperties(t *testing.T) {
	client := &fakeClient{
		search: json.RawMessage(`{"results":[{"id":"10"},{"id":"11"}]}`),
	}
	svc := testService(t, client)

	records, err := svc.SearchProperties(context.Background(), propstream.SearchCriteria{City: "Tulsa"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUsageStats_PureRead(t *testing.T) {
	client := &fakeClient{}
	svc := testService(t, client)

	first := svc.UsageStats()
	assert.Equal(t, 0, first.SessionRequests)
	assert.Equal(t, 100, first.HourlyLimit)
	assert.Equal(t, 100, first.HourlyRemaining)
	assert.Equal(t, 500, first.DailyLimit)

	// Reading stats repeatedly changes nothing.
	second := svc.UsageStats()
	assert.Equal(t, first, second)
	assert.Equal(t, 0, client.suggestionCalls)
}

func TestTestConnection(t *testing.T) {
	svc := testService(t, &fakeClient{connectionOK: true})
	assert.True(t, svc.TestConnection(context.Background()))
}
