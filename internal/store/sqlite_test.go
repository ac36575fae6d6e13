package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/propdata-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRecord(id, city, state string) model.PropertyRecord {
	val := 325000
	return model.PropertyRecord{
		ID:  id,
		APN: "123-45-678",
		Address: model.Address{
			Street:  "123 Main St",
			City:    city,
			State:   state,
			ZipCode: "85001",
		},
		Owner:     model.Owner{Name: "Jane Smith", IsAbsentee: true},
		Valuation: model.Valuation{EstimatedValue: &val},
		FetchedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteSaveAndList(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	n, err := s.SaveProperties(ctx, []model.PropertyRecord{
		sampleRecord("100", "Phoenix", "AZ"),
		sampleRecord("200", "Tucson", "AZ"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := s.ListProperties(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	byID := map[string]model.PropertyRecord{}
	for _, r := range records {
		byID[r.ID] = r
	}
	got, ok := byID["100"]
	require.True(t, ok)
	assert.Equal(t, "Phoenix", got.Address.City)
	assert.Equal(t, "Jane Smith", got.Owner.Name)
	assert.True(t, got.Owner.IsAbsentee)
	require.NotNil(t, got.Valuation.EstimatedValue)
	assert.Equal(t, 325000, *got.Valuation.EstimatedValue)
}

func TestSQLiteListFilters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.SaveProperties(ctx, []model.PropertyRecord{
		sampleRecord("100", "Phoenix", "AZ"),
		sampleRecord("200", "Tucson", "AZ"),
		sampleRecord("300", "Denver", "CO"),
	})
	require.NoError(t, err)

	records, err := s.ListProperties(ctx, Filter{City: "Phoenix"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "100", records[0].ID)

	records, err = s.ListProperties(ctx, Filter{State: "AZ"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.ListProperties(ctx, Filter{State: "AZ", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteListOffsetWithoutLimit(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.SaveProperties(ctx, []model.PropertyRecord{
		sampleRecord("100", "Phoenix", "AZ"),
		sampleRecord("200", "Tucson", "AZ"),
		sampleRecord("300", "Denver", "CO"),
	})
	require.NoError(t, err)

	records, err := s.ListProperties(ctx, Filter{Offset: 1})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.ListProperties(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteDuplicateIDsInsertSeparately(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.SaveProperties(ctx, []model.PropertyRecord{sampleRecord("100", "Phoenix", "AZ")})
	require.NoError(t, err)
	_, err = s.SaveProperties(ctx, []model.PropertyRecord{sampleRecord("100", "Phoenix", "AZ")})
	require.NoError(t, err)

	n, err := s.CountProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteSaveEmpty(t *testing.T) {
	s := newTestSQLite(t)

	n, err := s.SaveProperties(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}
