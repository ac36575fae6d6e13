package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/propdata-cli/internal/model"
)

func newTestPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresSaveProperties(t *testing.T) {
	s, mock := newTestPostgres(t)

	rec := sampleRecord("100", "Phoenix", "AZ")
	mock.ExpectExec(`INSERT INTO properties`).
		WithArgs(
			pgxmock.AnyArg(), rec.ID, rec.APN,
			rec.Address.Street, rec.Address.City, rec.Address.State, rec.Address.ZipCode,
			pgxmock.AnyArg(), rec.FetchedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := s.SaveProperties(context.Background(), []model.PropertyRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveEmpty(t *testing.T) {
	s, mock := newTestPostgres(t)

	n, err := s.SaveProperties(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListProperties(t *testing.T) {
	s, mock := newTestPostgres(t)

	rec := sampleRecord("100", "Phoenix", "AZ")
	blob, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM properties`).
		WithArgs("Phoenix").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(blob))

	records, err := s.ListProperties(context.Background(), Filter{City: "Phoenix"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "100", records[0].ID)
	assert.Equal(t, "Phoenix", records[0].Address.City)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCountProperties(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM properties`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS properties`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
