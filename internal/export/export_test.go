package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/propdata-cli/internal/model"
)

func testRecord() model.PropertyRecord {
	beds := 3
	baths := 2.5
	value := 450000
	return model.PropertyRecord{
		ID:  "1863342326",
		APN: "173-23-059",
		Address: model.Address{
			Street:  "123 Main St",
			City:    "Phoenix",
			State:   "AZ",
			ZipCode: "85001",
		},
		Owner: model.Owner{Name: "Jane Smith", IsAbsentee: true},
		Details: model.Details{
			Bedrooms:  &beds,
			Bathrooms: &baths,
		},
		Valuation: model.Valuation{
			EstimatedValue: &value,
			LastSaleDate:   "2020-01-01",
		},
		Mortgage:  model.Mortgage{HasMortgage: true},
		FetchedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Raw:       map[string]any{"id": "1863342326", "secret": "upstream"},
	}
}

func TestFlatten(t *testing.T) {
	flat := Flatten(testRecord())

	assert.Equal(t, "1863342326", flat["id"])
	assert.Equal(t, "Phoenix", flat["city"])
	assert.Equal(t, "true", flat["is_absentee"])
	assert.Equal(t, "3", flat["bedrooms"])
	assert.Equal(t, "2.5", flat["bathrooms"])
	assert.Equal(t, "450000", flat["estimated_value"])
	assert.Equal(t, "2020-01-01", flat["last_sale_date"])
	assert.Equal(t, "true", flat["has_mortgage"])
	assert.Equal(t, "", flat["sqft"])

	// every column has an entry
	for _, col := range Columns {
		_, ok := flat[col]
		assert.True(t, ok, "missing column %s", col)
	}
}

func TestWriteJSONStripsRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, []model.PropertyRecord{testRecord()}, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "1863342326", out[0]["id"])
	_, hasRaw := out[0]["raw"]
	assert.False(t, hasRaw)
}

func TestWriteJSONIncludeRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, []model.PropertyRecord{testRecord()}, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	raw, ok := out[0]["raw"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "upstream", raw["secret"])
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(path, []model.PropertyRecord{testRecord()}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, len(Columns), len(rows[1]))
	assert.Equal(t, "1863342326", rows[1][0])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, []model.PropertyRecord{testRecord()}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	require.GreaterOrEqual(t, len(sheet.Rows), 2)
	assert.Equal(t, "id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "1863342326", sheet.Rows[1].Cells[0].String())
}

func TestWriteMultipleFormats(t *testing.T) {
	dir := t.TempDir()
	out, err := Write(dir, "props", []string{"json", "csv"}, []model.PropertyRecord{testRecord()}, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, path := range out {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	_, err := Write(t.TempDir(), "props", []string{"parquet"}, nil, false)
	assert.Error(t, err)
}
