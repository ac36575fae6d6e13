// Package export writes normalized property records to JSON, CSV, and
// XLSX files for downstream analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/propdata-cli/internal/model"
)

// Columns is the flat column order shared by the CSV and XLSX writers.
var Columns = []string{
	"id", "apn", "fetched_at",
	"street", "city", "state", "zip_code", "county", "subdivision", "latitude", "longitude",
	"owner_name", "owner1_full_name", "owner2_full_name",
	"owner_mailing_address", "owner_mailing_city", "owner_mailing_state", "owner_mailing_zip",
	"owner_type", "ownership_type", "is_absentee", "is_owner_occupied",
	"ownership_length_months", "properties_owned",
	"property_type", "property_class", "land_use",
	"bedrooms", "bathrooms", "sqft", "lot_size_sqft", "lot_size_acres",
	"year_built", "age", "stories", "parking_spaces",
	"pool", "pool_type", "roof_type", "heating_type", "ac_type",
	"hoa_name", "hoa_fee", "hoa_annual_total",
	"estimated_value", "estimated_equity", "equity_percentage",
	"assessed_value", "market_value", "last_sale_price", "last_sale_date",
	"price_per_sqft", "rent_estimate", "gross_yield", "ltv_ratio",
	"annual_tax", "tax_year",
	"has_mortgage", "mortgage_balance", "open_mortgage_count",
	"open_lien_amount", "open_lien_count", "purchase_method",
	"is_distressed", "distress_status", "market_status",
}

// Flatten converts a record into a single-level map keyed by Columns.
func Flatten(rec model.PropertyRecord) map[string]string {
	fetched := ""
	if !rec.FetchedAt.IsZero() {
		fetched = rec.FetchedAt.Format(time.RFC3339)
	}
	return map[string]string{
		"id":                      rec.ID,
		"apn":                     rec.APN,
		"fetched_at":              fetched,
		"street":                  rec.Address.Street,
		"city":                    rec.Address.City,
		"state":                   rec.Address.State,
		"zip_code":                rec.Address.ZipCode,
		"county":                  rec.Address.County,
		"subdivision":             rec.Address.Subdivision,
		"latitude":                floatCell(rec.Address.Latitude),
		"longitude":               floatCell(rec.Address.Longitude),
		"owner_name":              rec.Owner.Name,
		"owner1_full_name":        rec.Owner.Owner1FullName,
		"owner2_full_name":        rec.Owner.Owner2FullName,
		"owner_mailing_address":   rec.Owner.MailingAddress,
		"owner_mailing_city":      rec.Owner.MailingCity,
		"owner_mailing_state":     rec.Owner.MailingState,
		"owner_mailing_zip":       rec.Owner.MailingZip,
		"owner_type":              rec.Owner.OwnerType,
		"ownership_type":          rec.Owner.OwnershipType,
		"is_absentee":             boolCell(rec.Owner.IsAbsentee),
		"is_owner_occupied":       boolCell(rec.Owner.IsOwnerOccupied),
		"ownership_length_months": intCell(rec.Owner.OwnershipLengthMonths),
		"properties_owned":        intCell(rec.Owner.PropertiesOwned),
		"property_type":           rec.Details.PropertyType,
		"property_class":          rec.Details.PropertyClass,
		"land_use":                rec.Details.LandUse,
		"bedrooms":                intCell(rec.Details.Bedrooms),
		"bathrooms":               floatCell(rec.Details.Bathrooms),
		"sqft":                    intCell(rec.Details.Sqft),
		"lot_size_sqft":           intCell(rec.Details.LotSizeSqft),
		"lot_size_acres":          floatCell(rec.Details.LotSizeAcres),
		"year_built":              intCell(rec.Details.YearBuilt),
		"age":                     intCell(rec.Details.Age),
		"stories":                 floatCell(rec.Details.Stories),
		"parking_spaces":          intCell(rec.Details.ParkingSpaces),
		"pool":                    boolCell(rec.Details.Pool),
		"pool_type":               rec.Details.PoolType,
		"roof_type":               rec.Details.RoofType,
		"heating_type":            rec.Details.HeatingType,
		"ac_type":                 rec.Details.ACType,
		"hoa_name":                rec.Details.HOAName,
		"hoa_fee":                 floatCell(rec.Details.HOAFee),
		"hoa_annual_total":        floatCell(rec.Details.HOAAnnualTotal),
		"estimated_value":         intCell(rec.Valuation.EstimatedValue),
		"estimated_equity":        intCell(rec.Valuation.EstimatedEquity),
		"equity_percentage":       floatCell(rec.Valuation.EquityPercentage),
		"assessed_value":          intCell(rec.Valuation.AssessedValue),
		"market_value":            intCell(rec.Valuation.MarketValue),
		"last_sale_price":         intCell(rec.Valuation.LastSalePrice),
		"last_sale_date":          rec.Valuation.LastSaleDate,
		"price_per_sqft":          floatCell(rec.Valuation.PricePerSqft),
		"rent_estimate":           intCell(rec.Valuation.RentEstimate),
		"gross_yield":             floatCell(rec.Valuation.GrossYield),
		"ltv_ratio":               floatCell(rec.Valuation.LTVRatio),
		"annual_tax":              floatCell(rec.Tax.AnnualTax),
		"tax_year":                intCell(rec.Tax.TaxYear),
		"has_mortgage":            boolCell(rec.Mortgage.HasMortgage),
		"mortgage_balance":        intCell(rec.Mortgage.MortgageBalance),
		"open_mortgage_count":     intCell(rec.Mortgage.OpenMortgageCount),
		"open_lien_amount":        intCell(rec.Mortgage.OpenLienAmount),
		"open_lien_count":         intCell(rec.Mortgage.OpenLienCount),
		"purchase_method":         rec.Mortgage.PurchaseMethod,
		"is_distressed":           boolCell(rec.Distress.IsDistressed),
		"distress_status":         rec.Distress.DistressStatus,
		"market_status":           rec.Distress.MarketStatus,
	}
}

// WriteJSON writes records to path as a pretty-printed JSON array.
// Raw upstream payloads are stripped unless includeRaw is set.
func WriteJSON(path string, records []model.PropertyRecord, includeRaw bool) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	out := make([]model.PropertyRecord, len(records))
	copy(out, records)
	if !includeRaw {
		for i := range out {
			out[i].Raw = nil
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write json")
	}
	zap.L().Info("exported properties", zap.String("path", path), zap.Int("count", len(records)))
	return nil
}

// WriteCSV writes records to path as flat tabular rows.
func WriteCSV(path string, records []model.PropertyRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, rec := range records {
		flat := Flatten(rec)
		row := make([]string, len(Columns))
		for i, col := range Columns {
			row[i] = flat[col]
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	zap.L().Info("exported properties", zap.String("path", path), zap.Int("count", len(records)))
	return nil
}

// WriteXLSX writes records to path as a single-sheet workbook.
func WriteXLSX(path string, records []model.PropertyRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Properties")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().SetString(col)
	}
	for _, rec := range records {
		flat := Flatten(rec)
		row := sheet.AddRow()
		for _, col := range Columns {
			row.AddCell().SetString(flat[col])
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx")
	}
	zap.L().Info("exported properties", zap.String("path", path), zap.Int("count", len(records)))
	return nil
}

// Write exports records to output files under dir, one per requested
// format, with a timestamped filename. It returns format -> path.
func Write(dir, prefix string, formats []string, records []model.PropertyRecord, includeRaw bool) (map[string]string, error) {
	if prefix == "" {
		prefix = "properties"
	}
	stamp := time.Now().Format("20060102_150405")

	out := make(map[string]string, len(formats))
	for _, format := range formats {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, stamp, format))
		var err error
		switch format {
		case "json":
			err = WriteJSON(path, records, includeRaw)
		case "csv":
			err = WriteCSV(path, records)
		case "xlsx":
			err = WriteXLSX(path, records)
		default:
			err = eris.Errorf("export: unknown format %q", format)
		}
		if err != nil {
			return nil, err
		}
		out[format] = path
	}
	return out, nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "export: create output dir")
		}
	}
	return nil
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func boolCell(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
