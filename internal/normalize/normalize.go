// Package normalize maps raw upstream JSON into canonical property
// records. The upstream payloads are loosely typed: field names vary,
// shapes flip between nested and flat, and numbers arrive as strings.
// Every function here is total over arbitrary JSON — malformed or
// missing fields degrade to zero values, never to an error.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/propdata-cli/internal/model"
)

// listKeys are probed in order to locate the result list in a wrapped
// payload.
var listKeys = []string{"properties", "results", "data", "records", "items"}

// identityKeys mark a bare object as a single property payload.
var identityKeys = []string{"id", "propertyId", "apn"}

var titleCaser = cases.Title(language.AmericanEnglish)

// ParseMany extracts all property records from a raw upstream response.
// The payload may be a bare list, a list wrapped under one of the known
// keys, or a single property object. Anything else yields an empty slice.
func ParseMany(raw json.RawMessage) []model.PropertyRecord {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	switch v := payload.(type) {
	case []any:
		return fromList(v)
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				return fromList(list)
			}
		}
		// Single property response.
		for _, key := range identityKeys {
			if _, ok := v[key]; ok {
				rec := fromMap(v)
				return []model.PropertyRecord{rec}
			}
		}
	}
	return nil
}

// ParseOne normalizes a single property payload. A payload that is not
// a JSON object yields an empty record with only FetchedAt set.
func ParseOne(raw json.RawMessage) model.PropertyRecord {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return model.PropertyRecord{FetchedAt: time.Now().UTC()}
	}
	return fromMap(m)
}

// ParseSuggestions extracts address suggestions from the autocomplete
// response, which may be a bare list or wrapped under "suggestions" or
// "results".
func ParseSuggestions(raw json.RawMessage) []model.AddressSuggestion {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	var list []any
	switch v := payload.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"suggestions", "results"} {
			if l, ok := v[key].([]any); ok {
				list = l
				break
			}
		}
	}

	var out []model.AddressSuggestion
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.AddressSuggestion{
			ID:    asString(probe(m, "id", "propertyId")),
			Label: asString(probe(m, "label", "title", "text", "address")),
		})
	}
	return out
}

func fromList(list []any) []model.PropertyRecord {
	var out []model.PropertyRecord
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, fromMap(m))
		}
	}
	return out
}

// fromMap builds a full record from one upstream object. The upstream
// usually returns flat data with everything at the top level, with the
// street and mailing addresses nested one level down.
func fromMap(m map[string]any) model.PropertyRecord {
	return model.PropertyRecord{
		ID:        asString(probe(m, "id", "propertyId")),
		APN:       asString(m["apn"]),
		Address:   addressFrom(m),
		Owner:     ownerFrom(m),
		Details:   detailsFrom(m),
		Valuation: valuationFrom(m),
		Tax:       taxFrom(m),
		Mortgage:  mortgageFrom(m),
		Distress:  distressFrom(m),
		FetchedAt: time.Now().UTC(),
		Raw:       m,
	}
}

func addressFrom(m map[string]any) model.Address {
	addr, _ := m["address"].(map[string]any)

	return model.Address{
		Street:      asString(probe(addr, "streetAddress", "baseStreetAddress")),
		City:        properCase(asString(probeAny(addr, m, []string{"cityName"}, []string{"jurisdiction"}))),
		State:       asString(probe(addr, "stateCode")),
		ZipCode:     asString(probe(addr, "zip")),
		County:      asString(probeAny(addr, m, []string{"countyName"}, []string{"countyName"})),
		FullAddress: asString(probe(addr, "label", "title")),
		Latitude:    asFloat(m["latitude"]),
		Longitude:   asFloat(m["longitude"]),
		APN:         asString(m["apn"]),
		Subdivision: asString(m["subdivision"]),
	}
}

func ownerFrom(m map[string]any) model.Owner {
	mail, _ := m["mailAddress"].(map[string]any)
	occupied := asBool(m["ownerOccupied"])

	return model.Owner{
		Name:                  properCase(asString(probe(m, "ownerNames", "effectiveOwner1FullName"))),
		Owner1FullName:        properCase(asString(probe(m, "owner1FullName", "effectiveOwner1FullName"))),
		Owner2FullName:        properCase(asString(probe(m, "owner2FullName", "effectiveOwner2FullName"))),
		MailingAddress:        asString(probe(mail, "streetAddress")),
		MailingCity:           properCase(asString(probe(mail, "city"))),
		MailingState:          asString(probe(mail, "state")),
		MailingZip:            asString(probe(mail, "zip")),
		MailingCareOf:         asString(m["mailCareOf"]),
		OwnerType:             asString(m["ownerType"]),
		OwnershipType:         asString(probe(m, "ownerOwnershipType", "ownership")),
		IsAbsentee:            !occupied,
		IsOwnerOccupied:       occupied,
		OwnershipLengthMonths: asInt(m["ownershipLength"]),
		PropertiesOwned:       asInt(m["propertiesOwned"]),
	}
}

func detailsFrom(m map[string]any) model.Details {
	return model.Details{
		PropertyType:    asString(m["propertyType"]),
		PropertyClass:   asString(m["propertyClass"]),
		LandUse:         asString(m["landUse"]),
		Bedrooms:        asInt(m["bedrooms"]),
		Bathrooms:       asFloat(m["bathrooms"]),
		FullBathrooms:   asInt(m["fullBathrooms"]),
		Sqft:            asInt(probe(m, "livingSquareFeet", "squareFeet")),
		BuildingSqft:    asInt(m["buildingSquareFeet"]),
		LotSizeSqft:     asInt(m["lotSquareFeet"]),
		LotSizeAcres:    asFloat(m["lotAcres"]),
		YearBuilt:       asInt(probe(m, "yearBuilt", "effectiveYearBuilt")),
		Age:             asInt(m["age"]),
		Stories:         asFloat(m["stories"]),
		ParkingSpaces:   asInt(m["parkingSpaces"]),
		Pool:            asBool(m["poolAvailable"]),
		PoolType:        asString(m["poolType"]),
		ExteriorWall:    asString(m["exteriorWallType"]),
		RoofType:        asString(m["roofCoverType"]),
		HeatingType:     asString(m["heatingType"]),
		ACType:          asString(m["airConditioningType"]),
		HOAName:         asString(m["hoa1Name"]),
		HOAFee:          asFloat(m["hoa1Fee"]),
		HOAFeeFrequency: asString(m["hoa1FeeFrequency"]),
		HOAAnnualTotal:  asFloat(m["hoaFeeAnnualTotal"]),
	}
}

func valuationFrom(m map[string]any) model.Valuation {
	return model.Valuation{
		EstimatedValue:         asInt(m["estimatedValue"]),
		EstimatedEquity:        asInt(m["estimatedEquity"]),
		EquityPercentage:       asFloat(m["equityPercentage"]),
		AssessedValue:          asInt(m["assessedValue"]),
		MarketValue:            asInt(m["marketValue"]),
		MarketLandValue:        asInt(m["marketLandValue"]),
		MarketImprovementValue: asInt(m["marketImprovementValue"]),
		LastSalePrice:          asInt(m["lastSaleAmount"]),
		LastSaleDate:           saleDate(probe(m, "lastSaleDate", "effectiveLastSaleDate")),
		PricePerSqft:           asFloat(m["pricePerSquareFoot"]),
		CompSaleAmount:         asInt(m["compSaleAmount"]),
		CompDaysOnMarket:       asInt(m["compDaysOnMarket"]),
		RentEstimate:           asInt(m["rentAmount"]),
		GrossYield:             asFloat(m["grossYield"]),
		LTVRatio:               asFloat(m["ltvRatio"]),
	}
}

func taxFrom(m map[string]any) model.TaxInfo {
	return model.TaxInfo{
		AnnualTax:      asFloat(m["taxAmount"]),
		TaxYear:        asInt(m["taxYear"]),
		AssessmentYear: asInt(m["assessmentYear"]),
	}
}

func mortgageFrom(m map[string]any) model.Mortgage {
	openMortgages := asInt(m["openMortgageQuantity"])

	return model.Mortgage{
		HasMortgage:       openMortgages != nil && *openMortgages > 0,
		MortgageBalance:   asInt(probe(m, "mortgageBalance", "openMortgageBalance")),
		OpenMortgageCount: openMortgages,
		OpenLienAmount:    asInt(m["openLienAmount"]),
		OpenLienCount:     asInt(probe(m, "openLiens", "lienCount")),
		PurchaseMethod:    asString(m["purchaseMethod"]),
	}
}

func distressFrom(m map[string]any) model.Distress {
	return model.Distress{
		IsDistressed:   asBool(m["distressed"]),
		DistressStatus: asString(m["distressStatus"]),
		MarketStatus:   asString(m["marketStatus"]),
	}
}

// probe returns the first present, non-nil value among the candidate
// keys. A nil map probes to nil.
func probe(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// probeAny probes the primary map first, then falls back to the
// secondary map with its own key list.
func probeAny(primary, secondary map[string]any, primaryKeys, secondaryKeys []string) any {
	if v := probe(primary, primaryKeys...); v != nil {
		return v
	}
	return probe(secondary, secondaryKeys...)
}

// saleDate converts an epoch-millisecond sale timestamp to the UTC
// calendar date of that instant. Non-numeric values fall back to their
// string form; absent values stay empty.
func saleDate(v any) string {
	switch ts := v.(type) {
	case nil:
		return ""
	case float64:
		ms := int64(ts)
		return time.UnixMilli(ms).UTC().Format("2006-01-02")
	case json.Number:
		if ms, err := ts.Int64(); err == nil {
			return time.UnixMilli(ms).UTC().Format("2006-01-02")
		}
		return ts.String()
	default:
		return asString(v)
	}
}

// asString renders scalars as strings. Integral floats print without a
// decimal point so numeric IDs round-trip cleanly.
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		if s == math.Trunc(s) && math.Abs(s) < 1e15 {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// asInt coerces numbers and numeric-looking strings to *int, failing
// soft to nil.
func asInt(v any) *int {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// asFloat coerces numbers and numeric-looking strings to *float64,
// failing soft to nil.
func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return &f
		}
	}
	return nil
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// properCase title-cases values the upstream shouts in all caps
// ("SMITH JOHN A" becomes "Smith John A"). Mixed-case input is left as
// delivered.
func properCase(s string) string {
	if s == "" || s != strings.ToUpper(s) || !strings.ContainsFunc(s, isLetter) {
		return s
	}
	return titleCaser.String(strings.ToLower(s))
}

func isLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}
