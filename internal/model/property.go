// Package model holds the canonical property record and the small
// value types shared across the client, store, and export layers.
package model

import "time"

// PropertyRecord is the canonical, normalized view of one upstream
// property payload. Every sub-record field is optional: absent upstream
// data stays nil or empty, never fabricated. A record is built once by
// the normalizer and immutable afterwards; a second fetch of the same
// property yields an independent record.
type PropertyRecord struct {
	ID        string    `json:"id"`
	APN       string    `json:"apn"`
	Address   Address   `json:"address"`
	Owner     Owner     `json:"owner"`
	Details   Details   `json:"details"`
	Valuation Valuation `json:"valuation"`
	Tax       TaxInfo   `json:"tax"`
	Mortgage  Mortgage  `json:"mortgage"`
	Distress  Distress  `json:"distress"`
	FetchedAt time.Time `json:"fetched_at"`

	// Raw retains the untouched upstream object for audit and debugging.
	// Canonical fields are never back-filled from it after construction.
	Raw map[string]any `json:"raw,omitempty"`
}

// Address holds property location information.
type Address struct {
	Street      string   `json:"street"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	ZipCode     string   `json:"zip_code"`
	County      string   `json:"county"`
	FullAddress string   `json:"full_address"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	APN         string   `json:"apn"`
	Subdivision string   `json:"subdivision"`
}

// Owner holds ownership information.
type Owner struct {
	Name                  string `json:"name"`
	Owner1FullName        string `json:"owner1_full_name"`
	Owner2FullName        string `json:"owner2_full_name"`
	MailingAddress        string `json:"mailing_address"`
	MailingCity           string `json:"mailing_city"`
	MailingState          string `json:"mailing_state"`
	MailingZip            string `json:"mailing_zip"`
	MailingCareOf         string `json:"mailing_care_of"`
	OwnerType             string `json:"owner_type"`
	OwnershipType         string `json:"ownership_type"`
	IsAbsentee            bool   `json:"is_absentee"`
	IsOwnerOccupied       bool   `json:"is_owner_occupied"`
	OwnershipLengthMonths *int   `json:"ownership_length_months,omitempty"`
	PropertiesOwned       *int   `json:"properties_owned,omitempty"`
}

// Details holds physical property characteristics.
type Details struct {
	PropertyType    string   `json:"property_type"`
	PropertyClass   string   `json:"property_class"`
	LandUse         string   `json:"land_use"`
	Bedrooms        *int     `json:"bedrooms,omitempty"`
	Bathrooms       *float64 `json:"bathrooms,omitempty"`
	FullBathrooms   *int     `json:"full_bathrooms,omitempty"`
	Sqft            *int     `json:"sqft,omitempty"`
	BuildingSqft    *int     `json:"building_sqft,omitempty"`
	LotSizeSqft     *int     `json:"lot_size_sqft,omitempty"`
	LotSizeAcres    *float64 `json:"lot_size_acres,omitempty"`
	YearBuilt       *int     `json:"year_built,omitempty"`
	Age             *int     `json:"age,omitempty"`
	Stories         *float64 `json:"stories,omitempty"`
	ParkingSpaces   *int     `json:"parking_spaces,omitempty"`
	Pool            bool     `json:"pool"`
	PoolType        string   `json:"pool_type"`
	ExteriorWall    string   `json:"exterior_wall"`
	RoofType        string   `json:"roof_type"`
	HeatingType     string   `json:"heating_type"`
	ACType          string   `json:"ac_type"`
	HOAName         string   `json:"hoa_name"`
	HOAFee          *float64 `json:"hoa_fee,omitempty"`
	HOAFeeFrequency string   `json:"hoa_fee_frequency"`
	HOAAnnualTotal  *float64 `json:"hoa_annual_total,omitempty"`
}

// Valuation holds value and sale estimates.
type Valuation struct {
	EstimatedValue         *int     `json:"estimated_value,omitempty"`
	EstimatedEquity        *int     `json:"estimated_equity,omitempty"`
	EquityPercentage       *float64 `json:"equity_percentage,omitempty"`
	AssessedValue          *int     `json:"assessed_value,omitempty"`
	MarketValue            *int     `json:"market_value,omitempty"`
	MarketLandValue        *int     `json:"market_land_value,omitempty"`
	MarketImprovementValue *int     `json:"market_improvement_value,omitempty"`
	LastSalePrice          *int     `json:"last_sale_price,omitempty"`
	LastSaleDate           string   `json:"last_sale_date,omitempty"`
	PricePerSqft           *float64 `json:"price_per_sqft,omitempty"`
	CompSaleAmount         *int     `json:"comp_sale_amount,omitempty"`
	CompDaysOnMarket       *int     `json:"comp_days_on_market,omitempty"`
	RentEstimate           *int     `json:"rent_estimate,omitempty"`
	GrossYield             *float64 `json:"gross_yield,omitempty"`
	LTVRatio               *float64 `json:"ltv_ratio,omitempty"`
}

// TaxInfo holds property tax information.
type TaxInfo struct {
	AnnualTax      *float64 `json:"annual_tax,omitempty"`
	TaxYear        *int     `json:"tax_year,omitempty"`
	AssessmentYear *int     `json:"assessment_year,omitempty"`
	TaxDelinquent  bool     `json:"tax_delinquent"`
}

// Mortgage holds mortgage and lien information.
type Mortgage struct {
	HasMortgage       bool   `json:"has_mortgage"`
	MortgageBalance   *int   `json:"mortgage_balance,omitempty"`
	OpenMortgageCount *int   `json:"open_mortgage_count,omitempty"`
	OpenLienAmount    *int   `json:"open_lien_amount,omitempty"`
	OpenLienCount     *int   `json:"open_lien_count,omitempty"`
	PurchaseMethod    string `json:"purchase_method"`
}

// Distress holds foreclosure and market status flags.
type Distress struct {
	IsDistressed   bool   `json:"is_distressed"`
	DistressStatus string `json:"distress_status"`
	MarketStatus   string `json:"market_status"`
}
