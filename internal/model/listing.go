package model

import "time"

// Attribute keys for the fields extracted from a listing detail page.
// Each key corresponds to one labelled attribute block on the page and to
// one column in the serialized output.
const (
	FieldYear         = "year"
	FieldTransmission = "transmission"
	FieldMileage      = "mileage"
	FieldFuel         = "fuel"
	FieldMunicipality = "municipality"
	FieldColor        = "color"
	FieldMake         = "make"
	FieldModel        = "model"
)

// FieldColumns is the canonical serialization order of the attribute fields.
// The CSV sink and the database store both derive their column layout from
// this slice, so downstream consumers see a stable schema.
var FieldColumns = []string{
	FieldYear,
	FieldTransmission,
	FieldMileage,
	FieldFuel,
	FieldMunicipality,
	FieldColor,
	FieldMake,
	FieldModel,
}

// TimestampLayout is the serialization layout for ScrapeTimestamp.
// Capture times are UTC and rendered as ISO 8601.
const TimestampLayout = time.RFC3339

// ListingRecord represents one vehicle listing captured from a detail page.
//
// Design decision: We keep the attributes in a map keyed by the Field*
// constants rather than as individual struct fields because:
// 1. Listing pages omit attributes freely; absent keys serialize as empty cells
// 2. The extractor fills the map from a label table without a switch per field
// 3. Adding a column is a one-line change to FieldColumns, not a struct change
type ListingRecord struct {
	// ScrapeTimestamp is the capture time in UTC.
	ScrapeTimestamp time.Time `json:"scrape_timestamp"`

	// ListingURL is the absolute URL of the detail page.
	// Unique within one run; repeated runs may re-capture the same listing
	// at a later timestamp.
	ListingURL string `json:"listing_url"`

	// Fields holds the extracted attributes keyed by the Field* constants.
	// Attributes missing from the page are simply absent from the map.
	Fields map[string]string `json:"fields,omitempty"`

	// PriceValue is the numeric asking price as rendered on the page.
	// Kept as a string because the site serves formatted integers and we
	// pass them through without interpreting them.
	PriceValue string `json:"price_value"`

	// PriceCurrency is the currency label next to the price, if any.
	PriceCurrency string `json:"price_currency"`
}

// NewListingRecord returns a record for url stamped with the current UTC time.
func NewListingRecord(url string) *ListingRecord {
	return &ListingRecord{
		ScrapeTimestamp: time.Now().UTC(),
		ListingURL:      url,
		Fields:          make(map[string]string),
	}
}

// SetField stores an attribute value under one of the Field* keys.
func (r *ListingRecord) SetField(key, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[key] = value
}

// Field returns the attribute value for key, or "" if the page had none.
func (r *ListingRecord) Field(key string) string {
	return r.Fields[key]
}

// Header returns the output header row: timestamp and URL first, the
// attribute columns in FieldColumns order, price columns last.
func Header() []string {
	cols := make([]string, 0, len(FieldColumns)+4)
	cols = append(cols, "scrape_timestamp", "listing_url")
	cols = append(cols, FieldColumns...)
	cols = append(cols, "price_value", "price_currency")
	return cols
}

// Row serializes the record in Header order. Missing attributes become empty
// cells so every row carries the same column count.
func (r *ListingRecord) Row() []string {
	row := make([]string, 0, len(FieldColumns)+4)
	row = append(row, r.ScrapeTimestamp.UTC().Format(TimestampLayout), r.ListingURL)
	for _, col := range FieldColumns {
		row = append(row, r.Fields[col])
	}
	row = append(row, r.PriceValue, r.PriceCurrency)
	return row
}
