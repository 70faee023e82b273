package model

import (
	"testing"
	"time"
)

// TestNewListingRecord tests the NewListingRecord constructor.
func TestNewListingRecord(t *testing.T) {
	t.Parallel()

	t.Run("stamps URL and UTC capture time", func(t *testing.T) {
		t.Parallel()

		before := time.Now().UTC()
		rec := NewListingRecord("https://www.merrjep.al/njoftime/item/1")
		after := time.Now().UTC()

		if rec.ListingURL != "https://www.merrjep.al/njoftime/item/1" {
			t.Errorf("got %q, expected listing URL to be set", rec.ListingURL)
		}
		if rec.ScrapeTimestamp.Before(before) || rec.ScrapeTimestamp.After(after) {
			t.Errorf("timestamp %v outside [%v, %v]", rec.ScrapeTimestamp, before, after)
		}
		if rec.ScrapeTimestamp.Location() != time.UTC {
			t.Errorf("expected UTC timestamp, got %v", rec.ScrapeTimestamp.Location())
		}
		if rec.Fields == nil {
			t.Error("expected initialized Fields map")
		}
	})
}

// TestListingRecordSetField tests the SetField and Field methods.
func TestListingRecordSetField(t *testing.T) {
	t.Parallel()

	t.Run("stores and retrieves a value", func(t *testing.T) {
		t.Parallel()

		rec := NewListingRecord("https://example.com/item")
		rec.SetField(FieldYear, "2018")

		if got := rec.Field(FieldYear); got != "2018" {
			t.Errorf("got %q, expected %q", got, "2018")
		}
	})

	t.Run("absent key returns empty string", func(t *testing.T) {
		t.Parallel()

		rec := NewListingRecord("https://example.com/item")

		if got := rec.Field(FieldColor); got != "" {
			t.Errorf("got %q, expected empty string", got)
		}
	})

	t.Run("initializes nil map", func(t *testing.T) {
		t.Parallel()

		rec := &ListingRecord{}
		rec.SetField(FieldMake, "Toyota")

		if got := rec.Field(FieldMake); got != "Toyota" {
			t.Errorf("got %q, expected %q", got, "Toyota")
		}
	})
}

// TestHeader tests the Header function.
func TestHeader(t *testing.T) {
	t.Parallel()

	t.Run("fixed column order", func(t *testing.T) {
		t.Parallel()

		want := []string{
			"scrape_timestamp", "listing_url",
			"year", "transmission", "mileage", "fuel",
			"municipality", "color", "make", "model",
			"price_value", "price_currency",
		}
		got := Header()

		if len(got) != len(want) {
			t.Fatalf("got %d columns, expected %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("column %d: got %q, expected %q", i, got[i], want[i])
			}
		}
	})
}

// TestListingRecordRow tests the Row method.
func TestListingRecordRow(t *testing.T) {
	t.Parallel()

	t.Run("serializes in header order", func(t *testing.T) {
		t.Parallel()

		ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
		rec := &ListingRecord{
			ScrapeTimestamp: ts,
			ListingURL:      "https://example.com/item",
			Fields: map[string]string{
				FieldYear: "2015",
				FieldFuel: "Diesel",
			},
			PriceValue:    "8500",
			PriceCurrency: "EUR",
		}

		row := rec.Row()
		if len(row) != len(Header()) {
			t.Fatalf("got %d cells, expected %d", len(row), len(Header()))
		}
		if row[0] != "2025-06-01T12:30:00Z" {
			t.Errorf("timestamp cell: got %q", row[0])
		}
		if row[1] != "https://example.com/item" {
			t.Errorf("url cell: got %q", row[1])
		}
		if row[2] != "2015" {
			t.Errorf("year cell: got %q", row[2])
		}
		if row[5] != "Diesel" {
			t.Errorf("fuel cell: got %q", row[5])
		}
		if row[10] != "8500" || row[11] != "EUR" {
			t.Errorf("price cells: got %q %q", row[10], row[11])
		}
	})

	t.Run("missing attributes become empty cells", func(t *testing.T) {
		t.Parallel()

		rec := NewListingRecord("https://example.com/bare")
		row := rec.Row()

		if len(row) != len(Header()) {
			t.Fatalf("got %d cells, expected %d", len(row), len(Header()))
		}
		for i := 2; i < len(row)-2; i++ {
			if row[i] != "" {
				t.Errorf("cell %d: got %q, expected empty", i, row[i])
			}
		}
	})
}
