package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"

	"github.com/merrlog/merrlog/internal/fetch"
	"github.com/merrlog/merrlog/internal/model"
)

// Selectors for the parts of a detail page we extract.
// The attribute blocks render as <div class="tag-item"><span>Label</span>
// <bdi>Value</bdi></div>; the price block carries the numeric amount in a
// "value" attribute and the currency as a sibling span.
const (
	// DefaultAttrSelector matches one labelled attribute block.
	DefaultAttrSelector = ".tag-item"

	// DefaultPriceSelector matches the element holding the numeric price.
	DefaultPriceSelector = ".new-price .format-money-int"

	// DefaultCurrencySelector matches the currency label next to the price.
	DefaultCurrencySelector = ".new-price span:not(.format-money-int)"
)

// labelField maps an attribute label prefix to a record field key.
type labelField struct {
	prefix string
	field  string
}

// labelFields is the label table for detail page attributes. Labels are
// Albanian and often carry suffixes ("Viti i prodhimit"), so matching is
// by case-folded prefix; prefixes here are stored pre-folded. Order is
// fixed and first match wins.
var labelFields = []labelField{
	{"viti", model.FieldYear},
	{"transmetuesi", model.FieldTransmission},
	{"kilometrazha", model.FieldMileage},
	{"karburanti", model.FieldFuel},
	{"komuna", model.FieldMunicipality},
	{"ngjyra", model.FieldColor},
	{"prodhuesi", model.FieldMake},
	{"modeli", model.FieldModel},
}

// Extractor turns listing detail pages into ListingRecords.
// It is safe for concurrent use; all state is set at construction.
type Extractor struct {
	// fetcher performs the HTTP requests.
	fetcher *fetch.Fetcher

	// attrSelector matches labelled attribute blocks.
	attrSelector string

	// priceSelector matches the numeric price element.
	priceSelector string

	// currencySelector matches the currency label.
	currencySelector string
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithAttrSelector overrides the attribute block selector.
func WithAttrSelector(selector string) ExtractorOption {
	return func(ex *Extractor) {
		ex.attrSelector = selector
	}
}

// WithPriceSelectors overrides the price and currency selectors.
func WithPriceSelectors(price, currency string) ExtractorOption {
	return func(ex *Extractor) {
		ex.priceSelector = price
		ex.currencySelector = currency
	}
}

// NewExtractor creates an Extractor using the given fetcher.
func NewExtractor(fetcher *fetch.Fetcher, opts ...ExtractorOption) *Extractor {
	ex := &Extractor{
		fetcher:          fetcher,
		attrSelector:     DefaultAttrSelector,
		priceSelector:    DefaultPriceSelector,
		currencySelector: DefaultCurrencySelector,
	}

	for _, opt := range opts {
		opt(ex)
	}

	return ex
}

// Extract fetches listingURL and returns its record, stamped with the
// capture time. Attribute blocks with an unknown label, or with a missing
// label or value, are skipped; a page without a price yields empty price
// fields. Only the fetch or an unreadable document fail the listing.
func (ex *Extractor) Extract(ctx context.Context, listingURL string) (*model.ListingRecord, error) {
	body, err := ex.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	return ex.parse(listingURL, body)
}

// parse extracts a record from a detail page body.
func (ex *Extractor) parse(listingURL string, body []byte) (*model.ListingRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	rec := model.NewListingRecord(listingURL)

	// Casers are stateful, so each parse gets its own.
	fold := cases.Fold()

	doc.Find(ex.attrSelector).Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Find("span").First().Text())
		value := strings.TrimSpace(s.Find("bdi").First().Text())
		if label == "" || value == "" {
			return
		}

		folded := fold.String(label)
		for _, lf := range labelFields {
			if strings.HasPrefix(folded, lf.prefix) {
				rec.SetField(lf.field, value)
				break
			}
		}
	})

	if price := doc.Find(ex.priceSelector).First(); price.Length() > 0 {
		if v, ok := price.Attr("value"); ok {
			rec.PriceValue = strings.TrimSpace(v)
		}
	}
	rec.PriceCurrency = strings.TrimSpace(doc.Find(ex.currencySelector).First().Text())

	return rec, nil
}
