package models

import "time"

// PriceValue is the price field of a raw offer as returned by the API:
// either an amount with a currency code, or the barter sentinel for
// "exchange, no fixed price".
type PriceValue struct {
	Amount   float64
	Currency string
	Barter   bool
}

// FeatureValue is one segment feature of an offer, as returned
// (unit-suffixed label) plus its numeric coercion when one exists.
type FeatureValue struct {
	Raw     string
	Num     float64
	Numeric bool
	Present bool
}

// RawOffer is one organic listing from a search page before any
// cleaning. Features is aligned with the segment's Features order.
type RawOffer struct {
	Published string // first 10 chars of the refresh timestamp, YYYY-MM-DD
	Price     PriceValue
	Features  []FeatureValue
}

// PriceRecord is a normalized output row. Seq is dense and gap-free
// within a (Region, Location) group.
type PriceRecord struct {
	Region    string
	Location  string
	Seq       int
	Price     float64
	Published time.Time
	Features  []FeatureValue

	// Density is price per primary area unit; NaN until computed or
	// when the area feature is missing. Unused for the land segment.
	Density    float64
	HasDensity bool
}

// TrimReport summarizes one segment's outlier-trimming pass.
type TrimReport struct {
	Before  int
	Kept    int
	Dropped int
}
