package storage

import "housing-scraper/models"

// ReportWriter is the interface any report sink must satisfy. One call
// per segment, after cleaning.
type ReportWriter interface {
	WriteSegment(segment models.Segment, records []models.PriceRecord) error
	Close() error
}
