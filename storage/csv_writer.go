package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"housing-scraper/models"
)

// CSVWriter writes one report file per segment into the output
// directory, named after the segment and the run date. It is safe for
// concurrent use.
type CSVWriter struct {
	mu      sync.Mutex
	dir     string
	runDate time.Time
}

// NewCSVWriter ensures the output directory exists and returns a
// writer stamping files with today's date.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{dir: dir, runDate: time.Now()}, nil
}

// WriteSegment writes the full cleaned record set of one segment:
// header row, then one row per record with the segment's feature
// columns and, where applicable, the price-per-area column.
func (c *CSVWriter) WriteSegment(segment models.Segment, records []models.PriceRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.dir,
		fmt.Sprintf("house_prices_%s_%s.csv", segment.Name, c.runDate.Format(time.DateOnly)))

	f, err := os.Create(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("csv: %s is locked by another program — close it and rerun: %w", path, err)
		}
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"region", "location", "row", "price", "date"}
	header = append(header, segment.Features...)
	if !segment.Land() {
		header = append(header, "price_per_area")
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Region,
			rec.Location,
			strconv.Itoa(rec.Seq),
			strconv.FormatFloat(rec.Price, 'f', -1, 64),
			rec.Published.Format(time.DateOnly),
		}
		for _, fv := range rec.Features {
			row = append(row, featureCell(fv))
		}
		if !segment.Land() {
			row = append(row, densityCell(rec))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// Close is a no-op; every segment file is closed after writing.
func (c *CSVWriter) Close() error { return nil }

func featureCell(fv models.FeatureValue) string {
	if !fv.Present {
		return ""
	}
	if fv.Numeric {
		return strconv.FormatFloat(fv.Num, 'f', -1, 64)
	}
	return fv.Raw
}

func densityCell(rec models.PriceRecord) string {
	if !rec.HasDensity || math.IsNaN(rec.Density) {
		return ""
	}
	return strconv.FormatFloat(rec.Density, 'f', 2, 64)
}
