package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"housing-scraper/models"
)

// PostgresWriter persists cleaned price records to PostgreSQL. Every
// row is tagged with the run's UUID so consecutive runs can coexist.
type PostgresWriter struct {
	db    *sql.DB
	runID uuid.UUID
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string, runID uuid.UUID) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db, runID: runID}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS price_records (
			id             SERIAL PRIMARY KEY,
			run_id         UUID          NOT NULL,
			segment        VARCHAR(32)   NOT NULL,
			region         TEXT          NOT NULL,
			location       TEXT          NOT NULL,
			row_num        INT           NOT NULL,
			price          NUMERIC(14,2) NOT NULL,
			published      DATE          NOT NULL,
			features       JSONB         NOT NULL DEFAULT '{}',
			price_per_area NUMERIC(12,2),
			created_at     TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_price_records_run      ON price_records(run_id);
		CREATE INDEX IF NOT EXISTS idx_price_records_segment  ON price_records(segment);
		CREATE INDEX IF NOT EXISTS idx_price_records_location ON price_records(region, location);
	`)
	return err
}

// WriteSegment batch-inserts one segment's cleaned records under the
// writer's run ID.
func (pw *PostgresWriter) WriteSegment(segment models.Segment, records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := pw.insertBatch(segment, records[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(segment models.Segment, batch []models.PriceRecord) error {
	const cols = 9
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, rec := range batch {
		base := idx * cols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))

		featuresJSON, err := featuresAsJSON(segment, rec)
		if err != nil {
			return fmt.Errorf("postgres: encode features: %w", err)
		}

		var perArea interface{}
		if rec.HasDensity && !math.IsNaN(rec.Density) {
			perArea = rec.Density
		}

		valueArgs = append(valueArgs,
			pw.runID, segment.Name, rec.Region, rec.Location, rec.Seq,
			rec.Price, rec.Published, featuresJSON, perArea)
	}

	query := fmt.Sprintf(`
		INSERT INTO price_records (run_id, segment, region, location, row_num, price, published, features, price_per_area)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

// featuresAsJSON maps the segment's feature names to their coerced
// values: numbers where coercion succeeded, the raw label otherwise,
// null when absent.
func featuresAsJSON(segment models.Segment, rec models.PriceRecord) ([]byte, error) {
	m := make(map[string]interface{}, len(rec.Features))
	for i, fv := range rec.Features {
		if i >= len(segment.Features) {
			break
		}
		name := segment.Features[i]
		switch {
		case !fv.Present:
			m[name] = nil
		case fv.Numeric:
			m[name] = fv.Num
		default:
			m[name] = fv.Raw
		}
	}
	return json.Marshal(m)
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
