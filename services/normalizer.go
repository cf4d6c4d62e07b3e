package services

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"housing-scraper/models"
)

// ErrMalformedPrice is returned for a price tuple that is neither a
// barter sentinel nor a usable amount.
var ErrMalformedPrice = errors.New("malformed price")

// Normalizer converts mixed-currency, possibly-barter prices into a
// single target unit using the process-wide exchange rate.
type Normalizer struct {
	rate          float64
	quoteCurrency string
	logger        *slog.Logger
}

// NewNormalizer creates a Normalizer. The rate is fetched once at
// startup and read-only for the rest of the run.
func NewNormalizer(rate float64, quoteCurrency string, logger *slog.Logger) *Normalizer {
	return &Normalizer{rate: rate, quoteCurrency: quoteCurrency, logger: logger}
}

// Normalize maps one price tuple into the target unit: barter offers
// normalize to 0, local-currency amounts are divided by the exchange
// rate, anything else passes through. Results are rounded to whole
// units.
func (n *Normalizer) Normalize(p models.PriceValue) (float64, error) {
	if p.Barter {
		return 0, nil
	}
	if math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) || p.Amount < 0 {
		return 0, fmt.Errorf("%w: amount %v", ErrMalformedPrice, p.Amount)
	}

	amount := p.Amount
	if p.Currency == n.quoteCurrency {
		amount /= n.rate
	}
	return math.Round(amount), nil
}

// BuildRecords turns one job's page-ordered offers into price records
// for the given location. Row numbers are assigned densely in page
// order; the later trimming pass reassigns them after filtering.
// Malformed fields become missing values, they never drop the record
// here.
func (n *Normalizer) BuildRecords(loc models.Location, offers []models.RawOffer) []models.PriceRecord {
	records := make([]models.PriceRecord, 0, len(offers))

	for i, offer := range offers {
		price, err := n.Normalize(offer.Price)
		if err != nil {
			n.logger.Warn("[normalizer] unusable price, keeping record with zero",
				"location", loc.Name, "row", i, "err", err)
			price = 0
		}

		published, err := time.Parse(time.DateOnly, offer.Published)
		if err != nil {
			// Left as the zero time; the date filter drops it later.
			n.logger.Debug("[normalizer] unparseable publish date",
				"location", loc.Name, "row", i, "raw", offer.Published)
		}

		records = append(records, models.PriceRecord{
			Region:    loc.Region,
			Location:  loc.Name,
			Seq:       i,
			Price:     price,
			Published: published,
			Features:  offer.Features,
			Density:   math.NaN(),
		})
	}

	return records
}
