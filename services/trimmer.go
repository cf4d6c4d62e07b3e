package services

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"housing-scraper/models"
)

// TrimConfig holds the statistical cutoffs applied during trimming.
// They are market-wide tuning values, not segment logic.
type TrimConfig struct {
	DensityMin   float64
	DensityMax   float64
	LowPct       float64
	HighPct      float64
	MinGroupSize int
}

// Trimmer removes date-out-of-range and statistically extreme
// price-density records, grouped per location.
type Trimmer struct {
	cfg    TrimConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewTrimmer creates a Trimmer using the wall clock for the
// current-month date filter.
func NewTrimmer(cfg TrimConfig, logger *slog.Logger) *Trimmer {
	return &Trimmer{cfg: cfg, logger: logger, now: time.Now}
}

// Trim applies the cleaning pipeline for one segment over the full
// aggregated record set: numeric feature coercion, current-month date
// filter, density metric, absolute band, per-location percentile trim
// and dense renumbering. It returns the cleaned records plus a report
// of how many were dropped.
func (t *Trimmer) Trim(seg models.Segment, records []models.PriceRecord) ([]models.PriceRecord, models.TrimReport) {
	report := models.TrimReport{Before: len(records)}

	kept := make([]models.PriceRecord, 0, len(records))
	firstOfMonth := firstDayOfMonth(t.now())

	for _, rec := range records {
		coerceFeatures(&rec)

		// This run only reports current-month activity.
		if rec.Published.Before(firstOfMonth) {
			continue
		}

		if !seg.Land() {
			rec.HasDensity = true
			rec.Density = density(rec)

			// Sanity band first; the rental segment is exempt.
			if seg.Name != models.SegmentRental &&
				!(rec.Density > t.cfg.DensityMin && rec.Density < t.cfg.DensityMax) {
				continue
			}
		}

		kept = append(kept, rec)
	}

	cleaned := t.trimGroups(seg, kept)

	report.Kept = len(cleaned)
	report.Dropped = report.Before - report.Kept
	t.logger.Info("[trimmer] segment cleaned",
		"segment", seg.Name,
		"dropped", report.Dropped,
		"kept", report.Kept,
		"of", report.Before)

	return cleaned, report
}

// trimGroups groups records per (region, location), trims each group
// to strictly between its own low/high density percentiles when it is
// large enough, and reassigns dense row numbers per group. Groups come
// back sorted by region then location.
func (t *Trimmer) trimGroups(seg models.Segment, records []models.PriceRecord) []models.PriceRecord {
	type groupKey struct{ region, location string }

	groups := make(map[groupKey][]models.PriceRecord)
	var keys []groupKey
	for _, rec := range records {
		k := groupKey{rec.Region, rec.Location}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], rec)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].region != keys[j].region {
			return keys[i].region < keys[j].region
		}
		return keys[i].location < keys[j].location
	})

	out := make([]models.PriceRecord, 0, len(records))
	for _, k := range keys {
		group := groups[k]

		if !seg.Land() {
			sortByDensity(group)
			if len(group) > t.cfg.MinGroupSize {
				lo, lok := quantile(group, t.cfg.LowPct)
				hi, hik := quantile(group, t.cfg.HighPct)
				if lok && hik {
					trimmed := group[:0]
					for _, rec := range group {
						if rec.Density > lo && rec.Density < hi {
							trimmed = append(trimmed, rec)
						}
					}
					group = trimmed
				}
			}
		}

		for i := range group {
			group[i].Seq = i
		}
		out = append(out, group...)
	}
	return out
}

// density is the normalized price per primary area unit, rounded to
// two decimals. Missing or zero area yields NaN, which every band and
// percentile comparison rejects.
func density(rec models.PriceRecord) float64 {
	if len(rec.Features) == 0 {
		return math.NaN()
	}
	area := rec.Features[0]
	if !area.Numeric || area.Num == 0 {
		return math.NaN()
	}
	return round2(rec.Price / area.Num)
}

// coerceFeatures strips unit suffixes from feature labels and parses
// them to numbers. Parse failure leaves the value non-numeric instead
// of dropping the row.
func coerceFeatures(rec *models.PriceRecord) {
	for i, fv := range rec.Features {
		if !fv.Present || fv.Numeric {
			continue
		}
		cleanedVal := strings.NewReplacer("м²", "", "m²", "", " ", "").Replace(fv.Raw)
		if n, err := strconv.ParseFloat(cleanedVal, 64); err == nil {
			rec.Features[i].Num = n
			rec.Features[i].Numeric = true
		}
	}
}

// sortByDensity orders a group by ascending density, records without a
// density last, preserving relative order of equals.
func sortByDensity(group []models.PriceRecord) {
	sort.SliceStable(group, func(i, j int) bool {
		di, dj := group[i].Density, group[j].Density
		if math.IsNaN(di) {
			return false
		}
		if math.IsNaN(dj) {
			return true
		}
		return di < dj
	})
}

// quantile computes the q-th quantile of the group's density values by
// linear interpolation, ignoring missing densities. The second return
// is false when no densities exist.
func quantile(group []models.PriceRecord, q float64) (float64, bool) {
	vals := make([]float64, 0, len(group))
	for _, rec := range group {
		if !math.IsNaN(rec.Density) {
			vals = append(vals, rec.Density)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)

	pos := q * float64(len(vals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vals[lo], true
	}
	frac := pos - float64(lo)
	return vals[lo] + frac*(vals[hi]-vals[lo]), true
}

func firstDayOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
