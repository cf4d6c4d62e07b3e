package olx

import (
	"errors"
	"fmt"
	"strconv"

	"housing-scraper/config"
	"housing-scraper/models"
)

// ErrInvalidSegment is returned when a segment name is not one of the
// four recognized values.
var ErrInvalidSegment = errors.New("invalid market segment")

// priceParam is the name of the offer param carrying the price.
const priceParam = "Price"

// flatFeatures are the ordered feature params for structure segments;
// the first entry is the primary area used for the density metric.
var flatFeatures = []string{"Total area", "Floors in building", "Floor", "Number of rooms", "Building type"}

// landFeatures are the ordered feature params for the land segment.
var landFeatures = []string{"Plot area", "Plot type"}

var segments = []models.Segment{
	{Name: models.SegmentSecondary, CategoryID: 13, MarketType: "secondary", Features: flatFeatures},
	{Name: models.SegmentNewBuild, CategoryID: 13, MarketType: "primary", Features: flatFeatures},
	{Name: models.SegmentRental, CategoryID: 1147, Features: flatFeatures},
	{Name: models.SegmentLand, CategoryID: 1519, Features: landFeatures},
}

// Segments returns all market segments in their fixed run order.
func Segments() []models.Segment {
	out := make([]models.Segment, len(segments))
	copy(out, segments)
	return out
}

// SegmentByName resolves a segment name to its definition.
func SegmentByName(name string) (models.Segment, error) {
	for _, s := range segments {
		if s.Name == name {
			return s, nil
		}
	}
	return models.Segment{}, fmt.Errorf("%w: %q", ErrInvalidSegment, name)
}

// BuildJob combines a location and a segment into a job with a fully
// populated query template. Pure construction, no I/O.
func BuildJob(cfg *config.Config, loc models.Location, seg models.Segment) *models.Job {
	params := map[string]string{
		"offset":          "0",
		"limit":           strconv.Itoa(cfg.PageSize),
		"currency":        cfg.QuoteCurrency,
		"filter_refiners": "",
		"category_id":     strconv.Itoa(seg.CategoryID),
	}

	if loc.Capital {
		// Capital sub-districts live under a fixed region/city pair and
		// are narrowed by a district filter instead.
		params["region_id"] = strconv.Itoa(cfg.CapitalRegionID)
		params["city_id"] = strconv.Itoa(cfg.CapitalCityID)
		params["district_id"] = strconv.Itoa(loc.LocationID)
	} else {
		params["region_id"] = strconv.Itoa(loc.RegionID)
		params["city_id"] = strconv.Itoa(loc.LocationID)
	}

	if seg.MarketType != "" {
		params["filter_enum_type_of_market[0]"] = seg.MarketType
	}

	return &models.Job{Location: loc, Segment: seg, Params: params}
}
