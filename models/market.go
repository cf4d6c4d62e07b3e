package models

import "strconv"

// Segment names form a fixed enumerated set; every run walks them in
// this order.
const (
	SegmentSecondary = "secondary-sale"
	SegmentNewBuild  = "new-construction"
	SegmentRental    = "rental"
	SegmentLand      = "land"
)

// Segment describes one market segment: its search category, the
// optional market-type sub-filter and the ordered feature parameters
// relevant to that segment. Immutable.
type Segment struct {
	Name       string
	CategoryID int
	MarketType string   // "secondary" / "primary", empty when the segment has no sub-filter
	Features   []string // ordered param names; Features[0] is the primary area for non-land segments
}

// Land reports whether this is the land segment, which carries no
// per-area density metric.
func (s Segment) Land() bool { return s.Name == SegmentLand }

// Location is one geographic search target. Capital sub-districts are
// addressed through a fixed region/city pair plus a district filter;
// everything else uses its own region/city IDs. Fixed at construction.
type Location struct {
	Region     string
	RegionID   int
	Name       string
	LocationID int
	Capital    bool
}

// Job pairs a Location with a Segment and owns the query-parameter
// template all of its page requests derive from.
type Job struct {
	Location Location
	Segment  Segment
	Params   map[string]string

	// Pages is set once by pagination discovery and never revised.
	Pages int
}

// PageRequest is one offset-bounded slice of a job's result set. Its
// params are a private copy — concurrent fetchers never share a map.
type PageRequest struct {
	Location   Location
	Segment    Segment
	Params     map[string]string
	Page       int
	TotalPages int
}

// PageRequest derives the request for the given page index. The job's
// template is cloned so the fan-out shares no mutable state.
func (j *Job) PageRequest(page, limit int) PageRequest {
	params := make(map[string]string, len(j.Params))
	for k, v := range j.Params {
		params[k] = v
	}
	params["offset"] = strconv.Itoa(page * limit)

	return PageRequest{
		Location:   j.Location,
		Segment:    j.Segment,
		Params:     params,
		Page:       page,
		TotalPages: j.Pages,
	}
}
