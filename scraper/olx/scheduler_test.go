package olx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"housing-scraper/config"
	"housing-scraper/models"
	"housing-scraper/utils"
)

func testConfig(offersURL string) *config.Config {
	return &config.Config{
		OffersURL:         offersURL,
		QuoteCurrency:     "UZS",
		PageSize:          50,
		MaxJobs:           4,
		MaxPageFetchers:   30,
		RequestTimeoutSec: 5,
		MaxRetries:        1,
		CapitalRegion:     "Tashkent city",
		CapitalRegionID:   5,
		CapitalCityID:     4,
	}
}

func testLocation(name string, cityID int) models.Location {
	return models.Location{Region: "Test region", RegionID: 10, Name: name, LocationID: cityID}
}

// apiOffer marshals into the offer payload shape of the search endpoint.
func apiOffer(price float64, published string) map[string]any {
	return map[string]any{
		"last_refresh_time": published,
		"params": []map[string]any{
			{"name": "Price", "value": map[string]any{"value": price, "currency": "USD"}},
			{"name": "Total area", "value": map[string]any{"label": "80 m²"}},
		},
	}
}

func writePage(w http.ResponseWriter, total int, promoted bool, organic []int, offers ...map[string]any) {
	meta := map[string]any{"total_elements": total, "promoted": promoted}
	if promoted {
		meta["source"] = map[string]any{"organic": organic}
	}
	json.NewEncoder(w).Encode(map[string]any{"metadata": meta, "data": offers})
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{125, 50, 3},
		{-1, 50, 0},
	}
	for _, tt := range tests {
		if got := pageCount(tt.total, tt.size); got != tt.want {
			t.Errorf("pageCount(%d, %d) = %d; want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestPageRequestsAreDisjointClones(t *testing.T) {
	cfg := testConfig("http://unused")
	seg, _ := SegmentByName(models.SegmentRental)
	job := BuildJob(cfg, testLocation("CITY", 42), seg)
	job.Pages = 3

	for page := 0; page < 3; page++ {
		req := job.PageRequest(page, cfg.PageSize)
		if want := strconv.Itoa(page * cfg.PageSize); req.Params["offset"] != want {
			t.Errorf("page %d: offset = %s, want %s", page, req.Params["offset"], want)
		}
		if req.TotalPages != 3 {
			t.Errorf("page %d: TotalPages = %d, want 3", page, req.TotalPages)
		}

		// Mutating a derived request must never leak into the template.
		req.Params["offset"] = "poisoned"
		if job.Params["offset"] != "0" {
			t.Fatal("page request shares the job's parameter map")
		}
	}
}

func TestPromotedOfferFiltering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage(w, 3, true, []int{0, 2},
			apiOffer(100, "2026-09-01T10:00:00+05:00"),
			apiOffer(200, "2026-09-02T10:00:00+05:00"),
			apiOffer(300, "2026-09-03T10:00:00+05:00"),
		)
	}))
	defer srv.Close()

	s := NewScheduler(testConfig(srv.URL), utils.NewLogger("error"))
	seg, _ := SegmentByName(models.SegmentRental)
	results := s.Run(context.Background(), []*models.Job{
		BuildJob(s.cfg, testLocation("CITY", 1), seg),
	})

	if err := results[0].Err; err != nil {
		t.Fatalf("job failed: %v", err)
	}
	offers := results[0].Offers
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2 organic ones", len(offers))
	}
	if offers[0].Price.Amount != 100 || offers[1].Price.Amount != 300 {
		t.Errorf("organic subset wrong or out of order: %v, %v",
			offers[0].Price.Amount, offers[1].Price.Amount)
	}
}

func TestPagesReassembledInIndexOrder(t *testing.T) {
	// Three pages; earlier pages answer slower, so completion order is
	// the reverse of page order.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := offset / 50
		time.Sleep(time.Duration(2-page) * 30 * time.Millisecond)
		writePage(w, 150, false, nil, apiOffer(float64(page), "2026-09-01T10:00:00+05:00"))
	}))
	defer srv.Close()

	s := NewScheduler(testConfig(srv.URL), utils.NewLogger("error"))
	seg, _ := SegmentByName(models.SegmentSecondary)
	results := s.Run(context.Background(), []*models.Job{
		BuildJob(s.cfg, testLocation("CITY", 1), seg),
	})

	if err := results[0].Err; err != nil {
		t.Fatalf("job failed: %v", err)
	}
	offers := results[0].Offers
	if len(offers) != 3 {
		t.Fatalf("got %d offers, want 3", len(offers))
	}
	for i, offer := range offers {
		if offer.Price.Amount != float64(i) {
			t.Errorf("slot %d holds page %v; output must follow page index, not completion order",
				i, offer.Price.Amount)
		}
	}
}

func TestZeroResultsIsEmptyNotError(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		writePage(w, 0, false, nil)
	}))
	defer srv.Close()

	s := NewScheduler(testConfig(srv.URL), utils.NewLogger("error"))
	seg, _ := SegmentByName(models.SegmentLand)
	results := s.Run(context.Background(), []*models.Job{
		BuildJob(s.cfg, testLocation("CITY", 1), seg),
	})

	if results[0].Err != nil {
		t.Errorf("empty job must not be an error: %v", results[0].Err)
	}
	if len(results[0].Offers) != 0 {
		t.Errorf("empty job produced %d offers", len(results[0].Offers))
	}
	if calls != 1 {
		t.Errorf("expected only the discovery probe, saw %d requests", calls)
	}
}

func TestJobFailureDoesNotAffectSiblings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("city_id") == "13" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writePage(w, 1, false, nil, apiOffer(500, "2026-09-01T10:00:00+05:00"))
	}))
	defer srv.Close()

	s := NewScheduler(testConfig(srv.URL), utils.NewLogger("error"))
	seg, _ := SegmentByName(models.SegmentRental)
	results := s.Run(context.Background(), []*models.Job{
		BuildJob(s.cfg, testLocation("BROKEN", 13), seg),
		BuildJob(s.cfg, testLocation("HEALTHY", 7), seg),
	})

	if results[0].Err == nil {
		t.Error("broken job should carry its failure cause")
	}
	if len(results[0].Offers) != 0 {
		t.Errorf("failed job must contribute zero records, got %d", len(results[0].Offers))
	}
	if results[1].Err != nil {
		t.Errorf("sibling job affected by failure: %v", results[1].Err)
	}
	if len(results[1].Offers) != 1 {
		t.Errorf("sibling job got %d offers, want 1", len(results[1].Offers))
	}
}

func TestEndToEndRentalAndLandScenario(t *testing.T) {
	// Rental: 125 results at page size 50 -> probe + 3 page fetches.
	// Land: 0 results -> probe only, reported empty.
	var rentalRequests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("category_id") == "1519" {
			writePage(w, 0, false, nil)
			return
		}

		atomic.AddInt64(&rentalRequests, 1)
		offset, _ := strconv.Atoi(q.Get("offset"))
		count := 50
		if offset == 100 {
			count = 25
		}
		offers := make([]map[string]any, count)
		for i := range offers {
			offers[i] = apiOffer(float64(offset+i), "2026-09-05T10:00:00+05:00")
		}
		writePage(w, 125, false, nil, offers...)
	}))
	defer srv.Close()

	s := NewScheduler(testConfig(srv.URL), utils.NewLogger("error"))
	loc := testLocation("CITY", 1)

	rental, _ := SegmentByName(models.SegmentRental)
	rentalResults := s.Run(context.Background(), []*models.Job{BuildJob(s.cfg, loc, rental)})
	if err := rentalResults[0].Err; err != nil {
		t.Fatalf("rental job failed: %v", err)
	}
	if got := len(rentalResults[0].Offers); got != 125 {
		t.Errorf("rental offers: got %d, want 125", got)
	}
	// One discovery probe plus one request per discovered page.
	if rentalRequests != 4 {
		t.Errorf("rental requests: got %d, want 4 (probe + 3 pages)", rentalRequests)
	}
	for i, offer := range rentalResults[0].Offers {
		if offer.Price.Amount != float64(i) {
			t.Fatalf("offer %d out of order (amount %v)", i, offer.Price.Amount)
		}
	}

	land, _ := SegmentByName(models.SegmentLand)
	landResults := s.Run(context.Background(), []*models.Job{BuildJob(s.cfg, loc, land)})
	if landResults[0].Err != nil {
		t.Errorf("land job must be empty, not failed: %v", landResults[0].Err)
	}
	if len(landResults[0].Offers) != 0 {
		t.Errorf("land offers: got %d, want 0", len(landResults[0].Offers))
	}
}

func TestBarterAndFeatureMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		barter := map[string]any{
			"last_refresh_time": "2026-09-07T09:30:00+05:00",
			"params": []map[string]any{
				{"name": "Price", "value": map[string]any{"label": "Exchange"}},
				{"name": "Floor", "value": map[string]any{"label": "4"}},
			},
		}
		writePage(w, 1, false, nil, barter)
	}))
	defer srv.Close()

	s := NewScheduler(testConfig(srv.URL), utils.NewLogger("error"))
	seg := models.Segment{Name: models.SegmentRental, CategoryID: 1147, Features: []string{"Total area", "Floor"}}
	results := s.Run(context.Background(), []*models.Job{
		BuildJob(s.cfg, testLocation("CITY", 1), seg),
	})

	if err := results[0].Err; err != nil {
		t.Fatalf("job failed: %v", err)
	}
	offers := results[0].Offers
	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1", len(offers))
	}

	offer := offers[0]
	if !offer.Price.Barter {
		t.Error("price without numeric amount must map to the barter sentinel")
	}
	if offer.Published != "2026-09-07" {
		t.Errorf("published = %q, want first 10 chars of the timestamp", offer.Published)
	}
	if offer.Features[0].Present {
		t.Error("absent feature must carry the missing marker")
	}
	if !offer.Features[1].Present || offer.Features[1].Raw != "4" {
		t.Errorf("feature mapping wrong: %+v", offer.Features[1])
	}
}

func TestPageFailureFailsWholeJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset == 50 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		writePage(w, 150, false, nil, apiOffer(1, "2026-09-01T10:00:00+05:00"))
	}))
	defer srv.Close()

	s := NewScheduler(testConfig(srv.URL), utils.NewLogger("error"))
	seg, _ := SegmentByName(models.SegmentSecondary)
	results := s.Run(context.Background(), []*models.Job{
		BuildJob(s.cfg, testLocation("CITY", 1), seg),
	})

	if results[0].Err == nil {
		t.Error("a failed page must propagate to the job's failure handler")
	}
	if len(results[0].Offers) != 0 {
		t.Errorf("failed job must yield zero records, got %d", len(results[0].Offers))
	}
}
