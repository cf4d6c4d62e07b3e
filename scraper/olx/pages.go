package olx

import (
	"context"
	"encoding/json"
	"fmt"

	"housing-scraper/models"
)

// fetchPage retrieves one offset-bounded slice of a job's result set
// and maps the organic offers into raw records, in page order.
func (s *Scheduler) fetchPage(ctx context.Context, req models.PageRequest) ([]models.RawOffer, error) {
	resp, err := s.client.search(ctx, req.Params)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", req.Page, err)
	}

	organic := organicOffers(resp)

	offers := make([]models.RawOffer, 0, len(organic))
	for _, payload := range organic {
		offers = append(offers, mapOffer(payload, req.Segment))
	}

	s.logger.Info("[olx] page fetched",
		"location", req.Location.Name,
		"segment", req.Segment.Name,
		"progress", fmt.Sprintf("%d/%d", req.Page+1, req.TotalPages),
		"offers", len(offers))

	return offers, nil
}

// organicOffers drops promoted (sponsored) entries. When the page is
// flagged promoted, only the indices listed in metadata.source.organic
// are kept, preserving their relative order; out-of-range indices are
// ignored. Without the flag the page is returned as-is.
func organicOffers(resp *searchResponse) []offerPayload {
	if !resp.Metadata.Promoted {
		return resp.Data
	}

	organic := make([]offerPayload, 0, len(resp.Metadata.Source.Organic))
	for _, idx := range resp.Metadata.Source.Organic {
		if idx >= 0 && idx < len(resp.Data) {
			organic = append(organic, resp.Data[idx])
		}
	}
	return organic
}

// mapOffer converts one raw API offer into a typed record: publish
// date, price tuple and the segment's declared features, with a
// missing marker for absent params.
func mapOffer(payload offerPayload, seg models.Segment) models.RawOffer {
	byName := make(map[string]paramValue, len(payload.Params))
	for _, p := range payload.Params {
		byName[p.Name] = p.Value
	}

	features := make([]models.FeatureValue, len(seg.Features))
	for i, name := range seg.Features {
		if v, ok := byName[name]; ok {
			features[i] = models.FeatureValue{Raw: v.Label, Present: true}
		}
	}

	published := payload.LastRefreshTime
	if len(published) > 10 {
		published = published[:10]
	}

	return models.RawOffer{
		Published: published,
		Price:     parsePrice(byName[priceParam]),
		Features:  features,
	}
}

// parsePrice reads the price param. A param without a decodable
// numeric amount is the barter sentinel (exchange, no fixed price).
func parsePrice(v paramValue) models.PriceValue {
	var amount float64
	if len(v.Value) > 0 && json.Unmarshal(v.Value, &amount) == nil {
		return models.PriceValue{Amount: amount, Currency: v.Currency}
	}
	return models.PriceValue{Barter: true}
}
