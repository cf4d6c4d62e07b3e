package olx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"housing-scraper/config"
)

// searchResponse mirrors the listing-search endpoint payload. When
// promoted offers are present, metadata.source.organic holds the
// indices of the organic subset of data.
type searchResponse struct {
	Metadata struct {
		TotalElements int  `json:"total_elements"`
		Promoted      bool `json:"promoted"`
		Source        struct {
			Organic []int `json:"organic"`
		} `json:"source"`
	} `json:"metadata"`
	Data []offerPayload `json:"data"`
}

type offerPayload struct {
	LastRefreshTime string       `json:"last_refresh_time"`
	Params          []offerParam `json:"params"`
}

type offerParam struct {
	Name  string     `json:"name"`
	Value paramValue `json:"value"`
}

// paramValue carries either a labeled feature value or, for the price
// param, an amount with a currency code. The barter sentinel has no
// numeric amount, so Value stays raw until parsing.
type paramValue struct {
	Label    string          `json:"label"`
	Value    json.RawMessage `json:"value"`
	Currency string          `json:"currency"`
}

// Client talks to the listing-search endpoint. Each call is bounded by
// the configured per-request timeout; there is no other cancellation.
type Client struct {
	http      *http.Client
	offersURL string
	token     string
}

// NewClient creates an API client from the application config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:      &http.Client{Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second},
		offersURL: cfg.OffersURL,
		token:     cfg.AccessToken,
	}
}

// search issues one GET against the offers endpoint with the given
// query parameters and decodes the page payload.
func (c *Client) search(ctx context.Context, params map[string]string) (*searchResponse, error) {
	u, err := url.Parse(c.offersURL)
	if err != nil {
		return nil, fmt.Errorf("olx: parse offers url: %w", err)
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	if c.token != "" {
		q.Set("sl", c.token)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("olx: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("olx: search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("olx: search returned status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("olx: decode search response: %w", err)
	}
	return &payload, nil
}
