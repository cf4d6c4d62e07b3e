package olx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FetchExchangeRate reads the currency conversion rate from the
// central-bank endpoint: a JSON array whose first element carries a
// Rate field (numeric string or number). It runs once at startup and
// any failure is fatal for the run — every conversion depends on it.
func FetchExchangeRate(ctx context.Context, rateURL string, timeout time.Duration) (float64, error) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rateURL, nil)
	if err != nil {
		return 0, fmt.Errorf("rates: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rates: fetch %s: %w", rateURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rates: endpoint returned status %d", resp.StatusCode)
	}

	var payload []struct {
		Rate json.Number `json:"Rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("rates: decode response: %w", err)
	}
	if len(payload) == 0 {
		return 0, fmt.Errorf("rates: empty response from %s", rateURL)
	}

	rate, err := payload[0].Rate.Float64()
	if err != nil {
		return 0, fmt.Errorf("rates: non-numeric rate %q: %w", payload[0].Rate.String(), err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("rates: non-positive rate %v", rate)
	}
	return rate, nil
}
