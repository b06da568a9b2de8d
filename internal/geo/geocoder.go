package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnresolvable is returned when the geocoding provider cannot resolve
// an address, including on provider timeouts.
var ErrUnresolvable = errors.New("address unresolvable")

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (lat, lng float64, err error)
}

// NominatimGeocoder queries a Nominatim-compatible search endpoint.
type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
}

func NewNominatimGeocoder(baseURL string) *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve returns ErrUnresolvable for timeouts, non-200 responses, and
// empty result sets rather than surfacing transport errors; a bad
// address is an expected outcome, not a failure of the caller's
// operation.
func (g *NominatimGeocoder) Resolve(ctx context.Context, address string) (float64, float64, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", "food-bridge")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, ErrUnresolvable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, ErrUnresolvable
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, ErrUnresolvable
	}
	if len(results) == 0 {
		return 0, 0, ErrUnresolvable
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, ErrUnresolvable
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, ErrUnresolvable
	}

	return lat, lng, nil
}
