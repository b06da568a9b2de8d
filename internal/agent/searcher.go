package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Searcher returns candidate URLs for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]string, error)
}

// GoogleSearcher queries the Google Custom Search JSON API.
type GoogleSearcher struct {
	apiKey   string
	engineID string
	baseURL  string
	client   *http.Client
}

func NewGoogleSearcher(apiKey, engineID string) *GoogleSearcher {
	return &GoogleSearcher{
		apiKey:   apiKey,
		engineID: engineID,
		baseURL:  "https://www.googleapis.com/customsearch/v1",
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *GoogleSearcher) Search(ctx context.Context, query string, numResults int) ([]string, error) {
	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("search API error: %s", parsed.Error.Message)
	}

	urls := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}

	return urls, nil
}
