package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/mediabot-go/internal/domain"
)

// RapidAPISearcher implements Searcher against the YouTube v3 mirror on RapidAPI
type RapidAPISearcher struct {
	key     string
	host    string
	baseURL string
	client  *http.Client
}

// NewRapidAPISearcher creates a new RapidAPI search client
func NewRapidAPISearcher(key, host string) *RapidAPISearcher {
	return &RapidAPISearcher{
		key:     key,
		host:    host,
		baseURL: "https://" + host,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the search provider
func (s *RapidAPISearcher) Name() string {
	return "rapidapi"
}

type rapidAPIResponse struct {
	Items []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search returns at most limit video hits for query
func (s *RapidAPISearcher) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if limit < 1 {
		limit = 1
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("part", "snippet,id")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", s.key)
	req.Header.Set("X-RapidAPI-Host", s.host)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: rapidapi request: %v", domain.ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: rapidapi status %d: %s", domain.ErrExtraction, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload rapidAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: invalid rapidapi response: %v", domain.ErrExtraction, err)
	}

	hits := make([]domain.SearchHit, 0, len(payload.Items))
	for _, item := range payload.Items {
		// channels and playlists carry no videoId
		if item.ID.VideoID == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Title: html.UnescapeString(item.Snippet.Title),
			ID:    item.ID.VideoID,
			URL:   domain.YouTubeWatchURL(item.ID.VideoID),
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}
