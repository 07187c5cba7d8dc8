package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benjaminbreen/premodern-concordance/internal/llm"
)

// WikipediaConfig holds Wikipedia client configuration.
type WikipediaConfig struct {
	BaseURL string        // default: https://en.wikipedia.org/api/rest_v1
	Timeout time.Duration // default: 15s
}

// WikipediaSource queries the Wikipedia REST summary endpoint. It is the
// encyclopedia of the enrichment stage: one article per title, so it
// never reports ambiguity on its own, but a disambiguation page counts
// as a rejected lookup.
type WikipediaSource struct {
	cfg     WikipediaConfig
	client  *http.Client
	breaker *llm.CircuitBreaker
}

// NewWikipediaSource creates a Wikipedia lookup client.
func NewWikipediaSource(cfg WikipediaConfig) *WikipediaSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://en.wikipedia.org/api/rest_v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &WikipediaSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: llm.NewCircuitBreaker("wikipedia"),
	}
}

type wikipediaSummaryResponse struct {
	Type        string `json:"type"` // "standard" or "disambiguation"
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Name implements Source.
func (s *WikipediaSource) Name() string { return "wikipedia" }

// Lookup fetches the article summary for the query name. A 404 returns
// no candidates; a disambiguation page returns ErrAmbiguous.
func (s *WikipediaSource) Lookup(ctx context.Context, q Query) ([]Candidate, error) {
	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.lookup(ctx, q)
	})
	if err != nil {
		if errors.Is(err, llm.ErrCircuitOpen) {
			return nil, fmt.Errorf("wikipedia circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.([]Candidate), nil
}

func (s *WikipediaSource) lookup(ctx context.Context, q Query) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	title := url.PathEscape(strings.ReplaceAll(q.Name, " ", "_"))
	req, err := http.NewRequestWithContext(ctx, "GET", s.cfg.BaseURL+"/page/summary/"+title, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	var data wikipediaSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if data.Type == "disambiguation" {
		return nil, fmt.Errorf("%w: %q is a disambiguation page", ErrAmbiguous, q.Name)
	}

	gloss := data.Description
	if gloss == "" {
		gloss = data.Extract
	}
	return []Candidate{{
		Source:        "wikipedia",
		ID:            data.Title,
		Name:          data.Title,
		Description:   gloss,
		URL:           data.ContentURLs.Desktop.Page,
		CategoryMatch: descriptionMatchesCategory(gloss, q.Category),
		Score:         0.9,
	}}, nil
}

var _ Source = (*WikipediaSource)(nil)
