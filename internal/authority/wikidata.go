package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/benjaminbreen/premodern-concordance/internal/llm"
)

// WikidataConfig holds Wikidata client configuration.
type WikidataConfig struct {
	BaseURL string        // default: https://www.wikidata.org/w/api.php
	Timeout time.Duration // default: 15s
}

// WikidataSource queries the Wikidata entity search API
// (wbsearchentities). It is the general knowledge base of the enrichment
// stage.
type WikidataSource struct {
	cfg     WikidataConfig
	client  *http.Client
	breaker *llm.CircuitBreaker
}

// NewWikidataSource creates a Wikidata lookup client.
func NewWikidataSource(cfg WikidataConfig) *WikidataSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.wikidata.org/w/api.php"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &WikidataSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: llm.NewCircuitBreaker("wikidata"),
	}
}

type wikidataSearchResponse struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
		ConceptURI  string `json:"concepturi"`
	} `json:"search"`
}

// Name implements Source.
func (s *WikidataSource) Name() string { return "wikidata" }

// Lookup searches Wikidata items for the query name.
func (s *WikidataSource) Lookup(ctx context.Context, q Query) ([]Candidate, error) {
	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.lookup(ctx, q)
	})
	if err != nil {
		if errors.Is(err, llm.ErrCircuitOpen) {
			return nil, fmt.Errorf("wikidata circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.([]Candidate), nil
}

func (s *WikidataSource) lookup(ctx context.Context, q Query) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	params := url.Values{
		"action":   {"wbsearchentities"},
		"search":   {q.Name},
		"language": {"en"},
		"type":     {"item"},
		"limit":    {"5"},
		"format":   {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikidata returned status %d", resp.StatusCode)
	}

	var data wikidataSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	candidates := make([]Candidate, 0, len(data.Search))
	for i, item := range data.Search {
		candidates = append(candidates, Candidate{
			Source:        "wikidata",
			ID:            item.ID,
			Name:          item.Label,
			Description:   item.Description,
			URL:           item.ConceptURI,
			CategoryMatch: descriptionMatchesCategory(item.Description, q.Category),
			// The API returns results ranked; decay the score by position.
			Score: 1.0 - 0.15*float64(i),
		})
	}
	return candidates, nil
}

var _ Source = (*WikidataSource)(nil)
