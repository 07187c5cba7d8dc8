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
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// GBIFConfig holds GBIF client configuration.
type GBIFConfig struct {
	BaseURL string        // default: https://api.gbif.org/v1
	Timeout time.Duration // default: 15s
}

// GBIFSource queries the GBIF species-match API, the taxonomic registry
// used for PLANT and ANIMAL clusters.
type GBIFSource struct {
	cfg     GBIFConfig
	client  *http.Client
	breaker *llm.CircuitBreaker
}

// NewGBIFSource creates a GBIF lookup client.
func NewGBIFSource(cfg GBIFConfig) *GBIFSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.gbif.org/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &GBIFSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: llm.NewCircuitBreaker("gbif"),
	}
}

type gbifMatchResponse struct {
	UsageKey       int     `json:"usageKey"`
	ScientificName string  `json:"scientificName"`
	CanonicalName  string  `json:"canonicalName"`
	MatchType      string  `json:"matchType"` // EXACT, FUZZY, HIGHERRANK, NONE
	Confidence     float64 `json:"confidence"`
	Kingdom        string  `json:"kingdom"`
	Status         string  `json:"status"`
}

// Name implements Source.
func (s *GBIFSource) Name() string { return "gbif" }

// Lookup matches the query (preferring the taxonomic hint over the plain
// name) against the GBIF backbone taxonomy.
func (s *GBIFSource) Lookup(ctx context.Context, q Query) ([]Candidate, error) {
	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.lookup(ctx, q)
	})
	if err != nil {
		if errors.Is(err, llm.ErrCircuitOpen) {
			return nil, fmt.Errorf("gbif circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.([]Candidate), nil
}

func (s *GBIFSource) lookup(ctx context.Context, q Query) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	name := q.Name
	if q.TaxonHint != "" {
		name = q.TaxonHint
	}

	params := url.Values{"name": {name}}
	req, err := http.NewRequestWithContext(ctx, "GET", s.cfg.BaseURL+"/species/match?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gbif returned status %d", resp.StatusCode)
	}

	var data gbifMatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if data.MatchType == "NONE" || data.UsageKey == 0 {
		return nil, nil
	}

	kingdomMatch := (q.Category == types.CategoryPlant && data.Kingdom == "Plantae") ||
		(q.Category == types.CategoryAnimal && data.Kingdom == "Animalia")

	return []Candidate{{
		Source:        "gbif",
		ID:            fmt.Sprintf("%d", data.UsageKey),
		Name:          data.CanonicalName,
		Description:   data.Status,
		URL:           fmt.Sprintf("https://www.gbif.org/species/%d", data.UsageKey),
		TaxonomicName: data.ScientificName,
		CategoryMatch: kingdomMatch,
		Score:         data.Confidence / 100,
		Fuzzy:         data.MatchType != "EXACT",
	}}, nil
}

var _ Source = (*GBIFSource)(nil)
