package authority

import (
	"context"
	"strings"
)

// StubSource is a deterministic in-memory Source for tests. Lookups are
// keyed by lowercased query name.
type StubSource struct {
	SourceName string
	Results    map[string][]Candidate
	Errs       map[string]error
	Calls      []Query
}

// NewStubSource creates an empty stub with the given source name.
func NewStubSource(name string) *StubSource {
	return &StubSource{
		SourceName: name,
		Results:    make(map[string][]Candidate),
		Errs:       make(map[string]error),
	}
}

// Name implements Source.
func (s *StubSource) Name() string { return s.SourceName }

// Lookup implements Source from the canned result maps.
func (s *StubSource) Lookup(ctx context.Context, q Query) ([]Candidate, error) {
	s.Calls = append(s.Calls, q)
	key := strings.ToLower(q.Name)
	if err, ok := s.Errs[key]; ok {
		return nil, err
	}
	return s.Results[key], nil
}

var _ Source = (*StubSource)(nil)
