package engine

import (
	"context"
	"fmt"

	"github.com/benjaminbreen/premodern-concordance/internal/llm"
)

// PairContext is everything an adjudicator sees about one uncertain pair.
type PairContext struct {
	Pair  CandidatePair
	BookA string // Title of A's source book
	BookB string // Title of B's source book
}

// Adjudicator decides uncertain-band pairs. It is a capability, not a
// concrete dependency: the decision engine takes any implementation, so
// tests use a deterministic stub instead of a live model.
type Adjudicator interface {
	Adjudicate(ctx context.Context, pc PairContext) (*llm.AdjudicationResponse, error)
	Model() string
}

// LLMAdjudicator adjudicates via a text-completion model. Unparseable
// output is an error; the decision engine handles the conservative
// fallback.
type LLMAdjudicator struct {
	gen llm.TextGenerator
}

// NewLLMAdjudicator wraps a text generator as an Adjudicator.
func NewLLMAdjudicator(gen llm.TextGenerator) *LLMAdjudicator {
	return &LLMAdjudicator{gen: gen}
}

// Adjudicate builds the pair prompt, calls the model and parses the
// strict-JSON verdict.
func (a *LLMAdjudicator) Adjudicate(ctx context.Context, pc PairContext) (*llm.AdjudicationResponse, error) {
	prompt := llm.AdjudicationPrompt(llm.PairPrompt{
		NameA:      pc.Pair.A.Name,
		NameB:      pc.Pair.B.Name,
		Category:   string(pc.Pair.A.Category),
		BookA:      pc.BookA,
		BookB:      pc.BookB,
		ExcerptA:   pc.Pair.A.BestMention(),
		ExcerptB:   pc.Pair.B.BestMention(),
		Similarity: pc.Pair.Similarity,
	})

	raw, err := a.gen.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("adjudication call failed: %w", err)
	}
	return llm.ParseAdjudication(raw)
}

// Model returns the underlying model name.
func (a *LLMAdjudicator) Model() string { return a.gen.GetModel() }

var _ Adjudicator = (*LLMAdjudicator)(nil)

// StubAdjudicator is a deterministic Adjudicator for tests, keyed by
// "fromID|toID".
type StubAdjudicator struct {
	Decisions map[string]llm.AdjudicationResponse
	// Err, when set, fails every call, simulating an unreachable model.
	Err   error
	Calls int
}

// PairKey builds the lookup key for a stubbed decision.
func PairKey(fromID, toID string) string { return fromID + "|" + toID }

// Adjudicate implements Adjudicator from the canned decision map.
// Unknown pairs come back uncertain, which the engine treats
// conservatively.
func (s *StubAdjudicator) Adjudicate(ctx context.Context, pc PairContext) (*llm.AdjudicationResponse, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	if resp, ok := s.Decisions[PairKey(pc.Pair.A.ID, pc.Pair.B.ID)]; ok {
		return &resp, nil
	}
	if resp, ok := s.Decisions[PairKey(pc.Pair.B.ID, pc.Pair.A.ID)]; ok {
		return &resp, nil
	}
	return &llm.AdjudicationResponse{
		Decision: llm.DecisionUncertain,
		LinkType: "conceptual_overlap",
	}, nil
}

// Model implements Adjudicator.
func (s *StubAdjudicator) Model() string { return "stub" }

var _ Adjudicator = (*StubAdjudicator)(nil)
