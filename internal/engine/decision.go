package engine

import (
	"context"
	"log"
	"sync"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/benjaminbreen/premodern-concordance/internal/llm"
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

const adjudicationRetries = 3

// DecisionSet is everything the decision engine concluded about the
// candidate pairs of one run.
type DecisionSet struct {
	// Merges are accepted same-referent links, consumed by the cluster
	// builder as union operations.
	Merges []types.Link

	// NonMerge are decided relationships that must not cause a merge:
	// contested identities, conceptual overlaps, derivations. They
	// survive as cross-references.
	NonMerge []types.Link

	// Rejected records pairs decided NO_MATCH, used by the conflict
	// policy and by threshold diagnostics.
	Rejected [][2]string

	AutoMatches          int // Pairs matched by the high band without adjudication
	Adjudicated          int // Pairs escalated to the model
	AdjudicationFailures int // Escalated pairs degraded to the conservative default
	Conflicts            int // Accepted matches demoted to contested_identity
}

// DecisionEngine turns candidate pairs into decided links via the
// three-band policy: automatic match above the merge threshold,
// automatic no-match below the floor, model adjudication between.
type DecisionEngine struct {
	cfg   Config
	adj   Adjudicator
	books map[string]*types.Book
}

// NewDecisionEngine creates a decision engine. books maps book ID to
// manifest entry, for evidence attribution and language sub-typing.
func NewDecisionEngine(cfg Config, adj Adjudicator, books map[string]*types.Book) *DecisionEngine {
	return &DecisionEngine{cfg: cfg, adj: adj, books: books}
}

// pairOutcome is one pair's resolved verdict before conflict checking.
type pairOutcome struct {
	pair     CandidatePair
	accept   bool
	linkType types.LinkType
	strength float64
	evidence string
	failed   bool // adjudication exhausted retries or never parsed
}

// Decide resolves every candidate pair. Uncertain pairs are adjudicated
// concurrently in batches; all verdicts are then applied in one
// deterministic pass so re-runs produce identical link sets.
func (d *DecisionEngine) Decide(ctx context.Context, pairs []CandidatePair) (*DecisionSet, error) {
	outcomes := make([]pairOutcome, len(pairs))
	var uncertainIdx []int

	for i, p := range pairs {
		switch {
		case p.Similarity >= d.cfg.MergeThreshold:
			outcomes[i] = pairOutcome{
				pair:     p,
				accept:   true,
				linkType: d.automaticLinkType(p),
				strength: p.Similarity,
				evidence: p.A.BestMention(),
			}
		case p.Similarity < d.cfg.CandidateFloor:
			outcomes[i] = pairOutcome{pair: p}
		default:
			uncertainIdx = append(uncertainIdx, i)
		}
	}

	set := &DecisionSet{Adjudicated: len(uncertainIdx)}
	for _, o := range outcomes {
		if o.accept {
			set.AutoMatches++
		}
	}

	if len(uncertainIdx) > 0 {
		if err := d.adjudicateAll(ctx, pairs, outcomes, uncertainIdx, set); err != nil {
			return nil, err
		}
	}

	d.apply(outcomes, set)

	log.Printf("Decisions: %d auto-matches, %d adjudicated (%d failed), %d merges, %d cross-links, %d conflicts",
		set.AutoMatches, set.Adjudicated, set.AdjudicationFailures, len(set.Merges), len(set.NonMerge), set.Conflicts)
	return set, nil
}

// automaticLinkType sub-types a high-band match: same script and same
// book language means spelling variation, anything else is a
// cross-linguistic rendering of the same referent.
func (d *DecisionEngine) automaticLinkType(p CandidatePair) types.LinkType {
	if scriptOf(p.A.Name) == scriptOf(p.B.Name) && d.bookLanguage(p.A.BookID) == d.bookLanguage(p.B.BookID) {
		return types.LinkOrthographicVariant
	}
	return types.LinkCrossLinguistic
}

func (d *DecisionEngine) bookLanguage(bookID string) string {
	if b, ok := d.books[bookID]; ok {
		return b.Language
	}
	return ""
}

func (d *DecisionEngine) bookTitle(bookID string) string {
	if b, ok := d.books[bookID]; ok {
		return b.Title
	}
	return bookID
}

// adjudicateAll fans the uncertain pairs out over the worker pool in
// batches, rate-limited alongside every other external call. Each pair
// gets up to adjudicationRetries attempts with quadratic backoff; a pair
// with no parseable verdict after that degrades to the conservative
// default instead of failing the run.
func (d *DecisionEngine) adjudicateAll(ctx context.Context, pairs []CandidatePair, outcomes []pairOutcome, uncertainIdx []int, set *DecisionSet) error {
	limiter := rate.NewLimiter(rate.Limit(d.cfg.RateLimit), d.cfg.Workers)

	batchSize := d.cfg.AdjudicationBatch
	if batchSize < 1 {
		batchSize = 1
	}
	var batches [][]int
	for start := 0; start < len(uncertainIdx); start += batchSize {
		end := start + batchSize
		if end > len(uncertainIdx) {
			end = len(uncertainIdx)
		}
		batches = append(batches, uncertainIdx[start:end])
	}

	jobs := make(chan []int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)

	workers := d.cfg.Workers
	if workers > len(batches) {
		workers = len(batches)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				for _, i := range batch {
					outcome, failed := d.adjudicateOne(ctx, pairs[i], limiter)
					mu.Lock()
					outcomes[i] = outcome
					if failed {
						failures++
					}
					mu.Unlock()
				}
			}
		}()
	}

	for _, batch := range batches {
		select {
		case <-ctx.Done():
		case jobs <- batch:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	set.AdjudicationFailures = failures
	return nil
}

// adjudicateOne resolves a single uncertain pair, returning the outcome
// and whether it degraded to the conservative default.
func (d *DecisionEngine) adjudicateOne(ctx context.Context, p CandidatePair, limiter *rate.Limiter) (pairOutcome, bool) {
	pc := PairContext{
		Pair:  p,
		BookA: d.bookTitle(p.A.BookID),
		BookB: d.bookTitle(p.B.BookID),
	}

	var resp *llm.AdjudicationResponse
	var err error
	for attempt := 0; attempt < adjudicationRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return pairOutcome{pair: p, failed: true}, true
			case <-time.After(backoff):
			}
		}
		if err = limiter.Wait(ctx); err != nil {
			return pairOutcome{pair: p, failed: true}, true
		}
		resp, err = d.adj.Adjudicate(ctx, pc)
		if err == nil {
			break
		}
	}
	if err != nil {
		// Precision over recall: an unreachable or unparseable
		// adjudicator never merges anything.
		log.Printf("Adjudication failed for %s / %s after %d attempts: %v",
			p.A.ID, p.B.ID, adjudicationRetries, err)
		return pairOutcome{pair: p, failed: true}, true
	}

	switch resp.Decision {
	case llm.DecisionMatch:
		lt := types.LinkType(resp.LinkType)
		if !lt.IsMerge() {
			lt = types.LinkSameReferent
		}
		return pairOutcome{
			pair:     p,
			accept:   true,
			linkType: lt,
			strength: resp.Confidence,
			evidence: resp.Justification,
		}, false
	case llm.DecisionNoMatch:
		lt := types.LinkType(resp.LinkType)
		if lt.IsMerge() {
			lt = types.LinkConceptualOverlap
		}
		return pairOutcome{
			pair:     p,
			linkType: lt,
			strength: resp.Confidence,
			evidence: resp.Justification,
		}, false
	default:
		// An honest "uncertain" is kept apart, same as a failure but
		// without counting against the adjudicator.
		return pairOutcome{pair: p}, false
	}
}

// apply walks all verdicts in the deterministic pair order and fills the
// decision set. Rejections are registered first so the conflict policy
// sees every prior NO_MATCH before any merge is accepted; accepted
// matches that would transitively contradict a rejection are demoted to
// contested_identity rather than silently merged; naive transitive
// closure over noisy similarity corrupts clusters.
func (d *DecisionEngine) apply(outcomes []pairOutcome, set *DecisionSet) {
	index := make(map[string]int32)
	idAt := make([]string, 0, len(outcomes)*2)
	idxOf := func(id string) int32 {
		if i, ok := index[id]; ok {
			return i
		}
		i := int32(len(idAt))
		index[id] = i
		idAt = append(idAt, id)
		return i
	}
	for _, o := range outcomes {
		idxOf(o.pair.A.ID)
		idxOf(o.pair.B.ID)
	}

	type rejectedPair struct{ a, b int32 }
	var rejected []rejectedPair
	for _, o := range outcomes {
		if !o.accept {
			set.Rejected = append(set.Rejected, [2]string{o.pair.A.ID, o.pair.B.ID})
			rejected = append(rejected, rejectedPair{idxOf(o.pair.A.ID), idxOf(o.pair.B.ID)})
			if o.linkType != "" && !o.linkType.IsMerge() && !o.failed {
				set.NonMerge = append(set.NonMerge, types.Link{
					FromID:     o.pair.A.ID,
					ToID:       o.pair.B.ID,
					Type:       o.linkType,
					Strength:   o.strength,
					Evidence:   o.evidence,
					SourceBook: o.pair.A.BookID,
				})
			}
		}
	}

	uf := newUnionFind(len(idAt))
	for _, o := range outcomes {
		if !o.accept {
			continue
		}
		a, b := idxOf(o.pair.A.ID), idxOf(o.pair.B.ID)

		conflict := false
		ra, rb := uf.find(a), uf.find(b)
		for _, r := range rejected {
			rra, rrb := uf.find(r.a), uf.find(r.b)
			if (rra == ra && rrb == rb) || (rra == rb && rrb == ra) {
				conflict = true
				break
			}
		}

		if conflict {
			// Resolved deterministically, never by tie-break: the merge
			// becomes a contested-identity cross-reference.
			set.Conflicts++
			set.NonMerge = append(set.NonMerge, types.Link{
				FromID:     o.pair.A.ID,
				ToID:       o.pair.B.ID,
				Type:       types.LinkContestedIdentity,
				Strength:   o.strength,
				Evidence:   o.evidence,
				SourceBook: o.pair.A.BookID,
			})
			continue
		}

		uf.union(a, b)
		set.Merges = append(set.Merges, types.Link{
			FromID:     o.pair.A.ID,
			ToID:       o.pair.B.ID,
			Type:       o.linkType,
			Strength:   o.strength,
			Evidence:   o.evidence,
			SourceBook: o.pair.A.BookID,
		})
	}
}

// scriptOf returns the Unicode script bucket of a name's first letter.
func scriptOf(name string) string {
	for _, r := range name {
		if !unicode.IsLetter(r) {
			continue
		}
		switch {
		case unicode.Is(unicode.Latin, r):
			return "latin"
		case unicode.Is(unicode.Greek, r):
			return "greek"
		case unicode.Is(unicode.Cyrillic, r):
			return "cyrillic"
		case unicode.Is(unicode.Arabic, r):
			return "arabic"
		case unicode.Is(unicode.Hebrew, r):
			return "hebrew"
		case unicode.Is(unicode.Han, r):
			return "han"
		default:
			return "other"
		}
	}
	return "none"
}
