package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PairPrompt holds everything the adjudication prompt needs about one
// candidate pair of entity mentions.
type PairPrompt struct {
	NameA      string
	NameB      string
	Category   string
	BookA      string
	BookB      string
	ExcerptA   string
	ExcerptB   string
	Similarity float64
}

// AdjudicationPrompt builds a strict JSON-only prompt asking the model to
// decide whether two mentions from different historical books denote the
// same real-world referent. The decision vocabulary matches the link_type
// enum; the model must also return a one-sentence justification.
func AdjudicationPrompt(p PairPrompt) string {
	var b strings.Builder

	b.WriteString(`TASK: Decide whether two entity mentions from different early modern books refer to the same real-world thing.

RULES:
1. Output ONLY a JSON object. No markdown, no explanation outside the JSON.
2. "decision" must be exactly one of: "match", "no_match", "uncertain".
3. "link_type" must be exactly one of: "same_referent", "orthographic_variant", "cross_linguistic", "derivation", "conceptual_overlap", "contested_identity".
4. For "no_match", set "link_type" to the closest non-identity relation, or "conceptual_overlap".
5. "justification" is one short sentence citing the evidence.
6. "confidence" is a number between 0 and 1.
7. Historical conflations (two distinct things the period treated as one) are "contested_identity", not "match".

OUTPUT FORMAT:
{"decision": "match", "link_type": "cross_linguistic", "confidence": 0.9, "justification": "..."}

`)
	fmt.Fprintf(&b, "CATEGORY: %s\n", p.Category)
	fmt.Fprintf(&b, "MENTION A: %q (from %s)\n", p.NameA, p.BookA)
	if p.ExcerptA != "" {
		fmt.Fprintf(&b, "EXCERPT A: %s\n", truncate(p.ExcerptA, 400))
	}
	fmt.Fprintf(&b, "MENTION B: %q (from %s)\n", p.NameB, p.BookB)
	if p.ExcerptB != "" {
		fmt.Fprintf(&b, "EXCERPT B: %s\n", truncate(p.ExcerptB, 400))
	}
	fmt.Fprintf(&b, "EMBEDDING SIMILARITY: %.2f\n\nJSON:", p.Similarity)

	return b.String()
}

// truncate cuts s to at most max bytes without splitting a rune. The
// excerpts are multilingual, so a byte cut could land mid-sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
