package types

import (
	"fmt"
	"strings"
)

// Category classifies what kind of thing a BookEntity refers to.
// The set is fixed: exporters and consumers both rely on it being closed.
type Category string

const (
	CategoryPerson    Category = "PERSON"
	CategoryPlant     Category = "PLANT"
	CategoryAnimal    Category = "ANIMAL"
	CategorySubstance Category = "SUBSTANCE"
	CategoryConcept   Category = "CONCEPT"
	CategoryDisease   Category = "DISEASE"
	CategoryPlace     Category = "PLACE"
	CategoryObject    Category = "OBJECT"
	CategoryEvent     Category = "EVENT"
	CategoryWork      Category = "WORK"
)

// AllCategories lists every valid category, in export order.
var AllCategories = []Category{
	CategoryPerson, CategoryPlant, CategoryAnimal, CategorySubstance,
	CategoryConcept, CategoryDisease, CategoryPlace, CategoryObject,
	CategoryEvent, CategoryWork,
}

// ParseCategory validates a raw category string from an entity file.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Book describes one title in the corpus manifest.
type Book struct {
	ID       string `json:"id" yaml:"id"`             // Short slug, unique within the corpus
	Title    string `json:"title" yaml:"title"`       // Full title
	Author   string `json:"author" yaml:"author"`     // Author name as printed
	Year     int    `json:"year" yaml:"year"`         // Year of publication
	Language string `json:"language" yaml:"language"` // Primary language code (e.g. "en", "nl", "la")
	// EntityFile is the per-book entity file path, relative to the manifest.
	// Not exported to the concordance artifact.
	EntityFile string `json:"-" yaml:"entity_file"`
}

// BookEntity is one named thing in one book, as produced by the upstream
// per-book extraction. It is immutable input: the pipeline never writes
// back to entity files.
type BookEntity struct {
	ID          string   `json:"id"`                    // Unique across the corpus (format: <book_id>:<local_id>)
	BookID      string   `json:"book_id"`               // Owning book
	Name        string   `json:"name"`                  // Display name as it appears in the text
	Category    Category `json:"category"`              // Fixed enum, see Category
	Subcategory string   `json:"subcategory,omitempty"` // Free-form refinement (e.g. "physician", "tree")
	Occurrences int      `json:"occurrences"`           // Mention count within the book
	Variants    []string `json:"variants,omitempty"`    // Spelling/lexical variants seen in the text
	Contexts    []string `json:"contexts,omitempty"`    // Short descriptive context strings
	Mentions    []string `json:"mentions,omitempty"`    // In-text excerpt samples
}

// BestContext returns the longest context string, the one most likely to
// carry descriptive meaning into the embedding. Empty string if none.
func (e *BookEntity) BestContext() string {
	best := ""
	for _, c := range e.Contexts {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// BestMention returns a representative excerpt for adjudication prompts,
// preferring mentions over contexts. Empty string if the entity has neither.
func (e *BookEntity) BestMention() string {
	if len(e.Mentions) > 0 {
		return e.Mentions[0]
	}
	return e.BestContext()
}
