// Package corpus provides read-only access to the upstream per-book
// entity records. The corpus is described by a YAML manifest listing the
// books, each pointing at a JSON entity file produced by the per-book
// extraction step.
//
// Input validation is strict: a partial or malformed corpus silently
// produces a wrong concordance, so any structural problem is fatal.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// ErrInvalidInput indicates malformed or missing upstream entity data.
// Errors wrapping it are fatal to the whole run.
var ErrInvalidInput = errors.New("invalid corpus input")

// Corpus is the fully loaded input set: books plus every entity,
// validated and sorted deterministically by entity ID.
type Corpus struct {
	Books    []types.Book
	Entities []types.BookEntity
}

// manifest is the on-disk shape of corpus.yaml.
type manifest struct {
	Books []types.Book `yaml:"books"`
}

// entityFile is the on-disk shape of one per-book entity file.
type entityFile struct {
	BookID   string `json:"book_id"`
	Entities []struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Category    string   `json:"category"`
		Subcategory string   `json:"subcategory"`
		Occurrences int      `json:"occurrences"`
		Variants    []string `json:"variants"`
		Contexts    []string `json:"contexts"`
		Mentions    []string `json:"mentions"`
	} `json:"entities"`
}

// Load reads the manifest and every referenced entity file.
// All optional entity fields (variants, contexts, mentions) may be empty;
// missing names, unknown categories, duplicate IDs and dangling book
// references are ErrInvalidInput.
func Load(manifestPath string) (*Corpus, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest: %v", ErrInvalidInput, err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest: %v", ErrInvalidInput, err)
	}
	if len(m.Books) == 0 {
		return nil, fmt.Errorf("%w: manifest lists no books", ErrInvalidInput)
	}

	baseDir := filepath.Dir(manifestPath)
	seenBooks := make(map[string]bool, len(m.Books))
	for _, b := range m.Books {
		if b.ID == "" || b.Title == "" {
			return nil, fmt.Errorf("%w: book entry missing id or title", ErrInvalidInput)
		}
		if seenBooks[b.ID] {
			return nil, fmt.Errorf("%w: duplicate book id %q", ErrInvalidInput, b.ID)
		}
		seenBooks[b.ID] = true
		if b.EntityFile == "" {
			return nil, fmt.Errorf("%w: book %q has no entity_file", ErrInvalidInput, b.ID)
		}
	}

	c := &Corpus{Books: m.Books}
	seenEntities := make(map[string]bool)

	for _, b := range m.Books {
		entities, err := loadEntityFile(filepath.Join(baseDir, b.EntityFile), b.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			if seenEntities[e.ID] {
				return nil, fmt.Errorf("%w: duplicate entity id %q", ErrInvalidInput, e.ID)
			}
			seenEntities[e.ID] = true
		}
		c.Entities = append(c.Entities, entities...)
	}

	// Deterministic entity order regardless of manifest or file order.
	sort.Slice(c.Entities, func(i, j int) bool {
		return c.Entities[i].ID < c.Entities[j].ID
	})

	return c, nil
}

// loadEntityFile reads and validates one per-book entity file.
func loadEntityFile(path, bookID string) ([]types.BookEntity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading entities for book %q: %v", ErrInvalidInput, bookID, err)
	}

	var f entityFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing entities for book %q: %v", ErrInvalidInput, bookID, err)
	}
	if f.BookID != bookID {
		return nil, fmt.Errorf("%w: entity file %s declares book %q, manifest says %q",
			ErrInvalidInput, path, f.BookID, bookID)
	}

	out := make([]types.BookEntity, 0, len(f.Entities))
	for _, raw := range f.Entities {
		if strings.TrimSpace(raw.Name) == "" {
			return nil, fmt.Errorf("%w: entity %q in book %q has an empty name",
				ErrInvalidInput, raw.ID, bookID)
		}
		cat, err := types.ParseCategory(raw.Category)
		if err != nil {
			return nil, fmt.Errorf("%w: entity %q in book %q: %v", ErrInvalidInput, raw.ID, bookID, err)
		}

		id := raw.ID
		if id == "" {
			return nil, fmt.Errorf("%w: entity with empty id in book %q", ErrInvalidInput, bookID)
		}
		if !strings.Contains(id, ":") {
			id = bookID + ":" + id
		}

		occurrences := raw.Occurrences
		if occurrences < 1 {
			occurrences = 1
		}

		out = append(out, types.BookEntity{
			ID:          id,
			BookID:      bookID,
			Name:        strings.TrimSpace(raw.Name),
			Category:    cat,
			Subcategory: raw.Subcategory,
			Occurrences: occurrences,
			Variants:    raw.Variants,
			Contexts:    raw.Contexts,
			Mentions:    raw.Mentions,
		})
	}

	return out, nil
}

// BookByID returns the manifest entry for a book id, or nil.
func (c *Corpus) BookByID(id string) *types.Book {
	for i := range c.Books {
		if c.Books[i].ID == id {
			return &c.Books[i]
		}
	}
	return nil
}
