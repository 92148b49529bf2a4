package gallery

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Store exposes read-only dataset lookups for HTTP handlers and sessions.
type Store interface {
	GalleryInfo() (GeneralInfoBlock, bool)
	GothicStyleInfo() (GeneralInfoBlock, bool)
	Names() []string
	FindByName(query string) []SculptureRecord
	GetByName(query string) (SculptureRecord, bool)
	Search(criteria SearchCriteria) []SculptureRecord
}

// SearchCriteria filters sculptures by substring per field. Empty values are
// treated as absent.
type SearchCriteria struct {
	Name     string
	Artist   string
	Location string
	Year     string
}

// FileStore implements Store over a JSON document loaded once from disk.
// A failed load leaves the store empty and every accessor answers "not found".
type FileStore struct {
	path string
	doc  *Document
}

// NewFileStore returns a store bound to the dataset file at path. Call Load
// before use.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and parses the dataset file. On failure the store keeps its
// previous document (nil on first call) and the error is returned for the
// caller to log; accessors stay safe either way.
func (s *FileStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read dataset file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse dataset file: %w", err)
	}

	s.doc = &doc
	return nil
}

// GalleryInfo returns the gallery collection info block.
func (s *FileStore) GalleryInfo() (GeneralInfoBlock, bool) {
	if s.doc == nil {
		return GeneralInfoBlock{}, false
	}
	block := s.doc.GeneralInformation.GalleryCollection
	if block.Title == "" && block.Description == "" {
		return GeneralInfoBlock{}, false
	}
	return block, true
}

// GothicStyleInfo returns the gothic style info block.
func (s *FileStore) GothicStyleInfo() (GeneralInfoBlock, bool) {
	if s.doc == nil {
		return GeneralInfoBlock{}, false
	}
	block := s.doc.GeneralInformation.GothicStyle
	if block.Title == "" && block.Description == "" {
		return GeneralInfoBlock{}, false
	}
	return block, true
}

// Names lists every sculpture name in dataset order.
func (s *FileStore) Names() []string {
	if s.doc == nil {
		return nil
	}
	names := make([]string, 0, len(s.doc.Sculptures))
	for _, record := range s.doc.Sculptures {
		names = append(names, record.Name)
	}
	return names
}

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// normalizeName lowers the case, strips punctuation and collapses whitespace
// so "St. Vitus" and "st vitus" compare equal.
func normalizeName(name string) string {
	lowered := strings.ToLower(name)
	stripped := nonWordPattern.ReplaceAllString(lowered, "")
	collapsed := whitespacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(collapsed)
}

// FindByName matches sculptures by name in three tiers: case-insensitive
// exact match, match after normalization, then substring match ordered by
// descending name length so more specific titles come first. The first
// non-empty tier wins.
func (s *FileStore) FindByName(query string) []SculptureRecord {
	if s.doc == nil {
		return nil
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}
	lowered := strings.ToLower(trimmed)

	var exact []SculptureRecord
	for _, record := range s.doc.Sculptures {
		if strings.ToLower(record.Name) == lowered {
			exact = append(exact, record)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	normalized := normalizeName(trimmed)
	var loose []SculptureRecord
	for _, record := range s.doc.Sculptures {
		if normalizeName(record.Name) == normalized {
			loose = append(loose, record)
		}
	}
	if len(loose) > 0 {
		return loose
	}

	var partial []SculptureRecord
	for _, record := range s.doc.Sculptures {
		if strings.Contains(strings.ToLower(record.Name), lowered) {
			partial = append(partial, record)
		}
	}
	sort.SliceStable(partial, func(i, j int) bool {
		return len(partial[i].Name) > len(partial[j].Name)
	})
	return partial
}

// GetByName returns the best FindByName match, if any.
func (s *FileStore) GetByName(query string) (SculptureRecord, bool) {
	matches := s.FindByName(query)
	if len(matches) == 0 {
		return SculptureRecord{}, false
	}
	return matches[0], true
}

// Search filters sculptures by the supplied criteria. With no criteria it
// returns nothing rather than the whole dataset. A criterion only filters
// records that actually carry the corresponding field; records missing the
// field pass that criterion unchallenged. Callers rely on this permissiveness,
// it is not a bug to fix here.
func (s *FileStore) Search(criteria SearchCriteria) []SculptureRecord {
	if s.doc == nil {
		return nil
	}

	name := strings.TrimSpace(criteria.Name)
	artist := strings.TrimSpace(criteria.Artist)
	location := strings.TrimSpace(criteria.Location)
	year := strings.TrimSpace(criteria.Year)
	if name == "" && artist == "" && location == "" && year == "" {
		return nil
	}

	var matches []SculptureRecord
	for _, record := range s.doc.Sculptures {
		if !fieldMatches(record.Name, name) {
			continue
		}
		if !fieldMatches(record.Artist, artist) {
			continue
		}
		if !fieldMatches(record.Location, location) {
			continue
		}
		if !fieldMatches(record.Year, year) {
			continue
		}
		matches = append(matches, record)
	}
	return matches
}

func fieldMatches(field, criterion string) bool {
	if criterion == "" || field == "" {
		return true
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(criterion))
}
