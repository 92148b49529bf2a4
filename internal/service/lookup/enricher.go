package lookup

import (
	"log"
	"strings"

	"github.com/mstepanek/gallery-voice/backend/internal/model/gallery"
)

// instructionHeader frames the fact sheet as context for the assistant rather
// than as something to read back verbatim.
const instructionHeader = "Use the following information from the gallery dataset to answer the user's question. Do not mention that you were given this context:"

// Enricher turns a user message into extra conversation context when the
// message touches a known sculpture.
type Enricher struct {
	store gallery.Store
}

// NewEnricher builds an enricher over the shared dataset store.
func NewEnricher(store gallery.Store) *Enricher {
	return &Enricher{store: store}
}

// Enrich inspects the user message and returns a formatted context block to
// inject upstream, or ok=false when the dataset has nothing to contribute.
// It never fails the caller; a store with no data simply yields no enrichment.
func (e *Enricher) Enrich(userMessage string) (string, bool) {
	if e.store == nil {
		return "", false
	}

	message := strings.ToLower(userMessage)
	if strings.TrimSpace(message) == "" {
		return "", false
	}

	if name, ok := e.mentionedName(message); ok {
		record, found := e.store.GetByName(name)
		if !found {
			log.Printf("[lookup] name %q matched the message but has no record", name)
			return "", false
		}
		return wrapRecords([]gallery.SculptureRecord{record}), true
	}

	// No direct mention: try every field with the whitespace-normalized
	// message, letting sparse records match on the fields they have.
	joined := strings.Join(strings.Fields(message), " ")
	records := e.store.Search(gallery.SearchCriteria{
		Name:     joined,
		Artist:   joined,
		Location: joined,
		Year:     joined,
	})
	if len(records) == 0 {
		return "", false
	}
	return wrapRecords(records), true
}

// mentionedName finds the sculpture name contained in the message, preferring
// the longest one so a short name embedded in a longer title does not win.
func (e *Enricher) mentionedName(loweredMessage string) (string, bool) {
	var best string
	for _, name := range e.store.Names() {
		if !strings.Contains(loweredMessage, strings.ToLower(name)) {
			continue
		}
		if len(name) > len(best) {
			best = name
		}
	}
	return best, best != ""
}

func wrapRecords(records []gallery.SculptureRecord) string {
	sheets := make([]string, 0, len(records))
	for _, record := range records {
		sheets = append(sheets, formatRecord(record))
	}
	return instructionHeader + "\n\n" + strings.Join(sheets, "\n\n")
}

// formatRecord renders one fact sheet, one labeled line per present field.
func formatRecord(record gallery.SculptureRecord) string {
	lines := []string{"Name: " + record.Name}
	for _, field := range []struct {
		label string
		value string
	}{
		{"Year", record.Year},
		{"Location", record.Location},
		{"Artist", record.Artist},
		{"Description", record.Description},
		{"Cast information", record.CastInformation},
		{"Original material", record.OriginalMaterial},
		{"Dimensions", record.Dimensions},
	} {
		if field.value != "" {
			lines = append(lines, field.label+": "+field.value)
		}
	}
	return strings.Join(lines, "\n")
}
