package gallery

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const testDataset = `{
  "general_information": {
    "gallery_collection": {"title": "The Cast Gallery", "description": "Casts of Gothic sculptures."},
    "gothic_style": {"title": "Gothic Sculpture", "description": "Sculpture of the cathedral age."}
  },
  "sculptures": [
    {
      "name": "Charles the fourth",
      "year": "between 1375 - 1378",
      "location": "inner triforium of the St. Vitus Cathedral, Prague",
      "artist": "workshop of Peter Parler",
      "dimensions": "height 58 cm"
    },
    {
      "name": "Anna of Schweidnitz",
      "year": "between 1375 - 1378",
      "location": "inner triforium of the St. Vitus Cathedral, Prague",
      "artist": "workshop of Peter Parler"
    },
    {
      "name": "St. Vitus",
      "year": "around 1380",
      "location": "St. Vitus Cathedral, Prague"
    }
  ]
}`

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sculptures.json")
	if err := os.WriteFile(path, []byte(testDataset), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	store := NewFileStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load err: %v", err)
	}
	return store
}

func TestLoadMissingFileKeepsStoreEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	if err := store.Load(); err == nil {
		t.Fatalf("expected load error for missing file")
	}

	if _, ok := store.GalleryInfo(); ok {
		t.Fatalf("expected no gallery info on empty store")
	}
	if _, ok := store.GetByName("Charles the fourth"); ok {
		t.Fatalf("expected no record on empty store")
	}
	if results := store.Search(SearchCriteria{Name: "charles"}); results != nil {
		t.Fatalf("expected nil search results, got %v", results)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	first := store.FindByName("Charles the fourth")
	if err := store.Load(); err != nil {
		t.Fatalf("second Load err: %v", err)
	}
	second := store.FindByName("Charles the fourth")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("accessor results changed across reloads: %v vs %v", first, second)
	}
}

func TestGeneralInfoBlocks(t *testing.T) {
	store := newTestStore(t)

	gallery, ok := store.GalleryInfo()
	if !ok || gallery.Title != "The Cast Gallery" {
		t.Fatalf("unexpected gallery info: %+v ok=%v", gallery, ok)
	}
	gothic, ok := store.GothicStyleInfo()
	if !ok || gothic.Title != "Gothic Sculpture" {
		t.Fatalf("unexpected gothic info: %+v ok=%v", gothic, ok)
	}
}

func TestGetByNameExactMatch(t *testing.T) {
	store := newTestStore(t)

	for _, query := range []string{"Charles the fourth", "charles the FOURTH", "  Charles the fourth  "} {
		record, ok := store.GetByName(query)
		if !ok {
			t.Fatalf("query %q: expected a match", query)
		}
		if record.Name != "Charles the fourth" {
			t.Fatalf("query %q: got %q", query, record.Name)
		}
	}
}

func TestGetByNameNormalizedMatch(t *testing.T) {
	store := newTestStore(t)

	record, ok := store.GetByName("St Vitus")
	if !ok {
		t.Fatalf("expected normalized match for query without punctuation")
	}
	if record.Name != "St. Vitus" {
		t.Fatalf("got %q", record.Name)
	}
}

func TestFindByNameSubstringPrefersLongerNames(t *testing.T) {
	store := newTestStore(t)

	matches := store.FindByName("the fourth")
	if len(matches) != 1 {
		t.Fatalf("expected one partial match, got %d", len(matches))
	}
	if matches[0].Name != "Charles the fourth" {
		t.Fatalf("got %q", matches[0].Name)
	}

	if matches := store.FindByName("schweid"); len(matches) != 1 || matches[0].Name != "Anna of Schweidnitz" {
		t.Fatalf("unexpected substring matches: %v", matches)
	}
}

func TestSearchWithoutCriteriaReturnsNothing(t *testing.T) {
	store := newTestStore(t)

	if results := store.Search(SearchCriteria{}); len(results) != 0 {
		t.Fatalf("expected empty result, got %d records", len(results))
	}
	if results := store.Search(SearchCriteria{Name: "   "}); len(results) != 0 {
		t.Fatalf("whitespace criteria should count as absent, got %d records", len(results))
	}
}

func TestSearchFiltersByNameSubstring(t *testing.T) {
	store := newTestStore(t)

	results := store.Search(SearchCriteria{Name: "vitus"})
	if len(results) != 1 || results[0].Name != "St. Vitus" {
		t.Fatalf("unexpected results: %v", results)
	}

	if results := store.Search(SearchCriteria{Name: "prague"}); len(results) != 0 {
		t.Fatalf("name criterion must not match other fields, got %v", results)
	}
}

func TestSearchSkipsCriteriaForAbsentFields(t *testing.T) {
	store := newTestStore(t)

	// St. Vitus has no artist field, so the artist criterion does not reject it.
	results := store.Search(SearchCriteria{Location: "prague", Artist: "parler"})
	if len(results) != 3 {
		t.Fatalf("expected all three records, got %d: %v", len(results), results)
	}

	// Records that do carry the field are still filtered by it.
	results = store.Search(SearchCriteria{Artist: "parler", Name: "anna"})
	if len(results) != 1 || results[0].Name != "Anna of Schweidnitz" {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestNamesListsDatasetOrder(t *testing.T) {
	store := newTestStore(t)

	names := store.Names()
	want := []string{"Charles the fourth", "Anna of Schweidnitz", "St. Vitus"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v, want %v", names, want)
	}
}
