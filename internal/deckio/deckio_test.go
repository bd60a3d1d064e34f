package deckio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/example/studydesk/internal/domain"
)

func sampleDeck(now time.Time) *domain.Deck {
	deck := domain.NewDeck("Irregular Verbs", now)
	a := domain.NewItem("go", "to move from one place to another", "I go to school.", now)
	a.Review = domain.ReviewState{
		Ease:         2.36,
		Repetitions:  3,
		IntervalDays: 14,
		Due:          now.Add(14 * 24 * time.Hour),
		Lapses:       1,
		LastReviewed: now,
	}
	b := domain.NewItem("see", `to perceive with the eyes, "watch"`, "", now)
	deck.Items = append(deck.Items, a, b)
	return deck
}

func TestJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC)
	deck := sampleDeck(now)

	data, err := ExportJSON(deck, now)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	got, err := ParseJSON(data, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if got.Title != deck.Title {
		t.Errorf("title = %q, want %q", got.Title, deck.Title)
	}
	if len(got.Items) != len(deck.Items) {
		t.Fatalf("item count = %d, want %d", len(got.Items), len(deck.Items))
	}
	for i, want := range deck.Items {
		have := got.Items[i]
		if have.Review.Ease != want.Review.Ease ||
			have.Review.Repetitions != want.Review.Repetitions ||
			have.Review.IntervalDays != want.Review.IntervalDays ||
			have.Review.Lapses != want.Review.Lapses ||
			!have.Review.Due.Equal(want.Review.Due) ||
			!have.Review.LastReviewed.Equal(want.Review.LastReviewed) {
			t.Errorf("item %d review state changed across round trip: %+v != %+v", i, have.Review, want.Review)
		}
	}
}

func TestParseJSONBareDeck(t *testing.T) {
	now := time.Now()
	raw := `{"title": "Bare", "items": [
		{"term": "a", "definition": "first"},
		{"term": "", "definition": "dropped"},
		{"term": "dropped too", "definition": ""}
	]}`

	deck, err := ParseJSON([]byte(raw), now)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if deck.Title != "Bare" {
		t.Errorf("title = %q", deck.Title)
	}
	if len(deck.Items) != 1 {
		t.Fatalf("item count = %d, want 1 (empty rows dropped)", len(deck.Items))
	}

	item := deck.Items[0]
	if item.ID == "" {
		t.Errorf("expected a generated item ID")
	}
	if item.CreatedAt.IsZero() {
		t.Errorf("expected created_at defaulted to now")
	}
	if item.Review.Ease != domain.DefaultEase {
		t.Errorf("ease = %f, want default %f", item.Review.Ease, domain.DefaultEase)
	}
}

func TestParseJSONPartialReview(t *testing.T) {
	raw := `{"items": [{"term": "a", "definition": "b", "review": {"repetitions": 5}}]}`
	deck, err := ParseJSON([]byte(raw), time.Now())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if deck.Title != DefaultTitle {
		t.Errorf("title = %q, want %q", deck.Title, DefaultTitle)
	}
	rs := deck.Items[0].Review
	if rs.Repetitions != 5 {
		t.Errorf("repetitions = %d, want 5", rs.Repetitions)
	}
	if rs.Ease != domain.DefaultEase {
		t.Errorf("ease = %f, want the default for an absent subfield", rs.Ease)
	}
}

func TestParseJSONGarbage(t *testing.T) {
	if _, err := ParseJSON([]byte("not json"), time.Now()); err == nil {
		t.Errorf("expected an error for malformed JSON")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	now := time.Now()
	deck := sampleDeck(now)

	data := ExportCSV(deck)
	got, err := ParseCSV(bytes.NewReader(data), now)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	type triple struct{ term, def, ex string }
	want := map[triple]bool{}
	for _, it := range deck.Items {
		want[triple{it.Term, it.Definition, it.Example}] = true
	}
	if len(got.Items) != len(deck.Items) {
		t.Fatalf("item count = %d, want %d", len(got.Items), len(deck.Items))
	}
	for _, it := range got.Items {
		if !want[triple{it.Term, it.Definition, it.Example}] {
			t.Errorf("unexpected triple after round trip: %q / %q / %q", it.Term, it.Definition, it.Example)
		}
	}
}

func TestParseCSVHeaderMapping(t *testing.T) {
	csvData := "Definition,Example,Term\nmeaning,usage,word\n"
	deck, err := ParseCSV(strings.NewReader(csvData), time.Now())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(deck.Items) != 1 {
		t.Fatalf("item count = %d, want 1", len(deck.Items))
	}
	it := deck.Items[0]
	if it.Term != "word" || it.Definition != "meaning" || it.Example != "usage" {
		t.Errorf("header columns mapped wrong: %q / %q / %q", it.Term, it.Definition, it.Example)
	}
}

func TestParseCSVPositional(t *testing.T) {
	csvData := "run,\"to move quickly, on foot\",She runs daily.\nskip me,,\n\"he said \"\"hi\"\"\",a greeting,\n"
	deck, err := ParseCSV(strings.NewReader(csvData), time.Now())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(deck.Items) != 2 {
		t.Fatalf("item count = %d, want 2 (row without definition dropped)", len(deck.Items))
	}
	if deck.Items[0].Definition != "to move quickly, on foot" {
		t.Errorf("quoted field with comma parsed as %q", deck.Items[0].Definition)
	}
	if deck.Items[1].Term != `he said "hi"` {
		t.Errorf("doubled quotes parsed as %q", deck.Items[1].Term)
	}
}

func TestExportCSVQuoting(t *testing.T) {
	now := time.Now()
	deck := domain.NewDeck("Q", now)
	deck.Items = append(deck.Items, domain.NewItem(`say "cheese"`, "a, b", "", now))

	got := string(ExportCSV(deck))
	want := "term,definition,example\n\"say \"\"cheese\"\"\",\"a, b\",\"\"\n"
	if got != want {
		t.Errorf("export = %q, want %q", got, want)
	}
}

func TestExportFilename(t *testing.T) {
	cases := []struct{ title, want string }{
		{"Irregular Verbs", "Irregular_Verbs"},
		{"  !!!  ", "deck"},
		{"", "deck"},
		{strings.Repeat("a", 60), strings.Repeat("a", 40)},
		{"Días de la semana", "D_as_de_la_semana"},
	}
	for _, c := range cases {
		if got := ExportFilename(c.title); got != c.want {
			t.Errorf("ExportFilename(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}
