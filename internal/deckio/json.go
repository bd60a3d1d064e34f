package deckio

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/example/studydesk/internal/domain"
)

// ExportType discriminates studydesk deck exports from other JSON files.
const ExportType = "studydesk.deck"

// SchemaVersion is bumped when the export envelope shape changes.
const SchemaVersion = 1

// DefaultTitle is used for imported decks that carry no title.
const DefaultTitle = "Imported Deck"

var validate = validator.New()

// Envelope wraps a deck for export, carrying enough metadata to
// recognize and version the file on re-import.
type Envelope struct {
	Type          string    `json:"type"`
	SchemaVersion int       `json:"schema_version" validate:"gte=0"`
	ExportedAt    time.Time `json:"exported_at"`
	Deck          *deckIn   `json:"deck" validate:"required"`
}

// deckIn is the loosely-typed import shape of a deck. Every field is
// optional; missing values are defaulted before the domain deck is built.
type deckIn struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Items     []itemIn  `json:"items"`
}

type itemIn struct {
	ID         string    `json:"id"`
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	Example    string    `json:"example"`
	CreatedAt  time.Time `json:"created_at"`
	Review     *reviewIn `json:"review"`
}

// reviewIn uses pointer fields so that each numeric subfield can be
// defaulted independently when absent.
type reviewIn struct {
	Ease         *float64   `json:"ease"`
	Repetitions  *int       `json:"repetitions"`
	IntervalDays *int       `json:"interval_days"`
	Due          *time.Time `json:"due"`
	Lapses       *int       `json:"lapses"`
	LastReviewed *time.Time `json:"last_reviewed"`
}

// ParseJSON accepts either an export envelope or a bare deck object and
// normalizes it into a brand-new domain deck. Items missing a term or a
// definition are silently dropped.
func ParseJSON(data []byte, now time.Time) (*domain.Deck, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Deck != nil {
		if err := validate.Struct(env); err != nil {
			return nil, fmt.Errorf("invalid deck export envelope: %w", err)
		}
		return buildDeck(env.Deck, now), nil
	}

	var bare deckIn
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to parse deck JSON: %w", err)
	}
	return buildDeck(&bare, now), nil
}

func buildDeck(in *deckIn, now time.Time) *domain.Deck {
	deck := &domain.Deck{
		ID:        in.ID,
		Title:     in.Title,
		CreatedAt: in.CreatedAt,
	}
	if deck.ID == "" {
		deck.ID = uuid.NewString()
	}
	if deck.Title == "" {
		deck.Title = DefaultTitle
	}
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = now
	}

	for _, raw := range in.Items {
		if raw.Term == "" || raw.Definition == "" {
			continue
		}
		item := &domain.Item{
			ID:         raw.ID,
			Term:       raw.Term,
			Definition: raw.Definition,
			Example:    raw.Example,
			CreatedAt:  raw.CreatedAt,
			Review:     buildReview(raw.Review),
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		deck.Items = append(deck.Items, item)
	}
	return deck
}

func buildReview(in *reviewIn) domain.ReviewState {
	state := domain.NewReviewState()
	if in == nil {
		return state
	}
	if in.Ease != nil {
		state.Ease = *in.Ease
	}
	if in.Repetitions != nil {
		state.Repetitions = *in.Repetitions
	}
	if in.IntervalDays != nil {
		state.IntervalDays = *in.IntervalDays
	}
	if in.Due != nil {
		state.Due = *in.Due
	}
	if in.Lapses != nil {
		state.Lapses = *in.Lapses
	}
	if in.LastReviewed != nil {
		state.LastReviewed = *in.LastReviewed
	}
	return state
}

// exportEnvelope mirrors Envelope with the strongly-typed deck, so that
// exports carry the full review state of every item.
type exportEnvelope struct {
	Type          string       `json:"type"`
	SchemaVersion int          `json:"schema_version"`
	ExportedAt    time.Time    `json:"exported_at"`
	Deck          *domain.Deck `json:"deck"`
}

// ExportJSON wraps the deck in the export envelope.
func ExportJSON(deck *domain.Deck, now time.Time) ([]byte, error) {
	env := exportEnvelope{
		Type:          ExportType,
		SchemaVersion: SchemaVersion,
		ExportedAt:    now,
		Deck:          deck,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deck export: %w", err)
	}
	return data, nil
}
