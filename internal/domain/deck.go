package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Deck is a named collection of vocabulary items. Exactly one deck is
// active at a time, tracked by the application state.
type Deck struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Items     []*Item   `json:"items"`
}

// Item is a single term/definition pair with its review state.
// Term uniqueness within a deck is advisory: duplicates are warned
// about, never rejected.
type Item struct {
	ID         string      `json:"id"`
	Term       string      `json:"term"`
	Definition string      `json:"definition"`
	Example    string      `json:"example,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	Review     ReviewState `json:"review"`
}

// ReviewState holds the SM-2 scheduling state of an item.
// Invariants: Ease stays within [1.3, 2.7]; after every grading event
// Due equals LastReviewed plus IntervalDays days.
type ReviewState struct {
	Ease         float64   `json:"ease"`
	Repetitions  int       `json:"repetitions"`
	IntervalDays int       `json:"interval_days"`
	Due          time.Time `json:"due"`
	Lapses       int       `json:"lapses"`
	LastReviewed time.Time `json:"last_reviewed"`
}

// DefaultEase is the easiness factor assigned to brand-new items.
const DefaultEase = 2.5

// NewReviewState returns the state of an item that has never been reviewed.
// The zero Due means the item is due immediately.
func NewReviewState() ReviewState {
	return ReviewState{Ease: DefaultEase}
}

// IsDue reports whether the item should be reviewed at the given time.
// Items with no due timestamp are treated as due now.
func (r ReviewState) IsDue(now time.Time) bool {
	if r.Due.IsZero() {
		return true
	}
	return !r.Due.After(now)
}

// DueOrNow returns the due timestamp, substituting now for the zero value.
// Used as the sort key when ordering a review queue.
func (r ReviewState) DueOrNow(now time.Time) time.Time {
	if r.Due.IsZero() {
		return now
	}
	return r.Due
}

// NewDeck creates an empty deck with a generated identifier.
func NewDeck(title string, now time.Time) *Deck {
	return &Deck{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
	}
}

// NewItem creates an item with a fresh review state.
func NewItem(term, definition, example string, now time.Time) *Item {
	return &Item{
		ID:         uuid.NewString(),
		Term:       term,
		Definition: definition,
		Example:    example,
		CreatedAt:  now,
		Review:     NewReviewState(),
	}
}

// FindItem returns the item with the given ID, or nil.
func (d *Deck) FindItem(id string) *Item {
	for _, it := range d.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// HasTerm reports whether any item already uses the term, ignoring case
// and surrounding whitespace.
func (d *Deck) HasTerm(term string) bool {
	want := NormalizeAnswer(term)
	for _, it := range d.Items {
		if NormalizeAnswer(it.Term) == want {
			return true
		}
	}
	return false
}

// NormalizeAnswer lowercases a string and collapses runs of whitespace,
// the comparison form used for typed answers and duplicate-term checks.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// RemoveItem deletes the item with the given ID and reports whether it existed.
func (d *Deck) RemoveItem(id string) bool {
	for i, it := range d.Items {
		if it.ID == id {
			d.Items = append(d.Items[:i], d.Items[i+1:]...)
			return true
		}
	}
	return false
}

// DueCount counts items due for review at the given time.
func (d *Deck) DueCount(now time.Time) int {
	n := 0
	for _, it := range d.Items {
		if it.Review.IsDue(now) {
			n++
		}
	}
	return n
}
