package study

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/studydesk/internal/deckio"
	"github.com/example/studydesk/internal/domain"
	"github.com/example/studydesk/internal/session"
	"github.com/example/studydesk/internal/srs"
	"github.com/example/studydesk/internal/storage"
)

// stateKey is the fixed document key the vocabulary state lives under.
const stateKey = "vocab"

// State is the persisted application state of the vocabulary app: all
// decks plus the identifier of the active one. The study session is
// deliberately absent; it is ephemeral.
type State struct {
	Decks        []*domain.Deck `json:"decks"`
	ActiveDeckID string         `json:"active_deck_id"`
}

// Store persists JSON documents under fixed keys.
type Store interface {
	Load(key string, v any) error
	Save(key string, v any) error
}

// ReviewLog receives grading events. May be nil-backed in tests.
type ReviewLog interface {
	InsertReview(storage.Review) error
}

var (
	// ErrMissingFields blocks a manual add without both term and definition.
	ErrMissingFields = errors.New("term and definition are required")
	// ErrUnsupportedFile rejects imports that are neither .json nor .csv.
	ErrUnsupportedFile = errors.New("unsupported file type: use .json or .csv")
	// ErrNoActiveDeck signals an operation that needs a deck.
	ErrNoActiveDeck = errors.New("no active deck")
	// ErrNoSession signals a study command outside a session.
	ErrNoSession = errors.New("no study session in progress")
)

// Controller owns the vocabulary state and is its sole mutation gate.
// The rendering layer issues commands and re-reads state; it never
// touches scheduling fields directly. Every mutating command flushes
// the state document.
type Controller struct {
	state   *State
	store   Store
	reviews ReviewLog
	params  *srs.Params
	limit   int
	rng     *rand.Rand
	log     *slog.Logger
	sess    *session.Session
}

// NewController loads the persisted state, falling back to a freshly
// seeded one when the document is missing, corrupt, or not shaped like
// a state. limit caps the size of a study session.
func NewController(store Store, reviews ReviewLog, limit int, logger *slog.Logger) *Controller {
	c := &Controller{
		store:   store,
		reviews: reviews,
		params:  srs.DefaultParams(),
		limit:   limit,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     logger,
	}

	var state State
	if err := store.Load(stateKey, &state); err != nil || !validShape(&state) {
		if err != nil {
			c.log.Info("seeding vocabulary state", "reason", err)
		} else {
			c.log.Info("seeding vocabulary state", "reason", "persisted document has wrong shape")
		}
		c.state = seedState(time.Now())
		c.flush()
		return c
	}
	c.state = &state
	return c
}

// validShape checks the minimal required structure of a loaded document:
// at least one deck and an active ID that resolves.
func validShape(s *State) bool {
	if len(s.Decks) == 0 {
		return false
	}
	for _, d := range s.Decks {
		if d.ID == s.ActiveDeckID {
			return true
		}
	}
	return false
}

// seedState builds the default starter deck.
func seedState(now time.Time) *State {
	deck := domain.NewDeck("Starter Deck", now)
	seed := []struct{ term, def, example string }{
		{"ephemeral", "lasting for a very short time", "The fame of internet trends is ephemeral."},
		{"ubiquitous", "present or found everywhere", "Smartphones have become ubiquitous."},
		{"meticulous", "showing great attention to detail", "She kept meticulous notes."},
		{"candid", "truthful and straightforward", "He gave a candid answer."},
		{"resilient", "able to recover quickly from difficulties", "Children are often remarkably resilient."},
		{"pragmatic", "dealing with things sensibly and realistically", "We need a pragmatic approach."},
	}
	for _, s := range seed {
		deck.Items = append(deck.Items, domain.NewItem(s.term, s.def, s.example, now))
	}
	return &State{Decks: []*domain.Deck{deck}, ActiveDeckID: deck.ID}
}

// flush writes the state document. Persistence is best effort: failures
// are logged, never surfaced.
func (c *Controller) flush() {
	if err := c.store.Save(stateKey, c.state); err != nil {
		c.log.Warn("failed to persist vocabulary state", "error", err)
	}
}

// State exposes the current state for rendering. Callers must not mutate it.
func (c *Controller) State() *State { return c.state }

// ActiveDeck returns the active deck, or nil.
func (c *Controller) ActiveDeck() *domain.Deck {
	for _, d := range c.state.Decks {
		if d.ID == c.state.ActiveDeckID {
			return d
		}
	}
	return nil
}

// Session returns the study session in progress, or nil.
func (c *Controller) Session() *session.Session { return c.sess }

// CreateDeck adds an empty deck and makes it active.
func (c *Controller) CreateDeck(title string) *domain.Deck {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Deck"
	}
	deck := domain.NewDeck(title, time.Now())
	c.state.Decks = append(c.state.Decks, deck)
	c.state.ActiveDeckID = deck.ID
	c.flush()
	return deck
}

// SelectDeck makes the deck with the given ID active.
func (c *Controller) SelectDeck(id string) error {
	for _, d := range c.state.Decks {
		if d.ID == id {
			c.state.ActiveDeckID = id
			c.flush()
			return nil
		}
	}
	return fmt.Errorf("deck %s not found", id)
}

// DeleteDeck removes a deck. When the active deck goes away, the first
// remaining deck becomes active; the last deck cannot be deleted.
func (c *Controller) DeleteDeck(id string) error {
	if len(c.state.Decks) == 1 {
		return errors.New("cannot delete the only deck")
	}
	for i, d := range c.state.Decks {
		if d.ID == id {
			c.state.Decks = append(c.state.Decks[:i], c.state.Decks[i+1:]...)
			if c.state.ActiveDeckID == id {
				c.state.ActiveDeckID = c.state.Decks[0].ID
			}
			c.flush()
			return nil
		}
	}
	return fmt.Errorf("deck %s not found", id)
}

// AddItem adds a manually entered item to the active deck. The returned
// bool warns about an existing item with the same term; duplicates are
// allowed.
func (c *Controller) AddItem(term, definition, example string) (*domain.Item, bool, error) {
	term = strings.TrimSpace(term)
	definition = strings.TrimSpace(definition)
	if term == "" || definition == "" {
		return nil, false, ErrMissingFields
	}
	deck := c.ActiveDeck()
	if deck == nil {
		return nil, false, ErrNoActiveDeck
	}
	duplicate := deck.HasTerm(term)
	item := domain.NewItem(term, definition, strings.TrimSpace(example), time.Now())
	deck.Items = append(deck.Items, item)
	c.flush()
	return item, duplicate, nil
}

// DeleteItem removes an item from the active deck.
func (c *Controller) DeleteItem(id string) error {
	deck := c.ActiveDeck()
	if deck == nil {
		return ErrNoActiveDeck
	}
	if !deck.RemoveItem(id) {
		return fmt.Errorf("item %s not found", id)
	}
	c.flush()
	return nil
}

// ImportFile dispatches on the file extension. Unsupported types are
// rejected before any state changes. Both import paths create a brand
// new deck and make it active, never merging into an existing one.
func (c *Controller) ImportFile(name string, data []byte) (*domain.Deck, error) {
	now := time.Now()
	var (
		deck *domain.Deck
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		deck, err = deckio.ParseJSON(data, now)
	case ".csv":
		deck, err = deckio.ParseCSV(strings.NewReader(string(data)), now)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}

	c.state.Decks = append(c.state.Decks, deck)
	c.state.ActiveDeckID = deck.ID
	c.flush()
	c.log.Info("imported deck", "title", deck.Title, "items", len(deck.Items), "file", name)
	return deck, nil
}

// ExportJSON renders the active deck as an export envelope and returns
// the download filename alongside the bytes.
func (c *Controller) ExportJSON() (string, []byte, error) {
	deck := c.ActiveDeck()
	if deck == nil {
		return "", nil, ErrNoActiveDeck
	}
	data, err := deckio.ExportJSON(deck, time.Now())
	if err != nil {
		return "", nil, err
	}
	return deckio.ExportFilename(deck.Title) + ".json", data, nil
}

// ExportCSV renders the active deck as CSV.
func (c *Controller) ExportCSV() (string, []byte, error) {
	deck := c.ActiveDeck()
	if deck == nil {
		return "", nil, ErrNoActiveDeck
	}
	return deckio.ExportFilename(deck.Title) + ".csv", deckio.ExportCSV(deck), nil
}

// StartStudy builds a review queue over the active deck and presents the
// first card.
func (c *Controller) StartStudy(mode session.Mode, studyAhead bool) (*session.Session, error) {
	deck := c.ActiveDeck()
	if deck == nil {
		return nil, ErrNoActiveDeck
	}
	sess, err := session.Build(deck, mode, c.limit, studyAhead, time.Now())
	if err != nil {
		return nil, err
	}
	c.sess = sess
	c.sess.Advance(deck, c.rng)
	return c.sess, nil
}

// Reveal marks the current card's answer as shown.
func (c *Controller) Reveal() error {
	if c.sess == nil || c.sess.Current == nil {
		return ErrNoSession
	}
	c.sess.Revealed = true
	return nil
}

// UseHint marks the current card as hint-assisted, which shrinks the
// scheduled interval on a successful grade.
func (c *Controller) UseHint() error {
	if c.sess == nil || c.sess.Current == nil {
		return ErrNoSession
	}
	c.sess.HintUsed = true
	return nil
}

// Options returns the shuffled multiple-choice options for the current card.
func (c *Controller) Options() ([]string, error) {
	if c.sess == nil || c.sess.Current == nil {
		return nil, ErrNoSession
	}
	return session.Options(c.ActiveDeck(), c.sess.Current, c.rng), nil
}

// CheckAnswer compares an answer against the current card. Multiple
// choice selects among definitions; the typing tasks expect the term.
func (c *Controller) CheckAnswer(answer string) (bool, error) {
	if c.sess == nil || c.sess.Current == nil {
		return false, ErrNoSession
	}
	if c.sess.Task == session.TaskChoice {
		return answer == c.sess.Current.Definition, nil
	}
	return session.CheckTyped(answer, c.sess.Current.Term), nil
}

// SubmitGrade applies the scheduler to the current card, logs the event,
// persists the deck and advances the session. done reports whether the
// queue is exhausted.
func (c *Controller) SubmitGrade(g srs.Grade) (done bool, err error) {
	if c.sess == nil || c.sess.Current == nil {
		return false, ErrNoSession
	}
	deck := c.ActiveDeck()
	item := c.sess.Current
	now := time.Now()

	before := item.Review
	item.Review = c.params.Next(before, g, c.sess.HintUsed, now)
	c.sess.Graded++
	c.flush()

	if c.reviews != nil {
		rec := storage.Review{
			DeckID:         deck.ID,
			ItemID:         item.ID,
			Grade:          string(g),
			Quality:        g.Quality(),
			IntervalBefore: before.IntervalDays,
			IntervalAfter:  item.Review.IntervalDays,
			EaseAfter:      item.Review.Ease,
			HintUsed:       c.sess.HintUsed,
			ReviewedAt:     now,
		}
		if err := c.reviews.InsertReview(rec); err != nil {
			c.log.Warn("failed to log review", "item", item.ID, "error", err)
		}
	}

	if !c.sess.Advance(deck, c.rng) {
		c.sess = nil
		return true, nil
	}
	return false, nil
}

// QuitStudy abandons the session. Items graded so far keep their
// updated review state; only the ephemeral session is discarded.
func (c *Controller) QuitStudy() {
	c.sess = nil
}

// DueCount reports how many items of the active deck are currently due.
func (c *Controller) DueCount() int {
	deck := c.ActiveDeck()
	if deck == nil {
		return 0
	}
	return deck.DueCount(time.Now())
}
