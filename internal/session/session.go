package session

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/example/studydesk/internal/domain"
)

// Mode selects which exercise types a study session draws from.
type Mode string

const (
	ModeMixed  Mode = "mixed"
	ModeChoice Mode = "mc"
	ModeTyping Mode = "typing"
	ModeAudio  Mode = "audio"
)

// Task is the exercise type presented for a single card.
type Task string

const (
	TaskChoice Task = "multiple_choice"
	TaskTyping Task = "type_from_definition"
	TaskAudio  Task = "type_from_audio"
)

// minChoiceItems is the smallest deck that can supply three distractors
// plus the correct definition.
const minChoiceItems = 4

// ErrNothingDue is returned when the review pool is empty.
var ErrNothingDue = errors.New("no items to review")

// Session is the ephemeral state of one study run. It is never persisted;
// only the items it mutates are.
type Session struct {
	DeckID    string
	Mode      Mode
	Queue     []string // item IDs in review order
	Cursor    int
	Current   *domain.Item
	Task      Task
	Revealed  bool
	HintUsed  bool
	Graded    int
	StartedAt time.Time
}

// Build assembles a review queue for the deck. When studyAhead is false
// the pool is restricted to items due at now; the pool is ordered by due
// timestamp ascending, items without one counting as due now, and capped
// at limit.
func Build(deck *domain.Deck, mode Mode, limit int, studyAhead bool, now time.Time) (*Session, error) {
	pool := make([]*domain.Item, 0, len(deck.Items))
	for _, it := range deck.Items {
		if studyAhead || it.Review.IsDue(now) {
			pool = append(pool, it)
		}
	}
	if len(pool) == 0 {
		return nil, ErrNothingDue
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Review.DueOrNow(now).Before(pool[j].Review.DueOrNow(now))
	})

	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}

	s := &Session{
		DeckID:    deck.ID,
		Mode:      mode,
		Queue:     make([]string, len(pool)),
		StartedAt: now,
	}
	for i, it := range pool {
		s.Queue[i] = it.ID
	}
	return s, nil
}

// PickTask chooses the exercise type for one card. Decks too small for
// multiple choice always fall back to typing. Mixed mode draws 45%
// multiple choice, 30% typing and 25% audio.
func PickTask(mode Mode, deckSize int, rng *rand.Rand) Task {
	choiceAllowed := deckSize >= minChoiceItems

	switch mode {
	case ModeChoice:
		if !choiceAllowed {
			return TaskTyping
		}
		return TaskChoice
	case ModeTyping:
		return TaskTyping
	case ModeAudio:
		return TaskAudio
	}

	r := rng.Float64()
	switch {
	case r < 0.45:
		if !choiceAllowed {
			return TaskTyping
		}
		return TaskChoice
	case r < 0.75:
		return TaskTyping
	default:
		return TaskAudio
	}
}

// Advance moves the session onto the next queued item, resolving it
// against the deck and picking its task. It returns false when the queue
// is exhausted.
func (s *Session) Advance(deck *domain.Deck, rng *rand.Rand) bool {
	for s.Cursor < len(s.Queue) {
		it := deck.FindItem(s.Queue[s.Cursor])
		s.Cursor++
		if it == nil {
			continue // deleted mid-session
		}
		s.Current = it
		s.Task = PickTask(s.Mode, len(deck.Items), rng)
		s.Revealed = false
		s.HintUsed = false
		return true
	}
	s.Current = nil
	return false
}

// Remaining reports how many queued items have not been presented yet.
func (s *Session) Remaining() int {
	if s.Cursor > len(s.Queue) {
		return 0
	}
	return len(s.Queue) - s.Cursor
}

// Options builds the shuffled multiple-choice options for an item: three
// other items' definitions drawn without replacement plus the correct one.
func Options(deck *domain.Deck, item *domain.Item, rng *rand.Rand) []string {
	others := make([]*domain.Item, 0, len(deck.Items))
	for _, it := range deck.Items {
		if it.ID != item.ID {
			others = append(others, it)
		}
	}
	rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	n := 3
	if len(others) < n {
		n = len(others)
	}
	options := make([]string, 0, n+1)
	for _, it := range others[:n] {
		options = append(options, it.Definition)
	}
	options = append(options, item.Definition)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

// CheckTyped reports whether a typed answer matches the term, ignoring
// case and collapsing whitespace.
func CheckTyped(answer, term string) bool {
	return domain.NormalizeAnswer(answer) == domain.NormalizeAnswer(term)
}
