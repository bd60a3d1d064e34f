package essay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// stateKey is the fixed document key the essay board lives under.
const stateKey = "essay"

// Store persists JSON documents under fixed keys.
type Store interface {
	Load(key string, v any) error
	Save(key string, v any) error
}

// SolveLog receives essay milestones. May be nil.
type SolveLog interface {
	InsertSolve(stage string, position int, at time.Time) error
}

// ParseEssay decodes a teacher-authored essay definition.
func ParseEssay(data []byte) (*Essay, error) {
	var e Essay
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse essay definition: %w", err)
	}
	if len(e.Sentences) == 0 {
		return nil, fmt.Errorf("essay definition has no sentences")
	}
	return &e, nil
}

// DefaultEssay is the built-in exercise used when no definition file is
// configured.
func DefaultEssay() *Essay {
	return &Essay{
		Title: "A Morning Walk",
		Sentences: []Sentence{
			{Text: "The sun rose slowly over the quiet town."},
			{Text: "Maria laced up her shoes and stepped outside."},
			{Text: "The cool morning air smelled of rain and fresh bread."},
			{Text: "She walked past the bakery toward the old stone bridge."},
			{Text: "By the time she returned home, the town was wide awake."},
		},
	}
}

// Controller owns the essay board and is its sole mutation gate. Solved
// sentences stay locked across reloads because the board document is
// flushed after every mutating command.
type Controller struct {
	essay  *Essay
	board  *Board
	store  Store
	solves SolveLog
	rng    *rand.Rand
	log    *slog.Logger
}

// NewController loads the persisted board, reseeding from the essay when
// the document is missing, corrupt, or does not match the essay's shape.
func NewController(e *Essay, store Store, solves SolveLog, logger *slog.Logger) *Controller {
	c := &Controller{
		essay:  e,
		store:  store,
		solves: solves,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    logger,
	}

	var board Board
	if err := store.Load(stateKey, &board); err != nil || !c.validShape(&board) {
		if err != nil {
			c.log.Info("seeding essay board", "reason", err)
		} else {
			c.log.Info("seeding essay board", "reason", "persisted document has wrong shape")
		}
		c.board = NewBoard(e, c.rng)
		c.flush()
		return c
	}
	c.board = &board
	return c
}

// validShape verifies the board matches the configured essay: one state
// per sentence, slot arrays sized to their chunks, and an order that is
// a permutation of all indices.
func (c *Controller) validShape(b *Board) bool {
	if len(b.Sentences) != len(c.essay.Sentences) {
		return false
	}
	for _, s := range b.Sentences {
		if len(s.Slots) != len(s.Chunks) || len(s.Chunks) == 0 {
			return false
		}
	}
	if len(b.Order) != len(b.Sentences) {
		return false
	}
	seen := make(map[int]bool, len(b.Order))
	for _, idx := range b.Order {
		if idx < 0 || idx >= len(b.Sentences) || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

func (c *Controller) flush() {
	if err := c.store.Save(stateKey, c.board); err != nil {
		c.log.Warn("failed to persist essay board", "error", err)
	}
}

// Board exposes the current board for rendering. Callers must not mutate it.
func (c *Controller) Board() *Board { return c.board }

func (c *Controller) sentence(i int) (*SentenceState, error) {
	if i < 0 || i >= len(c.board.Sentences) {
		return nil, fmt.Errorf("sentence %d out of range", i)
	}
	return c.board.Sentences[i], nil
}

// SelectSentence switches which sentence is being built.
func (c *Controller) SelectSentence(i int) error {
	if _, err := c.sentence(i); err != nil {
		return err
	}
	c.board.Current = i
	c.flush()
	return nil
}

// PlaceChunk puts a chunk into a slot of a sentence.
func (c *Controller) PlaceChunk(sentence, slot int, chunk string) error {
	s, err := c.sentence(sentence)
	if err != nil {
		return err
	}
	if err := s.Place(slot, chunk); err != nil {
		return err
	}
	c.flush()
	return nil
}

// ClearSlot vacates a slot, returning its chunk to the bank.
func (c *Controller) ClearSlot(sentence, slot int) error {
	s, err := c.sentence(sentence)
	if err != nil {
		return err
	}
	if err := s.Clear(slot); err != nil {
		return err
	}
	c.flush()
	return nil
}

// CheckSentence verifies a sentence, locking it on success. Once every
// sentence is locked the board advances to the ordering stage.
func (c *Controller) CheckSentence(sentence int) (bool, error) {
	s, err := c.sentence(sentence)
	if err != nil {
		return false, err
	}
	if s.Locked {
		return true, nil
	}
	ok := s.Check()
	if ok {
		if c.solves != nil {
			if err := c.solves.InsertSolve(string(StageSentences), sentence, time.Now()); err != nil {
				c.log.Warn("failed to log sentence solve", "sentence", sentence, "error", err)
			}
		}
		if c.board.Solved() {
			c.board.Stage = StageOrdering
		}
	}
	c.flush()
	return ok, nil
}

// HintSentence fills one incorrect slot of a sentence with its canonical
// chunk and returns which slot was fixed.
func (c *Controller) HintSentence(sentence int) (int, error) {
	s, err := c.sentence(sentence)
	if err != nil {
		return -1, err
	}
	slot, err := s.Hint()
	if err != nil {
		return -1, err
	}
	c.flush()
	return slot, nil
}

// Reorder moves a sentence between display positions in the ordering stage.
func (c *Controller) Reorder(from, to int) error {
	if err := c.board.MoveSentence(from, to); err != nil {
		return err
	}
	c.flush()
	return nil
}

// CheckOrdering reports per-position correctness and whether the whole
// essay is in canonical order.
func (c *Controller) CheckOrdering() ([]bool, bool) {
	marks, all := c.board.CheckOrder()
	if all && c.solves != nil {
		if err := c.solves.InsertSolve(string(StageOrdering), 0, time.Now()); err != nil {
			c.log.Warn("failed to log ordering solve", "error", err)
		}
	}
	return marks, all
}

// Reset discards all progress and rebuilds the board from the essay.
func (c *Controller) Reset() {
	c.board = NewBoard(c.essay, c.rng)
	c.flush()
}
