package essay

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// Stage is the phase the essay exercise is in.
type Stage string

const (
	StageSentences Stage = "sentences" // rebuilding each sentence from chunks
	StageOrdering  Stage = "ordering"  // arranging solved sentences
)

// Essay is the teacher-authored source material: sentences in canonical
// order, each optionally carrying a hand-picked chunking.
type Essay struct {
	Title     string     `json:"title"`
	Sentences []Sentence `json:"sentences"`
}

// Sentence is one line of the essay. Chunks, when present, overrides the
// random 3-4 word chunking.
type Sentence struct {
	Text   string   `json:"text"`
	Chunks []string `json:"chunks,omitempty"`
}

// SentenceState tracks one sentence's reconstruction. Slots always has
// exactly one entry per canonical chunk; an empty string marks a vacant
// slot. Locked sentences are immutable and stay locked across reloads.
type SentenceState struct {
	Text     string   `json:"text"`
	Chunks   []string `json:"chunks"`   // canonical chunk sequence
	Shuffled []string `json:"shuffled"` // bank display order
	Slots    []string `json:"slots"`
	Locked   bool     `json:"locked"`
}

// Board is the whole state of the essay exercise. Order is always a
// permutation of all sentence indices.
type Board struct {
	Title     string           `json:"title"`
	Stage     Stage            `json:"stage"`
	Current   int              `json:"current"` // sentence being built
	Sentences []*SentenceState `json:"sentences"`
	Order     []int            `json:"order"`
}

// ErrLocked rejects mutation of an already-solved sentence.
var ErrLocked = fmt.Errorf("sentence is locked")

// NewBoard builds a fresh board from an essay: each sentence gets its
// canonical chunks (override or random split), a shuffled bank, empty
// slots, and the ordering permutation is shuffled.
func NewBoard(e *Essay, rng *rand.Rand) *Board {
	b := &Board{
		Title: e.Title,
		Stage: StageSentences,
	}
	for _, s := range e.Sentences {
		chunks := s.Chunks
		if len(chunks) == 0 {
			chunks = SplitChunks(s.Text, MinChunkWords, MaxChunkWords, rng)
		}
		shuffled := append([]string(nil), chunks...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		b.Sentences = append(b.Sentences, &SentenceState{
			Text:     s.Text,
			Chunks:   chunks,
			Shuffled: shuffled,
			Slots:    make([]string, len(chunks)),
		})
	}
	b.Order = make([]int, len(e.Sentences))
	for i := range b.Order {
		b.Order[i] = i
	}
	rng.Shuffle(len(b.Order), func(i, j int) { b.Order[i], b.Order[j] = b.Order[j], b.Order[i] })
	return b
}

// Bank returns the chunks still available for placement: the canonical
// multiset minus whatever currently occupies a slot, in bank display order.
func (s *SentenceState) Bank() []string {
	placed := map[string]int{}
	for _, c := range s.Slots {
		if c != "" {
			placed[c]++
		}
	}
	var bank []string
	for _, c := range s.Shuffled {
		if placed[c] > 0 {
			placed[c]--
			continue
		}
		bank = append(bank, c)
	}
	return bank
}

// Place puts a chunk into a slot. A chunk instance occupies at most one
// slot at a time: when every bank instance of the chunk is already
// placed, the instance is moved out of the other slot it occupies.
func (s *SentenceState) Place(slot int, chunk string) error {
	if s.Locked {
		return ErrLocked
	}
	if slot < 0 || slot >= len(s.Slots) {
		return fmt.Errorf("slot %d out of range", slot)
	}
	total := 0
	for _, c := range s.Chunks {
		if c == chunk {
			total++
		}
	}
	if total == 0 {
		return fmt.Errorf("chunk %q does not belong to this sentence", chunk)
	}

	placed := 0
	for i, c := range s.Slots {
		if c == chunk && i != slot {
			placed++
		}
	}
	if s.Slots[slot] == chunk {
		return nil // already there
	}
	if placed >= total {
		// No free instance left: relocate one from another slot.
		for i, c := range s.Slots {
			if c == chunk && i != slot {
				s.Slots[i] = ""
				break
			}
		}
	}
	s.Slots[slot] = chunk
	return nil
}

// Clear vacates a slot, returning its chunk to the bank.
func (s *SentenceState) Clear(slot int) error {
	if s.Locked {
		return ErrLocked
	}
	if slot < 0 || slot >= len(s.Slots) {
		return fmt.Errorf("slot %d out of range", slot)
	}
	s.Slots[slot] = ""
	return nil
}

// Check reports whether every slot holds the canonical chunk for its
// position. A correct sentence locks permanently.
func (s *SentenceState) Check() bool {
	for i, c := range s.Slots {
		if c == "" || c != s.Chunks[i] {
			return false
		}
	}
	s.Locked = true
	return true
}

// Hint fixes a single slot: the first position whose content differs
// from the canonical chunk (an empty slot counts) gets its canonical
// chunk placed, relocating it from elsewhere if needed. Returns the slot
// filled, or -1 when the sentence is already correct.
func (s *SentenceState) Hint() (int, error) {
	if s.Locked {
		return -1, ErrLocked
	}
	for i, want := range s.Chunks {
		if s.Slots[i] == want {
			continue
		}
		if err := s.Place(i, want); err != nil {
			return -1, err
		}
		return i, nil
	}
	return -1, nil
}

var spaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:])`)

// Rendered joins the placed chunks with spaces, dropping the space that
// would precede a punctuation mark.
func (s *SentenceState) Rendered() string {
	var parts []string
	for _, c := range s.Slots {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return spaceBeforePunct.ReplaceAllString(strings.Join(parts, " "), "$1")
}

// Solved reports whether all sentences are locked.
func (b *Board) Solved() bool {
	for _, s := range b.Sentences {
		if !s.Locked {
			return false
		}
	}
	return true
}
