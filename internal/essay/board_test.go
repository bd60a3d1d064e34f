package essay

import (
	"math/rand"
	"strings"
	"testing"
)

func TestSplitChunksBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	text := "one two three four five six seven eight nine ten eleven twelve thirteen"

	for seed := int64(0); seed < 50; seed++ {
		rng = rand.New(rand.NewSource(seed))
		chunks := SplitChunks(text, MinChunkWords, MaxChunkWords, rng)

		if strings.Join(chunks, " ") != text {
			t.Fatalf("seed %d: chunks do not reassemble the sentence: %v", seed, chunks)
		}
		last := len(chunks) - 1
		for i, c := range chunks {
			n := len(strings.Fields(c))
			if n == 1 && i == last {
				t.Fatalf("seed %d: final chunk is a single word: %v", seed, chunks)
			}
		}
	}
}

func TestSplitChunksNoSingleWordFinal(t *testing.T) {
	// Six words: a random first chunk of 3 would leave 3, of 4 would
	// leave 2; five-word variants can force the shrink/absorb rule.
	texts := []string{
		"The cat sat on the mat.",
		"The cat sat on mats.",
		"one two three four",
		"one two three four five six seven",
	}
	for _, text := range texts {
		for seed := int64(0); seed < 100; seed++ {
			chunks := SplitChunks(text, 3, 4, rand.New(rand.NewSource(seed)))
			last := chunks[len(chunks)-1]
			if len(strings.Fields(last)) == 1 {
				t.Fatalf("text %q seed %d: single-word final chunk in %v", text, seed, chunks)
			}
		}
	}
}

func TestSplitChunksEmpty(t *testing.T) {
	if chunks := SplitChunks("   ", 3, 4, rand.New(rand.NewSource(1))); chunks != nil {
		t.Errorf("expected no chunks for blank text, got %v", chunks)
	}
}

func testBoard(t *testing.T) *Board {
	t.Helper()
	e := &Essay{
		Title: "Test",
		Sentences: []Sentence{
			{Text: "alpha beta gamma delta epsilon zeta", Chunks: []string{"alpha beta gamma", "delta epsilon zeta"}},
			{Text: "one two three four five six", Chunks: []string{"one two three", "four five six"}},
			{Text: "red green blue cyan magenta yellow", Chunks: []string{"red green blue", "cyan magenta yellow"}},
		},
	}
	return NewBoard(e, rand.New(rand.NewSource(9)))
}

func TestPlaceExclusiveOccupancy(t *testing.T) {
	b := testBoard(t)
	s := b.Sentences[0]

	if err := s.Place(0, "delta epsilon zeta"); err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if err := s.Place(1, "delta epsilon zeta"); err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if s.Slots[0] != "" {
		t.Errorf("chunk still occupies slot 0 after being placed into slot 1")
	}
	if s.Slots[1] != "delta epsilon zeta" {
		t.Errorf("slot 1 = %q", s.Slots[1])
	}
}

func TestBankExcludesPlaced(t *testing.T) {
	b := testBoard(t)
	s := b.Sentences[0]

	if got := len(s.Bank()); got != 2 {
		t.Fatalf("fresh bank size = %d, want 2", got)
	}
	if err := s.Place(0, "alpha beta gamma"); err != nil {
		t.Fatalf("place failed: %v", err)
	}
	bank := s.Bank()
	if len(bank) != 1 {
		t.Fatalf("bank size after placement = %d, want 1", len(bank))
	}
	if bank[0] != "delta epsilon zeta" {
		t.Errorf("bank = %v, placed chunk must not appear", bank)
	}
}

func TestPlaceRejectsForeignChunk(t *testing.T) {
	b := testBoard(t)
	if err := b.Sentences[0].Place(0, "not a chunk"); err == nil {
		t.Errorf("expected an error placing a chunk from another sentence")
	}
}

func TestCheckLocksOnSuccess(t *testing.T) {
	b := testBoard(t)
	s := b.Sentences[0]

	if s.Check() {
		t.Fatalf("empty slots reported correct")
	}
	s.Place(0, s.Chunks[0])
	s.Place(1, s.Chunks[1])
	if !s.Check() {
		t.Fatalf("canonical placement reported incorrect")
	}
	if !s.Locked {
		t.Errorf("solved sentence not locked")
	}
	if err := s.Place(0, s.Chunks[1]); err != ErrLocked {
		t.Errorf("mutation of a locked sentence returned %v, want ErrLocked", err)
	}
}

func TestHintFixesOneSlot(t *testing.T) {
	b := testBoard(t)
	s := b.Sentences[0]

	// Wrong chunk in slot 0.
	s.Place(0, s.Chunks[1])

	slot, err := s.Hint()
	if err != nil {
		t.Fatalf("hint failed: %v", err)
	}
	if slot != 0 {
		t.Fatalf("hint fixed slot %d, want 0", slot)
	}
	if s.Slots[0] != s.Chunks[0] {
		t.Errorf("slot 0 = %q, want canonical chunk", s.Slots[0])
	}
	// The wrong occupant was displaced back to the bank, not solved.
	if s.Slots[1] != "" {
		t.Errorf("hint solved more than one slot: slots = %v", s.Slots)
	}
}

func TestHintRelocatesMisplacedChunk(t *testing.T) {
	b := testBoard(t)
	s := b.Sentences[0]

	// Canonical first chunk sitting in the wrong slot.
	s.Place(1, s.Chunks[0])

	slot, err := s.Hint()
	if err != nil {
		t.Fatalf("hint failed: %v", err)
	}
	if slot != 0 {
		t.Fatalf("hint fixed slot %d, want 0", slot)
	}
	if s.Slots[0] != s.Chunks[0] || s.Slots[1] != "" {
		t.Errorf("chunk not relocated: slots = %v", s.Slots)
	}
}

func TestRenderedCollapsesPunctuation(t *testing.T) {
	s := &SentenceState{
		Chunks: []string{"the cat sat", "on the mat", "."},
		Slots:  []string{"the cat sat", "on the mat", "."},
	}
	if got := s.Rendered(); got != "the cat sat on the mat." {
		t.Errorf("rendered = %q", got)
	}

	s2 := &SentenceState{
		Chunks: []string{"hello", ", world"},
		Slots:  []string{"hello", ", world"},
	}
	if got := s2.Rendered(); got != "hello, world" {
		t.Errorf("rendered = %q", got)
	}
}

func TestMoveSentence(t *testing.T) {
	b := testBoard(t)
	b.Order = []int{0, 1, 2}

	if err := b.MoveSentence(0, 2); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	want := []int{1, 2, 0}
	for i := range want {
		if b.Order[i] != want[i] {
			t.Fatalf("order = %v, want %v", b.Order, want)
		}
	}

	if err := b.MoveSentence(2, 0); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	for i, w := range []int{0, 1, 2} {
		if b.Order[i] != w {
			t.Fatalf("order = %v, want identity", b.Order)
		}
	}

	if err := b.MoveSentence(5, 0); err == nil {
		t.Errorf("expected range error")
	}
}

func TestCheckOrderPositional(t *testing.T) {
	b := testBoard(t)
	b.Order = []int{1, 0, 2}

	marks, all := b.CheckOrder()
	if all {
		t.Fatalf("swapped order reported fully correct")
	}
	want := []bool{false, false, true}
	for i := range want {
		if marks[i] != want[i] {
			t.Errorf("position %d marked %v, want %v", i, marks[i], want[i])
		}
	}

	b.Order = []int{0, 1, 2}
	if _, all := b.CheckOrder(); !all {
		t.Errorf("canonical order reported incorrect")
	}
}

func TestNewBoardOrderIsPermutation(t *testing.T) {
	b := testBoard(t)
	seen := map[int]bool{}
	for _, idx := range b.Order {
		if seen[idx] {
			t.Fatalf("duplicate index %d in order %v", idx, b.Order)
		}
		seen[idx] = true
	}
	if len(seen) != len(b.Sentences) {
		t.Errorf("order %v is not a permutation of all sentences", b.Order)
	}
}
