package essay

import "fmt"

// MoveSentence performs a single extraction-and-reinsertion on the
// ordering: the sentence at display position from is removed and
// reinserted at display position to.
func (b *Board) MoveSentence(from, to int) error {
	n := len(b.Order)
	if from < 0 || from >= n {
		return fmt.Errorf("source position %d out of range", from)
	}
	if to < 0 || to >= n {
		return fmt.Errorf("target position %d out of range", to)
	}
	if from == to {
		return nil
	}
	idx := b.Order[from]
	b.Order = append(b.Order[:from], b.Order[from+1:]...)
	rest := append([]int(nil), b.Order[to:]...)
	b.Order = append(append(b.Order[:to:to], idx), rest...)
	return nil
}

// CheckOrder marks each display position correct when it holds the
// sentence whose canonical index equals that position. The check is
// purely positional, not relative.
func (b *Board) CheckOrder() ([]bool, bool) {
	marks := make([]bool, len(b.Order))
	all := true
	for pos, idx := range b.Order {
		marks[pos] = idx == pos
		if !marks[pos] {
			all = false
		}
	}
	return marks, all
}
