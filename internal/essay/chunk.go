package essay

import (
	"math/rand"
	"strings"
)

// Default chunk size bounds, in words.
const (
	MinChunkWords = 3
	MaxChunkWords = 4
)

// SplitChunks cuts a sentence into contiguous word groups of min..max
// words, sized uniformly at random per chunk. A final chunk of exactly
// one word is prevented: the previous chunk gives up a word when it can
// stay at or above min, and otherwise absorbs the straggler.
func SplitChunks(text string, min, max int, rng *rand.Rand) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}

	var chunks []string
	for pos := 0; pos < len(words); {
		remaining := len(words) - pos
		take := min
		if remaining >= min && max > min {
			take = min + rng.Intn(max-min+1)
		}
		if take > remaining {
			take = remaining
		}
		if remaining-take == 1 {
			if take-1 >= min {
				take--
			} else {
				take++
			}
		}
		chunks = append(chunks, strings.Join(words[pos:pos+take], " "))
		pos += take
	}
	return chunks
}
