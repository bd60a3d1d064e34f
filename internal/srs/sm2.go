package srs

import (
	"math"
	"time"

	"github.com/example/studydesk/internal/domain"
)

// Grade is the user's response to a reviewed item.
type Grade string

const (
	Again Grade = "again"
	Hard  Grade = "hard"
	Good  Grade = "good"
	Easy  Grade = "easy"
)

// Quality maps a grade onto the 1-5 quality scale used by SM-2.
// An unrecognized grade is treated the same as Good; that is policy,
// not error handling.
func (g Grade) Quality() int {
	switch g {
	case Again:
		return 1
	case Hard:
		return 3
	case Easy:
		return 5
	default:
		return 4
	}
}

// Params holds the tunables of the scheduler.
type Params struct {
	MinEase     float64 // lower clamp for the easiness factor
	MaxEase     float64 // upper clamp for the easiness factor
	HintPenalty float64 // fraction of the interval removed after an assisted success
}

// DefaultParams returns the standard SM-2 parameters.
func DefaultParams() *Params {
	return &Params{
		MinEase:     1.3,
		MaxEase:     2.7,
		HintPenalty: 0.3,
	}
}

// Next computes the review state after grading an item at the given time.
// The first successful repetition schedules 1 day out, the second 6 days,
// and later ones multiply the previous interval by the easiness factor as
// it stood before this review. A failing grade (quality < 3) resets the
// repetition count, schedules 1 day out and records a lapse. If a hint
// was used, a successful interval is shrunk by HintPenalty, floored at
// one day.
func (p *Params) Next(state domain.ReviewState, g Grade, hintUsed bool, now time.Time) domain.ReviewState {
	q := g.Quality()

	if q < 3 {
		state.Repetitions = 0
		state.IntervalDays = 1
		state.Lapses++
	} else {
		state.Repetitions++
		switch state.Repetitions {
		case 1:
			state.IntervalDays = 1
		case 2:
			state.IntervalDays = 6
		default:
			state.IntervalDays = int(math.Round(float64(state.IntervalDays) * state.Ease))
		}
	}

	// EF' = EF + (0.1 - (5-q) * (0.08 + (5-q)*0.02)), clamped.
	state.Ease += 0.1 - float64(5-q)*(0.08+float64(5-q)*0.02)
	if state.Ease < p.MinEase {
		state.Ease = p.MinEase
	}
	if state.Ease > p.MaxEase {
		state.Ease = p.MaxEase
	}

	if hintUsed && q > 3 {
		state.IntervalDays = int(math.Round(float64(state.IntervalDays) * (1 - p.HintPenalty)))
		if state.IntervalDays < 1 {
			state.IntervalDays = 1
		}
	}

	state.LastReviewed = now
	state.Due = now.Add(time.Duration(state.IntervalDays) * 24 * time.Hour)
	return state
}
