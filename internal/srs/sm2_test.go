package srs

import (
	"math"
	"testing"
	"time"

	"github.com/example/studydesk/internal/domain"
)

func TestQuality(t *testing.T) {
	cases := []struct {
		grade Grade
		want  int
	}{
		{Again, 1},
		{Hard, 3},
		{Good, 4},
		{Easy, 5},
		{Grade("banana"), 4}, // unknown grades behave like Good
	}
	for _, c := range cases {
		if got := c.grade.Quality(); got != c.want {
			t.Errorf("Quality(%q) = %d, want %d", c.grade, got, c.want)
		}
	}
}

func TestNextDueInvariant(t *testing.T) {
	params := DefaultParams()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	prior := domain.ReviewState{
		Ease:         2.1,
		Repetitions:  4,
		IntervalDays: 12,
		Lapses:       2,
	}

	for _, g := range []Grade{Again, Hard, Good, Easy} {
		t.Run(string(g), func(t *testing.T) {
			next := params.Next(prior, g, false, now)
			wantDue := now.Add(time.Duration(next.IntervalDays) * 24 * time.Hour)
			if !next.Due.Equal(wantDue) {
				t.Errorf("due = %v, want last reviewed + %d days = %v", next.Due, next.IntervalDays, wantDue)
			}
			if !next.LastReviewed.Equal(now) {
				t.Errorf("last reviewed = %v, want %v", next.LastReviewed, now)
			}
			if next.Ease < params.MinEase || next.Ease > params.MaxEase {
				t.Errorf("ease %f outside [%f, %f]", next.Ease, params.MinEase, params.MaxEase)
			}
		})
	}
}

func TestNextAgainResets(t *testing.T) {
	params := DefaultParams()
	now := time.Now()

	prior := domain.ReviewState{
		Ease:         2.5,
		Repetitions:  7,
		IntervalDays: 40,
		Lapses:       3,
	}

	next := params.Next(prior, Again, false, now)
	if next.Repetitions != 0 {
		t.Errorf("repetitions = %d, want 0", next.Repetitions)
	}
	if next.IntervalDays != 1 {
		t.Errorf("interval = %d, want 1", next.IntervalDays)
	}
	if next.Lapses != prior.Lapses+1 {
		t.Errorf("lapses = %d, want %d", next.Lapses, prior.Lapses+1)
	}
}

func TestNextGoodProgression(t *testing.T) {
	params := DefaultParams()
	now := time.Now()

	state := domain.NewReviewState()

	state = params.Next(state, Good, false, now)
	if state.IntervalDays != 1 || state.Repetitions != 1 {
		t.Fatalf("first good: interval %d reps %d, want 1 and 1", state.IntervalDays, state.Repetitions)
	}

	state = params.Next(state, Good, false, now)
	if state.IntervalDays != 6 || state.Repetitions != 2 {
		t.Fatalf("second good: interval %d reps %d, want 6 and 2", state.IntervalDays, state.Repetitions)
	}

	// The third interval multiplies by the ease factor as it stood after
	// the second review.
	easeAfterSecond := state.Ease
	state = params.Next(state, Good, false, now)
	want := int(math.Round(6 * easeAfterSecond))
	if state.IntervalDays != want {
		t.Errorf("third good: interval %d, want round(6*%f) = %d", state.IntervalDays, easeAfterSecond, want)
	}
}

func TestNextEaseClamp(t *testing.T) {
	params := DefaultParams()
	now := time.Now()

	t.Run("floor", func(t *testing.T) {
		state := domain.ReviewState{Ease: 1.35, IntervalDays: 3, Repetitions: 3}
		for i := 0; i < 5; i++ {
			state = params.Next(state, Again, false, now)
		}
		if state.Ease != params.MinEase {
			t.Errorf("ease = %f, want clamped to %f", state.Ease, params.MinEase)
		}
	})

	t.Run("ceiling", func(t *testing.T) {
		state := domain.ReviewState{Ease: 2.65, IntervalDays: 3, Repetitions: 3}
		for i := 0; i < 5; i++ {
			state = params.Next(state, Easy, false, now)
		}
		if state.Ease != params.MaxEase {
			t.Errorf("ease = %f, want clamped to %f", state.Ease, params.MaxEase)
		}
	})
}

func TestNextHintPenalty(t *testing.T) {
	params := DefaultParams()
	now := time.Now()

	prior := domain.ReviewState{Ease: 2.0, Repetitions: 3, IntervalDays: 10}

	t.Run("shrinks successful intervals", func(t *testing.T) {
		clean := params.Next(prior, Good, false, now)
		hinted := params.Next(prior, Good, true, now)
		want := int(math.Round(float64(clean.IntervalDays) * 0.7))
		if want < 1 {
			want = 1
		}
		if hinted.IntervalDays != want {
			t.Errorf("hinted interval = %d, want %d (30%% off %d)", hinted.IntervalDays, want, clean.IntervalDays)
		}
	})

	t.Run("does not apply at quality 3", func(t *testing.T) {
		clean := params.Next(prior, Hard, false, now)
		hinted := params.Next(prior, Hard, true, now)
		if hinted.IntervalDays != clean.IntervalDays {
			t.Errorf("hard interval changed by hint: %d vs %d", hinted.IntervalDays, clean.IntervalDays)
		}
	})

	t.Run("floors at one day", func(t *testing.T) {
		fresh := domain.NewReviewState()
		next := params.Next(fresh, Good, true, now)
		if next.IntervalDays != 1 {
			t.Errorf("interval = %d, want floor of 1", next.IntervalDays)
		}
	})
}
