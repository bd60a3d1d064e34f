package speech

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// ErrUnavailable signals that no speech backend exists on this machine.
// Callers degrade to a visible message; the error never propagates as a
// failure.
var ErrUnavailable = errors.New("speech synthesis is not available")

// Synthesizer speaks a term aloud at a rate multiplier (1.0 = normal).
type Synthesizer interface {
	Speak(term string, rate float64) error
}

// New probes for a usable text-to-speech command and returns a
// synthesizer backed by it, or an always-unavailable one.
func New() Synthesizer {
	for _, c := range []string{"espeak", "espeak-ng", "say"} {
		if path, err := exec.LookPath(c); err == nil {
			return &commandSynthesizer{name: c, path: path}
		}
	}
	return Unavailable{}
}

// commandSynthesizer shells out to a local TTS binary.
type commandSynthesizer struct {
	name string
	path string
}

func (c *commandSynthesizer) Speak(term string, rate float64) error {
	if term == "" {
		return nil
	}
	if rate <= 0 {
		rate = 1.0
	}

	var cmd *exec.Cmd
	switch c.name {
	case "say":
		// say expects words per minute; ~175 wpm is its default.
		cmd = exec.Command(c.path, "-r", strconv.Itoa(int(175*rate)), term)
	default:
		// espeak expects words per minute too, default 175.
		cmd = exec.Command(c.path, "-s", strconv.Itoa(int(175*rate)), term)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s failed: %v", ErrUnavailable, c.name, err)
	}
	return nil
}

// Unavailable is the fallback synthesizer on machines without TTS.
type Unavailable struct{}

func (Unavailable) Speak(string, float64) error { return ErrUnavailable }
