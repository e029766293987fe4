package narrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMutedSaysNothing(t *testing.T) {
	var n Narrator = Muted{}
	n.Speak("there is a dog ahead")
	n.Stop()
}

func TestDefaultCommandIsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, DefaultCommand())
}

func TestSpeakWithMissingCommandIsBestEffort(t *testing.T) {
	n := NewCommandNarrator("definitely-not-a-tts-binary", nil)

	// TTS failures must never propagate into the capture loop.
	n.Speak("hello")
	n.Stop()
}

func TestNewUtteranceCancelsPrevious(t *testing.T) {
	// sleep stands in for a long utterance; the second Speak must kill it.
	n := NewCommandNarrator("sleep", nil)

	n.Speak("30")
	n.mu.Lock()
	first := n.current
	firstDone := n.done
	n.mu.Unlock()
	if first == nil {
		t.Skip("sleep not available")
	}

	n.Speak("30")
	n.mu.Lock()
	assert.NotSame(t, first, n.current)
	n.mu.Unlock()

	// The killed process exits promptly instead of sleeping out its 30s.
	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatal("previous utterance was not canceled")
	}

	n.Stop()
}
