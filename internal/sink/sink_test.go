package sink

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNarrator struct {
	mu     sync.Mutex
	spoken []string
}

func (r *recordingNarrator) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
}

func (r *recordingNarrator) Stop() {}

func (r *recordingNarrator) utterances() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.spoken))
	copy(out, r.spoken)
	return out
}

func TestLogIsBoundedFIFO(t *testing.T) {
	s := New(nil, DefaultCapacity, nil)

	for i := 0; i < 21; i++ {
		s.Record(fmt.Sprintf("answer-%d", i), "q")
	}

	entries := s.Entries()
	require.Len(t, entries, 20)
	// The oldest entry is gone; the 20 most recent remain in arrival order.
	assert.Equal(t, "answer-1", entries[0].Answer)
	assert.Equal(t, "answer-20", entries[19].Answer)
}

func TestRecordNarratesAnswer(t *testing.T) {
	narrator := &recordingNarrator{}
	s := New(narrator, 0, nil)

	s.Record("dog", "what is ahead?")

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "dog", entries[0].Answer)
	assert.Equal(t, "what is ahead?", entries[0].Question)
	assert.Equal(t, []string{"There is a dog ahead."}, narrator.utterances())
}

func TestFailDoesNotNarrate(t *testing.T) {
	narrator := &recordingNarrator{}
	s := New(narrator, 0, nil)

	s.Fail(errors.New("backend returned 500 Internal Server Error: model overloaded"))

	assert.Empty(t, s.Entries())
	assert.Empty(t, narrator.utterances())
	assert.Contains(t, s.LastError(), "model overloaded")
}

func TestSuccessClearsDisplayedError(t *testing.T) {
	s := New(nil, 0, nil)

	s.Fail(errors.New("timeout"))
	require.NotEmpty(t, s.LastError())

	s.Record("dog", "q")
	assert.Empty(t, s.LastError())
}

func TestClearError(t *testing.T) {
	s := New(nil, 0, nil)
	s.Fail(errors.New("timeout"))
	s.ClearError()
	assert.Empty(t, s.LastError())
}

func TestEntriesReturnsCopy(t *testing.T) {
	s := New(nil, 0, nil)
	s.Record("dog", "q")

	entries := s.Entries()
	entries[0].Answer = "mutated"

	assert.Equal(t, "dog", s.Entries()[0].Answer)
}

func TestEntryTimestampIsEpochMillis(t *testing.T) {
	s := New(nil, 0, nil)
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Record("dog", "q")

	assert.Equal(t, fixed.UnixMilli(), s.Entries()[0].Timestamp)
}

func TestPhraseArticles(t *testing.T) {
	assert.Equal(t, "There is a dog ahead.", Phrase("dog"))
	assert.Equal(t, "There is an object ahead.", Phrase("object"))
	assert.Equal(t, "There is an umbrella ahead.", Phrase("umbrella"))
}
