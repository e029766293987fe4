// Package sink collects successful analysis answers in a bounded in-memory
// log and drives narration. Nothing here survives the capture session.
package sink

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sightline/internal/narrate"
)

// DefaultCapacity is how many recent answers the log retains.
const DefaultCapacity = 20

// Entry is one narrated answer. Timestamp is epoch milliseconds.
type Entry struct {
	Timestamp int64  `json:"timestamp"`
	Answer    string `json:"answer"`
	Question  string `json:"question"`
}

// Sink owns the result log and the narration trigger. Safe for concurrent
// use; cycle goroutines record into it while the CLI reads from it.
type Sink struct {
	narrator narrate.Narrator
	capacity int
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries []Entry
	lastErr string
}

// New creates a sink. A nil narrator mutes narration; capacity <= 0 uses
// DefaultCapacity.
func New(narrator narrate.Narrator, capacity int, logger *slog.Logger) *Sink {
	if narrator == nil {
		narrator = narrate.Muted{}
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		narrator: narrator,
		capacity: capacity,
		logger:   logger,
		now:      time.Now,
	}
}

// Record appends a successful answer, evicting the oldest entry once the
// log is full, then narrates it. The narrator cancels any utterance still
// in progress.
func (s *Sink) Record(answer, question string) {
	entry := Entry{
		Timestamp: s.now().UnixMilli(),
		Answer:    answer,
		Question:  question,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	s.lastErr = ""
	s.mu.Unlock()

	s.logger.Info("analysis answer", "answer", answer, "question", question)
	s.narrator.Speak(Phrase(answer))
}

// Fail records the latest error message for display. Errors are never
// narrated aloud.
func (s *Sink) Fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()

	s.logger.Warn("analysis failed", "error", err)
}

// Entries returns a copy of the log, oldest first.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// LastError returns the most recent error message, or "" when the last
// cycle succeeded.
func (s *Sink) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError dismisses the displayed error.
func (s *Sink) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// Phrase renders an answer as the uniform narration sentence, picking the
// article by the answer's leading sound.
func Phrase(answer string) string {
	return fmt.Sprintf("There is %s %s ahead.", article(answer), answer)
}

func article(word string) string {
	trimmed := strings.TrimSpace(strings.ToLower(word))
	if trimmed == "" {
		return "a"
	}
	switch trimmed[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	}
	return "a"
}
