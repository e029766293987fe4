// Package narrate speaks analysis answers aloud through a text-to-speech
// command. One utterance plays at a time: starting a new one cancels
// whatever is still being spoken, so narration never queues up and lags
// behind the live feed.
package narrate

import (
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
)

// Narrator is the speech side-channel. Speak cancels any utterance in
// progress before starting the new one. Stop silences the narrator.
type Narrator interface {
	Speak(text string)
	Stop()
}

// Muted is a Narrator that says nothing. Used for --mute and in tests.
type Muted struct{}

func (Muted) Speak(string) {}
func (Muted) Stop()        {}

// DefaultCommand returns the platform's usual TTS command.
func DefaultCommand() string {
	if runtime.GOOS == "darwin" {
		return "say"
	}
	return "espeak-ng"
}

// CommandNarrator shells out to a TTS program for each utterance.
type CommandNarrator struct {
	command string
	logger  *slog.Logger

	mu      sync.Mutex
	current *exec.Cmd
	done    chan struct{} // closed when the current utterance finishes
}

// NewCommandNarrator builds a narrator around the given command; empty
// falls back to DefaultCommand.
func NewCommandNarrator(command string, logger *slog.Logger) *CommandNarrator {
	if command == "" {
		command = DefaultCommand()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandNarrator{command: command, logger: logger}
}

// Speak kills the in-progress utterance, if any, and starts the new one.
// TTS failures are logged and swallowed; narration is best-effort.
func (n *CommandNarrator) Speak(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.cancelLocked()

	cmd := exec.Command(n.command, text)
	if err := cmd.Start(); err != nil {
		n.logger.Warn("narration unavailable", "command", n.command, "error", err)
		return
	}

	done := make(chan struct{})
	n.current = cmd
	n.done = done

	// Reap the process when it finishes or is killed.
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
}

// Stop silences any utterance in progress.
func (n *CommandNarrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelLocked()
}

func (n *CommandNarrator) cancelLocked() {
	if n.current != nil && n.current.Process != nil {
		_ = n.current.Process.Kill()
	}
	n.current = nil
	n.done = nil
}
