package analyzer

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"github.com/agent-api/core/pkg/agent"

	"sightline/internal/client"
	"sightline/internal/encode"
)

// Local answers frame questions with a local vision agent. It satisfies the
// same analyzer contract as the HTTP client, so the capture loop cannot
// tell the two apart.
type Local struct {
	agent  *agent.DefaultAgent
	logger *slog.Logger
}

// NewLocal wraps an initialized agent.
func NewLocal(visionAgent *agent.DefaultAgent, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{agent: visionAgent, logger: logger}
}

// AnalyzeFrame writes the frame to a scratch file (the agent API takes
// image paths) and runs the question against the local model. Answers go
// through the same sentinel normalization as remote ones.
func (l *Local) AnalyzeFrame(ctx context.Context, frame *encode.EncodedFrame, question string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(frame.Base64Data())
	if err != nil {
		return "", fmt.Errorf("decode frame payload: %w", err)
	}

	tmp, err := os.CreateTemp("", "sightline-frame-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create scratch frame file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write scratch frame file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write scratch frame file: %w", err)
	}

	response := l.agent.Run(
		ctx,
		agent.WithInput(question),
		agent.WithImagePath(tmp.Name()),
	)
	if response.Err != nil {
		return "", fmt.Errorf("local analysis failed: %w", response.Err)
	}
	if len(response.Messages) == 0 {
		return "", fmt.Errorf("no response messages received from model")
	}

	content := response.Messages[len(response.Messages)-1].Content
	if content == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}

	l.logger.Debug("local model answered", "answer", content)
	return client.NormalizeAnswer(content), nil
}
