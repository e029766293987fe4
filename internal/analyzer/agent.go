// Package analyzer answers frame questions with an on-device Ollama vision
// model instead of the remote backend.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agent-api/core/pkg/agent"
	"github.com/agent-api/core/types"
	"github.com/agent-api/ollama"
)

const systemPrompt = "You are an assistive vision narrator. Answer with the single most prominent object or scene element, in a few words, so the answer fits the sentence 'There is a ... ahead.'"

// NewAgent initializes a vision agent against a local Ollama instance.
func NewAgent(ctx context.Context, logger *slog.Logger, baseURL string, port int, model string) (*agent.DefaultAgent, error) {
	if err := checkOllama(ctx, baseURL, port); err != nil {
		return nil, err
	}

	opts := &ollama.ProviderOpts{
		Logger:  logger,
		BaseURL: baseURL,
		Port:    port,
	}
	provider := ollama.NewProvider(opts)
	provider.UseModel(ctx, &types.Model{ID: model})

	agentConf := &agent.NewAgentConfig{
		Provider:     provider,
		Logger:       logger,
		SystemPrompt: systemPrompt,
	}

	return agent.NewAgent(agentConf), nil
}

// checkOllama verifies the Ollama API is reachable before the first frame
// is grabbed, so a missing daemon fails fast with a clear message.
func checkOllama(ctx context.Context, baseURL string, port int) error {
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s:%d/api/tags", baseURL, port)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()
	return nil
}
