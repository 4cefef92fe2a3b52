package sessioncore

import (
	"context"
	"fmt"

	"ragmemory/pkg/ai"
)

const llmSummarizerMaxTokens = 512

// AIClientAdapter narrows pkg/ai.AIClient's structured chat-completion
// contract down to decay.LLMClient's single free-text prompt/response
// contract, so the auto-merge Summarizer can use whichever provider client
// (Claude/OpenAI/Perplexity) the caller wires in.
type AIClientAdapter struct {
	client ai.AIClient
}

// NewAIClientAdapter wraps client. A nil client yields an adapter whose
// Complete always errors, causing the LLM summarizer to fall back to the
// rule-based path.
func NewAIClientAdapter(client ai.AIClient) *AIClientAdapter {
	return &AIClientAdapter{client: client}
}

func (a *AIClientAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("sessioncore: no AI client configured")
	}
	resp, err := a.client.Complete(ctx, &ai.CompletionRequest{
		Messages:  []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens: llmSummarizerMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
