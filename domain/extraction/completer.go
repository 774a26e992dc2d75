package extraction

import "context"

// Completer produces a chat completion from an external language model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
