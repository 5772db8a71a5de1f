package llm

import "context"

// TextGenerator is the remote text-generation model the pipeline depends
// on. One prompt in, one raw text completion out; no conversation state and
// no retries at this layer.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
