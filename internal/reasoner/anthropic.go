package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// maxOutputTokens bounds each reply. Stage outputs are small JSON
// documents; anything larger indicates a runaway generation.
const maxOutputTokens = 2048

// AnthropicReasoner implements Reasoner against the Anthropic API.
type AnthropicReasoner struct {
	client *Client
}

// NewAnthropicReasoner wraps a Client as a Reasoner.
func NewAnthropicReasoner(client *Client) *AnthropicReasoner {
	return &AnthropicReasoner{client: client}
}

// Infer sends one message to the model and extracts the JSON object
// from its reply. Deadline overruns map to ErrTimeout, unparseable
// replies to ErrSchema; both are recoverable for the caller.
func (r *AnthropicReasoner) Infer(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	prompt := req.Prompt
	if req.Schema != "" {
		prompt = fmt.Sprintf("%s\n\nReturn your answer as JSON:\n%s", prompt, req.Schema)
	}
	if req.Strict {
		prompt += "\n\nIMPORTANT: Reply with the JSON object ONLY. No prose, no code fences, no commentary."
	}

	start := time.Now()
	resp, err := r.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.client.Model(),
		MaxTokens: maxOutputTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("[reasoner] stage %s: inference timed out after %s", req.Stage, time.Since(start).Round(time.Millisecond))
			return nil, ErrTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("inference call: %w", err)
	}

	r.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		log.Printf("[reasoner] stage %s: reply did not contain valid JSON (%d chars)", req.Stage, len(text))
		return nil, err
	}
	return raw, nil
}
