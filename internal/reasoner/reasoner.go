// Package reasoner provides the external inference capability used by
// reasoning-backed pipeline stages. All non-determinism in the engine
// lives behind the Reasoner interface: stages hand it a structured
// prompt context and a declared output schema, and get back raw JSON or
// a classified error they can degrade on.
package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrTimeout indicates the inference call exceeded its budget.
// Recoverable: stages retry once, then fall back.
var ErrTimeout = errors.New("reasoner: inference timed out")

// ErrSchema indicates the model's output did not conform to the
// declared schema. Recoverable: stages retry once with stricter
// formatting constraints, then fall back.
var ErrSchema = errors.New("reasoner: output did not match schema")

// Request describes one inference call.
type Request struct {
	// Stage names the calling pipeline stage, for logging.
	Stage string
	// System is the role framing for the model.
	System string
	// Prompt is the structured context rendered for the model.
	Prompt string
	// Schema describes the JSON shape the reply must conform to.
	Schema string
	// Strict asks for tightened formatting constraints. Set on retry.
	Strict bool
	// Timeout bounds the call. Zero means the caller's context governs.
	Timeout time.Duration
}

// Reasoner produces structured output for a prompt context.
// Implementations must honor context cancellation.
type Reasoner interface {
	// Infer returns the model's reply as raw JSON conforming to the
	// request schema, or ErrTimeout / ErrSchema.
	Infer(ctx context.Context, req Request) (json.RawMessage, error)
}

// ExtractJSON pulls the first JSON object out of a model reply, which
// may wrap it in prose or a fenced code block. Returns ErrSchema when
// no parseable object is found.
func ExtractJSON(reply string) (json.RawMessage, error) {
	s := reply

	// Prefer a fenced block if present.
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = rest[:j]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, ErrSchema
	}
	raw := json.RawMessage(s[start : end+1])
	if !json.Valid(raw) {
		return nil, ErrSchema
	}
	return raw, nil
}
