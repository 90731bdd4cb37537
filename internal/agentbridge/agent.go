package agentbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/antigravity-dev/webforge/internal/ports"
)

// Result is one agent Run's return shape, field-for-field from agents.py's
// AgentResult.
type Result struct {
	Output      json.RawMessage
	RawResponse string
	TokensUsed  int
	Model       string
	TokenUsage  ports.TokenUsage
}

// Agent is the BaseAgent contract: build a user message from typed inputs,
// call the transport, repair and schema-validate the response.
type Agent interface {
	SystemPrompt() string
	Temperature() float64
	BuildUserMessage(inputs map[string]any) string
	// Validate unmarshals raw JSON into the agent's expected output shape,
	// returning the same bytes back out if valid (re-marshaled canonically)
	// so Result.Output is always schema-clean JSON.
	Validate(raw []byte) (json.RawMessage, error)
}

// Bridge drives one Agent against a rate-limited LLMTransport, applying the
// fixed JSON-repair pipeline and retrying parse failures per
// RuntimeConfig.Agents.MaxParseRetries.
type Bridge struct {
	Transport  ports.LLMTransport
	Limiter    *rate.Limiter
	Model      string
	MaxRetries int
}

// NewBridge builds a Bridge. ratePerMinute<=0 disables rate limiting.
func NewBridge(transport ports.LLMTransport, model string, ratePerMinute, maxRetries int) *Bridge {
	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Bridge{Transport: transport, Limiter: limiter, Model: model, MaxRetries: maxRetries}
}

// Run executes agent with inputs in up to MaxRetries attempts. Each attempt
// calls the transport, then agentbridge's own JSON-repair pipeline and the
// agent's Validate; a transport error, a repair failure or a validation
// failure all move on to the next attempt, after a wait of 2^n seconds
// where n is the 0-based index of the attempt that failed (1s, 2s, ...).
// agents.py has no retry loop around _parse_output itself — a single
// failure raises immediately — but spec.md §7's "Agent parse failure |
// Retried ≤3× with JSON repair" names a retry bound at this layer, so the
// Go port loops the whole call, re-invoking the transport each time, since
// a repeat call is the only way to get a fresh raw_response to repair.
func (b *Bridge) Run(ctx context.Context, agent Agent, inputs map[string]any) (*Result, error) {
	userMsg := agent.BuildUserMessage(inputs)

	var lastErr error
	for attempt := 0; attempt < b.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("agentbridge: retry backoff: %w", ctx.Err())
			case <-time.After(time.Duration(1<<(attempt-1)) * time.Second):
			}
		}
		if b.Limiter != nil {
			if err := b.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("agentbridge: rate limiter: %w", err)
			}
		}

		resp, err := b.Transport.ChatComplete(ctx, b.Model, []ports.ChatMessage{
			{Role: "system", Content: agent.SystemPrompt()},
			{Role: "user", Content: userMsg},
		}, agent.Temperature())
		if err != nil {
			lastErr = fmt.Errorf("llm transport error: %w", err)
			continue
		}

		rawJSON, err := ParseOutputRaw(resp.Content)
		if err != nil {
			lastErr = err
			continue
		}

		validated, err := agent.Validate([]byte(rawJSON))
		if err != nil {
			lastErr = err
			continue
		}

		return &Result{
			Output:      validated,
			RawResponse: resp.Content,
			TokensUsed:  resp.Usage.TotalTokens,
			Model:       resp.Model,
			TokenUsage:  resp.Usage,
		}, nil
	}

	return nil, fmt.Errorf("agent output parse failed after %d attempts: %w", b.MaxRetries, lastErr)
}
