package schemas

import (
	"context"
)

// -- Decision Oracle --

// DecisionRequest carries everything the oracle is allowed to know for one
// step. The oracle is stateless across calls; all continuity lives in History
// and SiteKnowledge.
type DecisionRequest struct {
	Understanding PageUnderstanding `json:"understanding"`
	Goal          string            `json:"goal"`
	OriginalQuery string            `json:"original_query"`
	History       []ActionRecord    `json:"history"`
	SiteKnowledge SiteKnowledge     `json:"site_knowledge"`
	StepIndex     int               `json:"step_index"`
	MaxSteps      int               `json:"max_steps"`
}

// DecisionOracle maps a page understanding plus goal and history to a
// structured decision. Implementations are black-box reasoning strategies;
// the navigation loop never assumes which backend is behind this interface,
// and it never trusts the oracle to self-limit on the final step.
type DecisionOracle interface {
	Decide(ctx context.Context, req DecisionRequest) (Decision, error)
}

// -- Browser Driver --

// BrowserDriver is the low-level browser capability the agent consumes. One
// driver instance owns one live page context; a navigate invocation owns its
// driver exclusively for the duration of the session.
type BrowserDriver interface {
	// Navigate loads a URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// Capture snapshots the current page: URL, serialized DOM, visible text,
	// and a screenshot.
	Capture(ctx context.Context) (RawSignals, error)
	// Click dispatches a click on the element matching the selector.
	Click(ctx context.Context, selector string) error
	// TypeText focuses the element, writes text, and submits with Enter when
	// submit is true.
	TypeText(ctx context.Context, selector, text string, submit bool) error
	// Scroll advances the viewport by a fixed unit (positive = down).
	Scroll(ctx context.Context, deltaY float64) error
	// WaitReady blocks until the page reaches a network-quiet state or the
	// configured settle timeout expires.
	WaitReady(ctx context.Context) error
	// Close tears down the page context.
	Close(ctx context.Context) error
}

// -- Site Knowledge Store --

// KnowledgeStore persists per-domain action history across sessions.
// Load is called at session start; Record after every verified step.
// Recording is additive: frequencies only increment, and success rates are
// recomputed from the running counters.
type KnowledgeStore interface {
	Load(ctx context.Context, domain string) (SiteKnowledge, error)
	Record(ctx context.Context, domain string, outcome StepOutcome) error
}

// StepOutcome is the unit of knowledge recorded after each step: the decision
// that was made, the target it resolved to, and whether verification passed.
type StepOutcome struct {
	Goal       string         `json:"goal"`
	Action     DecisionAction `json:"action"`
	TargetText string         `json:"target_text,omitempty"`
	TargetType string         `json:"target_type,omitempty"`
	Success    bool           `json:"success"`
	Reason     string         `json:"reason,omitempty"`
}

// -- Intervention Sink --

// InterventionSink receives escalation records. Implementations hand them to
// an external queue or UI; Emit must not block on human resolution.
type InterventionSink interface {
	Emit(ctx context.Context, iv Intervention, screenshot []byte) error
}

// -- LLM Client --

// ModelTier selects a model by a speed/capability preference rather than by
// name, leaving the concrete model choice to configuration.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions tunes a single generation call.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`
	ForceJSONFormat bool    `json:"force_json_format"`
	TopP            float64 `json:"top_p"`
	TopK            int     `json:"top_k"`
}

// GenerationRequest is one complete prompt for the LLM.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Tier         ModelTier         `json:"tier"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient abstracts the underlying LLM provider.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Close() error
}
