// internal/oracle/oracle.go
// Package oracle is the DECIDE step: it turns a page snapshot and the goal
// into exactly one next action by consulting an LLM. The oracle holds no
// state between calls; everything it knows arrives in the DecisionRequest.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/scout-cli/api/schemas"
	"github.com/xkilldash9x/scout-cli/internal/llmutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformed is returned when the model's output cannot be parsed into a
// valid Decision. The caller decides whether to retry or abort.
var ErrMalformed = errors.New("oracle returned a malformed decision")

const decisionTimeout = 30 * time.Second

// LLMOracle implements schemas.DecisionOracle on top of an LLM client.
type LLMOracle struct {
	client  schemas.LLMClient
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLLMOracle creates an oracle. requestsPerSecond bounds the call rate
// across all goroutines sharing this oracle.
func NewLLMOracle(client schemas.LLMClient, requestsPerSecond float64, logger *zap.Logger) *LLMOracle {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &LLMOracle{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  logger.Named("decision_oracle"),
	}
}

// Decide asks the model for the single next action. A malformed or invalid
// model response yields ErrMalformed; the decision itself is never fabricated
// locally.
func (o *LLMOracle) Decide(ctx context.Context, req schemas.DecisionRequest) (schemas.Decision, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return schemas.Decision{}, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return schemas.Decision{}, fmt.Errorf("failed to build decision prompt: %w", err)
	}

	apiCtx, cancel := context.WithTimeout(ctx, decisionTimeout)
	defer cancel()

	response, err := o.client.Generate(apiCtx, schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Tier:         schemas.TierPowerful,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true, Temperature: 0.2},
	})
	if err != nil {
		return schemas.Decision{}, fmt.Errorf("llm generation failed: %w", err)
	}

	decision, err := llmutil.ParseJSONResponse[schemas.Decision](response)
	if err != nil {
		o.logger.Warn("Unparseable oracle response", zap.Error(err))
		return schemas.Decision{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := decision.Validate(); err != nil {
		o.logger.Warn("Invalid oracle decision",
			zap.String("action", string(decision.Action)),
			zap.Error(err),
		)
		return schemas.Decision{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	o.logger.Debug("Oracle decision",
		zap.String("action", string(decision.Action)),
		zap.String("target_id", decision.TargetID),
		zap.Float64("confidence", decision.Confidence),
	)
	return *decision, nil
}

const systemPrompt = `You are the decision engine of 'scout-cli', an autonomous web navigation agent.
You are given a structured snapshot of the current page, the user's goal, the recent action history, and what has previously worked on this site.
Respond with a single JSON object describing exactly one next action:

{"action": "...", "target_id": "...", "input_text": "...", "expected_state": {"page_type": "...", "must_see": ["..."]}, "confidence": 0.0, "reasoning": "..."}

Available actions:
- click: Click an element. target_id must be an item id from the snapshot.
- type: Type into an input and submit. target_id must be an input item id; input_text is the text to type.
- scroll: Scroll down to reveal more of the page.
- extract: The current page already satisfies the goal; harvest its items. Prefer this whenever the snapshot shows matching products.
- finish: The goal cannot be advanced further; conclude with what has been seen.
- request_help: You are unable to make progress and a human needs to look.

Rules:
- Return ONLY the JSON object, no commentary.
- target_id must be copied verbatim from the snapshot; never invent ids.
- expected_state describes what the page should look like AFTER the action, and is used to verify it worked.
- If the assessment shows has_target_content true, choose extract.
- Avoid repeating an action that the history shows already failed on this page.`

// buildUserPrompt serializes the request context for the model.
func buildUserPrompt(req schemas.DecisionRequest) (string, error) {
	understandingJSON, err := json.MarshalIndent(req.Understanding, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize page snapshot: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\n", req.Goal)
	if req.OriginalQuery != "" && req.OriginalQuery != req.Goal {
		fmt.Fprintf(&sb, "Original query: %s\n", req.OriginalQuery)
	}
	fmt.Fprintf(&sb, "Step %d of %d.\n\n", req.StepIndex+1, req.MaxSteps)

	sb.WriteString("Current page snapshot:\n")
	sb.Write(understandingJSON)
	sb.WriteString("\n")

	if len(req.History) > 0 {
		sb.WriteString("\nRecent actions (oldest first):\n")
		for _, rec := range req.History {
			status := "ok"
			if !rec.Success {
				status = "FAILED"
			}
			fmt.Fprintf(&sb, "- [%s] %s target=%q on %s\n", status, rec.Decision.Action, rec.Decision.TargetID, rec.URL)
		}
	}

	if len(req.SiteKnowledge.SuccessfulActions) > 0 || len(req.SiteKnowledge.FailedActions) > 0 {
		knowledgeJSON, err := json.Marshal(req.SiteKnowledge)
		if err != nil {
			return "", fmt.Errorf("failed to serialize site knowledge: %w", err)
		}
		sb.WriteString("\nWhat has worked on this site before:\n")
		sb.Write(knowledgeJSON)
		sb.WriteString("\n")
	}

	sb.WriteString("\nRespond with the single JSON action object.")
	return sb.String(), nil
}
