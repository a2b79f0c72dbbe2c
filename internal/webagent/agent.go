// internal/webagent/agent.go
// Package webagent runs the goal-directed navigation loop: PERCEIVE the page,
// DECIDE the next action through the oracle, ACT on the browser, VERIFY the
// outcome. One Navigate call owns one browser session and always returns a
// typed result.
package webagent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
	"github.com/xkilldash9x/scout-cli/internal/config"
	"github.com/xkilldash9x/scout-cli/internal/oracle"
	"github.com/xkilldash9x/scout-cli/internal/perception"
)

// DriverFactory opens a fresh browser session. Each Navigate call gets its
// own driver and closes it on return.
type DriverFactory func(ctx context.Context) (schemas.BrowserDriver, error)

// Agent wires the loop's collaborators together. Safe for concurrent Navigate
// calls; all per-session state lives in the session struct.
type Agent struct {
	interp     *perception.Interpreter
	oracle     schemas.DecisionOracle
	newDriver  DriverFactory
	knowledge  schemas.KnowledgeStore
	sink       schemas.InterventionSink
	classifier *ResultClassifier
	cfg        config.AgentConfig
	scrollUnit float64
	logger     *zap.Logger
}

// NewAgent assembles an agent from its collaborators.
func NewAgent(
	interp *perception.Interpreter,
	oracle schemas.DecisionOracle,
	newDriver DriverFactory,
	knowledge schemas.KnowledgeStore,
	sink schemas.InterventionSink,
	cfg config.AgentConfig,
	scrollUnit float64,
	logger *zap.Logger,
) *Agent {
	return &Agent{
		interp:     interp,
		oracle:     oracle,
		newDriver:  newDriver,
		knowledge:  knowledge,
		sink:       sink,
		classifier: NewResultClassifier(),
		cfg:        cfg,
		scrollUnit: scrollUnit,
		logger:     logger.Named("webagent"),
	}
}

// session is the mutable state of one Navigate invocation.
type session struct {
	url            string
	goal           string
	originalQuery  string
	domain         string
	driver         schemas.BrowserDriver
	executor       *ActionExecutor
	verifier       *VerificationEngine
	emitter        *interventionEmitter
	knowledge      schemas.SiteKnowledge
	history        []schemas.ActionRecord
	current        schemas.PageUnderstanding
	lastScreenshot []byte
	deadline       time.Time
}

// Navigate runs the full loop for one URL. It never panics past this
// boundary and always returns a WebAgentResult; infrastructure failures
// surface as determination=error with a reason.
func (a *Agent) Navigate(ctx context.Context, rawURL, goal, originalQuery string) (result schemas.WebAgentResult) {
	log := a.logger.With(zap.String("url", rawURL), zap.String("goal", goal))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Navigation loop panicked", zap.Any("panic", r))
			result = errorResult(fmt.Sprintf("internal panic: %v", r))
		}
	}()

	maxSteps := a.cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 5
	}

	sess := &session{
		url:           rawURL,
		goal:          goal,
		originalQuery: originalQuery,
		domain:        domainOf(rawURL),
	}
	if a.cfg.NavigateBudget > 0 {
		sess.deadline = time.Now().Add(a.cfg.NavigateBudget)
	}

	driver, err := a.newDriver(ctx)
	if err != nil {
		log.Error("Failed to open browser session", zap.Error(err))
		return errorResult(fmt.Sprintf("%s: %v", ErrCodeBrowserFailure, err))
	}
	defer func() {
		if closeErr := driver.Close(context.Background()); closeErr != nil {
			log.Warn("Failed to close browser session", zap.Error(closeErr))
		}
	}()
	sess.driver = driver
	sess.executor = NewActionExecutor(driver, a.scrollUnit, a.logger)
	sess.verifier = NewVerificationEngine(a.cfg.FailureThreshold, a.logger)
	sess.emitter = newInterventionEmitter(a.sink, a.logger)

	if sk, err := a.knowledge.Load(ctx, sess.domain); err != nil {
		log.Warn("Failed to load site knowledge, continuing without", zap.Error(err))
	} else {
		sess.knowledge = sk
	}

	if err := driver.Navigate(ctx, rawURL); err != nil {
		log.Error("Initial navigation failed", zap.Error(err))
		return errorResult(fmt.Sprintf("%s: %v", ErrCodeBrowserFailure, err))
	}
	if err := a.capture(ctx, sess); err != nil {
		log.Error("Initial capture failed", zap.Error(err))
		return errorResult(fmt.Sprintf("%s: %v", ErrCodeBrowserFailure, err))
	}

	for step := 0; step < maxSteps; step++ {
		if expired, res := a.checkBudget(ctx, sess, step); expired {
			return res
		}

		decision, err := a.decide(ctx, sess, step, maxSteps)
		if err != nil {
			code := ErrCodeOracleUnavailable
			if errors.Is(err, oracle.ErrMalformed) {
				code = ErrCodeOracleMalformed
			}
			log.Error("Oracle decision failed", zap.Int("step", step), zap.Error(err))
			return errorResult(fmt.Sprintf("%s: %v", code, err))
		}

		// Hard cap: the final step may only conclude, never navigate further.
		// The oracle is not trusted to self-limit.
		if step == maxSteps-1 && !terminalAction(decision.Action) {
			log.Debug("Clamping final-step decision to extract",
				zap.String("proposed", string(decision.Action)))
			decision = schemas.Decision{
				Action:     schemas.ActionExtract,
				Confidence: decision.Confidence,
				Reasoning:  "step budget reached; extracting current page",
			}
		}

		if decision.Action == schemas.ActionClick && sess.verifier.WouldBeStuck(sess.current.URL, decision) {
			log.Warn("Repeated click detected, escalating",
				zap.String("target_id", decision.TargetID))
			sess.emitter.emit(ctx, schemas.InterventionStuck, sess.current.URL, sess.history, sess.current, sess.lastScreenshot,
				fmt.Sprintf("the agent keeps clicking %q without progress; inspect the page manually", decision.TargetID))
			return errorResult(fmt.Sprintf("%s: repeated click on %s", ErrCodeStuck, decision.TargetID))
		}

		if terminalAction(decision.Action) {
			return a.conclude(ctx, sess, decision)
		}

		result, done := a.step(ctx, sess, decision)
		if done {
			return result
		}
	}

	// Step budget exhausted without a terminal decision.
	return a.classifier.Classify(sess.current, sess.goal)
}

// decide asks the oracle for the next action, windowing the history it sees.
func (a *Agent) decide(ctx context.Context, sess *session, step, maxSteps int) (schemas.Decision, error) {
	history := sess.history
	if w := a.cfg.HistoryWindow; w > 0 && len(history) > w {
		history = history[len(history)-w:]
	}
	return a.oracle.Decide(ctx, schemas.DecisionRequest{
		Understanding: sess.current,
		Goal:          sess.goal,
		OriginalQuery: sess.originalQuery,
		History:       history,
		SiteKnowledge: sess.knowledge,
		StepIndex:     step,
		MaxSteps:      maxSteps,
	})
}

// step executes one non-terminal decision and verifies the result. done is
// true when the session must end with the accompanying result.
func (a *Agent) step(ctx context.Context, sess *session, decision schemas.Decision) (schemas.WebAgentResult, bool) {
	stepURL := sess.current.URL
	before := sess.current

	target, execErr := sess.executor.Execute(ctx, decision, before)

	var success bool
	if execErr != nil {
		a.logger.Warn("Action execution failed",
			zap.String("action", string(decision.Action)),
			zap.Error(execErr))
		sess.verifier.NoteFailure(execErr.Error())
	} else if capErr := a.capture(ctx, sess); capErr != nil {
		a.logger.Warn("Post-action capture failed", zap.Error(capErr))
		// The action itself succeeded; a click must still count toward the
		// stuck set or the oracle could repeat it behind a flaky capture.
		if decision.Action == schemas.ActionClick {
			sess.verifier.RecordClick(stepURL, decision.TargetID)
		}
		sess.verifier.NoteFailure(capErr.Error())
	} else {
		success = sess.verifier.Verify(stepURL, decision, sess.current)
	}

	sess.history = append(sess.history, schemas.ActionRecord{
		URL:       stepURL,
		Decision:  decision,
		Success:   success,
		Timestamp: time.Now().UTC(),
	})
	a.record(ctx, sess, decision, target, success)

	if blockers := sess.current.Assessment.Blockers; len(blockers) > 0 {
		a.logger.Warn("Page is gated, escalating", zap.Strings("blockers", blockers))
		sess.emitter.emit(ctx, schemas.InterventionBlocked, sess.current.URL, sess.history, sess.current, sess.lastScreenshot,
			fmt.Sprintf("resolve the %v gate manually and retry", blockers))
		return a.classifier.Classify(sess.current, sess.goal), true
	}

	if sess.verifier.ShouldIntervene() {
		a.logger.Warn("Consecutive failure threshold reached",
			zap.Int("consecutive_failures", sess.verifier.ConsecutiveFailures()))
		sess.emitter.emit(ctx, schemas.InterventionStuck, sess.current.URL, sess.history, sess.current, sess.lastScreenshot,
			"repeated steps failed verification; the page likely changed shape")
		return errorResult(fmt.Sprintf("%s: %d consecutive step failures", ErrCodeStuck, sess.verifier.ConsecutiveFailures())), true
	}

	return schemas.WebAgentResult{}, false
}

// conclude handles the terminal actions: extract, finish, and request_help.
func (a *Agent) conclude(ctx context.Context, sess *session, decision schemas.Decision) schemas.WebAgentResult {
	a.record(ctx, sess, decision, resolvedTarget{}, true)
	sess.history = append(sess.history, schemas.ActionRecord{
		URL:       sess.current.URL,
		Decision:  decision,
		Success:   true,
		Timestamp: time.Now().UTC(),
	})

	if decision.Action == schemas.ActionRequestHelp {
		a.logger.Warn("Oracle requested human help", zap.String("reasoning", decision.Reasoning))
		sess.emitter.emit(ctx, schemas.InterventionExtractionFailed, sess.current.URL, sess.history, sess.current, sess.lastScreenshot,
			fmt.Sprintf("oracle gave up: %s", decision.Reasoning))
		return errorResult(fmt.Sprintf("%s: %s", ErrCodeHelpNeeded, decision.Reasoning))
	}

	result := a.classifier.Classify(sess.current, sess.goal)
	if result.Determination == schemas.DeterminationBlocked {
		sess.emitter.emit(ctx, schemas.InterventionBlocked, sess.current.URL, sess.history, sess.current, sess.lastScreenshot,
			"resolve the page gate manually and retry")
	}
	return result
}

// capture snapshots the live page and interprets it into sess.current.
func (a *Agent) capture(ctx context.Context, sess *session) error {
	signals, err := sess.driver.Capture(ctx)
	if err != nil {
		return fmt.Errorf("page capture failed: %w", err)
	}
	sess.lastScreenshot = signals.Screenshot
	sess.current = a.interp.Interpret(signals, sess.goal)
	return nil
}

// record persists the step outcome into the site knowledge store and into the
// in-memory copy the oracle sees for the rest of this session.
func (a *Agent) record(ctx context.Context, sess *session, decision schemas.Decision, target resolvedTarget, success bool) {
	outcome := schemas.StepOutcome{
		Goal:       sess.goal,
		Action:     decision.Action,
		TargetText: target.text,
		TargetType: target.elementType,
		Success:    success,
		Reason:     decision.Reasoning,
	}
	if err := a.knowledge.Record(ctx, sess.domain, outcome); err != nil {
		a.logger.Warn("Failed to record step outcome", zap.Error(err))
	}
	mergeOutcome(&sess.knowledge, outcome)
}

// checkBudget enforces the wall-clock budget and caller cancellation at the
// step boundary. Timeouts are never retried here; retrying is the caller's
// decision.
func (a *Agent) checkBudget(ctx context.Context, sess *session, step int) (bool, schemas.WebAgentResult) {
	if ctx.Err() != nil {
		a.logger.Warn("Navigation canceled", zap.Int("step", step), zap.Error(ctx.Err()))
		return true, errorResult(fmt.Sprintf("%s: %v", ErrCodeTimeout, ctx.Err()))
	}
	if !sess.deadline.IsZero() && time.Now().After(sess.deadline) {
		a.logger.Warn("Navigation budget exhausted", zap.Int("step", step))
		return true, errorResult(string(ErrCodeTimeout))
	}
	return false, schemas.WebAgentResult{}
}

// mergeOutcome folds a fresh outcome into the session's working knowledge so
// later DECIDE calls see it without a store round-trip.
func mergeOutcome(sk *schemas.SiteKnowledge, outcome schemas.StepOutcome) {
	if outcome.Success {
		for i := range sk.SuccessfulActions {
			sa := &sk.SuccessfulActions[i]
			if sa.Goal == outcome.Goal && sa.Action == outcome.Action && sa.TargetText == outcome.TargetText && sa.TargetType == outcome.TargetType {
				successes := sa.SuccessRate*float64(sa.Frequency) + 1
				sa.Frequency++
				sa.SuccessRate = successes / float64(sa.Frequency)
				return
			}
		}
		sk.SuccessfulActions = append(sk.SuccessfulActions, schemas.ActionOutcome{
			Goal:        outcome.Goal,
			Action:      outcome.Action,
			TargetText:  outcome.TargetText,
			TargetType:  outcome.TargetType,
			Frequency:   1,
			SuccessRate: 1,
		})
		return
	}
	sk.FailedActions = append(sk.FailedActions, schemas.FailedAction{
		Goal:       outcome.Goal,
		Action:     outcome.Action,
		TargetText: outcome.TargetText,
		Reason:     outcome.Reason,
	})
}

// terminalAction reports whether the action ends the loop.
func terminalAction(action schemas.DecisionAction) bool {
	switch action {
	case schemas.ActionExtract, schemas.ActionFinish, schemas.ActionRequestHelp:
		return true
	}
	return false
}

// errorResult is the uniform failure shape for the Navigate boundary.
func errorResult(reason string) schemas.WebAgentResult {
	return schemas.WebAgentResult{
		Determination: schemas.DeterminationError,
		Reason:        reason,
	}
}

// domainOf extracts the bare hostname from a URL for knowledge keying.
func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(rawURL)
	}
	host := parsed.Host
	if h, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		host = h
	}
	return strings.ToLower(host)
}
