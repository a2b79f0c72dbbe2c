// internal/webagent/verify.go
package webagent

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// clickKey identifies one click attempt within a session.
type clickKey struct {
	url      string
	targetID string
}

// VerificationEngine carries the per-session VERIFY state: which (url, target)
// pairs were already clicked, and how many steps in a row failed verification.
type VerificationEngine struct {
	clicked             map[clickKey]struct{}
	consecutiveFailures int
	failureThreshold    int
	logger              *zap.Logger
}

// NewVerificationEngine creates the engine. failureThreshold is the number of
// consecutive failed verifications that triggers intervention.
func NewVerificationEngine(failureThreshold int, logger *zap.Logger) *VerificationEngine {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &VerificationEngine{
		clicked:          make(map[clickKey]struct{}),
		failureThreshold: failureThreshold,
		logger:           logger.Named("verification"),
	}
}

// WouldBeStuck reports whether executing the decision would repeat a click
// already made on this URL. Repeating the identical click is defined as a
// stuck signal, not something to retry.
func (v *VerificationEngine) WouldBeStuck(url string, decision schemas.Decision) bool {
	if decision.Action != schemas.ActionClick {
		return false
	}
	_, stuck := v.clicked[clickKey{url: url, targetID: decision.TargetID}]
	return stuck
}

// Verify compares the post-action page against the decision's expected state.
// Success means every must_see term appears in the new page's visible text
// (an empty must_see always verifies). It updates the stuck set and the
// failure counter.
func (v *VerificationEngine) Verify(url string, decision schemas.Decision, after schemas.PageUnderstanding) bool {
	success := mustSeeSatisfied(decision.ExpectedState.MustSee, after.VisibleText())

	if success {
		v.consecutiveFailures = 0
		if decision.Action == schemas.ActionClick {
			v.clicked[clickKey{url: url, targetID: decision.TargetID}] = struct{}{}
		}
	} else {
		v.consecutiveFailures++
		v.logger.Debug("Step verification failed",
			zap.String("action", string(decision.Action)),
			zap.Strings("must_see", decision.ExpectedState.MustSee),
			zap.Int("consecutive_failures", v.consecutiveFailures),
		)
	}
	return success
}

// NoteFailure counts a step that failed before verification was possible
// (unresolved target, driver error) toward the intervention threshold.
func (v *VerificationEngine) NoteFailure(reason string) {
	v.consecutiveFailures++
	v.logger.Debug("Step failed before verification",
		zap.String("reason", reason),
		zap.Int("consecutive_failures", v.consecutiveFailures),
	)
}

// RecordClick marks a click as made without verifying, for paths where the
// click happened but the session ends before verification.
func (v *VerificationEngine) RecordClick(url, targetID string) {
	v.clicked[clickKey{url: url, targetID: targetID}] = struct{}{}
}

// ShouldIntervene reports whether the failure streak reached the threshold.
func (v *VerificationEngine) ShouldIntervene() bool {
	return v.consecutiveFailures >= v.failureThreshold
}

// ConsecutiveFailures exposes the current streak for logging.
func (v *VerificationEngine) ConsecutiveFailures() int {
	return v.consecutiveFailures
}

// mustSeeSatisfied checks every term case-insensitively against the text.
func mustSeeSatisfied(mustSee []string, text string) bool {
	if len(mustSee) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, term := range mustSee {
		if term == "" {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
