// internal/siteknowledge/memory.go
// Package siteknowledge stores per-domain action outcomes so later sessions
// (and later steps of the same session) can favor patterns that worked and
// avoid ones that did not. Updates are additive only.
package siteknowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// patternKey identifies one action pattern within a domain.
type patternKey struct {
	goal       string
	action     schemas.DecisionAction
	targetText string
	targetType string
}

// patternStats is the additive tally behind an ActionOutcome.
type patternStats struct {
	attempts   int
	successes  int
	lastReason string
}

// MemoryStore is the default, process-local knowledge store.
type MemoryStore struct {
	mu      sync.RWMutex
	domains map[string]map[patternKey]*patternStats
	updated map[string]time.Time
	logger  *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		domains: make(map[string]map[patternKey]*patternStats),
		updated: make(map[string]time.Time),
		logger:  logger.Named("site_knowledge"),
	}
}

// Load returns the accumulated knowledge for a domain. Unknown domains yield
// an empty, usable SiteKnowledge, never an error.
func (m *MemoryStore) Load(ctx context.Context, domain string) (schemas.SiteKnowledge, error) {
	domain = normalizeDomain(domain)

	m.mu.RLock()
	defer m.mu.RUnlock()

	sk := schemas.SiteKnowledge{Domain: domain, UpdatedAt: m.updated[domain]}
	for key, stats := range m.domains[domain] {
		appendOutcome(&sk, key, stats.attempts, stats.successes, stats.lastReason)
	}
	sortKnowledge(&sk)
	return sk, nil
}

// Record merges one step outcome into the domain's tallies.
func (m *MemoryStore) Record(ctx context.Context, domain string, outcome schemas.StepOutcome) error {
	domain = normalizeDomain(domain)
	key := patternKey{
		goal:       outcome.Goal,
		action:     outcome.Action,
		targetText: outcome.TargetText,
		targetType: outcome.TargetType,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	patterns := m.domains[domain]
	if patterns == nil {
		patterns = make(map[patternKey]*patternStats)
		m.domains[domain] = patterns
	}
	stats := patterns[key]
	if stats == nil {
		stats = &patternStats{}
		patterns[key] = stats
	}
	stats.attempts++
	if outcome.Success {
		stats.successes++
	} else {
		stats.lastReason = outcome.Reason
	}
	m.updated[domain] = time.Now().UTC()

	m.logger.Debug("Recorded action outcome",
		zap.String("domain", domain),
		zap.String("action", string(outcome.Action)),
		zap.String("target_text", outcome.TargetText),
		zap.Bool("success", outcome.Success),
	)
	return nil
}

// appendOutcome files a tallied pattern under successes or failures.
func appendOutcome(sk *schemas.SiteKnowledge, key patternKey, attempts, successes int, lastReason string) {
	if successes > 0 {
		sk.SuccessfulActions = append(sk.SuccessfulActions, schemas.ActionOutcome{
			Goal:        key.goal,
			Action:      key.action,
			TargetText:  key.targetText,
			TargetType:  key.targetType,
			Frequency:   attempts,
			SuccessRate: float64(successes) / float64(attempts),
		})
		return
	}
	sk.FailedActions = append(sk.FailedActions, schemas.FailedAction{
		Goal:       key.goal,
		Action:     key.action,
		TargetText: key.targetText,
		Reason:     lastReason,
	})
}

// sortKnowledge gives Load a deterministic order: highest-frequency successes
// first, failures alphabetically.
func sortKnowledge(sk *schemas.SiteKnowledge) {
	sort.Slice(sk.SuccessfulActions, func(i, j int) bool {
		a, b := sk.SuccessfulActions[i], sk.SuccessfulActions[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.TargetText < b.TargetText
	})
	sort.Slice(sk.FailedActions, func(i, j int) bool {
		a, b := sk.FailedActions[i], sk.FailedActions[j]
		if a.Action != b.Action {
			return a.Action < b.Action
		}
		return a.TargetText < b.TargetText
	})
}

// normalizeDomain lowercases and strips a www prefix so knowledge collected
// on www.example.com serves example.com too.
func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(domain, "www.")
}
