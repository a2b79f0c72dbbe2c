// internal/webagent/classify.go
package webagent

import (
	"fmt"

	"github.com/xkilldash9x/scout-cli/api/schemas"
	"github.com/xkilldash9x/scout-cli/internal/perception"
)

// classifierRule is one row of the classification table. Rules are evaluated
// top to bottom; the first match wins, which makes the precedence auditable
// instead of implicit in nested conditionals.
type classifierRule struct {
	name    string
	applies func(cx classifyContext) bool
	result  func(cx classifyContext) schemas.WebAgentResult
}

// classifyContext is everything a rule may look at, computed once.
type classifyContext struct {
	understanding schemas.PageUnderstanding
	goal          string
	matched       []schemas.ExtractedItem
	seen          int
}

// ResultClassifier turns a terminal page snapshot into a WebAgentResult. It
// is pure: same snapshot and goal, same result.
type ResultClassifier struct {
	rules []classifierRule
}

// NewResultClassifier builds the classifier with its fixed rule order.
func NewResultClassifier() *ResultClassifier {
	return &ResultClassifier{rules: []classifierRule{
		{
			name: "blocked",
			applies: func(cx classifyContext) bool {
				return len(cx.understanding.Assessment.Blockers) > 0
			},
			result: func(cx classifyContext) schemas.WebAgentResult {
				return schemas.WebAgentResult{
					Determination: schemas.DeterminationBlocked,
					Reason:        fmt.Sprintf("%s: page is gated: %v", ErrCodeBlocked, cx.understanding.Assessment.Blockers),
					PageType:      cx.understanding.PageType,
					ItemsSeen:     cx.seen,
				}
			},
		},
		{
			name: "no online availability",
			applies: func(cx classifyContext) bool {
				status := cx.understanding.Assessment.AvailabilityStatus
				return status == schemas.InStoreOnly || status == schemas.OutOfStock
			},
			result: func(cx classifyContext) schemas.WebAgentResult {
				return schemas.WebAgentResult{
					Determination: schemas.NoOnlineAvailability,
					Reason:        fmt.Sprintf("availability is %s", cx.understanding.Assessment.AvailabilityStatus),
					PageType:      cx.understanding.PageType,
					ItemsSeen:     cx.seen,
				}
			},
		},
		{
			name: "wrong page type",
			applies: func(cx classifyContext) bool {
				if productPageType(cx.understanding.PageType) {
					return false
				}
				// The content-first override: a non-catalog page that still
				// carries extractable target content is classified on its
				// items, not its page type.
				return !cx.understanding.Assessment.HasTargetContent
			},
			result: func(cx classifyContext) schemas.WebAgentResult {
				return schemas.WebAgentResult{
					Determination: schemas.WrongPageType,
					Reason:        fmt.Sprintf("page type %s holds no goal content", cx.understanding.PageType),
					PageType:      cx.understanding.PageType,
					ItemsSeen:     cx.seen,
				}
			},
		},
		{
			name: "products found",
			applies: func(cx classifyContext) bool {
				return len(cx.matched) > 0
			},
			result: func(cx classifyContext) schemas.WebAgentResult {
				return schemas.WebAgentResult{
					Items:         cx.matched,
					Determination: schemas.ProductsFound,
					PageType:      cx.understanding.PageType,
					ItemsSeen:     cx.seen,
				}
			},
		},
		{
			// Zero matching items is valid, terminal evidence, not an error.
			name:    "no relevant products",
			applies: func(cx classifyContext) bool { return true },
			result: func(cx classifyContext) schemas.WebAgentResult {
				return schemas.WebAgentResult{
					Determination: schemas.NoRelevantProducts,
					Reason:        "no items on the page match the goal",
					PageType:      cx.understanding.PageType,
					ItemsSeen:     cx.seen,
				}
			},
		},
	}}
}

// Classify produces the terminal result for a session.
func (c *ResultClassifier) Classify(understanding schemas.PageUnderstanding, goal string) schemas.WebAgentResult {
	cx := classifyContext{
		understanding: understanding,
		goal:          goal,
	}
	cx.matched, cx.seen = matchItems(understanding, goal)

	for _, rule := range c.rules {
		if rule.applies(cx) {
			return rule.result(cx)
		}
	}
	// The table is total (the last rule always applies); this is unreachable.
	return schemas.WebAgentResult{
		Determination: schemas.DeterminationError,
		Reason:        "classification table matched no rule",
		PageType:      understanding.PageType,
	}
}

// matchItems collects product items whose names overlap the goal terms,
// converting them to extracted items.
func matchItems(understanding schemas.PageUnderstanding, goal string) ([]schemas.ExtractedItem, int) {
	terms := perception.GoalTerms(goal)

	var matched []schemas.ExtractedItem
	seen := 0
	for _, sec := range understanding.Sections {
		for _, item := range sec.Items {
			if item.ItemType != schemas.ItemTypeProduct || item.Product == nil {
				continue
			}
			seen++
			if !perception.MatchesGoal(item.Product.Name, terms) {
				continue
			}
			matched = append(matched, schemas.ExtractedItem{
				Name:         item.Product.Name,
				Price:        item.Product.Price,
				URL:          understanding.URL,
				Availability: item.Product.Availability,
			})
		}
	}
	return matched, seen
}

// productPageType reports whether the page type is a catalog surface.
func productPageType(pt schemas.PageType) bool {
	switch pt {
	case schemas.PageTypeListing, schemas.PageTypePDP, schemas.PageTypeSearch:
		return true
	}
	return false
}
