// internal/webagent/executor.go
package webagent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// resolvedTarget is the element a decision's TargetID resolved to, carried
// into verification and knowledge recording.
type resolvedTarget struct {
	text        string
	elementType string
	selector    string
}

// ActionExecutor performs the ACT step against the live browser. It never
// retries; retry policy belongs to the verification layer.
type ActionExecutor struct {
	driver     schemas.BrowserDriver
	scrollUnit float64
	logger     *zap.Logger
}

// NewActionExecutor creates an executor bound to one browser driver.
func NewActionExecutor(driver schemas.BrowserDriver, scrollUnit float64, logger *zap.Logger) *ActionExecutor {
	if scrollUnit <= 0 {
		scrollUnit = 720
	}
	return &ActionExecutor{
		driver:     driver,
		scrollUnit: scrollUnit,
		logger:     logger.Named("action_executor"),
	}
}

// Execute carries out one decision. For click/type, the TargetID must resolve
// against the snapshot the decision was made on; an unresolved target fails
// fast rather than guessing a nearby element. extract and finish never touch
// the browser.
func (e *ActionExecutor) Execute(ctx context.Context, decision schemas.Decision, understanding schemas.PageUnderstanding) (resolvedTarget, error) {
	switch decision.Action {
	case schemas.ActionClick:
		target, err := e.resolveTarget(decision.TargetID, understanding)
		if err != nil {
			return resolvedTarget{}, err
		}
		if err := e.driver.Click(ctx, target.selector); err != nil {
			return target, fmt.Errorf("click on %q failed: %w", target.text, err)
		}
		return target, e.settle(ctx)

	case schemas.ActionType:
		target, err := e.resolveTarget(decision.TargetID, understanding)
		if err != nil {
			return resolvedTarget{}, err
		}
		// Submit with Enter unless the decision expects to stay on the same
		// page after typing.
		submit := decision.ExpectedState.PageType != understanding.PageType || decision.ExpectedState.PageType == ""
		if err := e.driver.TypeText(ctx, target.selector, decision.InputText, submit); err != nil {
			return target, fmt.Errorf("typing into %q failed: %w", target.text, err)
		}
		return target, e.settle(ctx)

	case schemas.ActionScroll:
		if err := e.driver.Scroll(ctx, e.scrollUnit); err != nil {
			return resolvedTarget{}, fmt.Errorf("scroll failed: %w", err)
		}
		return resolvedTarget{}, nil

	case schemas.ActionExtract, schemas.ActionFinish, schemas.ActionRequestHelp:
		// Terminal actions; browser state is left untouched.
		return resolvedTarget{}, nil
	}
	return resolvedTarget{}, fmt.Errorf("unknown action %q", decision.Action)
}

// resolveTarget maps a decision's TargetID to the element in the snapshot.
// Product items resolve through their clickable element.
func (e *ActionExecutor) resolveTarget(targetID string, understanding schemas.PageUnderstanding) (resolvedTarget, error) {
	item := understanding.FindItem(targetID)
	if item == nil {
		e.logger.Warn("Decision target not in snapshot", zap.String("target_id", targetID))
		return resolvedTarget{}, fmt.Errorf("%s: %w: %s", ErrCodeTargetNotFound, ErrTargetNotFound, targetID)
	}

	if item.ItemType == schemas.ItemTypeProduct && item.Product != nil && item.Product.ClickableID != "" {
		item = understanding.FindItem(item.Product.ClickableID)
		if item == nil {
			return resolvedTarget{}, fmt.Errorf("%s: %w: dangling clickable id %s", ErrCodeTargetNotFound, ErrTargetNotFound, targetID)
		}
	}
	if item.ItemType != schemas.ItemTypeElement || item.Element == nil || item.Element.Selector == "" {
		return resolvedTarget{}, fmt.Errorf("%s: %w: item %s is not actionable", ErrCodeTargetNotFound, ErrTargetNotFound, targetID)
	}

	return resolvedTarget{
		text:        item.Element.Text,
		elementType: item.Element.ElementType,
		selector:    item.Element.Selector,
	}, nil
}

// settle waits for the page to stabilize after a mutating action. A failed
// settle is logged, not fatal; the next capture shows whatever state exists.
func (e *ActionExecutor) settle(ctx context.Context) error {
	if err := e.driver.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Debug("Post-action settle did not complete", zap.Error(err))
	}
	return nil
}
