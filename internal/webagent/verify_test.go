// internal/webagent/verify_test.go
package webagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

func textPage(text string) schemas.PageUnderstanding {
	return schemas.PageUnderstanding{
		Sections: []schemas.Section{{
			ID:          "sec-text",
			SectionType: "page_text",
			Items:       []schemas.Item{{ID: "txt-1", ItemType: schemas.ItemTypeText, Text: text}},
		}},
	}
}

func TestWouldBeStuckOnlyAfterVerifiedClick(t *testing.T) {
	v := NewVerificationEngine(3, zaptest.NewLogger(t))
	click := schemas.Decision{Action: schemas.ActionClick, TargetID: "el-1"}

	assert.False(t, v.WouldBeStuck("https://a.example.com", click), "first click is never stuck")

	ok := v.Verify("https://a.example.com", click, textPage("anything"))
	assert.True(t, ok)

	assert.True(t, v.WouldBeStuck("https://a.example.com", click), "repeating the same click on the same url is a stuck signal")
	assert.False(t, v.WouldBeStuck("https://b.example.com", click), "same target on a different url is fine")
	assert.False(t, v.WouldBeStuck("https://a.example.com", schemas.Decision{Action: schemas.ActionClick, TargetID: "el-2"}))
	assert.False(t, v.WouldBeStuck("https://a.example.com", schemas.Decision{Action: schemas.ActionScroll}), "only clicks count")
}

func TestRecordClickMarksStuckWithoutVerification(t *testing.T) {
	v := NewVerificationEngine(3, zaptest.NewLogger(t))
	click := schemas.Decision{Action: schemas.ActionClick, TargetID: "el-1"}

	v.RecordClick("https://a.example.com", "el-1")

	assert.True(t, v.WouldBeStuck("https://a.example.com", click), "an unverified click still counts as made")
	assert.Zero(t, v.ConsecutiveFailures(), "recording a click is not a failure by itself")
}

func TestVerifyMustSee(t *testing.T) {
	v := NewVerificationEngine(3, zaptest.NewLogger(t))

	decision := schemas.Decision{
		Action:        schemas.ActionClick,
		TargetID:      "el-1",
		ExpectedState: schemas.ExpectedState{MustSee: []string{"Hamster", "$"}},
	}

	assert.True(t, v.Verify("u", decision, textPage("Syrian Hamster $21.99")), "all terms present, case-insensitive")
	assert.False(t, v.Verify("u", decision, textPage("Guinea Pig $39.99")), "missing term fails")

	empty := schemas.Decision{Action: schemas.ActionScroll}
	assert.True(t, v.Verify("u", empty, textPage("")), "empty must_see always verifies")
}

func TestFailureThresholdAndReset(t *testing.T) {
	v := NewVerificationEngine(3, zaptest.NewLogger(t))
	failing := schemas.Decision{
		Action:        schemas.ActionScroll,
		ExpectedState: schemas.ExpectedState{MustSee: []string{"never present"}},
	}

	v.Verify("u", failing, textPage("x"))
	v.Verify("u", failing, textPage("x"))
	assert.False(t, v.ShouldIntervene(), "below threshold")

	v.Verify("u", failing, textPage("x"))
	assert.True(t, v.ShouldIntervene(), "threshold reached at 3")

	// A success resets the streak.
	v.Verify("u", schemas.Decision{Action: schemas.ActionScroll}, textPage(""))
	assert.False(t, v.ShouldIntervene())
	assert.Zero(t, v.ConsecutiveFailures())
}

func TestNoteFailureCountsTowardThreshold(t *testing.T) {
	v := NewVerificationEngine(3, zaptest.NewLogger(t))

	v.NoteFailure("target not found")
	v.NoteFailure("driver error")
	v.NoteFailure("target not found")
	assert.True(t, v.ShouldIntervene())
}
