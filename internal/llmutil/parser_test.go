package llmutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decisionShape struct {
	Action    string `json:"action"`
	TargetID  string `json:"target_id"`
	Reasoning string `json:"reasoning"`
}

func TestParseJSONResponse_BareObject(t *testing.T) {
	raw := `{"action": "click", "target_id": "el-4", "reasoning": "cart link"}`

	got, err := ParseJSONResponse[decisionShape](raw)

	require.NoError(t, err)
	assert.Equal(t, "click", got.Action)
	assert.Equal(t, "el-4", got.TargetID)
}

func TestParseJSONResponse_MarkdownFence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "fence with json tag",
			raw:  "```json\n{\"action\": \"extract\", \"reasoning\": \"done\"}\n```",
		},
		{
			name: "fence without tag",
			raw:  "```\n{\"action\": \"extract\", \"reasoning\": \"done\"}\n```",
		},
		{
			name: "fence with surrounding whitespace",
			raw:  "  ```json\n  {\"action\": \"extract\", \"reasoning\": \"done\"}\n```  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONResponse[decisionShape](tt.raw)
			require.NoError(t, err)
			assert.Equal(t, "extract", got.Action)
		})
	}
}

func TestParseJSONResponse_ConversationalWrapper(t *testing.T) {
	raw := `Sure! Here is the decision you asked for:
{"action": "type", "target_id": "el-2", "reasoning": "search box"}
Let me know if you need anything else.`

	got, err := ParseJSONResponse[decisionShape](raw)

	require.NoError(t, err)
	assert.Equal(t, "type", got.Action)
	assert.Equal(t, "el-2", got.TargetID)
}

func TestParseJSONResponse_Array(t *testing.T) {
	raw := "```json\n[{\"action\": \"scroll\"}, {\"action\": \"extract\"}]\n```"

	got, err := ParseJSONResponse[[]decisionShape](raw)

	require.NoError(t, err)
	require.Len(t, *got, 2)
	assert.Equal(t, "scroll", (*got)[0].Action)
	assert.Equal(t, "extract", (*got)[1].Action)
}

func TestParseJSONResponse_NestedBracesInsideText(t *testing.T) {
	// The payload itself contains braces in a string value; boundary scanning
	// from first "{" to last "}" must still capture the whole object.
	raw := `The plan: {"action": "finish", "reasoning": "price was {unknown}"}`

	got, err := ParseJSONResponse[decisionShape](raw)

	require.NoError(t, err)
	assert.Equal(t, "finish", got.Action)
	assert.Equal(t, "price was {unknown}", got.Reasoning)
}

func TestParseJSONResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "plain prose", raw: "I could not produce a decision."},
		{name: "truncated object", raw: `{"action": "click", "target_id":`},
		{name: "fence with broken json", raw: "```json\n{\"action\": oops}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONResponse[decisionShape](tt.raw)
			assert.Error(t, err)
			assert.Nil(t, got)
			assert.Contains(t, err.Error(), "failed to unmarshal LLM JSON response")
		})
	}
}

func TestParseJSONResponse_ErrorTruncatesPayload(t *testing.T) {
	long := `{"action": ` + strings.Repeat("x", 2000)

	_, err := ParseJSONResponse[decisionShape](long)

	require.Error(t, err)
	assert.Less(t, len(err.Error()), 700, "error message should truncate the echoed payload")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "", truncateString("abc", 0))
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
}
