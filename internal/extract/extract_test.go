package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openfinreg/corep-assistant/internal/model"
	"github.com/openfinreg/corep-assistant/pkg/anthropic"
)

func ca1Schema(t *testing.T) *model.TemplateSchema {
	t.Helper()
	registry, err := model.LoadTemplates()
	require.NoError(t, err)
	schema := registry.Get("CA1")
	require.NotNil(t, schema)
	return schema
}

func TestExtract_HappyPath(t *testing.T) {
	llm := &mockLLM{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("```json\n"+`{
		"populated_fields": [
			{
				"field_code": "R0010_C0010",
				"value": 500000000,
				"justification": "Scenario states CET1 instruments of 500M",
				"source_rules": ["crr#0003"],
				"confidence": "high"
			}
		],
		"missing_data": ["AT1 composition unspecified"],
		"assumptions": ["All figures in GBP"]
	}`+"\n```"), nil)

	ext := NewExtractor(llm, "claude-sonnet-4-5-20250929", 4096, 0)
	out, err := ext.Extract(context.Background(), "Bank has CET1 of 500M", nil, ca1Schema(t))
	require.NoError(t, err)

	require.Len(t, out.Candidates, 1)
	cand := out.Candidates[0]
	assert.Equal(t, "R0010_C0010", cand.FieldCode)
	assert.Equal(t, "R0010", cand.RowCode)
	assert.Equal(t, 500000000.0, cand.Value)
	assert.Equal(t, model.ConfidenceHigh, cand.Confidence)
	assert.Equal(t, []string{"crr#0003"}, cand.SourceRuleIDs)

	assert.Equal(t, []string{"AT1 composition unspecified"}, out.MissingData)
	assert.Equal(t, []string{"All figures in GBP"}, out.Assumptions)
}

func TestExtract_DropsUnknownFieldCodes(t *testing.T) {
	llm := &mockLLM{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{
		"populated_fields": [
			{"field_code": "R9999_C0010", "value": 1, "confidence": "high"},
			{"field_code": "R0030_C0010", "value": 200, "confidence": "medium"}
		]
	}`), nil)

	ext := NewExtractor(llm, "m", 1024, 0)
	out, err := ext.Extract(context.Background(), "q", nil, ca1Schema(t))
	require.NoError(t, err)

	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "R0030_C0010", out.Candidates[0].FieldCode)
}

func TestExtract_UncoercibleValueBecomesMissingData(t *testing.T) {
	llm := &mockLLM{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{
		"populated_fields": [
			{"field_code": "R0010_C0010", "value": "a sizeable amount", "confidence": "low"}
		]
	}`), nil)

	ext := NewExtractor(llm, "m", 1024, 0)
	out, err := ext.Extract(context.Background(), "q", nil, ca1Schema(t))
	require.NoError(t, err)

	assert.Empty(t, out.Candidates)
	require.Len(t, out.MissingData, 1)
	assert.Contains(t, out.MissingData[0], "R0010_C0010")
}

func TestExtract_DuplicateFieldCodeLastWins(t *testing.T) {
	llm := &mockLLM{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{
		"populated_fields": [
			{"field_code": "R0010_C0010", "value": 100, "confidence": "low"},
			{"field_code": "R0030_C0010", "value": 50, "confidence": "high"},
			{"field_code": "R0010_C0010", "value": 200, "confidence": "high"}
		]
	}`), nil)

	ext := NewExtractor(llm, "m", 1024, 0)
	out, err := ext.Extract(context.Background(), "q", nil, ca1Schema(t))
	require.NoError(t, err)

	require.Len(t, out.Candidates, 2)
	// The later value replaces the earlier one in place.
	assert.Equal(t, "R0010_C0010", out.Candidates[0].FieldCode)
	assert.Equal(t, 200.0, out.Candidates[0].Value)
	assert.Equal(t, "R0030_C0010", out.Candidates[1].FieldCode)
}

func TestExtract_UnknownConfidenceDefaults(t *testing.T) {
	llm := &mockLLM{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{
		"populated_fields": [
			{"field_code": "R0010_C0010", "value": 1, "confidence": "very sure"}
		]
	}`), nil)

	ext := NewExtractor(llm, "m", 1024, 0)
	out, err := ext.Extract(context.Background(), "q", nil, ca1Schema(t))
	require.NoError(t, err)

	require.Len(t, out.Candidates, 1)
	assert.Equal(t, model.ConfidenceUnknown, out.Candidates[0].Confidence)
}

func TestExtract_UnparseableOutputIsError(t *testing.T) {
	llm := &mockLLM{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("I cannot produce JSON for this."), nil)

	ext := NewExtractor(llm, "m", 1024, 0)
	_, err := ext.Extract(context.Background(), "q", nil, ca1Schema(t))
	assert.Error(t, err)
}

func TestExtract_CallFailurePropagates(t *testing.T) {
	llm := &mockLLM{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	ext := NewExtractor(llm, "m", 1024, 0)
	_, err := ext.Extract(context.Background(), "q", nil, ca1Schema(t))
	assert.Error(t, err)
}

func TestExtract_RequestShape(t *testing.T) {
	llm := &mockLLM{}
	llm.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-sonnet-4-5-20250929" &&
			req.System == systemText &&
			len(req.Messages) == 1 &&
			strings.Contains(req.Messages[0].Content, "Bank issued AT1 notes")
	})).Return(textResponse(`{"populated_fields": []}`), nil)

	ext := NewExtractor(llm, "claude-sonnet-4-5-20250929", 4096, 0)
	_, err := ext.Extract(context.Background(), "Bank issued AT1 notes", nil, ca1Schema(t))
	require.NoError(t, err)
	llm.AssertExpectations(t)
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON(`Here is the result: {"a":1} Hope that helps.`))
	assert.Equal(t, `{"a":1}`, cleanJSON(`{"a":1}`))
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	schema := ca1Schema(t)
	passages := []model.RetrievedPassage{
		{RuleID: "crr#0001", Text: "Article 26 text", Score: 0.91},
	}

	a := BuildPrompt("Bank scenario text", passages, schema)
	b := BuildPrompt("Bank scenario text", passages, schema)
	assert.Equal(t, a, b)

	assert.Contains(t, a, "[crr#0001]")
	assert.Contains(t, a, "R0380_C0010")
	assert.Contains(t, a, "Bank scenario text")
}

func TestBuildPrompt_EmptyPassages(t *testing.T) {
	p := BuildPrompt("Scenario", nil, ca1Schema(t))
	assert.Contains(t, p, "No specific regulatory context")
}
