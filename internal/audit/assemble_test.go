package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfinreg/corep-assistant/internal/model"
)

func ca1Schema(t *testing.T) *model.TemplateSchema {
	t.Helper()
	registry, err := model.LoadTemplates()
	require.NoError(t, err)
	return registry.Get("CA1")
}

func TestAssemble_EmptyCandidates(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	result := Assemble("q-1", ca1Schema(t), nil, nil, nil, nil, nil, nil, now)

	require.NotNil(t, result)
	assert.Equal(t, "q-1", result.QueryID)
	assert.Equal(t, "CA1", result.TemplateID)
	assert.Equal(t, "Own Funds", result.TemplateName)
	assert.Empty(t, result.Fields)
	assert.Empty(t, result.AuditLog)
	assert.NotNil(t, result.MissingData)
	assert.NotNil(t, result.Assumptions)
	assert.Equal(t, 0, result.Metadata["fields_populated"])
}

func TestAssemble_AuditEntriesMatchCandidates(t *testing.T) {
	now := time.Now().UTC()
	candidates := []model.CandidateField{
		{FieldCode: "R0010_C0010", Value: 500e6, Justification: "stated in scenario",
			SourceRuleIDs: []string{"crr#0001"}, Confidence: model.ConfidenceHigh},
		{FieldCode: "R0030_C0010", Value: 120e6, Confidence: model.ConfidenceMedium},
	}
	passages := []model.RetrievedPassage{
		{RuleID: "crr#0001", Text: "Article 26 excerpt", Score: 0.88},
	}

	result := Assemble("q-2", ca1Schema(t), candidates, nil, nil, nil, passages, nil, now)

	require.Len(t, result.AuditLog, 2)
	for i, entry := range result.AuditLog {
		assert.Equal(t, candidates[i].FieldCode, entry.FieldCode)
		assert.Equal(t, candidates[i].Value, entry.Value)
		assert.Equal(t, candidates[i].Confidence, entry.Confidence)
		// One shared timestamp for the whole assembly.
		assert.Equal(t, now, entry.RetrievedAt)
	}

	require.Len(t, result.AuditLog[0].SourceRules, 1)
	rule := result.AuditLog[0].SourceRules[0]
	assert.Equal(t, "crr#0001", rule.RuleID)
	assert.Equal(t, "Article 26 excerpt", rule.RuleText)
	assert.Equal(t, 0.88, rule.RelevanceScore)
}

func TestAssemble_UnretrievedCitationKeepsID(t *testing.T) {
	candidates := []model.CandidateField{
		{FieldCode: "R0010_C0010", Value: 1.0, SourceRuleIDs: []string{"CRR Article 26(1)"}},
	}

	result := Assemble("q-3", ca1Schema(t), candidates, nil, nil, nil, nil, nil, time.Now())

	require.Len(t, result.AuditLog, 1)
	require.Len(t, result.AuditLog[0].SourceRules, 1)
	rule := result.AuditLog[0].SourceRules[0]
	assert.Equal(t, "CRR Article 26(1)", rule.RuleID)
	assert.Contains(t, rule.RuleText, "not among retrieved passages")
	assert.Zero(t, rule.RelevanceScore)
}

func TestAssemble_CallerContextEchoed(t *testing.T) {
	callerCtx := map[string]any{"reporting_date": "2026-06-30", "entity": "Example Bank plc"}

	result := Assemble("q-5", ca1Schema(t), nil, nil, nil, nil, nil, callerCtx, time.Now())
	assert.Equal(t, callerCtx, result.Metadata["caller_context"])

	// Absent context leaves no key behind.
	result = Assemble("q-6", ca1Schema(t), nil, nil, nil, nil, nil, nil, time.Now())
	_, ok := result.Metadata["caller_context"]
	assert.False(t, ok)
}

func TestAssemble_MetadataCounts(t *testing.T) {
	issues := []model.ValidationIssue{
		{FieldCode: "a", Severity: model.SeverityError},
		{FieldCode: "b", Severity: model.SeverityError},
		{FieldCode: "c", Severity: model.SeverityWarning},
		{FieldCode: "d", Severity: model.SeverityInfo},
	}
	passages := []model.RetrievedPassage{{RuleID: "x"}, {RuleID: "y"}}
	candidates := []model.CandidateField{{FieldCode: "R0010_C0010", Value: 1.0}}

	result := Assemble("q-4", ca1Schema(t), candidates, issues,
		[]string{"m1"}, []string{"a1"}, passages, nil, time.Now())

	assert.Equal(t, 2, result.Metadata["documents_retrieved"])
	assert.Equal(t, 1, result.Metadata["fields_populated"])
	assert.Equal(t, 2, result.Metadata["validation_errors"])
	assert.Equal(t, 1, result.Metadata["validation_warnings"])
	assert.Equal(t, []string{"m1"}, result.MissingData)
	assert.Equal(t, []string{"a1"}, result.Assumptions)
}
