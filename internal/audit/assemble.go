// Package audit assembles the final query result: populated fields, the
// validation findings, and a per-field provenance trail citing the
// regulatory passages each value rests on.
package audit

import (
	"time"

	"github.com/openfinreg/corep-assistant/internal/model"
)

// Assemble merges the pipeline stages into one QueryResult. It is total: an
// empty candidate set yields a valid result with empty fields and audit log.
// Every audit entry shares the single assembly timestamp so the record is
// internally consistent. callerContext, when present, is echoed in the
// metadata untouched.
func Assemble(
	queryID string,
	schema *model.TemplateSchema,
	candidates []model.CandidateField,
	issues []model.ValidationIssue,
	missingData, assumptions []string,
	passages []model.RetrievedPassage,
	callerContext map[string]any,
	now time.Time,
) *model.QueryResult {
	passageByID := make(map[string]model.RetrievedPassage, len(passages))
	for _, p := range passages {
		passageByID[p.RuleID] = p
	}

	auditLog := make([]model.AuditEntry, 0, len(candidates))
	for _, c := range candidates {
		auditLog = append(auditLog, model.AuditEntry{
			FieldCode:   c.FieldCode,
			Value:       c.Value,
			Reasoning:   c.Justification,
			SourceRules: resolveRules(c.SourceRuleIDs, passageByID),
			Confidence:  c.Confidence,
			RetrievedAt: now,
		})
	}

	if candidates == nil {
		candidates = []model.CandidateField{}
	}
	if issues == nil {
		issues = []model.ValidationIssue{}
	}
	if missingData == nil {
		missingData = []string{}
	}
	if assumptions == nil {
		assumptions = []string{}
	}

	metadata := map[string]any{
		"documents_retrieved": len(passages),
		"fields_populated":    len(candidates),
		"validation_errors":   countSeverity(issues, model.SeverityError),
		"validation_warnings": countSeverity(issues, model.SeverityWarning),
		"processed_at":        now.UTC().Format(time.RFC3339),
	}
	if len(callerContext) > 0 {
		metadata["caller_context"] = callerContext
	}

	return &model.QueryResult{
		QueryID:          queryID,
		TemplateID:       schema.ID,
		TemplateName:     schema.Name,
		Fields:           candidates,
		ValidationIssues: issues,
		AuditLog:         auditLog,
		MissingData:      missingData,
		Assumptions:      assumptions,
		Metadata:         metadata,
	}
}

// resolveRules maps cited rule IDs back to retrieved passage text. Citations
// the model produced from general knowledge rather than retrieved context
// keep the ID with no text and a zero relevance score.
func resolveRules(ruleIDs []string, passageByID map[string]model.RetrievedPassage) []model.SourceRule {
	rules := make([]model.SourceRule, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		if p, ok := passageByID[id]; ok {
			rules = append(rules, model.SourceRule{
				RuleID:         p.RuleID,
				RuleText:       p.Text,
				RelevanceScore: p.Score,
			})
			continue
		}
		rules = append(rules, model.SourceRule{
			RuleID:   id,
			RuleText: "(cited from model knowledge; not among retrieved passages)",
		})
	}
	return rules
}

func countSeverity(issues []model.ValidationIssue, sev model.Severity) int {
	n := 0
	for _, i := range issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}
