package model

import "time"

// Confidence is the qualitative certainty label attached to an extracted value.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// ParseConfidence maps a raw model-emitted label to a Confidence,
// defaulting to unknown for anything unrecognized.
func ParseConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence(s)
	default:
		return ConfidenceUnknown
	}
}

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// RetrievedPassage is a regulatory text chunk returned by the corpus index.
type RetrievedPassage struct {
	RuleID string  `json:"rule_id"`
	Source string  `json:"source,omitempty"`
	Text   string  `json:"text"`
	Score  float64 `json:"similarity_score"`
}

// CandidateField is a single populated template field proposed by the
// extractor. Value is typed per the field's DataType (float64 for numeric,
// string for text and date) or nil.
type CandidateField struct {
	FieldCode     string     `json:"field_code"`
	RowCode       string     `json:"row_code"`
	ColCode       string     `json:"col_code"`
	Label         string     `json:"label"`
	Value         any        `json:"value"`
	DataType      DataType   `json:"data_type"`
	Justification string     `json:"justification,omitempty"`
	SourceRuleIDs []string   `json:"source_rules"`
	Confidence    Confidence `json:"confidence"`
}

// ValidationIssue is one finding from the validator. FieldCode is empty for
// template-wide issues.
type ValidationIssue struct {
	FieldCode  string   `json:"field_code"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// SourceRule cites a regulatory passage backing a field value.
type SourceRule struct {
	RuleID         string  `json:"rule_id"`
	RuleText       string  `json:"rule_text"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AuditEntry records the provenance of one populated field.
type AuditEntry struct {
	FieldCode   string       `json:"field_code"`
	Value       any          `json:"value"`
	Reasoning   string       `json:"reasoning"`
	SourceRules []SourceRule `json:"source_rules"`
	Confidence  Confidence   `json:"confidence"`
	RetrievedAt time.Time    `json:"retrieved_at"`
}

// QueryResult is the aggregate answer to one query: populated fields,
// validation findings, and the audit trail. Owned by a single request and
// never mutated after assembly.
type QueryResult struct {
	QueryID          string            `json:"query_id"`
	TemplateID       string            `json:"template_id"`
	TemplateName     string            `json:"template_name"`
	Fields           []CandidateField  `json:"fields"`
	ValidationIssues []ValidationIssue `json:"validation_issues"`
	AuditLog         []AuditEntry      `json:"audit_log"`
	MissingData      []string          `json:"missing_data"`
	Assumptions      []string          `json:"assumptions"`
	Metadata         map[string]any    `json:"metadata"`
}
