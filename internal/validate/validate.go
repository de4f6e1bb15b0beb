// Package validate applies deterministic consistency checks to extracted
// template fields. Validation is a pure function of the schema and the
// candidates; identical inputs always yield the identical issue sequence.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/openfinreg/corep-assistant/internal/model"
)

// relativeTolerance is the accepted relative deviation for cross-field
// arithmetic before a mismatch becomes an error.
const relativeTolerance = 0.01

// maxPlausibleAmount flags likely unit errors (reporting in pence, or the
// model echoing a figure with extra zeros).
const maxPlausibleAmount = 1e13

// amountColumn is the column cross-field arithmetic and sign checks apply to.
const amountColumn = "C0010"

// Validate runs the check suite in fixed order: required-field presence,
// type conformance, cross-field arithmetic, then range and sign checks.
// Per-field checks follow schema field order; arithmetic follows rule order.
func Validate(schema *model.TemplateSchema, candidates []model.CandidateField) []model.ValidationIssue {
	byCode := make(map[string]model.CandidateField, len(candidates))
	for _, c := range candidates {
		byCode[c.FieldCode] = c
	}

	issues := []model.ValidationIssue{}
	issues = append(issues, checkPresence(schema, byCode)...)
	issues = append(issues, checkTypes(schema, byCode)...)
	issues = append(issues, checkArithmetic(schema, byCode)...)
	issues = append(issues, checkRanges(schema, byCode)...)
	return issues
}

func checkPresence(schema *model.TemplateSchema, byCode map[string]model.CandidateField) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, spec := range schema.Required() {
		if _, ok := byCode[spec.FieldCode]; ok {
			continue
		}
		issues = append(issues, model.ValidationIssue{
			FieldCode:  spec.FieldCode,
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("required field %s (%s) was not populated", spec.FieldCode, spec.Label),
			Suggestion: "provide the missing figure in the scenario or confirm it is not applicable",
		})
	}
	return issues
}

func checkTypes(schema *model.TemplateSchema, byCode map[string]model.CandidateField) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, spec := range schema.Fields {
		cand, ok := byCode[spec.FieldCode]
		if !ok || cand.Value == nil {
			continue
		}
		if typeConforms(spec.DataType, cand.Value) {
			continue
		}
		issues = append(issues, model.ValidationIssue{
			FieldCode: spec.FieldCode,
			Severity:  model.SeverityError,
			Message: fmt.Sprintf("field %s has value of type %T but the template declares %s",
				spec.FieldCode, cand.Value, spec.DataType),
		})
	}
	return issues
}

func typeConforms(dt model.DataType, v any) bool {
	switch dt {
	case model.DataTypeNumeric:
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case model.DataTypeText, model.DataTypeDate:
		_, ok := v.(string)
		return ok
	default:
		return false
	}
}

// checkArithmetic evaluates each cross-field rule on the Amount column. A rule
// whose target is absent is not applicable; a rule whose target is present but
// misses an operand is inconclusive and reported as info.
func checkArithmetic(schema *model.TemplateSchema, byCode map[string]model.CandidateField) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, rule := range rulesForTemplate(schema.ID) {
		targetCode := model.FieldCode(rule.targetRow, amountColumn)
		actual, ok := numericValue(byCode, targetCode)
		if !ok {
			continue
		}

		var expected float64
		var missing []string
		for _, t := range rule.terms {
			code := model.FieldCode(t.rowCode, amountColumn)
			v, ok := numericValue(byCode, code)
			if !ok {
				missing = append(missing, code)
				continue
			}
			expected += t.sign * v
		}

		if len(missing) > 0 {
			issues = append(issues, model.ValidationIssue{
				FieldCode: targetCode,
				Severity:  model.SeverityInfo,
				Message: fmt.Sprintf("consistency check for %s is inconclusive: missing operand(s) %s",
					targetCode, strings.Join(missing, ", ")),
				Suggestion: rule.relation,
			})
			continue
		}

		tolerance := relativeTolerance * math.Abs(expected)
		if math.Abs(actual-expected) <= tolerance {
			continue
		}
		issues = append(issues, model.ValidationIssue{
			FieldCode: targetCode,
			Severity:  model.SeverityError,
			Message: fmt.Sprintf("field %s reports %.2f but its components sum to %.2f",
				targetCode, actual, expected),
			Suggestion: fmt.Sprintf("expected relationship: %s", rule.relation),
		})
	}
	return issues
}

// signExempt lists rows and sections where negative amounts are legitimate:
// deduction rows are netted out of totals, and retained earnings or
// accumulated OCI can be negative for loss-making firms.
var signExemptRows = map[string]bool{
	"R0030": true,
	"R0040": true,
}

func signExempt(spec model.FieldSpec) bool {
	return signExemptRows[spec.RowCode] || strings.Contains(spec.Section, "DEDUCTIONS")
}

func checkRanges(schema *model.TemplateSchema, byCode map[string]model.CandidateField) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, spec := range schema.Fields {
		if spec.DataType != model.DataTypeNumeric || spec.ColCode != amountColumn {
			continue
		}
		v, ok := numericValue(byCode, spec.FieldCode)
		if !ok {
			continue
		}

		if v < 0 && !signExempt(spec) {
			issues = append(issues, model.ValidationIssue{
				FieldCode:  spec.FieldCode,
				Severity:   model.SeverityError,
				Message:    fmt.Sprintf("field %s (%s) is negative: %.2f", spec.FieldCode, spec.Label, v),
				Suggestion: "capital amounts outside deduction rows must be non-negative",
			})
		}
		if math.Abs(v) > maxPlausibleAmount {
			issues = append(issues, model.ValidationIssue{
				FieldCode:  spec.FieldCode,
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("field %s magnitude %.0f exceeds plausible reporting range", spec.FieldCode, v),
				Suggestion: "check the reporting unit; values should be in the scenario's base currency",
			})
		}
	}
	return issues
}

// numericValue extracts a candidate's numeric value, reporting absence for
// missing candidates, nil values, and non-numeric types alike.
func numericValue(byCode map[string]model.CandidateField, code string) (float64, bool) {
	cand, ok := byCode[code]
	if !ok || cand.Value == nil {
		return 0, false
	}
	switch v := cand.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
