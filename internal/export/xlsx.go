// Package export renders a QueryResult to reviewable spreadsheet form.
package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/openfinreg/corep-assistant/internal/model"
)

// WriteXLSX writes the result to an XLSX workbook: one sheet of populated
// fields, one of validation findings, one of the audit trail.
func WriteXLSX(result *model.QueryResult, path string) error {
	f := xlsx.NewFile()

	if err := addFieldsSheet(f, result); err != nil {
		return err
	}
	if err := addValidationSheet(f, result); err != nil {
		return err
	}
	if err := addAuditSheet(f, result); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addFieldsSheet(f *xlsx.File, result *model.QueryResult) error {
	sheet, err := f.AddSheet(result.TemplateID)
	if err != nil {
		return eris.Wrap(err, "export: add fields sheet")
	}

	addRow(sheet, "Field Code", "Row", "Column", "Label", "Value", "Confidence", "Justification")
	for _, fld := range result.Fields {
		addRow(sheet,
			fld.FieldCode, fld.RowCode, fld.ColCode, fld.Label,
			formatValue(fld.Value), string(fld.Confidence), fld.Justification,
		)
	}
	return nil
}

func addValidationSheet(f *xlsx.File, result *model.QueryResult) error {
	sheet, err := f.AddSheet("Validation")
	if err != nil {
		return eris.Wrap(err, "export: add validation sheet")
	}

	addRow(sheet, "Field Code", "Severity", "Message", "Suggestion")
	for _, issue := range result.ValidationIssues {
		addRow(sheet, issue.FieldCode, string(issue.Severity), issue.Message, issue.Suggestion)
	}
	return nil
}

func addAuditSheet(f *xlsx.File, result *model.QueryResult) error {
	sheet, err := f.AddSheet("Audit")
	if err != nil {
		return eris.Wrap(err, "export: add audit sheet")
	}

	addRow(sheet, "Field Code", "Value", "Reasoning", "Source Rules", "Confidence", "Retrieved At")
	for _, entry := range result.AuditLog {
		ids := ""
		for i, r := range entry.SourceRules {
			if i > 0 {
				ids += "; "
			}
			ids += r.RuleID
		}
		addRow(sheet,
			entry.FieldCode, formatValue(entry.Value), entry.Reasoning, ids,
			string(entry.Confidence), entry.RetrievedAt.Format("2006-01-02T15:04:05Z"),
		)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// formatValue renders numeric values without scientific notation so large
// capital amounts stay readable.
func formatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%.2f", n)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", n)
	}
}
