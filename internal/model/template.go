package model

import (
	"embed"
	"io/fs"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// DataType classifies the expected runtime type of a field value.
type DataType string

const (
	DataTypeNumeric DataType = "numeric"
	DataTypeText    DataType = "text"
	DataTypeDate    DataType = "date"
)

// FieldSpec describes a single cell of a report template.
type FieldSpec struct {
	FieldCode  string   `json:"field_code"`
	RowCode    string   `json:"row_code"`
	ColCode    string   `json:"col_code"`
	Label      string   `json:"label"`
	Section    string   `json:"section,omitempty"`
	DataType   DataType `json:"data_type"`
	Required   bool     `json:"required"`
	Calculated bool     `json:"calculated"`
}

// TemplateSchema is the immutable definition of a report template.
// Built once at load, indexed for lookups, never mutated afterwards.
type TemplateSchema struct {
	ID          string
	Name        string
	Description string
	Fields      []FieldSpec

	byCode   map[string]*FieldSpec
	required []*FieldSpec
}

// templateFile mirrors the YAML template definition.
type templateFile struct {
	TemplateID  string `yaml:"template_id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Columns     []struct {
		Code  string `yaml:"code"`
		Label string `yaml:"label"`
	} `yaml:"columns"`
	Rows []struct {
		Code       string `yaml:"code"`
		Label      string `yaml:"label"`
		Section    string `yaml:"section"`
		Calculated bool   `yaml:"calculated"`
		Required   bool   `yaml:"required"`
	} `yaml:"rows"`
}

// FieldCode joins a row and column code into the canonical field code.
func FieldCode(rowCode, colCode string) string {
	return rowCode + "_" + colCode
}

// newTemplateSchema expands a template file into the row x column field grid
// and builds the lookup indexes. Required rows apply to the Amount column
// (the first declared column) only.
func newTemplateSchema(tf templateFile) (*TemplateSchema, error) {
	if tf.TemplateID == "" {
		return nil, eris.New("template: missing template_id")
	}
	if len(tf.Columns) == 0 || len(tf.Rows) == 0 {
		return nil, eris.Errorf("template %s: needs at least one row and column", tf.TemplateID)
	}

	s := &TemplateSchema{
		ID:          tf.TemplateID,
		Name:        tf.Name,
		Description: tf.Description,
		byCode:      make(map[string]*FieldSpec, len(tf.Rows)*len(tf.Columns)),
	}

	amountCol := tf.Columns[0].Code
	for _, row := range tf.Rows {
		for _, col := range tf.Columns {
			code := FieldCode(row.Code, col.Code)
			if _, exists := s.byCode[code]; exists {
				return nil, eris.Errorf("template %s: duplicate field code %s", tf.TemplateID, code)
			}
			s.Fields = append(s.Fields, FieldSpec{
				FieldCode:  code,
				RowCode:    row.Code,
				ColCode:    col.Code,
				Label:      row.Label + " - " + col.Label,
				Section:    row.Section,
				DataType:   DataTypeNumeric,
				Required:   row.Required && col.Code == amountCol,
				Calculated: row.Calculated,
			})
		}
	}

	for i := range s.Fields {
		f := &s.Fields[i]
		s.byCode[f.FieldCode] = f
		if f.Required {
			s.required = append(s.required, f)
		}
	}

	return s, nil
}

// ByCode returns the field spec for the given field code, or nil if unknown.
func (s *TemplateSchema) ByCode(code string) *FieldSpec {
	return s.byCode[code]
}

// Required returns the required field specs in schema order.
func (s *TemplateSchema) Required() []*FieldSpec {
	return s.required
}

// Registry holds the loaded template schemas, keyed by template ID.
type Registry struct {
	templates map[string]*TemplateSchema
}

// LoadTemplates parses every embedded template definition into a Registry.
func LoadTemplates() (*Registry, error) {
	r := &Registry{templates: make(map[string]*TemplateSchema)}

	err := fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := templateFS.ReadFile(path)
		if readErr != nil {
			return eris.Wrapf(readErr, "template: read %s", path)
		}
		var tf templateFile
		if unmarshalErr := yaml.Unmarshal(data, &tf); unmarshalErr != nil {
			return eris.Wrapf(unmarshalErr, "template: parse %s", path)
		}
		schema, buildErr := newTemplateSchema(tf)
		if buildErr != nil {
			return buildErr
		}
		r.templates[schema.ID] = schema
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Get returns the schema for a template ID, or nil if not loaded.
func (r *Registry) Get(id string) *TemplateSchema {
	return r.templates[id]
}

// IDs returns the loaded template IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
