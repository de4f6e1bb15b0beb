// Package extract turns a scenario plus retrieved regulatory context into
// typed candidate field values via a single structured LLM call.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfinreg/corep-assistant/internal/model"
	"github.com/openfinreg/corep-assistant/pkg/anthropic"
)

// Extraction is the parsed, type-coerced output of one extraction call.
type Extraction struct {
	Candidates  []model.CandidateField
	MissingData []string
	Assumptions []string
}

// Extractor runs field extraction against the Anthropic API.
type Extractor struct {
	llm         anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewExtractor creates an Extractor. Temperature should be 0 for
// reproducible extraction runs.
func NewExtractor(llm anthropic.Client, modelID string, maxTokens int64, temperature float64) *Extractor {
	return &Extractor{
		llm:         llm,
		model:       modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// rawOutput mirrors the JSON contract the model is instructed to emit.
type rawOutput struct {
	PopulatedFields []rawField `json:"populated_fields"`
	MissingData     []string   `json:"missing_data"`
	Assumptions     []string   `json:"assumptions"`
}

type rawField struct {
	FieldCode     string   `json:"field_code"`
	Value         any      `json:"value"`
	Justification string   `json:"justification"`
	SourceRules   []string `json:"source_rules"`
	Confidence    string   `json:"confidence"`
}

// Extract sends one structured extraction request and parses the response
// into candidate fields. Values that do not belong to the schema are
// dropped; values that fail type coercion are dropped and surfaced as
// missing-data notes. A transport failure or unparseable response is an
// error for the caller to classify.
func (e *Extractor) Extract(ctx context.Context, question string, passages []model.RetrievedPassage, schema *model.TemplateSchema) (*Extraction, error) {
	prompt := BuildPrompt(question, passages, schema)

	resp, err := e.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		System:      systemText,
		Temperature: &e.temperature,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: message call")
	}
	resp.Usage.LogCost(e.model, "extraction")

	var out rawOutput
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &out); err != nil {
		return nil, eris.Wrap(err, "extract: parse model output")
	}

	return e.assemble(out, schema), nil
}

// assemble converts raw model fields into schema-validated candidates.
// Duplicate field codes resolve last-wins at the first occurrence's position.
func (e *Extractor) assemble(out rawOutput, schema *model.TemplateSchema) *Extraction {
	ext := &Extraction{
		MissingData: out.MissingData,
		Assumptions: out.Assumptions,
	}

	seen := make(map[string]int)
	for _, rf := range out.PopulatedFields {
		spec := schema.ByCode(rf.FieldCode)
		if spec == nil {
			zap.L().Warn("extract: dropping unknown field code",
				zap.String("template", schema.ID),
				zap.String("field_code", rf.FieldCode),
			)
			continue
		}

		value, ok := coerceValue(spec.DataType, rf.Value)
		if !ok {
			zap.L().Warn("extract: dropping uncoercible value",
				zap.String("field_code", rf.FieldCode),
				zap.Any("value", rf.Value),
			)
			ext.MissingData = append(ext.MissingData,
				fmt.Sprintf("Value for %s (%s) could not be interpreted as %s and was dropped", rf.FieldCode, spec.Label, spec.DataType))
			continue
		}

		cand := model.CandidateField{
			FieldCode:     spec.FieldCode,
			RowCode:       spec.RowCode,
			ColCode:       spec.ColCode,
			Label:         spec.Label,
			Value:         value,
			DataType:      spec.DataType,
			Justification: rf.Justification,
			SourceRuleIDs: rf.SourceRules,
			Confidence:    model.ParseConfidence(rf.Confidence),
		}

		if i, dup := seen[spec.FieldCode]; dup {
			zap.L().Warn("extract: duplicate field code, keeping last",
				zap.String("field_code", spec.FieldCode),
			)
			ext.Candidates[i] = cand
			continue
		}
		seen[spec.FieldCode] = len(ext.Candidates)
		ext.Candidates = append(ext.Candidates, cand)
	}

	return ext
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object so the payload survives models that wrap their output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
