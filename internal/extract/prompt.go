package extract

import (
	"fmt"
	"strings"

	"github.com/openfinreg/corep-assistant/internal/model"
)

// systemText frames the model's role and the strict output contract.
const systemText = "You are an expert regulatory reporting analyst specializing in UK PRA COREP reporting. " +
	"You analyze bank capital scenarios against the PRA Rulebook and CRR and populate report template fields. " +
	"Respond ONLY with a valid JSON object matching the requested structure. Do not include any other text, " +
	"explanations, or markdown formatting."

const outputContract = `## OUTPUT FORMAT (JSON)
Return ONLY valid JSON in this exact structure:

{
  "populated_fields": [
    {
      "field_code": "R0010_C0010",
      "value": 500000000,
      "justification": "The scenario states CET1 capital of £500M. Per CRR Article 26, this includes capital instruments and share premium accounts.",
      "source_rules": ["CRR Article 26(1)"],
      "confidence": "high"
    }
  ],
  "missing_data": [
    "Breakdown of CET1 capital components not specified"
  ],
  "assumptions": [
    "Assumed all CET1 capital is ordinary share capital and related share premium"
  ]
}`

// BuildPrompt constructs the deterministic extraction prompt: schema field
// listing, retrieved regulatory context with rule IDs, the user's scenario,
// and the output contract. Identical inputs produce an identical prompt.
func BuildPrompt(question string, passages []model.RetrievedPassage, schema *model.TemplateSchema) string {
	var b strings.Builder

	b.WriteString("## REPORTING SCENARIO\n")
	b.WriteString(question)
	b.WriteString("\n\n## REGULATORY CONTEXT\n")
	if len(passages) == 0 {
		b.WriteString("No specific regulatory context was retrieved for this scenario. ")
		b.WriteString("Rely on general COREP knowledge and record that assumption.\n")
	} else {
		b.WriteString("Relevant excerpts from the PRA Rulebook and CRR, each with its rule id:\n\n")
		for _, p := range passages {
			fmt.Fprintf(&b, "### [%s] (relevance %.2f)\n%s\n\n", p.RuleID, p.Score, p.Text)
		}
	}

	fmt.Fprintf(&b, "## TARGET TEMPLATE: %s - %s\n", schema.ID, schema.Name)
	b.WriteString("Populate applicable fields from the following list. Field codes are <row>_<column>:\n\n")
	for _, f := range schema.Fields {
		fmt.Fprintf(&b, "- %s (%s): %s\n", f.FieldCode, f.DataType, f.Label)
	}

	b.WriteString(`
## INSTRUCTIONS
1. Analyze the scenario against the regulatory context.
2. For each field you populate: provide the value in the scenario's currency units, a justification citing regulatory articles, the rule ids used (use the ids in square brackets above when citing retrieved context), and a confidence level of "high", "medium", "low", or "unknown".
3. List information that is missing from the scenario under missing_data.
4. Document every assumption under assumptions.

`)
	b.WriteString(outputContract)

	return b.String()
}
