package validate

// term is one operand of a cross-field arithmetic rule, applied with its sign.
type term struct {
	rowCode string
	sign    float64
}

// arithmeticRule asserts target = Σ sign·term over the Amount column.
type arithmeticRule struct {
	targetRow string
	terms     []term
	relation  string // human-readable expected relationship
}

func plus(rows ...string) []term {
	ts := make([]term, len(rows))
	for i, r := range rows {
		ts[i] = term{rowCode: r, sign: 1}
	}
	return ts
}

func minus(row string) term {
	return term{rowCode: row, sign: -1}
}

// ca1Rules encodes the CA1 own-funds summation structure, in evaluation order.
// Subtotals roll up their section, tier totals net deductions, and the grand
// totals chain tiers together.
var ca1Rules = []arithmeticRule{
	{
		targetRow: "R0070",
		terms:     plus("R0010", "R0030", "R0040", "R0050", "R0060"),
		relation:  "CET1 before adjustments (R0070) = R0010 + R0030 + R0040 + R0050 + R0060",
	},
	{
		targetRow: "R0180",
		terms:     plus("R0080", "R0090", "R0100", "R0130"),
		relation:  "Total CET1 adjustments (R0180) = R0080 + R0090 + R0100 + R0130",
	},
	{
		targetRow: "R0200",
		terms:     append(plus("R0070"), minus("R0180")),
		relation:  "CET1 capital (R0200) = R0070 - R0180",
	},
	{
		targetRow: "R0240",
		terms:     plus("R0210", "R0220", "R0230"),
		relation:  "AT1 before adjustments (R0240) = R0210 + R0220 + R0230",
	},
	{
		targetRow: "R0270",
		terms:     plus("R0250"),
		relation:  "Total AT1 adjustments (R0270) = R0250",
	},
	{
		targetRow: "R0280",
		terms:     append(plus("R0240"), minus("R0270")),
		relation:  "AT1 capital (R0280) = R0240 - R0270",
	},
	{
		targetRow: "R0290",
		terms:     plus("R0200", "R0280"),
		relation:  "Tier 1 capital (R0290) = R0200 + R0280",
	},
	{
		targetRow: "R0340",
		terms:     plus("R0300", "R0310", "R0320", "R0330"),
		relation:  "T2 before adjustments (R0340) = R0300 + R0310 + R0320 + R0330",
	},
	{
		targetRow: "R0360",
		terms:     plus("R0350"),
		relation:  "Total T2 adjustments (R0360) = R0350",
	},
	{
		targetRow: "R0370",
		terms:     append(plus("R0340"), minus("R0360")),
		relation:  "T2 capital (R0370) = R0340 - R0360",
	},
	{
		targetRow: "R0380",
		terms:     plus("R0290", "R0370"),
		relation:  "Total capital (R0380) = R0290 + R0370",
	},
}

// rulesForTemplate returns the cross-field rules for a template, or nil when
// none are defined.
func rulesForTemplate(templateID string) []arithmeticRule {
	if templateID == "CA1" {
		return ca1Rules
	}
	return nil
}
