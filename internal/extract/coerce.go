package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/openfinreg/corep-assistant/internal/model"
)

// dateLayouts are the accepted input formats for date fields. Values are
// normalized to ISO 8601 (2006-01-02).
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"2 January 2006",
}

// coerceValue converts a raw JSON value into the field's declared data type.
// Returns the normalized value and whether the conversion succeeded.
func coerceValue(dt model.DataType, raw any) (any, bool) {
	switch dt {
	case model.DataTypeNumeric:
		return toFloat64(raw)
	case model.DataTypeText:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		return strings.TrimSpace(s), true
	case model.DataTypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

// toFloat64 accepts JSON numbers directly and parses numeric strings,
// tolerating thousands separators and currency symbols the model sometimes
// echoes from scenario text.
func toFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(v)
		for _, sym := range []string{",", "£", "$", "€", " "} {
			s = strings.ReplaceAll(s, sym, "")
		}
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
