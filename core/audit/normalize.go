package audit

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"payroll-auditor/core/parser"
	"payroll-auditor/core/utils"
)

// Normalize maps raw parsed rows into canonical employee records using the
// configured synonym table. Rows lacking both an identifier and a usable name
// are dropped and reported as warnings; auditing proceeds on the rest.
// Deterministic given the same rows and configuration.
func Normalize(rows []parser.Row, cfg Config) ([]*EmployeeRecord, []Warning) {
	records := make([]*EmployeeRecord, 0, len(rows))
	var warnings []Warning

	for _, row := range rows {
		rec := &EmployeeRecord{
			Fields:    make(map[string]Value),
			SourceRow: row.Index,
		}

		// Map iteration order is random; sort for determinism.
		names := make([]string, 0, len(row.Fields))
		for name := range row.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			raw := row.Fields[name]
			canon, ok := cfg.canonicalField(name)
			if !ok {
				val, absent := coerceValue(raw)
				if absent {
					continue
				}
				if rec.Extra == nil {
					rec.Extra = make(map[string]Value)
				}
				rec.Extra[name] = val
				continue
			}

			switch canon {
			case FieldEmployeeID:
				// Identifiers stay textual; coercing "00123" to a number
				// would change the key.
				rec.Identifier = strings.TrimSpace(rawString(raw))
			case FieldFullName:
				rec.DisplayName = strings.TrimSpace(rawString(raw))
			default:
				val, absent := coerceValue(raw)
				if absent {
					continue
				}
				if _, dup := rec.Fields[canon]; dup {
					warnings = append(warnings, Warning{
						Stage:   "normalize",
						Row:     row.Index,
						Message: "multiple columns resolve to " + canon + "; first value kept",
					})
					continue
				}
				rec.Fields[canon] = val
				rec.FieldOrder = append(rec.FieldOrder, canon)
			}
		}

		if rec.DisplayName == "" && rec.Identifier == "" {
			warnings = append(warnings, Warning{
				Stage:   "normalize",
				Row:     row.Index,
				Message: "row has neither an identifier nor a name; dropped",
			})
			continue
		}
		if rec.DisplayName == "" {
			rec.DisplayName = rec.Identifier
		}
		rec.FullName = NormalizeName(rec.DisplayName)

		records = append(records, rec)
	}

	return records, warnings
}

// NormalizeName case-folds a display name and collapses whitespace runs, the
// form used for exact-name matching and similarity scoring.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// rawString renders a raw parser value as its source text.
func rawString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return utils.ToString(v)
	}
}

// coerceValue turns a raw parser value into a typed Value. Blank strings are
// absent. Currency-like strings (optional symbol, thousands separators,
// parentheses for negative) coerce to exact decimals; anything else stays
// textual.
func coerceValue(raw any) (Value, bool) {
	switch v := raw.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return DecimalValue(d), false
		}
		return StringValue(v.String()), false
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return Value{}, true
		}
		if d, ok := parseAmount(s); ok {
			return DecimalValue(d), false
		}
		return StringValue(s), false
	case nil:
		return Value{}, true
	default:
		return coerceValue(utils.ToString(v))
	}
}

// parseAmount parses a currency-like string into an exact decimal.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, symbol := range []string{"$", "€", "£", "USD", "usd"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, symbol))
	}
	s = strings.ReplaceAll(s, ",", "")

	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
