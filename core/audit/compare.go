package audit

import (
	"github.com/shopspring/decimal"
)

// Compare walks every canonical field present in either record of each pair
// and emits a discrepancy for each disagreement that survives the tolerance
// policy. Output order follows pair order, then field observation order.
func Compare(pairs []MatchedPair, cfg Config) []Discrepancy {
	var discrepancies []Discrepancy

	for _, pair := range pairs {
		employee := employeeRef(pair.A)
		for _, field := range unionFields(pair.A, pair.B) {
			va, aok := pair.A.Fields[field]
			vb, bok := pair.B.Fields[field]

			switch {
			case aok && !bok:
				discrepancies = append(discrepancies, Discrepancy{
					Employee: employee,
					Field:    field,
					ValueA:   &va,
					Kind:     MissingInB,
					Severity: SeverityFor(cfg.Breakpoints, field, &va, nil, MissingInB),
				})
			case !aok && bok:
				discrepancies = append(discrepancies, Discrepancy{
					Employee: employee,
					Field:    field,
					ValueB:   &vb,
					Kind:     MissingInA,
					Severity: SeverityFor(cfg.Breakpoints, field, nil, &vb, MissingInA),
				})
			case va.Kind != vb.Kind:
				discrepancies = append(discrepancies, Discrepancy{
					Employee: employee,
					Field:    field,
					ValueA:   &va,
					ValueB:   &vb,
					Kind:     TypeMismatch,
					Severity: SeverityFor(cfg.Breakpoints, field, &va, &vb, TypeMismatch),
				})
			case va.Kind == ValueDecimal:
				diff := vb.Dec.Sub(va.Dec)
				if diff.Abs().Cmp(cfg.toleranceFor(field)) <= 0 {
					continue
				}
				discrepancies = append(discrepancies, Discrepancy{
					Employee:   employee,
					Field:      field,
					ValueA:     &va,
					ValueB:     &vb,
					Difference: &diff,
					Kind:       ValueMismatch,
					Severity:   SeverityFor(cfg.Breakpoints, field, &va, &vb, ValueMismatch),
				})
			default:
				if va.Str == vb.Str {
					continue
				}
				discrepancies = append(discrepancies, Discrepancy{
					Employee: employee,
					Field:    field,
					ValueA:   &va,
					ValueB:   &vb,
					Kind:     ValueMismatch,
					Severity: SeverityFor(cfg.Breakpoints, field, &va, &vb, ValueMismatch),
				})
			}
		}
	}

	return discrepancies
}

// MissingRecordDiscrepancies emits one record-level discrepancy per employee
// present in only one dataset, using the FieldEmployeeRecord sentinel.
func MissingRecordDiscrepancies(unmatchedA, unmatchedB []*EmployeeRecord) []Discrepancy {
	discrepancies := make([]Discrepancy, 0, len(unmatchedA)+len(unmatchedB))
	for _, rec := range unmatchedA {
		discrepancies = append(discrepancies, Discrepancy{
			Employee: employeeRef(rec),
			Field:    FieldEmployeeRecord,
			Kind:     MissingInB,
			Severity: SeverityHigh,
		})
	}
	for _, rec := range unmatchedB {
		discrepancies = append(discrepancies, Discrepancy{
			Employee: employeeRef(rec),
			Field:    FieldEmployeeRecord,
			Kind:     MissingInA,
			Severity: SeverityHigh,
		})
	}
	return discrepancies
}

// SeverityFor grades one discrepancy. It is a pure function of the field
// name, the two observed values, and the kind: identical inputs always yield
// the identical severity.
func SeverityFor(bp SeverityBreakpoints, field string, a, b *Value, kind DiscrepancyKind) Severity {
	switch kind {
	case MissingInA, MissingInB:
		if MonetaryField(field) || field == FieldEmployeeRecord {
			return SeverityHigh
		}
		return SeverityMedium

	case TypeMismatch:
		if MonetaryField(field) {
			return SeverityHigh
		}
		return SeverityMedium

	case ValueMismatch:
		if a == nil || b == nil || a.Kind != ValueDecimal || b.Kind != ValueDecimal {
			return SeverityLow
		}
		return gradeMagnitude(bp, a.Dec, b.Dec)

	default:
		return SeverityLow
	}
}

// gradeMagnitude maps |b-a| relative to the larger of the two values onto the
// configured breakpoints. The floor substitutes for near-zero denominators so
// small-denominator fields are graded on an absolute scale.
func gradeMagnitude(bp SeverityBreakpoints, a, b decimal.Decimal) Severity {
	diff := b.Sub(a).Abs()
	denom := a.Abs()
	if other := b.Abs(); other.GreaterThan(denom) {
		denom = other
	}
	if denom.LessThan(bp.Floor) {
		denom = bp.Floor
	}

	rel, _ := diff.Div(denom).Float64()
	switch {
	case rel >= bp.Critical:
		return SeverityCritical
	case rel >= bp.High:
		return SeverityHigh
	case rel >= bp.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// unionFields returns every canonical field present in either record, in
// A observation order followed by fields only B carries.
func unionFields(a, b *EmployeeRecord) []string {
	fields := make([]string, 0, len(a.FieldOrder)+len(b.FieldOrder))
	seen := make(map[string]struct{}, len(a.FieldOrder)+len(b.FieldOrder))
	for _, f := range a.FieldOrder {
		fields = append(fields, f)
		seen[f] = struct{}{}
	}
	for _, f := range b.FieldOrder {
		if _, dup := seen[f]; dup {
			continue
		}
		fields = append(fields, f)
		seen[f] = struct{}{}
	}
	return fields
}

// employeeRef names an employee for report output: identifier when present,
// display name otherwise.
func employeeRef(rec *EmployeeRecord) string {
	if rec.Identifier != "" {
		return rec.Identifier
	}
	return rec.DisplayName
}
