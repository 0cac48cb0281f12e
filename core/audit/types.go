package audit

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ValueKind discriminates the typed value carried by a canonical field.
type ValueKind string

const (
	// ValueDecimal is an exact decimal amount (monetary or numeric).
	ValueDecimal ValueKind = "decimal"
	// ValueString is a textual value.
	ValueString ValueKind = "string"
)

// Value is one typed canonical field value.
type Value struct {
	// Kind discriminates which of the payload fields is meaningful.
	Kind ValueKind
	// Dec holds the amount when Kind is ValueDecimal.
	Dec decimal.Decimal
	// Str holds the text when Kind is ValueString.
	Str string
}

// DecimalValue wraps an exact decimal amount.
func DecimalValue(d decimal.Decimal) Value {
	return Value{Kind: ValueDecimal, Dec: d}
}

// StringValue wraps a textual value.
func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

func (v Value) String() string {
	if v.Kind == ValueDecimal {
		return v.Dec.String()
	}
	return v.Str
}

// MarshalJSON renders the value as its natural scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == ValueDecimal {
		return json.Marshal(v.Dec)
	}
	return json.Marshal(v.Str)
}

// EmployeeRecord is the canonical representation of one employee's payroll
// line for one dataset.
type EmployeeRecord struct {
	// Identifier is the stable employee key when the source provides one.
	Identifier string `json:"identifier,omitempty"`

	// DisplayName is the name as it appeared in the source.
	DisplayName string `json:"display_name"`

	// FullName is the normalized name (case-folded, whitespace-collapsed).
	// It is never empty for a record that survives normalization.
	FullName string `json:"full_name"`

	// Fields maps canonical field names to typed values.
	Fields map[string]Value `json:"fields"`

	// FieldOrder preserves the order canonical fields were observed in,
	// keeping comparison output deterministic.
	FieldOrder []string `json:"-"`

	// Extra holds columns that resolved to no canonical field. They are
	// retained for traceability but excluded from comparison.
	Extra map[string]Value `json:"extra,omitempty"`

	// SourceRow is the 1-based row in the originating file.
	SourceRow int `json:"source_row"`
}

// MatchMethod identifies how a pair of records was associated.
type MatchMethod string

const (
	// MatchExactID pairs records sharing a non-empty identifier.
	MatchExactID MatchMethod = "exact_id"
	// MatchExactName pairs records whose normalized names are byte-equal.
	MatchExactName MatchMethod = "exact_name"
	// MatchFuzzyName pairs records by name-similarity scoring.
	MatchFuzzyName MatchMethod = "fuzzy_name"
)

// MatchedPair associates one record from dataset A with one from dataset B.
type MatchedPair struct {
	// A is the record from the first dataset.
	A *EmployeeRecord `json:"record_a"`

	// B is the record from the second dataset.
	B *EmployeeRecord `json:"record_b"`

	// Method is how the pair was established.
	Method MatchMethod `json:"match_method"`

	// Score is the name similarity in [0,1]; 1.0 for exact matches.
	Score float64 `json:"match_score"`
}

// DiscrepancyKind classifies a detected disagreement.
type DiscrepancyKind string

const (
	// ValueMismatch means both sides carry the field but the values differ
	// beyond tolerance.
	ValueMismatch DiscrepancyKind = "value_mismatch"
	// MissingInA means the field (or whole record) is absent from dataset A.
	MissingInA DiscrepancyKind = "missing_in_a"
	// MissingInB means the field (or whole record) is absent from dataset B.
	MissingInB DiscrepancyKind = "missing_in_b"
	// TypeMismatch means the two sides carry incompatible value types.
	TypeMismatch DiscrepancyKind = "type_mismatch"
)

// FieldEmployeeRecord is the sentinel field name used when an entire record
// is present in only one dataset.
const FieldEmployeeRecord = "employee_record"

// Severity grades a discrepancy by magnitude and field importance.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparisons; higher is worse.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// Discrepancy is one detected disagreement between the two datasets.
type Discrepancy struct {
	// Employee references the employee concerned (identifier when present,
	// display name otherwise).
	Employee string `json:"employee"`

	// Field is the canonical field in question, or FieldEmployeeRecord when
	// the whole record is one-sided.
	Field string `json:"field"`

	// ValueA is the observed value in dataset A, nil when absent.
	ValueA *Value `json:"value_a,omitempty"`

	// ValueB is the observed value in dataset B, nil when absent.
	ValueB *Value `json:"value_b,omitempty"`

	// Difference is the signed delta (B minus A) when both values are
	// numeric; nil otherwise.
	Difference *decimal.Decimal `json:"difference,omitempty"`

	// Kind classifies the disagreement.
	Kind DiscrepancyKind `json:"kind"`

	// Severity grades the disagreement.
	Severity Severity `json:"severity"`
}

// RiskLevel is the aggregate classification for an entire comparison run.
type RiskLevel string

const (
	RiskClean       RiskLevel = "clean"
	RiskMinor       RiskLevel = "minor_issues"
	RiskSignificant RiskLevel = "significant_issues"
	RiskCritical    RiskLevel = "critical"
)

// Summary provides aggregate statistics for a comparison run.
type Summary struct {
	// TotalEmployees is the number of unique employees seen across both
	// datasets (matched pairs count once).
	TotalEmployees int `json:"total_employees"`

	// MatchedPairs counts employees paired across the datasets.
	MatchedPairs int `json:"matched_pairs"`

	// UnmatchedA counts employees present only in dataset A.
	UnmatchedA int `json:"unmatched_a"`

	// UnmatchedB counts employees present only in dataset B.
	UnmatchedB int `json:"unmatched_b"`

	// LowCount through CriticalCount break discrepancies down by severity.
	LowCount      int `json:"low"`
	MediumCount   int `json:"medium"`
	HighCount     int `json:"high"`
	CriticalCount int `json:"critical"`

	// Risk is the overall classification for the run.
	Risk RiskLevel `json:"risk"`
}

// Warning reports a recoverable issue encountered while processing one file.
type Warning struct {
	// File identifies the side: "a" or "b".
	File string `json:"file"`
	// Stage is where the issue surfaced: parse, extract, or normalize.
	Stage string `json:"stage"`
	// Row is the 1-based source row, 0 when file-level.
	Row int `json:"row,omitempty"`
	// Message describes the issue.
	Message string `json:"message"`
}

// Result is the complete output of one comparison run. It is immutable after
// construction and owned exclusively by the caller.
type Result struct {
	// MatchedPairs lists paired employees in dataset A order.
	MatchedPairs []MatchedPair `json:"matched_pairs"`

	// UnmatchedA lists employees present only in dataset A, in input order.
	UnmatchedA []*EmployeeRecord `json:"unmatched_a"`

	// UnmatchedB lists employees present only in dataset B, in input order.
	UnmatchedB []*EmployeeRecord `json:"unmatched_b"`

	// Discrepancies lists every detected disagreement, ordered by pair then
	// field, with record-level absences last.
	Discrepancies []Discrepancy `json:"discrepancies"`

	// Summary aggregates counts and the overall risk classification.
	Summary Summary `json:"summary"`

	// Warnings lists recoverable parse/normalize issues from both files.
	Warnings []Warning `json:"warnings"`
}
