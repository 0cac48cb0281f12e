package audit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical field names all source columns are mapped onto before comparison.
const (
	FieldEmployeeID  = "employee_id"
	FieldFullName    = "full_name"
	FieldGrossPay    = "gross_pay"
	FieldNetPay      = "net_pay"
	FieldTaxWithheld = "tax_withheld"
	FieldDeductions  = "deductions"
	FieldOvertime    = "overtime_pay"
	FieldBonus       = "bonus"
	FieldHours       = "hours"
	FieldDepartment  = "department"
)

// monetaryFields are the canonical fields compared under the earnings
// tolerance. Everything else numeric is compared exactly unless overridden.
var monetaryFields = map[string]bool{
	FieldGrossPay:    true,
	FieldNetPay:      true,
	FieldTaxWithheld: true,
	FieldDeductions:  true,
	FieldOvertime:    true,
	FieldBonus:       true,
}

// MonetaryField reports whether the canonical field carries a currency amount.
func MonetaryField(name string) bool {
	return monetaryFields[name]
}

// SeverityBreakpoints map a discrepancy's relative magnitude to a severity.
// A value mismatch whose |difference| / max(|a|,|b|) reaches Medium, High, or
// Critical is graded accordingly; below Medium it is low. Floor substitutes
// for the denominator when both values are smaller than it, so near-zero
// fields are graded on an absolute scale.
type SeverityBreakpoints struct {
	Medium   float64
	High     float64
	Critical float64
	Floor    decimal.Decimal
}

// DefaultBreakpoints returns the standard grading thresholds: 1% / 5% / 20%
// relative magnitude with an absolute floor of 1.
func DefaultBreakpoints() SeverityBreakpoints {
	return SeverityBreakpoints{
		Medium:   0.01,
		High:     0.05,
		Critical: 0.20,
		Floor:    decimal.NewFromInt(1),
	}
}

// Config carries every knob the engine exposes.
type Config struct {
	// EarningsTolerance is the inclusive absolute tolerance for monetary
	// fields. Differences at or below it are not discrepancies.
	EarningsTolerance decimal.Decimal

	// NameThreshold is the minimum fuzzy name similarity in [0,1] for a
	// pair to be committed; inclusive.
	NameThreshold float64

	// FuzzyMatching enables the fuzzy-name matching pass.
	FuzzyMatching bool

	// FieldTolerances overrides the tolerance for specific canonical fields.
	FieldTolerances map[string]decimal.Decimal

	// Synonyms maps normalized observed column names to canonical field
	// names. Keys are normalized with the same folding applied to observed
	// columns (lower case, separators collapsed to single spaces).
	Synonyms map[string]string

	// MinExtractionConfidence excludes document-extracted rows below this
	// confidence from normalization; they are reported as warnings instead.
	MinExtractionConfidence float64

	// Breakpoints configure severity grading.
	Breakpoints SeverityBreakpoints
}

// DefaultConfig returns the engine defaults: tolerance 0.01, name threshold
// 0.8, fuzzy matching enabled, the built-in synonym table, and the standard
// severity breakpoints.
func DefaultConfig() Config {
	return Config{
		EarningsTolerance:       decimal.New(1, -2),
		NameThreshold:           0.8,
		FuzzyMatching:           true,
		FieldTolerances:         map[string]decimal.Decimal{},
		Synonyms:                DefaultSynonyms(),
		MinExtractionConfidence: 0.5,
		Breakpoints:             DefaultBreakpoints(),
	}
}

// DefaultSynonyms returns the built-in column synonym table covering the
// header variants seen across payroll exports.
func DefaultSynonyms() map[string]string {
	return map[string]string{
		"employee id":     FieldEmployeeID,
		"emp id":          FieldEmployeeID,
		"id":              FieldEmployeeID,
		"employee no":     FieldEmployeeID,
		"employee number": FieldEmployeeID,
		"staff id":        FieldEmployeeID,
		"ssn":             FieldEmployeeID,

		"name":          FieldFullName,
		"employee":      FieldFullName,
		"employee name": FieldFullName,
		"full name":     FieldFullName,
		"staff name":    FieldFullName,

		"gross":          FieldGrossPay,
		"gross pay":      FieldGrossPay,
		"gross amt":      FieldGrossPay,
		"gross amount":   FieldGrossPay,
		"gross earnings": FieldGrossPay,
		"total earnings": FieldGrossPay,

		"net":           FieldNetPay,
		"net pay":       FieldNetPay,
		"net amt":       FieldNetPay,
		"net amount":    FieldNetPay,
		"take home":     FieldNetPay,
		"take home pay": FieldNetPay,

		"tax":          FieldTaxWithheld,
		"taxes":        FieldTaxWithheld,
		"tax withheld": FieldTaxWithheld,
		"withholding":  FieldTaxWithheld,
		"tax amount":   FieldTaxWithheld,

		"deduction":        FieldDeductions,
		"deductions":       FieldDeductions,
		"total deductions": FieldDeductions,

		"overtime":     FieldOvertime,
		"overtime pay": FieldOvertime,
		"ot pay":       FieldOvertime,

		"bonus":     FieldBonus,
		"bonuses":   FieldBonus,
		"incentive": FieldBonus,

		"hours":        FieldHours,
		"hours worked": FieldHours,
		"hrs":          FieldHours,

		"department": FieldDepartment,
		"dept":       FieldDepartment,
		"division":   FieldDepartment,
	}
}

// toleranceFor returns the inclusive comparison tolerance for a field:
// explicit override, else the earnings tolerance for monetary fields, else
// exact match.
func (c Config) toleranceFor(field string) decimal.Decimal {
	if t, ok := c.FieldTolerances[field]; ok {
		return t
	}
	if MonetaryField(field) {
		return c.EarningsTolerance
	}
	return decimal.Zero
}

var separatorRun = regexp.MustCompile(`[\s_.\-]+`)

// normalizeKey folds an observed column name for synonym lookup: lower case,
// separator runs (space, underscore, dot, dash) collapsed to single spaces.
func normalizeKey(name string) string {
	return strings.TrimSpace(separatorRun.ReplaceAllString(strings.ToLower(name), " "))
}

// canonicalField resolves an observed column name to a canonical field.
// Canonical names themselves always resolve, so a source already using
// "gross_pay" needs no synonym entry.
func (c Config) canonicalField(observed string) (string, bool) {
	key := normalizeKey(observed)
	if canon, ok := c.Synonyms[key]; ok {
		return canon, true
	}
	underscored := strings.ReplaceAll(key, " ", "_")
	switch underscored {
	case FieldEmployeeID, FieldFullName, FieldGrossPay, FieldNetPay,
		FieldTaxWithheld, FieldDeductions, FieldOvertime, FieldBonus,
		FieldHours, FieldDepartment:
		return underscored, true
	}
	return "", false
}

// Settings is the environment-facing shape of the engine defaults, loaded by
// core/config and converted into a Config with Config().
type Settings struct {
	// EarningsTolerance is the monetary tolerance as a decimal string.
	EarningsTolerance string `mapstructure:"earnings_tolerance" default:"0.01"`
	// NameThreshold is the fuzzy match threshold in [0,1].
	NameThreshold float64 `mapstructure:"name_threshold" default:"0.8"`
	// FuzzyMatching enables the fuzzy-name pass.
	FuzzyMatching bool `mapstructure:"fuzzy_matching" default:"true"`
	// MinConfidence is the document-extraction confidence cutoff.
	MinConfidence float64 `mapstructure:"min_confidence" default:"0.5"`
}

// Config converts the loaded settings into an engine Config, validating the
// numeric ranges.
func (s Settings) Config() (Config, error) {
	cfg := DefaultConfig()

	if s.EarningsTolerance != "" {
		tol, err := decimal.NewFromString(s.EarningsTolerance)
		if err != nil {
			return Config{}, fmt.Errorf("invalid earnings_tolerance %q: %w", s.EarningsTolerance, err)
		}
		if tol.IsNegative() {
			return Config{}, fmt.Errorf("earnings_tolerance must be non-negative, got %s", tol)
		}
		cfg.EarningsTolerance = tol
	}
	if s.NameThreshold < 0 || s.NameThreshold > 1 {
		return Config{}, fmt.Errorf("name_threshold must be in [0,1], got %v", s.NameThreshold)
	}
	cfg.NameThreshold = s.NameThreshold
	cfg.FuzzyMatching = s.FuzzyMatching
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return Config{}, fmt.Errorf("min_confidence must be in [0,1], got %v", s.MinConfidence)
	}
	cfg.MinExtractionConfidence = s.MinConfidence

	return cfg, nil
}
