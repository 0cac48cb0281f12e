package audit

// Unmatched-employee ratios at which the run classification escalates.
const (
	unmatchedSignificantRatio = 0.2
	unmatchedCriticalRatio    = 0.5
)

// Score aggregates discrepancy counts by severity and derives the overall
// risk classification for the run. Deterministic and side-effect-free.
func Score(discrepancies []Discrepancy, pairs []MatchedPair, unmatchedA, unmatchedB []*EmployeeRecord) Summary {
	summary := Summary{
		MatchedPairs:   len(pairs),
		UnmatchedA:     len(unmatchedA),
		UnmatchedB:     len(unmatchedB),
		TotalEmployees: len(pairs) + len(unmatchedA) + len(unmatchedB),
	}

	for _, d := range discrepancies {
		switch d.Severity {
		case SeverityLow:
			summary.LowCount++
		case SeverityMedium:
			summary.MediumCount++
		case SeverityHigh:
			summary.HighCount++
		case SeverityCritical:
			summary.CriticalCount++
		}
	}

	unmatchedRatio := 0.0
	if summary.TotalEmployees > 0 {
		unmatchedRatio = float64(summary.UnmatchedA+summary.UnmatchedB) / float64(summary.TotalEmployees)
	}

	switch {
	case summary.CriticalCount > 0 || unmatchedRatio > unmatchedCriticalRatio:
		summary.Risk = RiskCritical
	case summary.HighCount > 0 || unmatchedRatio > unmatchedSignificantRatio:
		summary.Risk = RiskSignificant
	case len(discrepancies) > 0 || summary.UnmatchedA+summary.UnmatchedB > 0:
		summary.Risk = RiskMinor
	default:
		summary.Risk = RiskClean
	}

	return summary
}
