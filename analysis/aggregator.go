package analysis

// aggregate reduces ordered MatchResults into summary counts. A Partial
// verdict counts toward neither covered nor missing, so
// covered + missing <= total always holds.
func aggregate(results []MatchResult, totalDesign int) Summary {
	s := Summary{
		TotalRequirements: len(results),
		TotalDesignItems:  totalDesign,
	}
	for _, r := range results {
		switch r.Coverage {
		case VerdictPresent:
			s.CoveredRequirements++
		case VerdictMissing:
			s.MissingRequirements++
		}
	}
	return s
}
