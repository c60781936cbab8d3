package analysis

// Issue notes attached to non-Present verdicts.
const (
	issuePartial = "related design exists but below confidence threshold"
	issueMissing = "no related design item found"
)

// classify turns a scored match into a MatchResult. Classification is a
// pure function of (score, threshold):
//
//	score >= threshold  -> Present, with every threshold match listed
//	0 < score < thresh  -> Partial, with the single best related item
//	score == 0          -> Missing, with an empty match list
func classify(requirement string, m match, design []string) MatchResult {
	result := MatchResult{
		Requirement:        requirement,
		SimilarityScore:    m.best,
		MatchedDesignItems: []string{},
	}

	switch {
	case len(m.matched) > 0:
		result.Coverage = VerdictPresent
		for _, i := range m.matched {
			result.MatchedDesignItems = append(result.MatchedDesignItems, design[i])
		}
	case m.best > 0:
		result.Coverage = VerdictPartial
		result.Issue = issuePartial
		result.MatchedDesignItems = append(result.MatchedDesignItems, design[m.bestIndex])
	default:
		result.Coverage = VerdictMissing
		result.Issue = issueMissing
	}

	return result
}
