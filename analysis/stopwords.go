package analysis

// stopwords is the fixed set of language-generic function words and modal
// auxiliaries removed before weighting. Requirement prose leans on modals
// ("must", "shall") that carry no topical content. Statements reduced to
// nothing by this filter produce a zero vector, never an error.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "all", "am",
		"an", "and", "any", "are", "as", "at", "be", "because", "been",
		"before", "being", "below", "between", "both", "but", "by", "can",
		"could", "did", "do", "does", "doing", "down", "during", "each",
		"few", "for", "from", "further", "had", "has", "have", "having",
		"he", "her", "here", "hers", "him", "his", "how", "i", "if", "in",
		"into", "is", "it", "its", "itself", "just", "may", "me", "might",
		"more", "most", "must", "my", "myself", "no", "nor", "not", "now",
		"of", "off", "on",
		"once", "only", "or", "other", "our", "ours", "out", "over", "own",
		"same", "shall", "she", "should", "so", "some", "such", "than",
		"that",
		"the", "their", "theirs", "them", "then", "there", "these", "they",
		"this", "those", "through", "to", "too", "under", "until", "up",
		"very", "was", "we", "were", "what", "when", "where", "which",
		"while", "who", "whom", "why", "will", "with", "would", "you",
		"your", "yours", "yourself",
	} {
		stopwords[w] = struct{}{}
	}
}

// isStopword reports whether the normalized term is filtered out.
func isStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}
