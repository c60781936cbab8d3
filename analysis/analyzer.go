package analysis

// Analyze runs the full pipeline for one request: tokenize, weight,
// score, classify, aggregate. Result order matches the input requirement
// order. The only failure mode is InvalidInput; degenerate text (no usable
// tokens anywhere) degrades to all-Missing results instead of erroring.
func Analyze(req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	threshold := req.EffectiveThreshold()

	// Tokenize the combined corpus so IDF covers both sides.
	reqTerms := make([][]string, len(req.Requirements))
	for i, s := range req.Requirements {
		reqTerms[i] = Tokenize(s)
	}
	designTerms := make([][]string, len(req.Design))
	for i, s := range req.Design {
		designTerms[i] = Tokenize(s)
	}

	combined := make([][]string, 0, len(reqTerms)+len(designTerms))
	combined = append(combined, reqTerms...)
	combined = append(combined, designTerms...)
	c := newCorpus(combined)

	designVecs := make([]TermVector, len(designTerms))
	for i, terms := range designTerms {
		designVecs[i] = c.vectorize(terms)
	}

	results := make([]MatchResult, len(req.Requirements))
	for i, statement := range req.Requirements {
		vec := c.vectorize(reqTerms[i])
		m := scoreAgainst(vec, designVecs, threshold)
		results[i] = classify(statement, m, req.Design)
	}

	return &Result{
		Results: results,
		Summary: aggregate(results, len(req.Design)),
	}, nil
}
