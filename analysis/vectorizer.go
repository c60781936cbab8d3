package analysis

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// TermVector is a sparse mapping from vocabulary term to a non-negative
// TF-IDF weight. Vectors are scoped to the request that produced them and
// are discarded after the similarity pass.
type TermVector map[string]float64

// Tokenize normalizes a statement into its surviving terms: lowercased,
// punctuation stripped, split on word boundaries, stop words removed.
// An empty or all-stop-word statement yields an empty slice.
func Tokenize(statement string) []string {
	fields := strings.FieldsFunc(strings.ToLower(statement), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if isStopword(f) {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// corpus holds inverse document frequencies computed over the combined
// requirement and design statements of a single request. IDF is
// deliberately request-scoped so weighting is deterministic and isolated;
// there is no persisted global vocabulary.
type corpus struct {
	idf     map[string]float64
	numDocs int
}

// newCorpus computes smoothed IDF over the given tokenized documents:
// idf(t) = ln((1+N)/(1+df(t))) + 1. The +1 terms keep weights strictly
// positive so terms present in every document still contribute.
func newCorpus(docs [][]string) *corpus {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	return &corpus{idf: idf, numDocs: len(docs)}
}

// vectorize weights tokenized terms by tf * idf, where tf is the term count
// normalized by statement length. Terms outside the corpus vocabulary are
// ignored (cannot happen when the statement was part of corpus
// construction). Returns an empty vector for an empty statement.
func (c *corpus) vectorize(terms []string) TermVector {
	if len(terms) == 0 {
		return TermVector{}
	}

	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}

	vec := make(TermVector, len(counts))
	total := float64(len(terms))
	for term, count := range counts {
		idf, ok := c.idf[term]
		if !ok {
			continue
		}
		vec[term] = (float64(count) / total) * idf
	}
	return vec
}

// norm returns the Euclidean norm of the vector. Zero for a zero vector.
// Accumulation runs in sorted term order; map iteration order would make
// the floating point sum wobble in the last bit between runs.
func (v TermVector) norm() float64 {
	var sum float64
	for _, term := range v.sortedTerms() {
		w := v[term]
		sum += w * w
	}
	return math.Sqrt(sum)
}

// sortedTerms returns the vector's terms in lexical order.
func (v TermVector) sortedTerms() []string {
	terms := make([]string, 0, len(v))
	for term := range v {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
