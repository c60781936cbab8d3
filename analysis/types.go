// Package analysis compares requirement statements against design statements
// and classifies, per requirement, whether design coverage exists.
//
// The pipeline is pure and deterministic: statements are tokenized and
// weighted with TF-IDF over the combined corpus of the single request,
// scored with length-calibrated cosine similarity, and classified into a
// three-way coverage verdict. Re-running the same request yields
// bit-identical results.
package analysis

import (
	"errors"
	"fmt"
)

// DefaultThreshold is the similarity threshold used when a request does not
// supply one. Matches the product default of 0.3.
const DefaultThreshold = 0.3

// ErrInvalidInput marks requests rejected before any vectorization happens.
var ErrInvalidInput = errors.New("invalid analysis input")

// Verdict is the three-way coverage classification for a requirement.
// The Partial/Missing split is deliberate: downstream consumers (summary
// tallies, LLM feedback prompts) treat "weak match" and "no match"
// differently.
type Verdict string

// Coverage verdicts.
const (
	// VerdictPresent means at least one design item scored at or above the
	// threshold.
	VerdictPresent Verdict = "Present"

	// VerdictPartial means related design exists (non-zero similarity) but
	// nothing reached the threshold.
	VerdictPartial Verdict = "Partial"

	// VerdictMissing means no design item shares any vocabulary with the
	// requirement.
	VerdictMissing Verdict = "Missing"
)

// IsValid reports whether v is a known verdict.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictPresent, VerdictPartial, VerdictMissing:
		return true
	}
	return false
}

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}

// Request carries one analysis invocation: two flat, ordered statement
// lists plus an optional threshold override.
type Request struct {
	// Requirements is the ordered list of requirement statements.
	Requirements []string `json:"requirements"`

	// Design is the ordered list of design statements.
	Design []string `json:"design"`

	// Threshold is the minimum similarity score for a design item to count
	// as a match. Zero means use DefaultThreshold. Valid range is (0, 1].
	Threshold float64 `json:"threshold,omitempty"`
}

// Validate rejects structurally unusable requests before vectorization.
// Statements themselves are never rejected for content.
func (r *Request) Validate() error {
	if len(r.Requirements) == 0 {
		return fmt.Errorf("%w: requirements list is empty", ErrInvalidInput)
	}
	if len(r.Design) == 0 {
		return fmt.Errorf("%w: design list is empty", ErrInvalidInput)
	}
	if r.Threshold != 0 && (r.Threshold <= 0 || r.Threshold > 1) {
		return fmt.Errorf("%w: threshold %v outside (0,1]", ErrInvalidInput, r.Threshold)
	}
	return nil
}

// EffectiveThreshold returns the threshold to apply, substituting the
// default for an unset value.
func (r *Request) EffectiveThreshold() float64 {
	if r.Threshold == 0 {
		return DefaultThreshold
	}
	return r.Threshold
}

// MatchResult is the per-requirement outcome of an analysis.
type MatchResult struct {
	// Requirement echoes the requirement statement text.
	Requirement string `json:"requirement"`

	// SimilarityScore is the best similarity across all design items,
	// always in [0, 1]. Zero exactly when no design item shares any
	// vocabulary with the requirement.
	SimilarityScore float64 `json:"similarity_score"`

	// Coverage is the classified verdict.
	Coverage Verdict `json:"coverage"`

	// Issue is a human-readable note explaining non-Present verdicts.
	Issue string `json:"issue,omitempty"`

	// MatchedDesignItems lists the design statements that justify the
	// verdict, in original design order. Empty exactly when Coverage is
	// Missing: Present carries every item at or above the threshold,
	// Partial carries the single best (first-seen) related item.
	MatchedDesignItems []string `json:"matched_design_items"`
}

// Summary aggregates verdict counts across one analysis.
// Partial verdicts count toward neither covered nor missing.
type Summary struct {
	TotalRequirements   int `json:"total_requirements"`
	TotalDesignItems    int `json:"total_design_items"`
	CoveredRequirements int `json:"covered_requirements"`
	MissingRequirements int `json:"missing_requirements"`
}

// Result is the complete outcome of one analysis request. Results preserve
// the order of the input requirement list.
type Result struct {
	Results []MatchResult `json:"results"`
	Summary Summary       `json:"summary"`
}
