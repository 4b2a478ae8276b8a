// Package matching is the ranking pipeline shared by staff suggestions and
// the partner marketplace: enumerate candidates, drop the ineligible ones,
// score the rest as a weighted sum of factors, and order them.
package matching

import (
	"cmp"
	"math"
	"slices"
)

// scorePrecision is the rounding applied to totals so that equal factor sets
// always produce bit-identical scores
const scorePrecision = 1e6

const noisePrecision = 1e12

// Factor is one weighted input to a score
type Factor struct {
	Name   string
	Weight float64
	// Value is the raw factor score in [0,1]
	Value float64
}

// Contribution is the factor's share of the total score
func (f Factor) Contribution() float64 {
	return f.Weight * f.Value
}

// Matchable is the capability set a candidate exposes to the pipeline.
// Staff and partner organizations each implement it once.
type Matchable[R any] interface {
	// ID is the final, deterministic tie-break (lowest first)
	ID() int64

	// IsEligible applies the hard filters. Ineligible candidates are never scored.
	IsEligible(req R) bool

	// ScoreFactors returns the weighted factors for an eligible candidate
	ScoreFactors(req R) []Factor
}

// Ranked is a scored candidate
type Ranked[M any] struct {
	Candidate M
	Score     float64
	Factors   []Factor
}

// TieBreaker orders two equally scored candidates. It returns a negative
// number when a should rank first, positive when b should, zero otherwise.
type TieBreaker[M any] func(a, b Ranked[M]) int

// Total sums factor contributions, rounded to a fixed precision
func Total(factors []Factor) float64 {
	return Round(Sum(factors))
}

// Sum adds factor contributions at full precision, dropping only float
// noise. Tiering uses it so a score just under a threshold stays under.
func Sum(factors []Factor) float64 {
	total := 0.0
	for _, f := range factors {
		total += f.Contribution()
	}
	return math.Round(total*noisePrecision) / noisePrecision
}

// Round rounds a score to the pipeline's fixed precision
func Round(score float64) float64 {
	return math.Round(score*scorePrecision) / scorePrecision
}

// Rank filters and scores the candidates and returns them best first.
// Order: score descending, then the tie-breaker, then ID ascending.
func Rank[R any, M Matchable[R]](req R, candidates []M, tie TieBreaker[M]) []Ranked[M] {
	ranked := make([]Ranked[M], 0, len(candidates))

	for _, candidate := range candidates {
		if !candidate.IsEligible(req) {
			continue
		}

		factors := candidate.ScoreFactors(req)
		ranked = append(ranked, Ranked[M]{
			Candidate: candidate,
			Score:     Total(factors),
			Factors:   factors,
		})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked[M]) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if tie != nil {
			if c := tie(a, b); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Candidate.ID(), b.Candidate.ID())
	})

	return ranked
}

// Best returns the top-ranked candidate, if any
func Best[R any, M Matchable[R]](req R, candidates []M, tie TieBreaker[M]) (Ranked[M], bool) {
	ranked := Rank(req, candidates, tie)
	if len(ranked) == 0 {
		return Ranked[M]{}, false
	}
	return ranked[0], true
}
