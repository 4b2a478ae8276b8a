package ledger

import "github.com/carebridge/care-matching/pkg/core/model"

// Counts are suggestion totals per outcome
type Counts struct {
	Pending  int
	Accepted int
	Modified int
	Rejected int
	Expired  int
}

// Add counts n suggestions with the given outcome
func (c *Counts) Add(outcome model.Outcome, n int) {
	switch outcome {
	case model.OutcomePending:
		c.Pending += n
	case model.OutcomeAccepted:
		c.Accepted += n
	case model.OutcomeModified:
		c.Modified += n
	case model.OutcomeRejected:
		c.Rejected += n
	case model.OutcomeExpired:
		c.Expired += n
	}
}

// Stats are the acceptance analytics dashboards read
type Stats struct {
	Counts
	Total int

	// Decided excludes pending and expired suggestions
	Decided int

	// AcceptanceRate is (accepted+modified)/decided
	AcceptanceRate float64

	// ModificationRate is modified/(accepted+modified)
	ModificationRate float64
}

// ComputeStats derives the rates from outcome counts. Zero denominators yield 0.
func ComputeStats(c Counts) Stats {
	taken := c.Accepted + c.Modified
	s := Stats{
		Counts:  c,
		Total:   c.Pending + c.Accepted + c.Modified + c.Rejected + c.Expired,
		Decided: taken + c.Rejected,
	}
	if s.Decided > 0 {
		s.AcceptanceRate = float64(taken) / float64(s.Decided)
	}
	if taken > 0 {
		s.ModificationRate = float64(c.Modified) / float64(taken)
	}
	return s
}
