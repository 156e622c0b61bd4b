// Package dashboard turns aggregation payloads into the view model shown on
// the team dashboard.
package dashboard

// Severity is the presentation band of a score.
type Severity string

const (
	SeverityHigh    Severity = "high"
	SeverityMid     Severity = "mid"
	SeverityLow     Severity = "low"
	SeverityUnknown Severity = "unknown"
)

// Band maps a score to its severity. It affects presentation only.
func Band(score *float64) Severity {
	switch {
	case score == nil:
		return SeverityUnknown
	case *score >= 80:
		return SeverityHigh
	case *score >= 60:
		return SeverityMid
	default:
		return SeverityLow
	}
}

// Member is one team member listed on the dashboard.
type Member struct {
	Name          string
	Email         string
	IsCurrentUser bool
}

// Item is one piece of feedback.
type Item struct {
	AttributeLabel string
	Score          *float64
	RawText        string
	SummaryText    string
	IsProcessed    bool
}

// Severity is the band of the item's score.
func (i Item) Severity() Severity {
	return Band(i.Score)
}

// AggregationResult is the normalized dashboard view model. Absent fields are
// zero values, never omitted: a nil AverageScore means "no score".
type AggregationResult struct {
	TeamName        string
	BoothID         string
	AverageScore    *float64
	TotalCount      int
	TotalTeamsCount int
	TeamMembers     []Member
	Items           []Item
	Message         string
}

// IsEmpty reports a successful response that carries no feedback yet: no
// items counted and no score. A legacy payload with a score but no comments
// is not empty.
func (r AggregationResult) IsEmpty() bool {
	return r.TotalCount == 0 && r.AverageScore == nil
}

// CurrentUser returns the member matching the viewer, if any.
func (r AggregationResult) CurrentUser() (Member, bool) {
	for _, m := range r.TeamMembers {
		if m.IsCurrentUser {
			return m, true
		}
	}
	return Member{}, false
}
