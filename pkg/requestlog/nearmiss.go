package requestlog

// NearMissInfo is a log-friendly summary of a mock that was considered for
// an unmatched request.
type NearMissInfo struct {
	// MockID is the ID of the mock that partially matched.
	MockID string `json:"mockId"`

	// MockName is the display name of the mock.
	MockName string `json:"mockName,omitempty"`

	// MatchPercentage is how close the match was (0-100).
	MatchPercentage int `json:"matchPercentage"`

	// Reasons explains each failing matcher.
	Reasons []string `json:"reasons,omitempty"`
}

// MatchPercentage returns the share of matchers that passed, rounded down.
// A mock without matchers counts as a full match.
func MatchPercentage(passed, total int) int {
	if total <= 0 {
		return 100
	}
	return passed * 100 / total
}
