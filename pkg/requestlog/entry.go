package requestlog

import "time"

// Outcome values recorded on entries.
const (
	OutcomeMatched     = "matched"
	OutcomePassThrough = "passthrough"
	OutcomeNoMatch     = "nomatch"
)

// Entry captures one resolved request.
type Entry struct {
	// ID is a unique identifier for the log entry.
	ID string `json:"id"`

	// Timestamp is when the request was resolved.
	Timestamp time.Time `json:"timestamp"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// URL is the full request URL.
	URL string `json:"url"`

	// Host is the request host, including any port.
	Host string `json:"host"`

	// Path is the request URL path.
	Path string `json:"path"`

	// Headers are the request headers (multi-value, in received order).
	Headers map[string][]string `json:"headers,omitempty"`

	// Body is the request body (truncated for display).
	Body string `json:"body,omitempty"`

	// BodySize is the original body size in bytes.
	BodySize int `json:"bodySize"`

	// Outcome is one of OutcomeMatched, OutcomePassThrough or OutcomeNoMatch.
	Outcome string `json:"outcome"`

	// MatchedMockID is the ID of the mock that matched (empty if no match).
	MatchedMockID string `json:"matchedMockID,omitempty"`

	// MatchedMockName is the display name of the matched mock.
	MatchedMockName string `json:"matchedMockName,omitempty"`

	// ResponseStatus is the status of the synthesized response.
	ResponseStatus int `json:"responseStatus,omitempty"`

	// Error contains the resolution error, if any.
	Error string `json:"error,omitempty"`

	// NearMisses lists the pending mocks considered for an unmatched request.
	NearMisses []NearMissInfo `json:"nearMisses,omitempty"`
}

// Matched reports whether a mock handled the request.
func (e *Entry) Matched() bool {
	return e.Outcome == OutcomeMatched
}
