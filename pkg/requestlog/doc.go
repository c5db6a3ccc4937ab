// Package requestlog records how outgoing requests were resolved, for
// inspection after a test has run.
//
// Every request seen by an enabled engine produces one Entry: the request
// summary, the outcome (matched, passed through to the network, or
// rejected) and, for rejected requests, the near misses that explain why no
// mock applied. It is distinct from operational logging, which uses
// log/slog.
//
//	store := requestlog.NewMemoryStore(1000)
//	store.Log(&requestlog.Entry{Method: "GET", URL: "https://example.com/"})
//	unmatched := store.List(&requestlog.Filter{Outcome: requestlog.OutcomeNoMatch})
//
// This is a leaf package with no internal dependencies.
package requestlog
