// Package mock defines declared expectations and the responses they produce.
//
// A Mock is built in two halves. The request side is a Builder created with
// a method and URL that appends matchers; Reply switches to a
// ResponseBuilder describing status, headers and body:
//
//	m := mock.New("GET", "https://api.example.com/users").
//		Header("Accept", "application/json").
//		Reply(200).
//		Header("X-Hello", "a").
//		Header("X-Hello", "b").
//		JSON(map[string]any{"users": []string{"alice"}}).
//		Mock()
//
// Response headers are appended, never overwritten, so the mock above
// answers with X-Hello: a, b. Bodies are either FlatBody or ChunkedBody.
//
// A mock matches one request by default. Times raises the count and Persist
// removes the limit. Builder errors are recorded on the mock (the first one
// wins); an invalid mock never matches and is reported as pending.
package mock
