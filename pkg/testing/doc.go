// Package testing activates a mocknet engine for the lifetime of a test.
//
// Activate hooks http.DefaultTransport through the process-wide engine,
// resets it, and registers a cleanup that disables interception and fails
// the test when declared mocks were never exercised:
//
//	func TestFetchUser(t *testing.T) {
//	    mn := mocknettest.Activate(t)
//	    mn.Get("https://api.example.com/users/1").
//	        Reply(200).
//	        JSON(map[string]any{"id": 1, "name": "Ada"})
//
//	    user, err := client.FetchUser(1)
//	    require.NoError(t, err)
//
//	    mn.AssertCalled("GET", "/users/{id}")
//	}
//
// Requests resolved during the test are available through Requests, with
// assertion helpers on each RequestLog. Pass WithEngine to use a private
// engine, for instance one driving a server interceptor, and WithLogLevel
// to see engine decisions in the test output.
package testing
