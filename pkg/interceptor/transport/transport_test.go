package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getmockd/mocknet/pkg/chunked"
	"github.com/getmockd/mocknet/pkg/engine"
	"github.com/getmockd/mocknet/pkg/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "real")
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "real body")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClientEngine(t *testing.T) (*engine.Engine, *http.Client) {
	t.Helper()
	client := &http.Client{Transport: &http.Transport{}}
	eng := engine.New(engine.WithInterceptors(ForClient(client)))
	return eng, client
}

func activate(t *testing.T, eng *engine.Engine, opts ...engine.ScopeOption) *engine.Scope {
	t.Helper()
	scope, err := eng.Activate(opts...)
	require.NoError(t, err)
	return scope
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func readChunks(t *testing.T, resp *http.Response) [][]byte {
	t.Helper()
	defer resp.Body.Close()
	cr, ok := resp.Body.(chunked.ChunkReader)
	require.True(t, ok, "chunked body must expose NextChunk")

	chunks := [][]byte{}
	for {
		piece, err := cr.NextChunk()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, piece)
	}
}

func TestDefaultTransport_IdentityRestored(t *testing.T) {
	original := http.DefaultTransport
	eng := engine.New(engine.WithInterceptors(New()))

	require.NoError(t, eng.Enable())
	assert.NotSame(t, original, http.DefaultTransport)
	_, hooked := http.DefaultTransport.(*RoundTripper)
	assert.True(t, hooked)

	require.NoError(t, eng.Disable())
	assert.Same(t, original, http.DefaultTransport)

	require.NoError(t, eng.Disable(), "disable is idempotent")
	assert.Same(t, original, http.DefaultTransport)
}

func TestDefaultTransport_MockedGet(t *testing.T) {
	original := http.DefaultTransport
	eng := engine.New(engine.WithInterceptors(New()))

	var m *mock.Mock
	err := eng.Run(func(e *engine.Engine) error {
		m = e.Get("http://mocked.test/foo").Reply(200).Body("hello").Mock()

		resp, err := http.Get("http://mocked.test/foo")
		if err != nil {
			return err
		}
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "200 OK", resp.Status)
		assert.Equal(t, "hello", readAll(t, resp))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Matches())
	assert.Same(t, original, http.DefaultTransport)
}

func TestClientTransport_IdentityRestored(t *testing.T) {
	upstream := newUpstream(t)
	eng, client := newClientEngine(t)
	original := client.Transport

	before, err := client.Get(upstream.URL)
	require.NoError(t, err)
	beforeBody := readAll(t, before)

	require.NoError(t, eng.Enable())
	require.NoError(t, eng.Disable())
	assert.Same(t, original, client.Transport)

	after, err := client.Get(upstream.URL)
	require.NoError(t, err)
	assert.Equal(t, before.StatusCode, after.StatusCode)
	assert.Equal(t, before.Header.Get("X-Upstream"), after.Header.Get("X-Upstream"))
	assert.Equal(t, beforeBody, readAll(t, after))
}

func TestClientTransport_NilTransportRestoredAsNil(t *testing.T) {
	client := &http.Client{}
	ic := ForClient(client)
	require.NoError(t, ic.Install(engine.New()))
	assert.NotNil(t, client.Transport)
	require.NoError(t, ic.Uninstall())
	assert.Nil(t, client.Transport)
}

func TestInterceptor_InstallTwice(t *testing.T) {
	ic := ForClient(&http.Client{})
	require.NoError(t, ic.Install(engine.New()))
	assert.ErrorIs(t, ic.Install(engine.New()), ErrAlreadyInstalled)
	require.NoError(t, ic.Uninstall())
	assert.ErrorIs(t, ic.Uninstall(), ErrNotInstalled)
}

func TestRoundTrip_MatchedJSON(t *testing.T) {
	eng, client := newClientEngine(t)
	scope := activate(t, eng)

	m := eng.Post("http://api.test/users").
		Header("Content-Type", "application/json").
		JSON(map[string]any{"name": "alice"}).
		Reply(201).
		JSON(map[string]any{"id": 1}).
		Mock()

	resp, err := client.Post("http://api.test/users", "application/json", strings.NewReader(`{"name":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, readAll(t, resp))
	assert.Equal(t, 1, m.Matches())

	require.NoError(t, scope.Close())
}

func TestRoundTrip_MultiValueHeaders(t *testing.T) {
	eng, client := newClientEngine(t)
	scope := activate(t, eng)

	eng.Get("http://api.test/hello").
		Header("X-Hello", "from pook, another time").
		Reply(200).
		Header("X-Hello", "a").
		Header("X-Hello", "b")

	req, err := http.NewRequest(http.MethodGet, "http://api.test/hello", nil)
	require.NoError(t, err)
	req.Header.Add("X-Hello", "from pook")
	req.Header.Add("X-Hello", "another time")

	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = readAll(t, resp)
	assert.Equal(t, "a, b", resp.Header.Get("X-Hello"))
	assert.Equal(t, []string{"a, b"}, resp.Header.Values("X-Hello"))

	require.NoError(t, scope.Close())
}

func TestRoundTrip_ChunkedBodies(t *testing.T) {
	tests := []struct {
		name string
		data any
		want [][]byte
	}{
		{name: "three pieces", data: []string{"a", "b", "c"}, want: [][]byte{[]byte("a"), []byte("b"), []byte("c")}},
		{name: "empty", data: []string{}, want: [][]byte{}},
		{name: "embedded crlf", data: "newline\r\n", want: [][]byte{[]byte("newline\r\n")}},
		{name: "text", data: "text", want: [][]byte{[]byte("text")}},
		{name: "bytes", data: []byte("byteman"), want: [][]byte{[]byte("byteman")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, client := newClientEngine(t)
			scope := activate(t, eng)

			eng.Get("http://api.test/stream").Reply(200).ChunkedBody(tt.data)

			resp, err := client.Get("http://api.test/stream")
			require.NoError(t, err)
			assert.Equal(t, []string{"chunked"}, resp.TransferEncoding)
			assert.Equal(t, int64(-1), resp.ContentLength)
			assert.Equal(t, tt.want, readChunks(t, resp))

			require.NoError(t, scope.Close())
		})
	}
}

func TestRoundTrip_ChunkedBodyReadsAsStream(t *testing.T) {
	eng, client := newClientEngine(t)
	scope := activate(t, eng)
	eng.Get("http://api.test/stream").Reply(200).ChunkedBody([]string{"hello ", "world"})

	resp, err := client.Get("http://api.test/stream")
	require.NoError(t, err)
	assert.Equal(t, "hello world", readAll(t, resp))
	require.NoError(t, scope.Close())
}

func TestRoundTrip_BinaryBody(t *testing.T) {
	eng, client := newClientEngine(t)
	scope := activate(t, eng)
	payload := []byte{0x00, 0x01, 0xfe, 0xff}
	eng.Get("http://api.test/bin").Reply(200).Body(payload)

	resp, err := client.Get("http://api.test/bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), resp.ContentLength)
	assert.Equal(t, string(payload), readAll(t, resp))
	require.NoError(t, scope.Close())
}

func TestRoundTrip_NoMatch(t *testing.T) {
	eng, client := newClientEngine(t)
	scope := activate(t, eng, engine.AllowPendingMocks())
	eng.Get("http://api.test/a").Reply(200)

	_, err := client.Get("http://api.test/b")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrNoMatch)

	var nm *engine.NoMatchError
	require.True(t, errors.As(err, &nm))
	assert.Equal(t, "GET", nm.Method)
	assert.Equal(t, "http://api.test/b", nm.URL)
	require.Len(t, nm.Candidates, 1)
	assert.NotEmpty(t, nm.Candidates[0].Failures)

	assert.Len(t, eng.Unmatched(), 1)
	require.NoError(t, scope.Close())
}

func TestRoundTrip_NetworkPassthrough(t *testing.T) {
	upstream := newUpstream(t)
	eng, client := newClientEngine(t)
	scope := activate(t, eng)

	m := eng.Get("http://api.test/a").Reply(200).Body("mocked").Mock()
	eng.EnableNetwork()

	resp, err := client.Get("http://api.test/a")
	require.NoError(t, err)
	assert.Equal(t, "mocked", readAll(t, resp), "mocks are tried before the network")

	resp, err = client.Get(upstream.URL + "/anything")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "real body", readAll(t, resp))

	assert.Equal(t, 1, m.Matches())
	require.NoError(t, scope.Close())
}

func TestRoundTrip_PassthroughKeepsBody(t *testing.T) {
	var got string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		got = string(data)
	}))
	t.Cleanup(upstream.Close)

	eng, client := newClientEngine(t)
	scope := activate(t, eng, engine.WithNetwork())

	resp, err := client.Post(upstream.URL, "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	_ = readAll(t, resp)
	assert.Equal(t, "payload", got)
	require.NoError(t, scope.Close())
}

type recordingTransport struct {
	got  *http.Request
	body string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.got = req
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	rt.body = string(data)
	return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody, Request: req}, nil
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestRoundTrip_CallerRequestUntouched(t *testing.T) {
	next := &recordingTransport{}
	eng := engine.New()
	require.NoError(t, eng.Enable())
	t.Cleanup(func() { _ = eng.Disable() })
	eng.EnableNetwork("upstream.test")

	eng.Post("http://api.test/users").Body("payload").Reply(201)
	rt := NewRoundTripper(eng, next)

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{name: "matched", url: "http://api.test/users", status: 201},
		{name: "passthrough", url: "http://upstream.test/users", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &closeTracker{Reader: strings.NewReader("payload")}
			req, err := http.NewRequest(http.MethodPost, tt.url, body)
			require.NoError(t, err)
			require.Nil(t, req.GetBody)

			resp, err := rt.RoundTrip(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			_ = readAll(t, resp)

			assert.Same(t, body, req.Body)
			assert.Nil(t, req.GetBody)
			assert.True(t, body.closed)
		})
	}

	require.NotNil(t, next.got)
	assert.Equal(t, "payload", next.body)
	assert.EqualValues(t, len("payload"), next.got.ContentLength)
	assert.NotNil(t, next.got.GetBody)
}

func TestRoundTrip_DelayHonorsContext(t *testing.T) {
	eng, client := newClientEngine(t)
	scope := activate(t, eng, engine.AllowPendingMocks())
	eng.Get("http://api.test/slow").Reply(200).Delay(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.test/slow", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, scope.Close())
}

func TestRoundTrip_InjectedError(t *testing.T) {
	eng, client := newClientEngine(t)
	scope := activate(t, eng)
	boom := errors.New("connection reset by peer")
	eng.Get("http://api.test/flaky").Reply(200).Error(boom)

	_, err := client.Get("http://api.test/flaky")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, scope.Close())
}

func TestRoundTrip_Head(t *testing.T) {
	eng, client := newClientEngine(t)
	scope := activate(t, eng)
	eng.Head("http://api.test/doc").Reply(200).Body("ignored")

	resp, err := client.Head("http://api.test/doc")
	require.NoError(t, err)
	assert.Equal(t, "", readAll(t, resp))
	require.NoError(t, scope.Close())
}

func TestNewRoundTripper_DisabledEnginePassesThrough(t *testing.T) {
	upstream := newUpstream(t)
	client := &http.Client{Transport: NewRoundTripper(engine.New(), nil)}

	resp, err := client.Get(upstream.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	_ = readAll(t, resp)
}
