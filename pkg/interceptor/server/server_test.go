package server

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/getmockd/mocknet/pkg/chunked"
	"github.com/getmockd/mocknet/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T, opts ...Option) (*engine.Engine, *Interceptor, *engine.Scope) {
	t.Helper()
	ic := New(opts...)
	eng := engine.New(engine.WithInterceptors(ic))
	scope, err := eng.Activate(engine.AllowPendingMocks())
	require.NoError(t, err)
	t.Cleanup(func() { _ = scope.Close() })
	return eng, ic, scope
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

// rawGet sends a request over a plain connection and returns the raw
// response head and body.
func rawGet(t *testing.T, base, path string) (string, []byte) {
	t.Helper()
	u, err := url.Parse(base)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", u.Host)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(conn, "GET "+path+" HTTP/1.1\r\nHost: "+u.Host+"\r\nConnection: close\r\n\r\n")
	require.NoError(t, err)

	raw, err := io.ReadAll(conn)
	require.NoError(t, err)
	head, rest, found := strings.Cut(string(raw), "\r\n\r\n")
	require.True(t, found)
	return head, []byte(rest)
}

func TestInterceptor_Lifecycle(t *testing.T) {
	ic := New()
	assert.Empty(t, ic.URL())
	assert.ErrorIs(t, ic.Uninstall(), ErrNotInstalled)

	require.NoError(t, ic.Install(engine.New()))
	assert.True(t, strings.HasPrefix(ic.URL(), "http://127.0.0.1:"))
	assert.ErrorIs(t, ic.Install(engine.New()), ErrAlreadyInstalled)

	require.NoError(t, ic.Uninstall())
	assert.Empty(t, ic.URL())
}

func TestServer_MatchedFlat(t *testing.T) {
	eng, ic, _ := start(t)
	m := eng.Get("/hello").
		Reply(http.StatusOK).
		Header("X-Hello", "a").
		Header("X-Hello", "b").
		JSON(map[string]string{"hello": "world"}).
		Mock()

	resp, err := http.Get(ic.URL() + "/hello")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a, b", strings.Join(resp.Header.Values("X-Hello"), ", "))
	assert.JSONEq(t, `{"hello":"world"}`, body(t, resp))
	assert.Equal(t, 1, m.Matches())
}

func TestServer_ChunkedWireFraming(t *testing.T) {
	tests := []struct {
		name string
		data any
		want [][]byte
	}{
		{name: "three pieces", data: []string{"a", "b", "c"}, want: [][]byte{[]byte("a"), []byte("b"), []byte("c")}},
		{name: "empty", data: []string{}, want: [][]byte{}},
		{name: "embedded crlf", data: "newline\r\n", want: [][]byte{[]byte("newline\r\n")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, ic, _ := start(t)
			eng.Get("/stream").Reply(http.StatusOK).ChunkedBody(tt.data)

			head, wire := rawGet(t, ic.URL(), "/stream")
			assert.Contains(t, head, "Transfer-Encoding: chunked")

			pieces, err := chunked.Decode(wire)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pieces)
		})
	}
}

func TestServer_NoMatch(t *testing.T) {
	eng, ic, _ := start(t)
	eng.Post("/users").Reply(http.StatusCreated)

	resp, err := http.Get(ic.URL() + "/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	var payload struct {
		Error   string             `json:"error"`
		Message string             `json:"message"`
		Details []engine.Candidate `json:"details"`
	}
	require.NoError(t, json.Unmarshal([]byte(body(t, resp)), &payload))
	assert.Equal(t, "no_match", payload.Error)
	assert.Contains(t, payload.Message, "GET")
	require.Len(t, payload.Details, 1)
	assert.Equal(t, "POST /users", payload.Details[0].Mock)
	assert.Len(t, eng.Unmatched(), 1)
}

func TestServer_UpstreamStandIn(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(upstream.Close)

	base, err := url.Parse(upstream.URL + "/v1")
	require.NoError(t, err)
	eng, ic, _ := start(t, WithUpstream(base))

	m := eng.Get(upstream.URL + "/v1/users").Reply(http.StatusOK).Body("mocked").Mock()
	eng.EnableNetwork()

	resp, err := http.Get(ic.URL() + "/users")
	require.NoError(t, err)
	assert.Equal(t, "mocked", body(t, resp))
	assert.Equal(t, 1, m.Matches())

	resp, err = http.Get(ic.URL() + "/orders")
	require.NoError(t, err)
	_ = body(t, resp)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "/v1/orders", resp.Header.Get("X-Upstream"))
}

func TestServer_PassthroughWithoutUpstream(t *testing.T) {
	eng, ic, _ := start(t)
	eng.EnableNetwork()

	resp, err := http.Get(ic.URL() + "/anything")
	require.NoError(t, err)
	_ = body(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestServer_ProxyForm(t *testing.T) {
	eng, ic, _ := start(t)
	m := eng.Get("http://api.test/users").Reply(http.StatusOK).Body("via proxy").Mock()

	proxyURL, err := url.Parse(ic.URL())
	require.NoError(t, err)
	client := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}

	resp, err := client.Get("http://api.test/users")
	require.NoError(t, err)
	assert.Equal(t, "via proxy", body(t, resp))
	assert.Equal(t, 1, m.Matches())
}

func TestServer_InjectedErrorAbortsConnection(t *testing.T) {
	eng, ic, _ := start(t)
	eng.Get("/flaky").Reply(http.StatusOK).Error(errors.New("reset"))

	_, err := http.Get(ic.URL() + "/flaky")
	assert.Error(t, err)
}

func TestServer_ScopeCloseStopsListener(t *testing.T) {
	ic := New()
	eng := engine.New(engine.WithInterceptors(ic))
	scope, err := eng.Activate()
	require.NoError(t, err)
	addr := ic.URL()
	require.NotEmpty(t, addr)

	require.NoError(t, scope.Close())
	assert.Empty(t, ic.URL())

	client := &http.Client{Timeout: time.Second}
	_, err = client.Get(addr)
	assert.Error(t, err)
}

func TestHandler_Mountable(t *testing.T) {
	eng := engine.New()
	require.NoError(t, eng.Enable())
	t.Cleanup(func() { _ = eng.Disable() })
	eng.Get("/ping").Reply(http.StatusOK).Body("pong")

	srv := httptest.NewServer(Handler(eng, nil, nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", body(t, resp))
}
