package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/assurance/internal/agent"
	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/presentation"
	"github.com/danmuck/assurance/internal/session"
	"github.com/danmuck/assurance/internal/testutil/testlog"
)

type stubBackend struct {
	mu        sync.Mutex
	deepLinks []string
	events    []agent.HostEvent
	linkErr   error
	eventErr  error
}

func (b *stubBackend) HandleDeepLink(raw string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deepLinks = append(b.deepLinks, raw)
	return b.linkErr
}

func (b *stubBackend) HandleEvent(h agent.HostEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, h)
	return b.eventErr
}

func (b *stubBackend) Status() agent.Status {
	return agent.Status{ClientID: "client-1", Processing: true}
}

type stubConsole struct {
	bound   bool
	pins    []string
	actions []string
	logs    []clientlog.Message
}

func (c *stubConsole) SubmitPIN(pin string) bool {
	c.pins = append(c.pins, pin)
	return c.bound
}

func (c *stubConsole) Cancel() bool {
	c.actions = append(c.actions, "cancel")
	return c.bound
}

func (c *stubConsole) Disconnect() bool {
	c.actions = append(c.actions, "disconnect")
	return c.bound
}

func (c *stubConsole) ClientLogs(floor clientlog.Visibility) []clientlog.Message {
	var out []clientlog.Message
	for _, m := range c.logs {
		if m.Visibility >= floor {
			out = append(out, m)
		}
	}
	return out
}

func (c *stubConsole) View() presentation.View {
	return presentation.View{StatusVisible: true, Connected: c.bound}
}

func newTestServer(t *testing.T, b Backend, c Console) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, err := New(Config{}, b, c)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	var decoded map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded), rr.Body.String())
	}
	return rr, decoded
}

func TestNewRequiresBackend(t *testing.T) {
	testlog.Start(t)
	_, err := New(Config{}, nil, nil)
	assert.ErrorIs(t, err, ErrMissingBackend)
}

func TestHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, &stubBackend{}, nil)

	rr, body := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])

	rr, _ = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "assurance_http_requests_total")
}

func TestStatusIncludesViewWhenConsoleBound(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, &stubBackend{}, &stubConsole{bound: true})

	rr, body := do(t, s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	agentBody, ok := body["agent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "client-1", agentBody["clientId"])
	view, ok := body["view"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, view["connected"])

	s = newTestServer(t, &stubBackend{}, nil)
	_, body = do(t, s, http.MethodGet, "/status", nil)
	assert.NotContains(t, body, "view")
}

func TestLogsFilterByVisibility(t *testing.T) {
	testlog.Start(t)
	console := &stubConsole{logs: []clientlog.Message{
		{Visibility: clientlog.Low, Text: "low"},
		{Visibility: clientlog.Normal, Text: "normal"},
		{Visibility: clientlog.High, Text: "high"},
	}}
	s := newTestServer(t, &stubBackend{}, console)

	_, body := do(t, s, http.MethodGet, "/logs", nil)
	assert.Len(t, body["logs"], 3)

	_, body = do(t, s, http.MethodGet, "/logs?visibility=high", nil)
	logsOut, ok := body["logs"].([]any)
	require.True(t, ok)
	require.Len(t, logsOut, 1)
	assert.Equal(t, map[string]any{"visibility": "high", "text": "high"}, logsOut[0])

	s = newTestServer(t, &stubBackend{}, nil)
	_, body = do(t, s, http.MethodGet, "/logs", nil)
	assert.Equal(t, []any{}, body["logs"])
}

func TestDeepLinkRoute(t *testing.T) {
	testlog.Start(t)
	b := &stubBackend{}
	s := newTestServer(t, b, nil)

	rr, _ := do(t, s, http.MethodPost, "/deeplink", deepLinkRequest{URL: "app://x?adb_validation_sessionid=abc"})
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, []string{"app://x?adb_validation_sessionid=abc"}, b.deepLinks)

	rr, _ = do(t, s, http.MethodPost, "/deeplink", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	b.linkErr = fmt.Errorf("%w: missing id", session.ErrInvalidDeepLink)
	rr, body := do(t, s, http.MethodPost, "/deeplink", deepLinkRequest{URL: "app://x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, body["error"], "invalid deep link")
}

func TestEventsRoute(t *testing.T) {
	testlog.Start(t)
	b := &stubBackend{}
	s := newTestServer(t, b, nil)

	rr, _ := do(t, s, http.MethodPost, "/events", agent.HostEvent{
		Name:   "Track",
		Type:   "com.adobe.eventType.generic.track",
		Source: "com.adobe.eventSource.requestContent",
		Data:   map[string]any{"action": "tap"},
	})
	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, b.events, 1)
	assert.Equal(t, "Track", b.events[0].Name)
	assert.Equal(t, "tap", b.events[0].Data["action"])

	b.eventErr = agent.ErrNotProcessing
	rr, _ = do(t, s, http.MethodPost, "/events", agent.HostEvent{Name: "late"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestConsoleActions(t *testing.T) {
	testlog.Start(t)
	console := &stubConsole{}
	s := newTestServer(t, &stubBackend{}, console)

	rr, _ := do(t, s, http.MethodPost, "/pin", pinRequest{PIN: "1234"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	console.bound = true
	rr, _ = do(t, s, http.MethodPost, "/pin", pinRequest{PIN: "5678"})
	assert.Equal(t, http.StatusAccepted, rr.Code)
	rr, _ = do(t, s, http.MethodPost, "/cancel", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	rr, _ = do(t, s, http.MethodPost, "/disconnect", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)

	assert.Equal(t, []string{"1234", "5678"}, console.pins)
	assert.Equal(t, []string{"cancel", "disconnect"}, console.actions)

	s = newTestServer(t, &stubBackend{}, nil)
	rr, _ = do(t, s, http.MethodPost, "/disconnect", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, &stubBackend{}, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop")
	}
}
