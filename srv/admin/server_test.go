package admin

import (
	"context"
	"encoding/json"
	"github.com/ValentinKolb/lsrv/lib/reqlog"
	"github.com/ValentinKolb/lsrv/srv/client"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/engine"
	"github.com/ValentinKolb/lsrv/srv/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func startLineServer(t *testing.T, mode common.ExecutorMode) *engine.Server {
	t.Helper()
	srv, err := engine.NewServer(common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Name:     "tcp",
			Endpoint: "127.0.0.1:0",
			TCPConf:  common.TCPConf{TCPLingerSec: -1},
		},
		Mode:     mode,
		Workers:  2,
		LogLevel: "error",
	}, tcp.NewServerConnector())
	require.NoError(t, err)
	require.NoError(t, srv.Listen())
	go func() { _ = srv.Serve(context.Background()) }()
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func send(t *testing.T, srv *engine.Server, lines ...string) *client.Client {
	t.Helper()
	c, err := client.Dial(common.ClientConfig{
		Transport:     "tcp",
		Endpoint:      srv.Addr().String(),
		TimeoutSecond: 5,
	}, tcp.NewClientConnector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	for _, line := range lines {
		_, err := c.Send(line)
		require.NoError(t, err)
	}
	return c
}

func get(t *testing.T, ts *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestLog(t *testing.T) {
	srv := startLineServer(t, common.ModePool)
	send(t, srv, "5", "10 / 4")

	ts := httptest.NewServer(New(srv, true).Handler())
	defer ts.Close()

	status, body := get(t, ts, "/log")
	require.Equal(t, http.StatusOK, status)

	var entries []reqlog.Entry
	require.NoError(t, json.Unmarshal(body, &entries))
	assert.Equal(t, []reqlog.Entry{
		{Seq: 1, Request: "5", Result: "Factorial: 120"},
		{Seq: 2, Request: "10 / 4", Result: "2.50"},
	}, entries)
}

func TestLogNotFoundWithoutSharedLog(t *testing.T) {
	srv := startLineServer(t, common.ModeLoop)

	ts := httptest.NewServer(New(srv, false).Handler())
	defer ts.Close()

	status, _ := get(t, ts, "/log")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetrics(t *testing.T) {
	srv := startLineServer(t, common.ModeThreaded)
	send(t, srv, "5 * 7")

	ts := httptest.NewServer(New(srv, false).Handler())
	defer ts.Close()

	status, body := get(t, ts, "/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `lsrv_requests_total{mode="threaded",kind="arithmetic"} 1`)
	assert.Contains(t, string(body), `lsrv_sessions_active{mode="threaded"}`)
}

func TestSessions(t *testing.T) {
	srv := startLineServer(t, common.ModeLoop)
	send(t, srv, "1 + 1")

	ts := httptest.NewServer(New(srv, false).Handler())
	defer ts.Close()

	require.Eventually(t, func() bool { return srv.ActiveSessions() == 1 }, time.Second, 10*time.Millisecond)

	status, body := get(t, ts, "/sessions")
	require.Equal(t, http.StatusOK, status)

	var sessions []engine.SessionInfo
	require.NoError(t, json.Unmarshal(body, &sessions))
	require.Len(t, sessions, 1)
	assert.NotEmpty(t, sessions[0].ID)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := startLineServer(t, common.ModeLoop)

	ts := httptest.NewServer(New(srv, false).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
