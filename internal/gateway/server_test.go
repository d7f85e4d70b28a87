package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sshConsole/internal/api"
	"sshConsole/internal/models"
	"sshConsole/internal/session"
	"sshConsole/internal/ssh/sshtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "gate-token"

func newTestGateway(t *testing.T, servers []models.Server) (*httptest.Server, *Manager) {
	t.Helper()
	m := newTestManager(t, 0)
	srv := NewServer(ServerConfig{Manager: m, Token: testToken, Servers: servers})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, m
}

func newGatewayClient(t *testing.T, ts *httptest.Server) *api.Client {
	t.Helper()
	client, err := api.NewClient(api.ClientConfig{BaseURL: ts.URL, Token: testToken})
	require.NoError(t, err)
	return client
}

func doRequest(t *testing.T, method, url, token string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeDetail(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["detail"]
}

func TestHealthNeedsNoToken(t *testing.T) {
	ts, _ := newTestGateway(t, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresToken(t *testing.T) {
	ts, _ := newTestGateway(t, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/servers", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authentication required", decodeDetail(t, resp))

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/servers", "other", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/servers", testToken, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmptyTokenDisablesAuth(t *testing.T) {
	m := newTestManager(t, 0)
	ts := httptest.NewServer(NewServer(ServerConfig{Manager: m}).Router())
	defer ts.Close()

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/servers", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListServers(t *testing.T) {
	servers := []models.Server{{Name: "gpu-01", IP: "10.0.0.5", Port: 22, Username: "root"}}
	ts, _ := newTestGateway(t, servers)

	got, err := newGatewayClient(t, ts).ListServers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, servers, got)
}

func TestListServersEmpty(t *testing.T) {
	ts, _ := newTestGateway(t, nil)

	got, err := newGatewayClient(t, ts).ListServers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenSessionBadRequest(t *testing.T) {
	ts, _ := newTestGateway(t, nil)
	url := ts.URL + "/api/v1/ssh/sessions"

	resp := doRequest(t, http.MethodPost, url, testToken, "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, url, testToken, `{"host":"h"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "target username is required", decodeDetail(t, resp))
}

func TestOpenSessionAuthFailure(t *testing.T) {
	server := sshtest.NewServer(t)
	ts, m := newTestGateway(t, nil)
	target := testTarget(server)
	target.Password = "wrong"

	_, err := newGatewayClient(t, ts).OpenSession(context.Background(), target)
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusBadGateway))
	assert.Contains(t, err.Error(), "ssh handshake")
	assert.Zero(t, m.Count())
}

func TestUnknownSessionEndpoints(t *testing.T) {
	ts, _ := newTestGateway(t, nil)
	client := newGatewayClient(t, ts)
	ctx := context.Background()

	result, err := client.PollOutput(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, result.Connected)

	err = client.SendCommand(ctx, "missing", "ls")
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	_, err = client.ListFiles(ctx, "missing", "/")
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	resp := doRequest(t, http.MethodDelete, ts.URL+"/api/v1/ssh/sessions/missing", testToken, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDownloadErrors(t *testing.T) {
	server := sshtest.NewServer(t)
	ts, _ := newTestGateway(t, nil)
	client := newGatewayClient(t, ts)
	ctx := context.Background()

	id, err := client.OpenSession(ctx, testTarget(server))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = client.DownloadFile(ctx, id, "", &buf)
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	_, err = client.DownloadFile(ctx, id, filepath.Join(t.TempDir(), "absent"), &buf)
	assert.True(t, api.IsStatus(err, http.StatusBadGateway))
	assert.Zero(t, buf.Len())
}

func TestDownloadSetsAttachmentHeaders(t *testing.T) {
	server := sshtest.NewServer(t)
	ts, _ := newTestGateway(t, nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.csv"), []byte("a,b\n"), 0644))

	id, err := newGatewayClient(t, ts).OpenSession(context.Background(), testTarget(server))
	require.NoError(t, err)

	resp := doRequest(t, http.MethodGet,
		ts.URL+"/api/v1/ssh/sessions/"+id+"/files/content?path="+filepath.Join(dir, "report.csv"), testToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.csv"`, resp.Header.Get("Content-Disposition"))
}

// TestConsoleThroughGateway drives a polling session against the gateway
// and a real SSH server.
func TestConsoleThroughGateway(t *testing.T) {
	server := sshtest.NewServer(t)
	ts, m := newTestGateway(t, nil)
	client := newGatewayClient(t, ts)

	s := session.New(session.Config{Backend: client, PollInterval: 10 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, s.Open(ctx, testTarget(server)))
	assert.Equal(t, session.StateConnected, s.State())
	assert.Equal(t, 1, m.Count())

	waitFor := func(want string) {
		t.Helper()
		require.Eventually(t, func() bool {
			return strings.Contains(s.Transcript(), want)
		}, 5*time.Second, 5*time.Millisecond, "waiting for %q in %q", want, s.Transcript())
	}

	waitFor("ready\n")
	require.NoError(t, s.Submit(ctx, "uptime"))
	waitFor("$ uptime")
	waitFor("echo:uptime\n")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("payload"), 0644))
	files, err := client.ListFiles(ctx, s.SessionID(), dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "data.txt", files[0].Name)

	var buf bytes.Buffer
	n, err := client.DownloadFile(ctx, s.SessionID(), filepath.Join(dir, "data.txt"), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", buf.String())

	require.NoError(t, s.Submit(ctx, "exit"))
	require.Eventually(t, func() bool {
		return s.State() == session.StateDisconnected
	}, 5*time.Second, 5*time.Millisecond)
	waitFor("logout\n")
	waitFor("Connection closed")
	assert.Empty(t, s.SessionID())
	assert.Zero(t, m.Count())

	assert.NoError(t, s.Close(ctx))
	assert.Equal(t, []string{"uptime", "exit"}, s.History())
}

func TestConsoleCloseTearsDownGatewaySession(t *testing.T) {
	server := sshtest.NewServer(t)
	ts, m := newTestGateway(t, nil)

	s := session.New(session.Config{Backend: newGatewayClient(t, ts), PollInterval: 10 * time.Millisecond})
	require.NoError(t, s.Open(context.Background(), testTarget(server)))
	require.Equal(t, 1, m.Count())

	require.NoError(t, s.Close(context.Background()))
	assert.Zero(t, m.Count())
	assert.Contains(t, s.Transcript(), "Connected to "+server.Host)
}

func TestConsoleOpenFailureThroughGateway(t *testing.T) {
	server := sshtest.NewServer(t)
	ts, _ := newTestGateway(t, nil)
	target := testTarget(server)
	target.Password = "wrong"

	s := session.New(session.Config{Backend: newGatewayClient(t, ts)})
	err := s.Open(context.Background(), target)
	require.Error(t, err)
	assert.Equal(t, session.StateDisconnected, s.State())
	assert.Contains(t, s.Transcript(), "Connection failed: ")
}
