package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, handler http.HandlerFunc, args ...string) (string, *http.Request, error) {
	t.Helper()

	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		handler(w, r)
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--server", srv.URL))
	err := cmd.Execute()
	return out.String(), got, err
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestListCommand(t *testing.T) {
	body := `[{"id":"0b6f2c1e-1111-2222-3333-444444444444","source_url":"https://youtu.be/dQw4w9WgXcQ",
		"platform":"youtube","kind":"audio","state":"done","fallback":true,"created_at":"2024-05-01T12:00:00Z"}]`

	out, req, err := runCLI(t, respond(http.StatusOK, body), "list", "--state", "done", "--kind", "audio", "--chat", "42")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/requests", req.URL.Path)
	assert.Equal(t, "done", req.URL.Query().Get("state"))
	assert.Equal(t, "audio", req.URL.Query().Get("kind"))
	assert.Equal(t, "42", req.URL.Query().Get("chat_id"))

	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "0b6f2...")
	assert.Contains(t, out, "audio*")
	assert.Contains(t, out, "https://youtu.be/dQw4w9WgXcQ")
}

func TestGetCommand(t *testing.T) {
	body := `{"id":"abc","source_url":"https://vk.com/video-1_2","platform":"vk","kind":"video",
		"state":"download_failed","error_message":"extraction failed: HTTP Error 403","created_at":"2024-05-01T12:00:00Z"}`

	out, req, err := runCLI(t, respond(http.StatusOK, body), "get", "abc")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/requests/abc", req.URL.Path)
	assert.Contains(t, out, "download_failed")
	assert.Contains(t, out, "HTTP Error 403")
}

func TestGetCommandNotFound(t *testing.T) {
	_, _, err := runCLI(t, respond(http.StatusNotFound, `{"error":"request not found"}`), "get", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request not found")
}

func TestStatsCommand(t *testing.T) {
	body := `{"total":10,"in_flight":1,"done":6,"failed":2,"cancelled":1,"fallbacks":3}`

	out, req, err := runCLI(t, respond(http.StatusOK, body), "stats")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/requests/stats", req.URL.Path)
	assert.Contains(t, out, "Total:      10")
	assert.Contains(t, out, "Fallbacks:  3")
}

func TestLogsCommand(t *testing.T) {
	body := `{"entries":[{"timestamp":"2024-05-01T12:00:00Z","level":"info","message":"search_results","category":"search","fields":{"query":"cats"}}]}`

	tests := []struct {
		name     string
		args     []string
		wantPath string
		wantOut  string
	}{
		{name: "read", args: []string{"logs", "search"}, wantPath: "/api/v1/logs/search", wantOut: `search_results {"query":"cats"}`},
		{name: "search", args: []string{"logs", "search", "-q", "cats"}, wantPath: "/api/v1/logs/search/search", wantOut: "search_results"},
		{name: "json", args: []string{"logs", "search", "--json"}, wantPath: "/api/v1/logs/search", wantOut: `"message": "search_results"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, req, err := runCLI(t, respond(http.StatusOK, body), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, req.URL.Path)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestLogsCommandRejectsUnknownCategory(t *testing.T) {
	_, req, err := runCLI(t, respond(http.StatusOK, `{}`), "logs", "queue")
	require.Error(t, err)
	assert.Nil(t, req, "no request is sent for an unknown category")
}

func TestHealthCommand(t *testing.T) {
	out, _, err := runCLI(t, respond(http.StatusOK, `{"status":"ok","version":"1.0.0","bot":{"running":true}}`), "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: ok (version 1.0.0, bot running: true)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 8))
	assert.Equal(t, "abcde...", truncate("abcdefghijkl", 8))
}
