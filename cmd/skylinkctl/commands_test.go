package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeAPI records requests and answers from a route table keyed by
// "METHOD path".
type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: path, Body: string(body)})
	route, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":404,"code":"not_found","message":"no route"}`))
		return
	}
	route(w)
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func jsonRoute(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands_Requests(t *testing.T) {
	ok := jsonRoute(http.StatusOK, `{"ok":true}`)
	noContent := func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }
	api := &fakeAPI{routes: map[string]func(http.ResponseWriter){
		"GET /api/v1/status":                      ok,
		"GET /api/v1/health":                      ok,
		"GET /api/v1/metrics":                     ok,
		"GET /api/v1/mode":                        ok,
		"PUT /api/v1/mode":                        ok,
		"GET /api/v1/handedness":                  ok,
		"PUT /api/v1/handedness":                  ok,
		"POST /api/v1/handedness/toggle":          ok,
		"POST /api/v1/ready":                      ok,
		"GET /api/v1/shots/last":                  ok,
		"POST /api/v1/shots/last/replay":          func(w http.ResponseWriter) { w.WriteHeader(http.StatusAccepted) },
		"POST /api/v1/link/disconnect":            noContent,
		"POST /api/v1/link/refresh":               noContent,
		"POST /api/v1/link/reset":                 noContent,
		"GET /api/v1/diagnostics/classifications": ok,
	}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	tests := []struct {
		args []string
		want recordedRequest
	}{
		{[]string{"status"}, recordedRequest{"GET", "/api/v1/status", ""}},
		{[]string{"health"}, recordedRequest{"GET", "/api/v1/health", ""}},
		{[]string{"metrics"}, recordedRequest{"GET", "/api/v1/metrics", ""}},
		{[]string{"mode"}, recordedRequest{"GET", "/api/v1/mode", ""}},
		{[]string{"mode", "putting"}, recordedRequest{"PUT", "/api/v1/mode", `{"mode":"putting"}`}},
		{[]string{"handedness"}, recordedRequest{"GET", "/api/v1/handedness", ""}},
		{[]string{"handedness", "left"}, recordedRequest{"PUT", "/api/v1/handedness", `{"handedness":"left"}`}},
		{[]string{"handedness", "toggle"}, recordedRequest{"POST", "/api/v1/handedness/toggle", ""}},
		{[]string{"ready"}, recordedRequest{"POST", "/api/v1/ready", ""}},
		{[]string{"shot", "last"}, recordedRequest{"GET", "/api/v1/shots/last", ""}},
		{[]string{"shot", "replay"}, recordedRequest{"POST", "/api/v1/shots/last/replay", ""}},
		{[]string{"link", "disconnect"}, recordedRequest{"POST", "/api/v1/link/disconnect", ""}},
		{[]string{"link", "refresh"}, recordedRequest{"POST", "/api/v1/link/refresh", ""}},
		{[]string{"link", "reset"}, recordedRequest{"POST", "/api/v1/link/reset", ""}},
		{[]string{"classifications"}, recordedRequest{"GET", "/api/v1/diagnostics/classifications", ""}},
		{[]string{"classifications", "-n", "5"}, recordedRequest{"GET", "/api/v1/diagnostics/classifications?limit=5", ""}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			if _, err := runCLI(t, srv, tt.args...); err != nil {
				t.Fatalf("execute: %v", err)
			}
			got := api.last()
			got.Body = strings.TrimSpace(got.Body)
			if got != tt.want {
				t.Errorf("request = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCommands_Output(t *testing.T) {
	api := &fakeAPI{routes: map[string]func(http.ResponseWriter){
		"GET /api/v1/status":        jsonRoute(http.StatusOK, `{"connected":true,"mode":"normal"}`),
		"POST /api/v1/link/refresh": func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) },
	}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	out, err := runCLI(t, srv, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if want := "{\n  \"connected\": true,\n  \"mode\": \"normal\"\n}\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	out, err = runCLI(t, srv, "link", "refresh")
	if err != nil {
		t.Fatalf("link refresh: %v", err)
	}
	if out != "ok\n" {
		t.Errorf("output = %q, want ok", out)
	}
}

func TestCommands_APIError(t *testing.T) {
	api := &fakeAPI{routes: map[string]func(http.ResponseWriter){
		"POST /api/v1/link/reset": jsonRoute(http.StatusBadGateway, `{"status":502,"code":"device_error","message":"command timed out"}`),
		"GET /api/v1/shots/last":  jsonRoute(http.StatusNotFound, `not json`),
	}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := runCLI(t, srv, "link", "reset")
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *apiError", err)
	}
	if apiErr.Code != "device_error" || apiErr.Message != "command timed out" {
		t.Errorf("apiError = %+v", apiErr)
	}

	_, err = runCLI(t, srv, "shot", "last")
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "not json" {
		t.Errorf("error = %v, want 404 with raw body", err)
	}
}

func TestCommands_ArgValidation(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{})
	defer srv.Close()

	if _, err := runCLI(t, srv, "mode", "normal", "putting"); err == nil {
		t.Error("mode with two args should fail")
	}
	if _, err := runCLI(t, srv, "status", "extra"); err == nil {
		t.Error("status with an argument should fail")
	}
}

func TestNewClient_InvalidServer(t *testing.T) {
	for _, server := range []string{"", "127.0.0.1:8420", "://bad"} {
		if _, err := newClient(server, defaultTimeout); err == nil {
			t.Errorf("newClient(%q) succeeded, want error", server)
		}
	}
}

func TestClient_WSURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://127.0.0.1:8420", "ws://127.0.0.1:8420/api/v1/ws"},
		{"https://bay.local/", "wss://bay.local/api/v1/ws"},
	}
	for _, tt := range tests {
		c, err := newClient(tt.server, defaultTimeout)
		if err != nil {
			t.Fatalf("newClient(%q): %v", tt.server, err)
		}
		if got := c.wsURL("/ws"); got != tt.want {
			t.Errorf("wsURL(%q) = %q, want %q", tt.server, got, tt.want)
		}
	}
}

func TestEvents_Stream(t *testing.T) {
	subscribed := make(chan []string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub struct {
			Type    string `json:"type"`
			Payload struct {
				Channels []string `json:"channels"`
			} `json:"payload"`
		}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub.Payload.Channels

		frames := []string{
			`{"type":"response","id":"skylinkctl","payload":{"subscribed":["shot_received"]}}`,
			`{"type":"event","event":"armed","payload":{"event":"armed"}}`,
			`{"type":"event","event":"shot_received","payload":{"replay":false}}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection until the client leaves.
		conn.ReadMessage() //nolint:errcheck // test
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "events", "--event", "armed,shot_received", "--count", "2")
	if err != nil {
		t.Fatalf("events: %v", err)
	}

	channels := <-subscribed
	if strings.Join(channels, ",") != "armed,shot_received" {
		t.Errorf("subscribed channels = %v", channels)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d (%q), want 2", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "armed ") || !strings.HasPrefix(lines[1], "shot_received ") {
		t.Errorf("output = %q", out)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "shot_received ")), &payload); err != nil {
		t.Errorf("payload not JSON: %v", err)
	}
}
