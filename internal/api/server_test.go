package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/baitline/baitline/internal/agent"
	"github.com/baitline/baitline/internal/engine"
	"github.com/baitline/baitline/internal/session"
	"github.com/baitline/baitline/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestServer backs the API with the fallback-only pipeline, so no
// request ever leaves the process.
func newTestServer(t *testing.T, apiToken string) *Server {
	t.Helper()
	sessions := session.NewStore()
	orch := agent.New(nil, nil, 250, time.Second, testLogger)
	orch.SetRand(rand.New(rand.NewSource(1)))

	archive, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { archive.Close() })

	eng := engine.New(sessions, orch, nil, archive, nil, testLogger)
	eng.SetRand(rand.New(rand.NewSource(1)))
	return NewServer(8780, apiToken, eng, sessions, archive, nil, testLogger)
}

func doJSON(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := doJSON(t, srv, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestMessageEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := doJSON(t, srv, "POST", "/api/v1/message", "",
		`{"sessionId":"m1","message":"Your bank account is blocked, share OTP to verify"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}

	var reply engine.Reply
	if err := json.NewDecoder(w.Body).Decode(&reply); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if reply.SessionID != "m1" || reply.Status != engine.StatusActive {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.Reply == "" {
		t.Fatal("empty reply text")
	}
	if !reply.ScamDetected {
		t.Fatal("obvious scam not flagged")
	}
}

func TestMessageGeneratesSessionID(t *testing.T) {
	srv := newTestServer(t, "")

	w := doJSON(t, srv, "POST", "/api/v1/message", "", `{"message":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var reply engine.Reply
	json.NewDecoder(w.Body).Decode(&reply)
	if reply.SessionID == "" {
		t.Fatal("no session id generated")
	}
}

func TestMessageValidation(t *testing.T) {
	srv := newTestServer(t, "")

	if w := doJSON(t, srv, "POST", "/api/v1/message", "", `{"message":"  "}`); w.Code != http.StatusBadRequest {
		t.Errorf("blank message: expected 400, got %d", w.Code)
	}
	if w := doJSON(t, srv, "POST", "/api/v1/message", "", `{bad json`); w.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, "secret-token")

	if w := doJSON(t, srv, "POST", "/api/v1/message", "", `{"message":"hi"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}
	if w := doJSON(t, srv, "POST", "/api/v1/message", "wrong", `{"message":"hi"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", w.Code)
	}
	if w := doJSON(t, srv, "POST", "/api/v1/message", "secret-token", `{"message":"hi"}`); w.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d", w.Code)
	}

	// Health stays open for probes.
	if w := doJSON(t, srv, "GET", "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("health with auth enabled: expected 200, got %d", w.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	doJSON(t, srv, "POST", "/api/v1/message", "",
		`{"sessionId":"view-me","message":"lottery winner! claim your prize, pay the fee"}`)

	w := doJSON(t, srv, "GET", "/api/v1/sessions/view-me", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var view SessionView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.SessionID != "view-me" || view.MessageCount != 2 {
		t.Fatalf("view = %+v", view)
	}
	if view.Persona == "" {
		t.Fatal("snapshot missing persona")
	}

	if w := doJSON(t, srv, "GET", "/api/v1/sessions/unknown", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown session: expected 404, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	doJSON(t, srv, "POST", "/api/v1/message", "", `{"sessionId":"s1","message":"hello"}`)

	w := doJSON(t, srv, "GET", "/api/v1/stats", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp statsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ActiveSessions != 1 {
		t.Fatalf("ActiveSessions = %d", resp.ActiveSessions)
	}
	if resp.Archive == nil {
		t.Fatal("archive stats missing")
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := doJSON(t, srv, "GET", "/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
