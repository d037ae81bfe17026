package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/frank005/broadcastaway-sub000/internal/app/orch"
	"github.com/frank005/broadcastaway-sub000/internal/config"
)

func testRouter() http.Handler {
	cfg := &config.Config{Mode: "release", Secret: "test-secret", CanvasWidth: 1280, CanvasHeight: 720}
	return SetupRouter(cfg, orch.New(orch.Deps{CanvasW: 1280, CanvasH: 720}))
}

func TestStateBeforeJoin(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Role         string `json:"role"`
		Participants []any  `json:"participants"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Role != "audience" {
		t.Fatalf("role %q before join", body.Role)
	}
	if len(body.Participants) != 0 {
		t.Fatalf("participants before join: %v", body.Participants)
	}
}

func TestJoinRequiresChannel(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/join", strings.NewReader(`{"name":"Alice"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d for missing channel", w.Code)
	}
}

func TestPromoteRequiresTarget(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/stage/promote", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d for missing target", w.Code)
	}
}

func TestClientTokenCookie(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "ct" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("client token cookie not set")
	}
}
