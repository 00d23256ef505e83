package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/VenB304/fabric-simple-webchat/internal/auth"
	"github.com/VenB304/fabric-simple-webchat/internal/history"
	"github.com/VenB304/fabric-simple-webchat/internal/moderation"
	"github.com/VenB304/fabric-simple-webchat/internal/storage"
)

type staticRegistry struct {
	users []string
	count int
}

func (r *staticRegistry) WebUsers() []string { return r.users }
func (r *staticRegistry) Count() int         { return r.count }

func newTestServer(t *testing.T) (*Server, *moderation.BanSet) {
	t.Helper()
	dir := t.TempDir()
	queue := storage.NewQueue(16)
	t.Cleanup(queue.Close)

	bans := moderation.NewBanSet(filepath.Join(dir, "bans.json"), queue)
	sessions := auth.NewSessionStore(filepath.Join(dir, "sessions.json"), queue)
	hist := history.NewLog(50, 30*time.Minute)
	registry := &staticRegistry{users: []string{"alice"}, count: 2}

	return NewServer("sekrit", bans, sessions, hist, registry), bans
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/api/bans", "/api/bans/1.2.3.4", "/api/status"} {
		if rec := do(t, s, http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status %d, want 401", path, rec.Code)
		}
		if rec := do(t, s, http.MethodGet, path, "wrong", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s with wrong token: status %d, want 401", path, rec.Code)
		}
	}
}

func TestBanLifecycle(t *testing.T) {
	s, bans := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/bans", "sekrit", `{"ip":"1.2.3.4"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("ban: status %d, body %s", rec.Code, rec.Body)
	}
	if !bans.IsBanned("1.2.3.4") {
		t.Fatal("IP not banned after POST")
	}

	rec = do(t, s, http.MethodGet, "/api/bans", "sekrit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list banListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Bans) != 1 || list.Bans[0] != "1.2.3.4" {
		t.Errorf("list = %v", list.Bans)
	}

	rec = do(t, s, http.MethodDelete, "/api/bans/1.2.3.4", "sekrit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unban: status %d", rec.Code)
	}
	if bans.IsBanned("1.2.3.4") {
		t.Error("IP still banned after DELETE")
	}
}

func TestBanValidation(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodPost, "/api/bans", "sekrit", `{"ip":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty IP: status %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/bans", "sekrit", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: status %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/api/bans", "sekrit", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT: status %d, want 405", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	s, bans := newTestServer(t)
	bans.Ban("9.9.9.9")

	rec := do(t, s, http.MethodGet, "/api/status", "sekrit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var status statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Connections != 2 {
		t.Errorf("connections = %d, want 2", status.Connections)
	}
	if len(status.WebUsers) != 1 || status.WebUsers[0] != "alice" {
		t.Errorf("webUsers = %v", status.WebUsers)
	}
	if status.Bans != 1 {
		t.Errorf("bans = %d, want 1", status.Bans)
	}
}
