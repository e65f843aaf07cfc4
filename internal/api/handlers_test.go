package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"itspace/internal/auth"
	"itspace/internal/models"
	"itspace/internal/storage"
)

type testEnv struct {
	handler *Handler
	store   *storage.Storage
	admin   models.User
	member  models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	admin, err := store.CreateUser(storage.CreateUserParams{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: "admin-secret-1",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	member, err := store.CreateUser(storage.CreateUserParams{
		Name:     "Member",
		Email:    "member@example.com",
		Password: "member-secret-1",
		Role:     models.RoleMember,
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	handler := NewHandler(store, auth.NewSessionManager(time.Hour))
	handler.AllowSelfSignup = true
	return &testEnv{handler: handler, store: store, admin: admin, member: member}
}

// doAs issues a request with the given user already resolved, the way the
// server's auth middleware would hand it to the handler.
func (env *testEnv) doAs(t *testing.T, user models.User, method, target string, body any, handlerFunc http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(ContextWithUser(req.Context(), user))

	recorder := httptest.NewRecorder()
	handlerFunc(recorder, req)
	return recorder
}

// doRawUnauthenticated issues a request without a resolved user, as the
// middleware does for public routes.
func (env *testEnv) doRawUnauthenticated(t *testing.T, method, target string, body any, handlerFunc http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	handlerFunc(recorder, req)
	return recorder
}

func (env *testEnv) doRaw(t *testing.T, method, target, body string, handlerFunc http.HandlerFunc, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(ContextWithUser(req.Context(), *user))
	}

	recorder := httptest.NewRecorder()
	handlerFunc(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder, data any) envelope {
	t.Helper()

	var raw struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, recorder.Body.String())
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode envelope data: %v", err)
		}
	}
	return envelope{Success: raw.Success, Message: raw.Message}
}

func TestHealthReportsComponents(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	env.handler.Health(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var body struct {
		Status     string `json:"status"`
		Components []struct {
			Component string `json:"component"`
			Status    string `json:"status"`
		} `json:"components"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("expected ok status, got %q", body.Status)
	}
	found := false
	for _, component := range body.Components {
		if component.Component == "datastore" && component.Status == "ok" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected healthy datastore component, got %+v", body.Components)
	}
}
