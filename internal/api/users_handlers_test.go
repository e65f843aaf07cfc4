package api

import (
	"fmt"
	"net/http"
	"testing"

	"itspace/internal/models"
)

func TestUsersCollectionRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	forbidden := env.doAs(t, env.member, http.MethodGet, "/api/users", nil, env.handler.Users)
	if forbidden.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", forbidden.Code)
	}

	listed := env.doAs(t, env.admin, http.MethodGet, "/api/users", nil, env.handler.Users)
	if listed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listed.Code)
	}
	var users []userResponse
	decodeEnvelope(t, listed, &users)
	if len(users) != 2 {
		t.Fatalf("expected seeded users, got %d", len(users))
	}
}

func TestCreateUserAsAdmin(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"name":     "Mentor",
		"email":    "mentor@example.com",
		"password": "mentor-secret-1",
		"role":     "MENTOR",
	}
	created := env.doAs(t, env.admin, http.MethodPost, "/api/users", body, env.handler.Users)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var user userResponse
	decodeEnvelope(t, created, &user)
	if user.Role != models.RoleMentor {
		t.Fatalf("expected mentor role, got %q", user.Role)
	}

	duplicate := env.doAs(t, env.admin, http.MethodPost, "/api/users", body, env.handler.Users)
	if duplicate.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate email, got %d", duplicate.Code)
	}
}

func TestUserByIDLifecycle(t *testing.T) {
	env := newTestEnv(t)

	target := fmt.Sprintf("/api/users/%d", env.member.ID)
	fetched := env.doAs(t, env.admin, http.MethodGet, target, nil, env.handler.UserByID)
	if fetched.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", fetched.Code)
	}

	role := models.RoleMentor
	patched := env.doAs(t, env.admin, http.MethodPatch, target, map[string]any{"role": role}, env.handler.UserByID)
	if patched.Code != http.StatusOK {
		t.Fatalf("expected 200 on patch, got %d: %s", patched.Code, patched.Body.String())
	}
	var user userResponse
	decodeEnvelope(t, patched, &user)
	if user.Role != models.RoleMentor {
		t.Fatalf("expected promoted role, got %q", user.Role)
	}

	badID := env.doAs(t, env.admin, http.MethodGet, "/api/users/abc", nil, env.handler.UserByID)
	if badID.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", badID.Code)
	}

	deleted := env.doAs(t, env.admin, http.MethodDelete, target, nil, env.handler.UserByID)
	if deleted.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", deleted.Code)
	}
	missing := env.doAs(t, env.admin, http.MethodGet, target, nil, env.handler.UserByID)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", missing.Code)
	}
}
