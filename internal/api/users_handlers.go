package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"itspace/internal/models"
	"itspace/internal/storage"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

// Users handles the user collection. Listing and creating accounts is an
// administrator concern.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		users := h.Store.ListUsers()
		responses := make([]userResponse, 0, len(users))
		for _, user := range users {
			responses = append(responses, newUserResponse(user))
		}
		writeSuccess(w, http.StatusOK, "users listed", responses)
	case http.MethodPost:
		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := h.Store.CreateUser(storage.CreateUserParams{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Role:     req.Role,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusCreated, "user created", newUserResponse(user))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// UserByID handles /api/users/{id}.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, errors.New("user not found"))
		return
	}
	id, err := parsePathID(rest, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, ok := h.Store.GetUser(id)
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("user not found"))
			return
		}
		writeSuccess(w, http.StatusOK, "user found", newUserResponse(user))
	case http.MethodPatch:
		var req updateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := h.Store.UpdateUser(id, storage.UserUpdate{
			Name:  req.Name,
			Email: req.Email,
			Role:  req.Role,
		})
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("user not found"))
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusOK, "user updated", newUserResponse(user))
	case http.MethodDelete:
		if err := h.Store.DeleteUser(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("user not found"))
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusOK, "user deleted", nil)
	default:
		w.Header().Set("Allow", "GET, PATCH, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
