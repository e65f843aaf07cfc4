package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"itspace/internal/models"
	"itspace/internal/storage"
)

type createCategoryRequest struct {
	Name string `json:"name"`
}

type categoryResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

func newCategoryResponse(category models.Category) categoryResponse {
	return categoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		CreatedAt: category.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Categories handles the category collection. Any authenticated user can
// browse categories; only administrators create them.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedUser(w, r); !ok {
			return
		}
		categories := h.Store.ListCategories()
		responses := make([]categoryResponse, 0, len(categories))
		for _, category := range categories {
			responses = append(responses, newCategoryResponse(category))
		}
		writeSuccess(w, http.StatusOK, "categories listed", responses)
	case http.MethodPost:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		var req createCategoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := h.Store.CreateCategory(req.Name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusCreated, "category created", newCategoryResponse(category))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// CategoryByID handles /api/categories/{id}.
func (h *Handler) CategoryByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/categories/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, errors.New("category not found"))
		return
	}
	id, err := parsePathID(rest, "category")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedUser(w, r); !ok {
			return
		}
		category, ok := h.Store.GetCategory(id)
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("category not found"))
			return
		}
		writeSuccess(w, http.StatusOK, "category found", newCategoryResponse(category))
	case http.MethodDelete:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		if err := h.Store.DeleteCategory(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("category not found"))
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusOK, "category deleted", nil)
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
