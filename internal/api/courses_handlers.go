package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"itspace/internal/models"
	"itspace/internal/storage"
)

type courseRequest struct {
	Code         string             `json:"code"`
	Title        string             `json:"title"`
	Price        models.Price       `json:"price"`
	Level        models.CourseLevel `json:"level"`
	IsPremium    *bool              `json:"isPremium"`
	Description  string             `json:"description"`
	GroupURL     string             `json:"groupUrl"`
	ThumbnailURL string             `json:"thumbnailUrl"`
	Category     []string           `json:"courseCategory"`
	Mentor       []string           `json:"mentorEmail"`
}

const (
	courseTitleMaxRunes       = 60
	courseDescriptionMaxRunes = 1024
)

func (req courseRequest) validate() error {
	// Empty association lists are valid input; only absent lists are not.
	if req.Code == "" || req.Title == "" || !req.Price.Positive() ||
		req.Level == "" || req.Description == "" || req.GroupURL == "" ||
		req.Category == nil || req.Mentor == nil {
		return errors.New("code, title, price, level, description, groupUrl, courseCategory, and mentorEmail are required")
	}
	if req.IsPremium == nil {
		return errors.New("isPremium must be true or false")
	}
	if !req.Level.Valid() {
		return errors.New("level must be one of BEGINNER, INTERMEDIATE, ADVANCED")
	}
	if len([]rune(req.Description)) > courseDescriptionMaxRunes {
		return fmt.Errorf("description must be at most %d characters", courseDescriptionMaxRunes)
	}
	if len([]rune(req.Title)) > courseTitleMaxRunes {
		return fmt.Errorf("title must be at most %d characters", courseTitleMaxRunes)
	}
	return nil
}

func (req courseRequest) params() storage.CourseParams {
	return storage.CourseParams{
		Code:         req.Code,
		Title:        req.Title,
		Price:        req.Price,
		Level:        req.Level,
		IsPremium:    *req.IsPremium,
		Description:  req.Description,
		GroupURL:     req.GroupURL,
		ThumbnailURL: req.ThumbnailURL,
		Categories:   req.Category,
		Mentors:      req.Mentor,
	}
}

// Courses handles the course collection. Browsing is open to any
// authenticated user; creating courses requires the administrator role.
func (h *Handler) Courses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedUser(w, r); !ok {
			return
		}
		records, err := h.Store.ListCourses(r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeSuccess(w, http.StatusOK, "courses listed", newCourseResponses(records))
	case http.MethodPost:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		var req courseRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		record, err := h.Store.CreateCourse(req.params())
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusCreated, "course created", newCourseResponse(record))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// CourseByID routes /api/courses/{id} and the nested chapter resources
// beneath it.
func (h *Handler) CourseByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/courses/")
	if rest == "" {
		writeError(w, http.StatusNotFound, errors.New("course not found"))
		return
	}

	segments := strings.Split(strings.Trim(rest, "/"), "/")
	id, err := parsePathID(segments[0], "course")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch {
	case len(segments) == 1:
		h.handleCourse(w, r, id)
	case len(segments) == 2 && segments[1] == "chapters":
		h.handleChapters(w, r, id)
	case len(segments) == 3 && segments[1] == "chapters":
		chapterID, err := parsePathID(segments[2], "chapter")
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.handleChapter(w, r, id, chapterID)
	default:
		writeError(w, http.StatusNotFound, errors.New("course not found"))
	}
}

func (h *Handler) handleCourse(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedUser(w, r); !ok {
			return
		}
		record, err := h.Store.GetCourse(id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("course not found"))
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeSuccess(w, http.StatusOK, "course found", newCourseResponse(record))
	case http.MethodPut:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		var req courseRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		record, err := h.Store.UpdateCourse(id, req.params())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("course not found"))
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusCreated, "course updated", newCourseResponse(record))
	case http.MethodDelete:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		if err := h.Store.DeleteCourse(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("course not found"))
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusOK, "course deleted", nil)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
