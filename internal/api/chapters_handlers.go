package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"itspace/internal/models"
	"itspace/internal/storage"
)

type chapterRequest struct {
	Title     string `json:"title"`
	Position  int    `json:"position"`
	VideoURL  string `json:"videoUrl"`
	IsPreview bool   `json:"isPreview"`
}

type chapterResponse struct {
	ID        int64  `json:"id"`
	CourseID  int64  `json:"courseId"`
	Title     string `json:"title"`
	Position  int    `json:"position"`
	VideoURL  string `json:"videoUrl,omitempty"`
	IsPreview bool   `json:"isPreview"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func newChapterResponse(chapter models.Chapter) chapterResponse {
	return chapterResponse{
		ID:        chapter.ID,
		CourseID:  chapter.CourseID,
		Title:     chapter.Title,
		Position:  chapter.Position,
		VideoURL:  chapter.VideoURL,
		IsPreview: chapter.IsPreview,
		CreatedAt: chapter.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: chapter.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (req chapterRequest) params() storage.ChapterParams {
	return storage.ChapterParams{
		Title:     req.Title,
		Position:  req.Position,
		VideoURL:  req.VideoURL,
		IsPreview: req.IsPreview,
	}
}

func (h *Handler) handleChapters(w http.ResponseWriter, r *http.Request, courseID int64) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedUser(w, r); !ok {
			return
		}
		chapters, err := h.Store.ListChapters(courseID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("course not found"))
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		responses := make([]chapterResponse, 0, len(chapters))
		for _, chapter := range chapters {
			responses = append(responses, newChapterResponse(chapter))
		}
		writeSuccess(w, http.StatusOK, "chapters listed", responses)
	case http.MethodPost:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		var req chapterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, errors.New("title is required"))
			return
		}
		chapter, err := h.Store.CreateChapter(courseID, req.params())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("course not found"))
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusCreated, "chapter created", newChapterResponse(chapter))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) handleChapter(w http.ResponseWriter, r *http.Request, courseID, chapterID int64) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedUser(w, r); !ok {
			return
		}
		chapter, err := h.Store.GetChapter(courseID, chapterID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("chapter not found"))
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeSuccess(w, http.StatusOK, "chapter found", newChapterResponse(chapter))
	case http.MethodPut:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		var req chapterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, errors.New("title is required"))
			return
		}
		chapter, err := h.Store.UpdateChapter(courseID, chapterID, req.params())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("chapter not found"))
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusOK, "chapter updated", newChapterResponse(chapter))
	case http.MethodDelete:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		if err := h.Store.DeleteChapter(courseID, chapterID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("chapter not found"))
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeSuccess(w, http.StatusOK, "chapter deleted", nil)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
