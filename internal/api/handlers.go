package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"itspace/internal/auth"
	"itspace/internal/models"
	"itspace/internal/storage"
)

// Pinger reports reachability of an external dependency for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Store               storage.Repository
	Sessions            *auth.SessionManager
	AllowSelfSignup     bool
	SessionCookiePolicy SessionCookiePolicy
	RateLimiter         Pinger
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return &Handler{Store: store, Sessions: sessions}
}

func (h *Handler) sessionManager() *auth.SessionManager {
	if h.Sessions == nil {
		h.Sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return h.Sessions
}

// Health reports per-component readiness for the /healthz endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	components, overallStatus, statusCode := h.componentHealth(r.Context())
	writeJSON(w, statusCode, map[string]any{
		"status":     overallStatus,
		"components": components,
	})
}

type userResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	SelfSignup bool   `json:"selfSignup"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		SelfSignup: user.SelfSignup,
		CreatedAt:  user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  user.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type authResponse struct {
	User      userResponse `json:"user"`
	ExpiresAt string       `json:"expiresAt"`
}

func newAuthResponse(user models.User, expiresAt time.Time) authResponse {
	return authResponse{
		User:      newUserResponse(user),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}
}

// courseResponse mirrors the wire shape of a course: the scalar columns plus
// the resolved category names and mentor emails.
type courseResponse struct {
	ID           int64              `json:"id"`
	Code         string             `json:"code"`
	Title        string             `json:"title"`
	Price        models.Price       `json:"price"`
	Level        models.CourseLevel `json:"level"`
	IsPremium    bool               `json:"isPremium"`
	Description  string             `json:"description"`
	GroupURL     string             `json:"groupUrl,omitempty"`
	ThumbnailURL string             `json:"thumbnailUrl,omitempty"`
	Category     []string           `json:"category"`
	Mentor       []string           `json:"mentor"`
	CreatedAt    string             `json:"createdAt"`
	UpdatedAt    string             `json:"updatedAt"`
}

func newCourseResponse(record storage.CourseRecord) courseResponse {
	categories := record.Categories
	if categories == nil {
		categories = []string{}
	}
	mentors := record.Mentors
	if mentors == nil {
		mentors = []string{}
	}
	course := record.Course
	return courseResponse{
		ID:           course.ID,
		Code:         course.Code,
		Title:        course.Title,
		Price:        course.Price,
		Level:        course.Level,
		IsPremium:    course.IsPremium,
		Description:  course.Description,
		GroupURL:     course.GroupURL,
		ThumbnailURL: course.ThumbnailURL,
		Category:     categories,
		Mentor:       mentors,
		CreatedAt:    course.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    course.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func newCourseResponses(records []storage.CourseRecord) []courseResponse {
	responses := make([]courseResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, newCourseResponse(record))
	}
	return responses
}
