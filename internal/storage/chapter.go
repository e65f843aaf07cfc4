package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"itspace/internal/models"
)

// ChapterParams captures the writable attributes of a chapter. A Position of
// zero or less appends the chapter after the course's current last position.
type ChapterParams struct {
	Title     string
	Position  int
	VideoURL  string
	IsPreview bool
}

func (s *Storage) CreateChapter(courseID int64, params ChapterParams) (models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Courses[courseID]; !ok {
		return models.Chapter{}, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Chapter{}, errors.New("title is required")
	}

	position := params.Position
	if position <= 0 {
		for _, chapter := range s.data.Chapters {
			if chapter.CourseID == courseID && chapter.Position >= position {
				position = chapter.Position + 1
			}
		}
		if position <= 0 {
			position = 1
		}
	}

	updated := cloneDataset(s.data)
	id := nextID(&updated, seqChapters)
	now := time.Now().UTC()
	chapter := models.Chapter{
		ID:        id,
		CourseID:  courseID,
		Title:     title,
		Position:  position,
		VideoURL:  params.VideoURL,
		IsPreview: params.IsPreview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	updated.Chapters[id] = chapter

	if err := s.persistDataset(updated); err != nil {
		return models.Chapter{}, err
	}
	s.data = updated
	return chapter, nil
}

// ListChapters returns the chapters of a course ordered by position.
func (s *Storage) ListChapters(courseID int64) ([]models.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Courses[courseID]; !ok {
		return nil, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}
	chapters := make([]models.Chapter, 0)
	for _, chapter := range s.data.Chapters {
		if chapter.CourseID == courseID {
			chapters = append(chapters, chapter)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		if chapters[i].Position != chapters[j].Position {
			return chapters[i].Position < chapters[j].Position
		}
		return chapters[i].ID < chapters[j].ID
	})
	return chapters, nil
}

func (s *Storage) GetChapter(courseID, id int64) (models.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chapter, ok := s.data.Chapters[id]
	if !ok || chapter.CourseID != courseID {
		return models.Chapter{}, fmt.Errorf("chapter %d: %w", id, ErrNotFound)
	}
	return chapter, nil
}

func (s *Storage) UpdateChapter(courseID, id int64, params ChapterParams) (models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chapter, ok := s.data.Chapters[id]
	if !ok || chapter.CourseID != courseID {
		return models.Chapter{}, fmt.Errorf("chapter %d: %w", id, ErrNotFound)
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Chapter{}, errors.New("title is required")
	}

	chapter.Title = title
	if params.Position > 0 {
		chapter.Position = params.Position
	}
	chapter.VideoURL = params.VideoURL
	chapter.IsPreview = params.IsPreview
	chapter.UpdatedAt = time.Now().UTC()

	updated := cloneDataset(s.data)
	updated.Chapters[id] = chapter

	if err := s.persistDataset(updated); err != nil {
		return models.Chapter{}, err
	}
	s.data = updated
	return chapter, nil
}

func (s *Storage) DeleteChapter(courseID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chapter, ok := s.data.Chapters[id]
	if !ok || chapter.CourseID != courseID {
		return fmt.Errorf("chapter %d: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	delete(updated.Chapters, id)

	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}
