package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"itspace/internal/models"
)

var categoryCollator = collate.New(language.English, collate.Loose)

func (s *Storage) CreateCategory(name string) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return models.Category{}, errors.New("name is required")
	}
	for _, category := range s.data.Categories {
		if category.Name == trimmed {
			return models.Category{}, fmt.Errorf("category %s already exists", trimmed)
		}
	}

	updated := cloneDataset(s.data)
	id := nextID(&updated, seqCategories)
	category := models.Category{
		ID:        id,
		Name:      trimmed,
		CreatedAt: time.Now().UTC(),
	}
	updated.Categories[id] = category

	if err := s.persistDataset(updated); err != nil {
		return models.Category{}, err
	}
	s.data = updated
	return category, nil
}

// ListCategories returns all categories in locale-aware name order.
func (s *Storage) ListCategories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]models.Category, 0, len(s.data.Categories))
	for _, category := range s.data.Categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		if cmp := categoryCollator.CompareString(categories[i].Name, categories[j].Name); cmp != 0 {
			return cmp < 0
		}
		return categories[i].ID < categories[j].ID
	})
	return categories
}

func (s *Storage) GetCategory(id int64) (models.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.data.Categories[id]
	return category, ok
}

// DeleteCategory removes the category and detaches it from any courses.
func (s *Storage) DeleteCategory(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	delete(updated.Categories, id)
	links := updated.CourseCategories[:0]
	for _, link := range updated.CourseCategories {
		if link.CategoryID != id {
			links = append(links, link)
		}
	}
	updated.CourseCategories = links

	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}
