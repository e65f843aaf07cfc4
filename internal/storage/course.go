package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"itspace/internal/models"
)

// CourseParams captures the writable attributes of a course. Categories holds
// candidate category names and Mentors candidate mentor emails; both are
// resolved against existing rows before anything is written.
type CourseParams struct {
	Code         string
	Title        string
	Price        models.Price
	Level        models.CourseLevel
	IsPremium    bool
	Description  string
	GroupURL     string
	ThumbnailURL string
	Categories   []string
	Mentors      []string
}

// CourseRecord pairs a course with the resolved names and emails of its
// associations, in the order the links were written.
type CourseRecord struct {
	Course     models.Course
	Categories []string
	Mentors    []string
}

var caseFolder = cases.Fold()

func foldMatch(haystack, needle string) bool {
	return strings.Contains(caseFolder.String(haystack), caseFolder.String(needle))
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// resolveCategoriesLocked matches candidate names against existing categories.
// Unmatched names are dropped. The returned slices are index-aligned and
// follow the candidate order with duplicates removed.
func resolveCategoriesLocked(data dataset, names []string) ([]string, []int64) {
	byName := make(map[string]int64, len(data.Categories))
	for id, category := range data.Categories {
		byName[category.Name] = id
	}
	var (
		resolved []string
		ids      []int64
	)
	for _, name := range dedupeStrings(names) {
		id, ok := byName[name]
		if !ok {
			continue
		}
		resolved = append(resolved, name)
		ids = append(ids, id)
	}
	return resolved, ids
}

// resolveMentorsLocked matches candidate emails against existing users.
// Emails are normalised the same way user records are stored.
func resolveMentorsLocked(data dataset, emails []string) ([]string, []int64) {
	byEmail := make(map[string]int64, len(data.Users))
	for id, user := range data.Users {
		byEmail[user.Email] = id
	}
	var (
		resolved []string
		ids      []int64
	)
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		normalized := normalizeEmail(email)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		id, ok := byEmail[normalized]
		if !ok {
			continue
		}
		resolved = append(resolved, normalized)
		ids = append(ids, id)
	}
	return resolved, ids
}

// ResolveCategories reports which of the candidate names exist, together with
// their row IDs.
func (s *Storage) ResolveCategories(names []string) ([]string, []int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resolved, ids := resolveCategoriesLocked(s.data, names)
	return resolved, ids, nil
}

// ResolveMentors reports which of the candidate emails belong to existing
// users, together with their row IDs.
func (s *Storage) ResolveMentors(emails []string) ([]string, []int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resolved, ids := resolveMentorsLocked(s.data, emails)
	return resolved, ids, nil
}

func (s *Storage) courseRecordLocked(course models.Course) CourseRecord {
	record := CourseRecord{Course: course}
	for _, link := range s.data.CourseCategories {
		if link.CourseID != course.ID {
			continue
		}
		if category, ok := s.data.Categories[link.CategoryID]; ok {
			record.Categories = append(record.Categories, category.Name)
		}
	}
	for _, link := range s.data.CourseMentors {
		if link.CourseID != course.ID {
			continue
		}
		if user, ok := s.data.Users[link.AuthorID]; ok {
			record.Mentors = append(record.Mentors, user.Email)
		}
	}
	return record
}

// CreateCourse validates the course code, resolves associations, and writes
// the course row together with its join rows in a single persisted step.
func (s *Storage) CreateCourse(params CourseParams) (CourseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.TrimSpace(params.Code)
	if code == "" {
		return CourseRecord{}, errors.New("code is required")
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return CourseRecord{}, errors.New("title is required")
	}
	for _, course := range s.data.Courses {
		if course.Code == code {
			return CourseRecord{}, ErrCodeTaken
		}
	}

	categoryNames, categoryIDs := resolveCategoriesLocked(s.data, params.Categories)
	mentorEmails, mentorIDs := resolveMentorsLocked(s.data, params.Mentors)

	updated := cloneDataset(s.data)
	id := nextID(&updated, seqCourses)
	now := time.Now().UTC()
	course := models.Course{
		ID:           id,
		Code:         code,
		Title:        title,
		Price:        params.Price,
		Level:        params.Level,
		IsPremium:    params.IsPremium,
		Description:  params.Description,
		GroupURL:     params.GroupURL,
		ThumbnailURL: params.ThumbnailURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	updated.Courses[id] = course
	for _, categoryID := range categoryIDs {
		updated.CourseCategories = append(updated.CourseCategories, models.CourseCategory{CourseID: id, CategoryID: categoryID})
	}
	for _, mentorID := range mentorIDs {
		updated.CourseMentors = append(updated.CourseMentors, models.CourseMentor{CourseID: id, AuthorID: mentorID})
	}

	if err := s.persistDataset(updated); err != nil {
		return CourseRecord{}, err
	}
	s.data = updated
	return CourseRecord{Course: course, Categories: categoryNames, Mentors: mentorEmails}, nil
}

// UpdateCourse rewrites the course row and replaces its association links with
// the freshly resolved set. The delete and re-insert of join rows land in the
// same persisted step, so readers never observe a half-linked course.
func (s *Storage) UpdateCourse(id int64, params CourseParams) (CourseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data.Courses[id]
	if !ok {
		return CourseRecord{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}

	code := strings.TrimSpace(params.Code)
	if code == "" {
		return CourseRecord{}, errors.New("code is required")
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return CourseRecord{}, errors.New("title is required")
	}

	categoryNames, categoryIDs := resolveCategoriesLocked(s.data, params.Categories)
	mentorEmails, mentorIDs := resolveMentorsLocked(s.data, params.Mentors)

	updated := cloneDataset(s.data)
	course := models.Course{
		ID:           id,
		Code:         code,
		Title:        title,
		Price:        params.Price,
		Level:        params.Level,
		IsPremium:    params.IsPremium,
		Description:  params.Description,
		GroupURL:     params.GroupURL,
		ThumbnailURL: params.ThumbnailURL,
		CreatedAt:    existing.CreatedAt,
		UpdatedAt:    time.Now().UTC(),
	}
	updated.Courses[id] = course

	categories := updated.CourseCategories[:0]
	for _, link := range updated.CourseCategories {
		if link.CourseID != id {
			categories = append(categories, link)
		}
	}
	updated.CourseCategories = categories
	mentors := updated.CourseMentors[:0]
	for _, link := range updated.CourseMentors {
		if link.CourseID != id {
			mentors = append(mentors, link)
		}
	}
	updated.CourseMentors = mentors
	for _, categoryID := range categoryIDs {
		updated.CourseCategories = append(updated.CourseCategories, models.CourseCategory{CourseID: id, CategoryID: categoryID})
	}
	for _, mentorID := range mentorIDs {
		updated.CourseMentors = append(updated.CourseMentors, models.CourseMentor{CourseID: id, AuthorID: mentorID})
	}

	if err := s.persistDataset(updated); err != nil {
		return CourseRecord{}, err
	}
	s.data = updated
	return CourseRecord{Course: course, Categories: categoryNames, Mentors: mentorEmails}, nil
}

// ListCourses returns all courses ordered by ID. A non-empty query narrows the
// result to courses whose title or code contains the query, compared
// case-insensitively via Unicode case folding.
func (s *Storage) ListCourses(query string) ([]CourseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.TrimSpace(query)
	records := make([]CourseRecord, 0, len(s.data.Courses))
	for _, course := range s.data.Courses {
		if query != "" && !foldMatch(course.Title, query) && !foldMatch(course.Code, query) {
			continue
		}
		records = append(records, s.courseRecordLocked(course))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Course.ID < records[j].Course.ID })
	return records, nil
}

func (s *Storage) GetCourse(id int64) (CourseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	course, ok := s.data.Courses[id]
	if !ok {
		return CourseRecord{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return s.courseRecordLocked(course), nil
}

// DeleteCourse removes the course together with its association links and
// chapters.
func (s *Storage) DeleteCourse(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Courses[id]; !ok {
		return fmt.Errorf("course %d: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	delete(updated.Courses, id)
	categories := updated.CourseCategories[:0]
	for _, link := range updated.CourseCategories {
		if link.CourseID != id {
			categories = append(categories, link)
		}
	}
	updated.CourseCategories = categories
	mentors := updated.CourseMentors[:0]
	for _, link := range updated.CourseMentors {
		if link.CourseID != id {
			mentors = append(mentors, link)
		}
	}
	updated.CourseMentors = mentors
	for chapterID, chapter := range updated.Chapters {
		if chapter.CourseID == id {
			delete(updated.Chapters, chapterID)
		}
	}

	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}
