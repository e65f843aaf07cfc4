package storage

import (
	"errors"
	"reflect"
	"testing"

	"itspace/internal/models"
)

func seedCatalog(t *testing.T, store *Storage) {
	t.Helper()
	for _, name := range []string{"Backend", "Math", "Frontend"} {
		if _, err := store.CreateCategory(name); err != nil {
			t.Fatalf("create category %s: %v", name, err)
		}
	}
	mentors := []CreateUserParams{
		{Name: "Alice", Email: "alice@example.com", Password: "secret123", Role: models.RoleMentor},
		{Name: "Bob", Email: "bob@example.com", Password: "secret123", Role: models.RoleMentor},
	}
	for _, params := range mentors {
		if _, err := store.CreateUser(params); err != nil {
			t.Fatalf("create user %s: %v", params.Email, err)
		}
	}
}

func TestResolveCategoriesDropsUnknownNames(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	resolved, ids, err := store.ResolveCategories([]string{"Math", "Ghost", "Backend"})
	if err != nil {
		t.Fatalf("resolve categories: %v", err)
	}
	if !reflect.DeepEqual(resolved, []string{"Math", "Backend"}) {
		t.Fatalf("resolved = %v, want [Math Backend]", resolved)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
}

func TestResolveCategoriesIsCaseSensitive(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	resolved, _, err := store.ResolveCategories([]string{"backend", "MATH"})
	if err != nil {
		t.Fatalf("resolve categories: %v", err)
	}
	if len(resolved) != 0 {
		t.Fatalf("name matching must be exact, got %v", resolved)
	}
}

func TestResolveMentorsNormalisesAndDedupes(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	resolved, ids, err := store.ResolveMentors([]string{"ALICE@example.com", "alice@example.com", "ghost@example.com"})
	if err != nil {
		t.Fatalf("resolve mentors: %v", err)
	}
	if !reflect.DeepEqual(resolved, []string{"alice@example.com"}) {
		t.Fatalf("resolved = %v, want [alice@example.com]", resolved)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %v", ids)
	}
}

func TestCreateCourseResolvesSubsetOfAssociations(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	record, err := store.CreateCourse(CourseParams{
		Code:        "GO-101",
		Title:       "Go Basics",
		Price:       models.MustParsePrice("150000"),
		Level:       models.LevelBeginner,
		Description: "An introduction to Go.",
		Categories:  []string{"Math", "Ghost"},
		Mentors:     []string{"alice@example.com", "nobody@example.com"},
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if !reflect.DeepEqual(record.Categories, []string{"Math"}) {
		t.Fatalf("categories = %v, want [Math]", record.Categories)
	}
	if !reflect.DeepEqual(record.Mentors, []string{"alice@example.com"}) {
		t.Fatalf("mentors = %v, want [alice@example.com]", record.Mentors)
	}
	if record.Course.ID == 0 {
		t.Fatal("course should receive an ID")
	}

	reloaded, err := store.GetCourse(record.Course.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if !reflect.DeepEqual(reloaded.Categories, record.Categories) || !reflect.DeepEqual(reloaded.Mentors, record.Mentors) {
		t.Fatalf("persisted links diverge: %v / %v", reloaded.Categories, reloaded.Mentors)
	}
}

func TestCreateCourseAllowsEmptyAssociationResults(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	record, err := store.CreateCourse(CourseParams{
		Code:       "GO-102",
		Title:      "Go Concurrency",
		Price:      models.MustParsePrice("200000"),
		Level:      models.LevelIntermediate,
		Categories: []string{"Ghost"},
		Mentors:    []string{"nobody@example.com"},
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if len(record.Categories) != 0 || len(record.Mentors) != 0 {
		t.Fatalf("expected no links, got %v / %v", record.Categories, record.Mentors)
	}
}

func TestCreateCourseRejectsDuplicateCode(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	params := CourseParams{Code: "GO-101", Title: "Go Basics", Price: models.MustParsePrice("150000"), Level: models.LevelBeginner}
	if _, err := store.CreateCourse(params); err != nil {
		t.Fatalf("create course: %v", err)
	}
	params.Title = "Another Title"
	if _, err := store.CreateCourse(params); !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
}

func TestUpdateCourseReplacesAssociations(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	record, err := store.CreateCourse(CourseParams{
		Code:       "GO-101",
		Title:      "Go Basics",
		Price:      models.MustParsePrice("150000"),
		Level:      models.LevelBeginner,
		Categories: []string{"Backend", "Math"},
		Mentors:    []string{"alice@example.com"},
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	updated, err := store.UpdateCourse(record.Course.ID, CourseParams{
		Code:       "GO-101",
		Title:      "Go Basics, Second Edition",
		Price:      models.MustParsePrice("175000"),
		Level:      models.LevelIntermediate,
		Categories: []string{"Frontend"},
		Mentors:    []string{"bob@example.com"},
	})
	if err != nil {
		t.Fatalf("update course: %v", err)
	}
	if !reflect.DeepEqual(updated.Categories, []string{"Frontend"}) {
		t.Fatalf("categories = %v, want [Frontend]", updated.Categories)
	}
	if !reflect.DeepEqual(updated.Mentors, []string{"bob@example.com"}) {
		t.Fatalf("mentors = %v, want [bob@example.com]", updated.Mentors)
	}
	if !updated.Course.CreatedAt.Equal(record.Course.CreatedAt) {
		t.Fatal("update must preserve createdAt")
	}

	reloaded, err := store.GetCourse(record.Course.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if !reflect.DeepEqual(reloaded.Categories, []string{"Frontend"}) {
		t.Fatalf("old links must be removed, got %v", reloaded.Categories)
	}
}

func TestUpdateCourseClearsAssociationsWithEmptyInput(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	record, err := store.CreateCourse(CourseParams{
		Code:       "GO-101",
		Title:      "Go Basics",
		Price:      models.MustParsePrice("150000"),
		Level:      models.LevelBeginner,
		Categories: []string{"Backend"},
		Mentors:    []string{"alice@example.com"},
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	updated, err := store.UpdateCourse(record.Course.ID, CourseParams{
		Code:  "GO-101",
		Title: "Go Basics",
		Price: models.MustParsePrice("150000"),
		Level: models.LevelBeginner,
	})
	if err != nil {
		t.Fatalf("update course: %v", err)
	}
	if len(updated.Categories) != 0 || len(updated.Mentors) != 0 {
		t.Fatalf("expected links cleared, got %v / %v", updated.Categories, updated.Mentors)
	}
}

func TestUpdateCourseNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.UpdateCourse(42, CourseParams{Code: "GO-101", Title: "Go Basics"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListCoursesFiltersByQuery(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	courses := []CourseParams{
		{Code: "GO-101", Title: "Go Basics", Price: models.MustParsePrice("150000"), Level: models.LevelBeginner},
		{Code: "PY-201", Title: "Python for Data", Price: models.MustParsePrice("180000"), Level: models.LevelIntermediate},
	}
	for _, params := range courses {
		if _, err := store.CreateCourse(params); err != nil {
			t.Fatalf("create course %s: %v", params.Code, err)
		}
	}

	all, err := store.ListCourses("")
	if err != nil {
		t.Fatalf("list courses: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(all))
	}

	filtered, err := store.ListCourses("go bas")
	if err != nil {
		t.Fatalf("list courses with query: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Course.Code != "GO-101" {
		t.Fatalf("query should match case-insensitively, got %+v", filtered)
	}
}

func TestDeleteCourseRemovesLinksAndChapters(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	record, err := store.CreateCourse(CourseParams{
		Code:       "GO-101",
		Title:      "Go Basics",
		Price:      models.MustParsePrice("150000"),
		Level:      models.LevelBeginner,
		Categories: []string{"Backend"},
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if _, err := store.CreateChapter(record.Course.ID, ChapterParams{Title: "Getting Started"}); err != nil {
		t.Fatalf("create chapter: %v", err)
	}

	if err := store.DeleteCourse(record.Course.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}
	if _, err := store.GetCourse(record.Course.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.ListChapters(record.Course.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("chapters should be gone with the course, got %v", err)
	}
	if err := store.DeleteCourse(record.Course.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should report ErrNotFound, got %v", err)
	}
}

func TestChapterPositionsAppendByDefault(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	record, err := store.CreateCourse(CourseParams{Code: "GO-101", Title: "Go Basics", Price: models.MustParsePrice("150000"), Level: models.LevelBeginner})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	first, err := store.CreateChapter(record.Course.ID, ChapterParams{Title: "Getting Started"})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	second, err := store.CreateChapter(record.Course.ID, ChapterParams{Title: "Types and Values"})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if first.Position != 1 || second.Position != 2 {
		t.Fatalf("expected positions 1 and 2, got %d and %d", first.Position, second.Position)
	}

	chapters, err := store.ListChapters(record.Course.ID)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 2 || chapters[0].ID != first.ID {
		t.Fatalf("chapters out of order: %+v", chapters)
	}

	if _, err := store.GetChapter(record.Course.ID+1, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("chapter lookup must be scoped to the course, got %v", err)
	}
}
