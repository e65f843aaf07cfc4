package storage

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"itspace/internal/models"
)

// newIntegrationRepository opens a Postgres-backed repository against the
// database named by ITSPACE_TEST_POSTGRES_DSN, truncating all tables first.
// Tests are skipped when the variable is unset.
func newIntegrationRepository(t *testing.T) Repository {
	t.Helper()
	dsn := os.Getenv("ITSPACE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ITSPACE_TEST_POSTGRES_DSN not set")
	}

	repo, err := NewPostgresRepository(dsn)
	if err != nil {
		t.Fatalf("open postgres repository: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = repo.Close(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open cleanup pool: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, `TRUNCATE chapters, course_mentors, course_categories, courses, categories, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return repo
}

func seedIntegrationCatalog(t *testing.T, repo Repository) {
	t.Helper()
	for _, name := range []string{"Backend", "Math"} {
		if _, err := repo.CreateCategory(name); err != nil {
			t.Fatalf("create category %s: %v", name, err)
		}
	}
	if _, err := repo.CreateUser(CreateUserParams{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret123",
		Role:     models.RoleMentor,
	}); err != nil {
		t.Fatalf("create mentor: %v", err)
	}
}

func TestPostgresCourseLifecycle(t *testing.T) {
	repo := newIntegrationRepository(t)
	seedIntegrationCatalog(t, repo)

	record, err := repo.CreateCourse(CourseParams{
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

	if _, err := repo.CreateCourse(CourseParams{
		Code:        "GO-101",
		Title:       "Duplicate",
		Price:       models.MustParsePrice("100"),
		Level:       models.LevelBeginner,
		Description: "d",
	}); err == nil {
		t.Fatal("duplicate code should be rejected")
	}

	updated, err := repo.UpdateCourse(record.Course.ID, CourseParams{
		Code:        "GO-101",
		Title:       "Go Basics Revised",
		Price:       models.MustParsePrice("175000"),
		Level:       models.LevelIntermediate,
		Description: "Revised.",
		Categories:  []string{"Backend"},
		Mentors:     nil,
	})
	if err != nil {
		t.Fatalf("update course: %v", err)
	}
	if !reflect.DeepEqual(updated.Categories, []string{"Backend"}) {
		t.Fatalf("replaced categories = %v, want [Backend]", updated.Categories)
	}
	if len(updated.Mentors) != 0 {
		t.Fatalf("mentors should be cleared, got %v", updated.Mentors)
	}

	if err := repo.DeleteCourse(record.Course.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}
	if _, err := repo.GetCourse(record.Course.ID); err == nil {
		t.Fatal("deleted course should not be readable")
	}
}

func TestPostgresChapterOrdering(t *testing.T) {
	repo := newIntegrationRepository(t)
	seedIntegrationCatalog(t, repo)

	record, err := repo.CreateCourse(CourseParams{
		Code:        "GO-201",
		Title:       "Concurrency",
		Price:       models.MustParsePrice("200000"),
		Level:       models.LevelAdvanced,
		Description: "Goroutines and channels.",
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	first, err := repo.CreateChapter(record.Course.ID, ChapterParams{Title: "Goroutines"})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	second, err := repo.CreateChapter(record.Course.ID, ChapterParams{Title: "Channels"})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if first.Position >= second.Position {
		t.Fatalf("positions should increase, got %d then %d", first.Position, second.Position)
	}

	chapters, err := repo.ListChapters(record.Course.ID)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
}
