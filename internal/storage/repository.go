package storage

import (
	"context"

	"itspace/internal/models"
)

// Repository exposes the datastore operations required by API handlers and
// command-line tooling. Both the JSON file store and the Postgres store
// implement it.
type Repository interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	ListUsers() []models.User
	GetUser(id int64) (models.User, bool)
	GetUserByEmail(email string) (models.User, bool)
	UpdateUser(id int64, update UserUpdate) (models.User, error)
	SetUserPassword(id int64, password string) error
	DeleteUser(id int64) error

	CreateCategory(name string) (models.Category, error)
	ListCategories() []models.Category
	GetCategory(id int64) (models.Category, bool)
	DeleteCategory(id int64) error

	ResolveCategories(names []string) ([]string, []int64, error)
	ResolveMentors(emails []string) ([]string, []int64, error)

	CreateCourse(params CourseParams) (CourseRecord, error)
	UpdateCourse(id int64, params CourseParams) (CourseRecord, error)
	ListCourses(query string) ([]CourseRecord, error)
	GetCourse(id int64) (CourseRecord, error)
	DeleteCourse(id int64) error

	CreateChapter(courseID int64, params ChapterParams) (models.Chapter, error)
	ListChapters(courseID int64) ([]models.Chapter, error)
	GetChapter(courseID, id int64) (models.Chapter, error)
	UpdateChapter(courseID, id int64, params ChapterParams) (models.Chapter, error)
	DeleteChapter(courseID, id int64) error
}

var (
	_ Repository = (*Storage)(nil)
	_ Repository = (*postgresRepository)(nil)
)
