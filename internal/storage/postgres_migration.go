package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"itspace/internal/models"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT        NOT NULL,
	email         TEXT        NOT NULL UNIQUE,
	role          TEXT        NOT NULL,
	password_hash TEXT        NOT NULL DEFAULT '',
	self_signup   BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS categories (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT        NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS courses (
	id            BIGSERIAL PRIMARY KEY,
	code          TEXT        NOT NULL UNIQUE,
	title         TEXT        NOT NULL,
	price_minor   BIGINT      NOT NULL DEFAULT 0,
	level         TEXT        NOT NULL,
	is_premium    BOOLEAN     NOT NULL DEFAULT FALSE,
	description   TEXT        NOT NULL DEFAULT '',
	group_url     TEXT        NOT NULL DEFAULT '',
	thumbnail_url TEXT        NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS course_categories (
	course_id   BIGINT NOT NULL REFERENCES courses (id)    ON DELETE CASCADE,
	category_id BIGINT NOT NULL REFERENCES categories (id) ON DELETE CASCADE,
	position    INT    NOT NULL DEFAULT 0,
	PRIMARY KEY (course_id, category_id)
);

CREATE TABLE IF NOT EXISTS course_mentors (
	course_id BIGINT NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
	author_id BIGINT NOT NULL REFERENCES users (id)   ON DELETE CASCADE,
	position  INT    NOT NULL DEFAULT 0,
	PRIMARY KEY (course_id, author_id)
);

CREATE TABLE IF NOT EXISTS chapters (
	id         BIGSERIAL PRIMARY KEY,
	course_id  BIGINT      NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
	title      TEXT        NOT NULL,
	position   INT         NOT NULL DEFAULT 0,
	video_url  TEXT        NOT NULL DEFAULT '',
	is_preview BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS chapters_course_idx ON chapters (course_id, position);
`

func (r *postgresRepository) ensureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ImportSnapshotToPostgres imports a JSON store snapshot through a Repository
// opened with NewPostgresRepository.
func ImportSnapshotToPostgres(ctx context.Context, repo Repository, snapshot *Snapshot) error {
	pg, ok := repo.(*postgresRepository)
	if !ok {
		return fmt.Errorf("repository is not backed by postgres")
	}
	return pg.ImportSnapshot(ctx, snapshot)
}

// ImportSnapshot loads a JSON store snapshot into Postgres, preserving row
// IDs and association links. It is used by the migrate tool and expects the
// target tables to be empty.
func (r *postgresRepository) ImportSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer rollbackTx(ctx, tx)

	if err := importSnapshotUsers(ctx, tx, snapshot.Users); err != nil {
		return err
	}
	if err := importSnapshotCategories(ctx, tx, snapshot.Categories); err != nil {
		return err
	}
	if err := importSnapshotCourses(ctx, tx, snapshot.Courses); err != nil {
		return err
	}
	for i, link := range snapshot.CourseCategories {
		if _, err := tx.Exec(ctx, `
INSERT INTO course_categories (course_id, category_id, position) VALUES ($1, $2, $3)`,
			link.CourseID, link.CategoryID, i); err != nil {
			return fmt.Errorf("import course category link: %w", err)
		}
	}
	for i, link := range snapshot.CourseMentors {
		if _, err := tx.Exec(ctx, `
INSERT INTO course_mentors (course_id, author_id, position) VALUES ($1, $2, $3)`,
			link.CourseID, link.AuthorID, i); err != nil {
			return fmt.Errorf("import course mentor link: %w", err)
		}
	}
	if err := importSnapshotChapters(ctx, tx, snapshot.Chapters); err != nil {
		return err
	}
	if err := resetSequences(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return nil
}

func sortedIDs[T any](entries map[int64]T) []int64 {
	ids := make([]int64, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func importSnapshotUsers(ctx context.Context, tx pgx.Tx, users map[int64]models.User) error {
	for _, id := range sortedIDs(users) {
		user := users[id]
		if _, err := tx.Exec(ctx, `
INSERT INTO users (id, name, email, role, password_hash, self_signup, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			user.ID, user.Name, user.Email, user.Role, user.PasswordHash, user.SelfSignup, user.CreatedAt, user.UpdatedAt); err != nil {
			return fmt.Errorf("import user %d: %w", user.ID, err)
		}
	}
	return nil
}

func importSnapshotCategories(ctx context.Context, tx pgx.Tx, categories map[int64]models.Category) error {
	for _, id := range sortedIDs(categories) {
		category := categories[id]
		if _, err := tx.Exec(ctx, `
INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`,
			category.ID, category.Name, category.CreatedAt); err != nil {
			return fmt.Errorf("import category %d: %w", category.ID, err)
		}
	}
	return nil
}

func importSnapshotCourses(ctx context.Context, tx pgx.Tx, courses map[int64]models.Course) error {
	for _, id := range sortedIDs(courses) {
		course := courses[id]
		if _, err := tx.Exec(ctx, `
INSERT INTO courses (id, code, title, price_minor, level, is_premium, description, group_url, thumbnail_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			course.ID, course.Code, course.Title, course.Price.MinorUnits(), string(course.Level), course.IsPremium,
			course.Description, course.GroupURL, course.ThumbnailURL, course.CreatedAt, course.UpdatedAt); err != nil {
			return fmt.Errorf("import course %d: %w", course.ID, err)
		}
	}
	return nil
}

func importSnapshotChapters(ctx context.Context, tx pgx.Tx, chapters map[int64]models.Chapter) error {
	for _, id := range sortedIDs(chapters) {
		chapter := chapters[id]
		if _, err := tx.Exec(ctx, `
INSERT INTO chapters (id, course_id, title, position, video_url, is_preview, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			chapter.ID, chapter.CourseID, chapter.Title, chapter.Position, chapter.VideoURL, chapter.IsPreview,
			chapter.CreatedAt, chapter.UpdatedAt); err != nil {
			return fmt.Errorf("import chapter %d: %w", chapter.ID, err)
		}
	}
	return nil
}

func resetSequences(ctx context.Context, tx pgx.Tx) error {
	for _, table := range []string{"users", "categories", "courses", "chapters"} {
		query := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`,
			table, table)
		if _, err := tx.Exec(ctx, query); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}
