package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"itspace/internal/models"
)

const pgUniqueViolation = "23505"

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and ensures the
// schema is present.
func NewPostgresRepository(dsn string, opts ...Option) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &postgresRepository{pool: pool, cfg: cfg}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// opContext bounds datastore operations by the configured acquire timeout.
func (r *postgresRepository) opContext() (context.Context, context.CancelFunc) {
	if r.cfg.AcquireTimeout > 0 {
		return context.WithTimeout(context.Background(), r.cfg.AcquireTimeout)
	}
	return context.Background(), func() {}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func rollbackTx(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}

const userColumns = "id, name, email, role, password_hash, self_signup, created_at, updated_at"

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.PasswordHash, &user.SelfSignup, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	normalizedEmail := normalizeEmail(params.Email)
	if normalizedEmail == "" {
		return models.User{}, errors.New("email is required")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.User{}, errors.New("name is required")
	}
	role := normalizeRole(params.Role)
	if role == "" {
		if params.Role != "" {
			return models.User{}, fmt.Errorf("unknown role %q", params.Role)
		}
		role = models.RoleMember
	}
	if params.SelfSignup {
		if params.Password == "" {
			return models.User{}, errors.New("password is required for self-service signup")
		}
		role = models.RoleMember
	}
	var passwordHash string
	if params.Password != "" {
		hashed, err := hashPassword(params.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = hashed
	}

	ctx, cancel := r.opContext()
	defer cancel()
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (name, email, role, password_hash, self_signup)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns,
		name, normalizedEmail, role, passwordHash, params.SelfSignup)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("email %s already in use", params.Email)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) AuthenticateUser(email, password string) (models.User, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.PasswordHash == "" {
		return models.User{}, ErrPasswordLoginUnsupported
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *postgresRepository) ListUsers() []models.User {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil
		}
		users = append(users, user)
	}
	return users
}

func (r *postgresRepository) GetUser(id int64) (models.User, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) GetUserByEmail(email string) (models.User, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) UpdateUser(id int64, update UserUpdate) (models.User, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.User{}, errors.New("name is required")
		}
		user.Name = name
	}
	if update.Email != nil {
		normalizedEmail := normalizeEmail(*update.Email)
		if normalizedEmail == "" {
			return models.User{}, errors.New("email is required")
		}
		user.Email = normalizedEmail
	}
	if update.Role != nil {
		role := normalizeRole(*update.Role)
		if role == "" {
			return models.User{}, fmt.Errorf("unknown role %q", *update.Role)
		}
		user.Role = role
	}

	row := r.pool.QueryRow(ctx, `
UPDATE users SET name = $2, email = $3, role = $4, updated_at = now()
WHERE id = $1
RETURNING `+userColumns,
		id, user.Name, user.Email, user.Role)
	updated, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("email %s already in use", user.Email)
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (r *postgresRepository) SetUserPassword(id int64, password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hashed)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *postgresRepository) DeleteUser(id int64) error {
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *postgresRepository) CreateCategory(name string) (models.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return models.Category{}, errors.New("name is required")
	}
	ctx, cancel := r.opContext()
	defer cancel()
	var category models.Category
	err := r.pool.QueryRow(ctx, `
INSERT INTO categories (name) VALUES ($1)
RETURNING id, name, created_at`, trimmed).Scan(&category.ID, &category.Name, &category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Category{}, fmt.Errorf("category %s already exists", trimmed)
		}
		return models.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (r *postgresRepository) ListCategories() []models.Category {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name, id`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil
		}
		categories = append(categories, category)
	}
	return categories
}

func (r *postgresRepository) GetCategory(id int64) (models.Category, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	var category models.Category
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM categories WHERE id = $1`, id).
		Scan(&category.ID, &category.Name, &category.CreatedAt)
	if err != nil {
		return models.Category{}, false
	}
	return category, true
}

func (r *postgresRepository) DeleteCategory(id int64) error {
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return nil
}

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// resolveCategoriesPG matches candidate names against the categories table in
// a single round trip, then orders the hits by candidate order.
func resolveCategoriesPG(ctx context.Context, q pgQuerier, names []string) ([]string, []int64, error) {
	candidates := dedupeStrings(names)
	if len(candidates) == 0 {
		return nil, nil, nil
	}
	rows, err := q.Query(ctx, `SELECT id, name FROM categories WHERE name = ANY($1)`, candidates)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve categories: %w", err)
	}
	defer rows.Close()
	byName := make(map[string]int64, len(candidates))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, nil, fmt.Errorf("resolve categories: %w", err)
		}
		byName[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("resolve categories: %w", err)
	}
	var (
		resolved []string
		ids      []int64
	)
	for _, name := range candidates {
		if id, ok := byName[name]; ok {
			resolved = append(resolved, name)
			ids = append(ids, id)
		}
	}
	return resolved, ids, nil
}

// resolveMentorsPG matches candidate emails against the users table.
func resolveMentorsPG(ctx context.Context, q pgQuerier, emails []string) ([]string, []int64, error) {
	var candidates []string
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		normalized := normalizeEmail(email)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		candidates = append(candidates, normalized)
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}
	rows, err := q.Query(ctx, `SELECT id, email FROM users WHERE email = ANY($1)`, candidates)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve mentors: %w", err)
	}
	defer rows.Close()
	byEmail := make(map[string]int64, len(candidates))
	for rows.Next() {
		var (
			id    int64
			email string
		)
		if err := rows.Scan(&id, &email); err != nil {
			return nil, nil, fmt.Errorf("resolve mentors: %w", err)
		}
		byEmail[email] = id
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("resolve mentors: %w", err)
	}
	var (
		resolved []string
		ids      []int64
	)
	for _, email := range candidates {
		if id, ok := byEmail[email]; ok {
			resolved = append(resolved, email)
			ids = append(ids, id)
		}
	}
	return resolved, ids, nil
}

func (r *postgresRepository) ResolveCategories(names []string) ([]string, []int64, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	return resolveCategoriesPG(ctx, r.pool, names)
}

func (r *postgresRepository) ResolveMentors(emails []string) ([]string, []int64, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	return resolveMentorsPG(ctx, r.pool, emails)
}

const courseColumns = "id, code, title, price_minor, level, is_premium, description, group_url, thumbnail_url, created_at, updated_at"

func scanCourse(row pgx.Row) (models.Course, error) {
	var (
		course     models.Course
		priceMinor int64
		level      string
	)
	err := row.Scan(&course.ID, &course.Code, &course.Title, &priceMinor, &level, &course.IsPremium,
		&course.Description, &course.GroupURL, &course.ThumbnailURL, &course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return models.Course{}, err
	}
	course.Price = models.NewPriceFromMinorUnits(priceMinor)
	course.Level = models.CourseLevel(level)
	return course, nil
}

func insertCourseLinks(ctx context.Context, tx pgx.Tx, courseID int64, categoryIDs, mentorIDs []int64) error {
	for position, categoryID := range categoryIDs {
		if _, err := tx.Exec(ctx, `
INSERT INTO course_categories (course_id, category_id, position) VALUES ($1, $2, $3)`,
			courseID, categoryID, position); err != nil {
			return fmt.Errorf("link category: %w", err)
		}
	}
	for position, mentorID := range mentorIDs {
		if _, err := tx.Exec(ctx, `
INSERT INTO course_mentors (course_id, author_id, position) VALUES ($1, $2, $3)`,
			courseID, mentorID, position); err != nil {
			return fmt.Errorf("link mentor: %w", err)
		}
	}
	return nil
}

// CreateCourse resolves associations and writes the course row plus its join
// rows inside one transaction.
func (r *postgresRepository) CreateCourse(params CourseParams) (CourseRecord, error) {
	code := strings.TrimSpace(params.Code)
	if code == "" {
		return CourseRecord{}, errors.New("code is required")
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return CourseRecord{}, errors.New("title is required")
	}

	ctx, cancel := r.opContext()
	defer cancel()
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CourseRecord{}, fmt.Errorf("begin create course: %w", err)
	}
	defer rollbackTx(ctx, tx)

	categoryNames, categoryIDs, err := resolveCategoriesPG(ctx, tx, params.Categories)
	if err != nil {
		return CourseRecord{}, err
	}
	mentorEmails, mentorIDs, err := resolveMentorsPG(ctx, tx, params.Mentors)
	if err != nil {
		return CourseRecord{}, err
	}

	row := tx.QueryRow(ctx, `
INSERT INTO courses (code, title, price_minor, level, is_premium, description, group_url, thumbnail_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+courseColumns,
		code, title, params.Price.MinorUnits(), string(params.Level), params.IsPremium,
		params.Description, params.GroupURL, params.ThumbnailURL)
	course, err := scanCourse(row)
	if err != nil {
		if isUniqueViolation(err) {
			return CourseRecord{}, ErrCodeTaken
		}
		return CourseRecord{}, fmt.Errorf("create course: %w", err)
	}
	if err := insertCourseLinks(ctx, tx, course.ID, categoryIDs, mentorIDs); err != nil {
		return CourseRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return CourseRecord{}, fmt.Errorf("commit create course: %w", err)
	}
	return CourseRecord{Course: course, Categories: categoryNames, Mentors: mentorEmails}, nil
}

// UpdateCourse rewrites the course row and replaces its join rows. The delete
// and re-insert share a transaction, so a failed update leaves the previous
// associations intact.
func (r *postgresRepository) UpdateCourse(id int64, params CourseParams) (CourseRecord, error) {
	code := strings.TrimSpace(params.Code)
	if code == "" {
		return CourseRecord{}, errors.New("code is required")
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return CourseRecord{}, errors.New("title is required")
	}

	ctx, cancel := r.opContext()
	defer cancel()
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CourseRecord{}, fmt.Errorf("begin update course: %w", err)
	}
	defer rollbackTx(ctx, tx)

	categoryNames, categoryIDs, err := resolveCategoriesPG(ctx, tx, params.Categories)
	if err != nil {
		return CourseRecord{}, err
	}
	mentorEmails, mentorIDs, err := resolveMentorsPG(ctx, tx, params.Mentors)
	if err != nil {
		return CourseRecord{}, err
	}

	row := tx.QueryRow(ctx, `
UPDATE courses SET code = $2, title = $3, price_minor = $4, level = $5, is_premium = $6,
	description = $7, group_url = $8, thumbnail_url = $9, updated_at = now()
WHERE id = $1
RETURNING `+courseColumns,
		id, code, title, params.Price.MinorUnits(), string(params.Level), params.IsPremium,
		params.Description, params.GroupURL, params.ThumbnailURL)
	course, err := scanCourse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CourseRecord{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return CourseRecord{}, ErrCodeTaken
		}
		return CourseRecord{}, fmt.Errorf("update course: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM course_categories WHERE course_id = $1`, id); err != nil {
		return CourseRecord{}, fmt.Errorf("clear categories: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM course_mentors WHERE course_id = $1`, id); err != nil {
		return CourseRecord{}, fmt.Errorf("clear mentors: %w", err)
	}
	if err := insertCourseLinks(ctx, tx, id, categoryIDs, mentorIDs); err != nil {
		return CourseRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return CourseRecord{}, fmt.Errorf("commit update course: %w", err)
	}
	return CourseRecord{Course: course, Categories: categoryNames, Mentors: mentorEmails}, nil
}

func (r *postgresRepository) loadCourseLinks(ctx context.Context, records []CourseRecord) error {
	if len(records) == 0 {
		return nil
	}
	index := make(map[int64]int, len(records))
	ids := make([]int64, 0, len(records))
	for i, record := range records {
		index[record.Course.ID] = i
		ids = append(ids, record.Course.ID)
	}

	rows, err := r.pool.Query(ctx, `
SELECT cc.course_id, c.name
FROM course_categories cc
JOIN categories c ON c.id = cc.category_id
WHERE cc.course_id = ANY($1)
ORDER BY cc.course_id, cc.position`, ids)
	if err != nil {
		return fmt.Errorf("load course categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			courseID int64
			name     string
		)
		if err := rows.Scan(&courseID, &name); err != nil {
			return fmt.Errorf("load course categories: %w", err)
		}
		if i, ok := index[courseID]; ok {
			records[i].Categories = append(records[i].Categories, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load course categories: %w", err)
	}

	mentorRows, err := r.pool.Query(ctx, `
SELECT cm.course_id, u.email
FROM course_mentors cm
JOIN users u ON u.id = cm.author_id
WHERE cm.course_id = ANY($1)
ORDER BY cm.course_id, cm.position`, ids)
	if err != nil {
		return fmt.Errorf("load course mentors: %w", err)
	}
	defer mentorRows.Close()
	for mentorRows.Next() {
		var (
			courseID int64
			email    string
		)
		if err := mentorRows.Scan(&courseID, &email); err != nil {
			return fmt.Errorf("load course mentors: %w", err)
		}
		if i, ok := index[courseID]; ok {
			records[i].Mentors = append(records[i].Mentors, email)
		}
	}
	return mentorRows.Err()
}

func (r *postgresRepository) ListCourses(query string) ([]CourseRecord, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	query = strings.TrimSpace(query)
	var (
		rows pgx.Rows
		err  error
	)
	if query == "" {
		rows, err = r.pool.Query(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY id`)
	} else {
		rows, err = r.pool.Query(ctx, `
SELECT `+courseColumns+` FROM courses
WHERE title ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%'
ORDER BY id`, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var records []CourseRecord
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("list courses: %w", err)
		}
		records = append(records, CourseRecord{Course: course})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if err := r.loadCourseLinks(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *postgresRepository) GetCourse(id int64) (CourseRecord, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	course, err := scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return CourseRecord{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return CourseRecord{}, fmt.Errorf("get course: %w", err)
	}
	records := []CourseRecord{{Course: course}}
	if err := r.loadCourseLinks(ctx, records); err != nil {
		return CourseRecord{}, err
	}
	return records[0], nil
}

func (r *postgresRepository) DeleteCourse(id int64) error {
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return nil
}

const chapterColumns = "id, course_id, title, position, video_url, is_preview, created_at, updated_at"

func scanChapter(row pgx.Row) (models.Chapter, error) {
	var chapter models.Chapter
	err := row.Scan(&chapter.ID, &chapter.CourseID, &chapter.Title, &chapter.Position,
		&chapter.VideoURL, &chapter.IsPreview, &chapter.CreatedAt, &chapter.UpdatedAt)
	return chapter, err
}

func (r *postgresRepository) CreateChapter(courseID int64, params ChapterParams) (models.Chapter, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Chapter{}, errors.New("title is required")
	}

	ctx, cancel := r.opContext()
	defer cancel()
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Chapter{}, fmt.Errorf("begin create chapter: %w", err)
	}
	defer rollbackTx(ctx, tx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&exists); err != nil {
		return models.Chapter{}, fmt.Errorf("lookup course: %w", err)
	}
	if !exists {
		return models.Chapter{}, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}

	position := params.Position
	if position <= 0 {
		if err := tx.QueryRow(ctx, `
SELECT COALESCE(MAX(position), 0) + 1 FROM chapters WHERE course_id = $1`, courseID).Scan(&position); err != nil {
			return models.Chapter{}, fmt.Errorf("next chapter position: %w", err)
		}
	}

	row := tx.QueryRow(ctx, `
INSERT INTO chapters (course_id, title, position, video_url, is_preview)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+chapterColumns,
		courseID, title, position, params.VideoURL, params.IsPreview)
	chapter, err := scanChapter(row)
	if err != nil {
		return models.Chapter{}, fmt.Errorf("create chapter: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Chapter{}, fmt.Errorf("commit create chapter: %w", err)
	}
	return chapter, nil
}

func (r *postgresRepository) ListChapters(courseID int64) ([]models.Chapter, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup course: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE course_id = $1 ORDER BY position, id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()
	chapters := make([]models.Chapter, 0)
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("list chapters: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

func (r *postgresRepository) GetChapter(courseID, id int64) (models.Chapter, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	chapter, err := scanChapter(r.pool.QueryRow(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE id = $1 AND course_id = $2`, id, courseID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Chapter{}, fmt.Errorf("chapter %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Chapter{}, fmt.Errorf("get chapter: %w", err)
	}
	return chapter, nil
}

func (r *postgresRepository) UpdateChapter(courseID, id int64, params ChapterParams) (models.Chapter, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Chapter{}, errors.New("title is required")
	}

	ctx, cancel := r.opContext()
	defer cancel()
	row := r.pool.QueryRow(ctx, `
UPDATE chapters SET title = $3,
	position = CASE WHEN $4 > 0 THEN $4 ELSE position END,
	video_url = $5, is_preview = $6, updated_at = now()
WHERE id = $1 AND course_id = $2
RETURNING `+chapterColumns,
		id, courseID, title, params.Position, params.VideoURL, params.IsPreview)
	chapter, err := scanChapter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Chapter{}, fmt.Errorf("chapter %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Chapter{}, fmt.Errorf("update chapter: %w", err)
	}
	return chapter, nil
}

func (r *postgresRepository) DeleteChapter(courseID, id int64) error {
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM chapters WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chapter %d: %w", id, ErrNotFound)
	}
	return nil
}
