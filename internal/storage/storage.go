package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"itspace/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000
)

const (
	seqUsers      = "users"
	seqCategories = "categories"
	seqCourses    = "courses"
	seqChapters   = "chapters"
)

type dataset struct {
	Sequences        map[string]int64          `json:"sequences"`
	Users            map[int64]models.User     `json:"users"`
	Categories       map[int64]models.Category `json:"categories"`
	Courses          map[int64]models.Course   `json:"courses"`
	CourseCategories []models.CourseCategory   `json:"courseCategories"`
	CourseMentors    []models.CourseMentor     `json:"courseMentors"`
	Chapters         map[int64]models.Chapter  `json:"chapters"`
}

// Storage persists the full dataset as a single JSON document guarded by a
// RWMutex. Mutations operate on a cloned dataset that is persisted to a
// temporary file and atomically renamed before the in-memory copy is swapped,
// so multi-row writes either land completely or not at all.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Sequences:  make(map[string]int64),
		Users:      make(map[int64]models.User),
		Categories: make(map[int64]models.Category),
		Courses:    make(map[int64]models.Course),
		Chapters:   make(map[int64]models.Chapter),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Sequences == nil {
		s.data.Sequences = make(map[string]int64)
	}
	if s.data.Users == nil {
		s.data.Users = make(map[int64]models.User)
	}
	if s.data.Categories == nil {
		s.data.Categories = make(map[int64]models.Category)
	}
	if s.data.Courses == nil {
		s.data.Courses = make(map[int64]models.Course)
	}
	if s.data.Chapters == nil {
		s.data.Chapters = make(map[int64]models.Chapter)
	}
}

func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "itspace-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		tmp.Close()
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func cloneDataset(data dataset) dataset {
	clone := newDataset()
	for key, value := range data.Sequences {
		clone.Sequences[key] = value
	}
	for id, user := range data.Users {
		clone.Users[id] = user
	}
	for id, category := range data.Categories {
		clone.Categories[id] = category
	}
	for id, course := range data.Courses {
		clone.Courses[id] = course
	}
	clone.CourseCategories = append([]models.CourseCategory(nil), data.CourseCategories...)
	clone.CourseMentors = append([]models.CourseMentor(nil), data.CourseMentors...)
	for id, chapter := range data.Chapters {
		clone.Chapters[id] = chapter
	}
	return clone
}

func nextID(data *dataset, sequence string) int64 {
	if data.Sequences == nil {
		data.Sequences = make(map[string]int64)
	}
	data.Sequences[sequence]++
	return data.Sequences[sequence]
}

// Ping reports readiness of the backing file store.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := os.Stat(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("data dir unavailable: %w", err)
	}
	return nil
}

// Close satisfies Repository; the JSON store holds no external resources.
func (s *Storage) Close(context.Context) error {
	return nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encodedHash, candidate string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return fmt.Errorf("verify password: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return fmt.Errorf("verify password: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("verify password: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("verify password: decode salt: %w", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("verify password: decode hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func normalizeRole(role string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(role))
	switch trimmed {
	case models.RoleAdmin, models.RoleMentor, models.RoleMember:
		return trimmed
	default:
		return ""
	}
}

// CreateUserParams captures the attributes that can be set when creating a user.
type CreateUserParams struct {
	Name       string
	Email      string
	Password   string
	Role       string
	SelfSignup bool
}

// UserUpdate describes a partial update applied to a user. Nil fields are
// left untouched.
type UserUpdate struct {
	Name  *string
	Email *string
	Role  *string
}

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalizedEmail := normalizeEmail(params.Email)
	if normalizedEmail == "" {
		return models.User{}, errors.New("email is required")
	}
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return models.User{}, fmt.Errorf("email %s already in use", params.Email)
		}
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
		hashed, hashErr := hashPassword(params.Password)
		if hashErr != nil {
			return models.User{}, fmt.Errorf("hash password: %w", hashErr)
		}
		passwordHash = hashed
	}

	updated := cloneDataset(s.data)
	id := nextID(&updated, seqUsers)
	now := time.Now().UTC()
	user := models.User{
		ID:           id,
		Name:         name,
		Email:        normalizedEmail,
		Role:         role,
		PasswordHash: passwordHash,
		SelfSignup:   params.SelfSignup,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	updated.Users[id] = user

	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated
	return user, nil
}

// AuthenticateUser resolves the account by email and verifies the password.
func (s *Storage) AuthenticateUser(email, password string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	normalizedEmail := normalizeEmail(email)
	for _, user := range s.data.Users {
		if user.Email != normalizedEmail {
			continue
		}
		if user.PasswordHash == "" {
			return models.User{}, ErrPasswordLoginUnsupported
		}
		if err := verifyPassword(user.PasswordHash, password); err != nil {
			return models.User{}, err
		}
		return user, nil
	}
	return models.User{}, ErrInvalidCredentials
}

func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (s *Storage) GetUser(id int64) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data.Users[id]
	return user, ok
}

func (s *Storage) GetUserByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	normalizedEmail := normalizeEmail(email)
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return user, true
		}
	}
	return models.User{}, false
}

func (s *Storage) UpdateUser(id int64, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
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
		for otherID, other := range s.data.Users {
			if otherID != id && other.Email == normalizedEmail {
				return models.User{}, fmt.Errorf("email %s already in use", *update.Email)
			}
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
	user.UpdatedAt = time.Now().UTC()

	updated := cloneDataset(s.data)
	updated.Users[id] = user
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated
	return user, nil
}

// SetUserPassword re-hashes and stores a new password for the user.
func (s *Storage) SetUserPassword(id int64, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if password == "" {
		return errors.New("password is required")
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hashed
	user.UpdatedAt = time.Now().UTC()

	updated := cloneDataset(s.data)
	updated.Users[id] = user
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// DeleteUser removes the user together with any mentor assignments held by it.
func (s *Storage) DeleteUser(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	delete(updated.Users, id)
	mentors := updated.CourseMentors[:0]
	for _, link := range updated.CourseMentors {
		if link.AuthorID != id {
			mentors = append(mentors, link)
		}
	}
	updated.CourseMentors = mentors

	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}
