package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"itspace/internal/models"
)

// Snapshot is an exported copy of the JSON store contents used by the
// migrate tool to move data into Postgres.
type Snapshot struct {
	Users            map[int64]models.User     `json:"users"`
	Categories       map[int64]models.Category `json:"categories"`
	Courses          map[int64]models.Course   `json:"courses"`
	CourseCategories []models.CourseCategory   `json:"courseCategories"`
	CourseMentors    []models.CourseMentor     `json:"courseMentors"`
	Chapters         map[int64]models.Chapter  `json:"chapters"`
}

// Snapshot returns a deep copy of the current store contents.
func (s *Storage) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := cloneDataset(s.data)
	return &Snapshot{
		Users:            clone.Users,
		Categories:       clone.Categories,
		Courses:          clone.Courses,
		CourseCategories: clone.CourseCategories,
		CourseMentors:    clone.CourseMentors,
		Chapters:         clone.Chapters,
	}
}

// SnapshotCounts summarises the rows held in a snapshot, used by the migrate
// tool to verify the import.
type SnapshotCounts struct {
	Users            int
	Categories       int
	Courses          int
	CourseCategories int
	CourseMentors    int
	Chapters         int
}

// Counts tallies the snapshot contents.
func (s *Snapshot) Counts() SnapshotCounts {
	if s == nil {
		return SnapshotCounts{}
	}
	return SnapshotCounts{
		Users:            len(s.Users),
		Categories:       len(s.Categories),
		Courses:          len(s.Courses),
		CourseCategories: len(s.CourseCategories),
		CourseMentors:    len(s.CourseMentors),
		Chapters:         len(s.Chapters),
	}
}

// ReadSnapshot decodes a JSON store file without constructing a Storage.
func ReadSnapshot(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	var snapshot Snapshot
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&snapshot); err != nil {
		if errors.Is(err, io.EOF) {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}
	return &snapshot, nil
}
