package models

import "time"

// Role values mirror the values persisted on the users table. A user carries
// exactly one role.
const (
	RoleAdmin  = "ADMIN"
	RoleMentor = "MENTOR"
	RoleMember = "MEMBER"
)

// CourseLevel enumerates the difficulty tiers a course can be published under.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "BEGINNER"
	LevelIntermediate CourseLevel = "INTERMEDIATE"
	LevelAdvanced     CourseLevel = "ADVANCED"
)

// Valid reports whether the level is one of the published tiers.
func (l CourseLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	SelfSignup   bool      `json:"selfSignup"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Course struct {
	ID           int64       `json:"id"`
	Code         string      `json:"code"`
	Title        string      `json:"title"`
	Price        Price       `json:"price"`
	Level        CourseLevel `json:"level"`
	IsPremium    bool        `json:"isPremium"`
	Description  string      `json:"description"`
	GroupURL     string      `json:"groupUrl,omitempty"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// CourseCategory is a join row linking a course to one of its categories.
type CourseCategory struct {
	CourseID   int64 `json:"courseId"`
	CategoryID int64 `json:"categoryId"`
}

// CourseMentor is a join row linking a course to the user mentoring it.
type CourseMentor struct {
	CourseID int64 `json:"courseId"`
	AuthorID int64 `json:"authorId"`
}

type Chapter struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"courseId"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	IsPreview bool      `json:"isPreview"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
