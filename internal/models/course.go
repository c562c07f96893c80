package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

type CourseStatus string

const (
	StatusDraft     CourseStatus = "draft"
	StatusPublished CourseStatus = "published"
	StatusArchived  CourseStatus = "archived"
)

func (s CourseStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type Question struct {
	Question      string   `json:"question" validate:"required,max=1000"`
	Options       []string `json:"options" validate:"min=2,max=10,dive,required,max=500"`
	CorrectAnswer int      `json:"correctAnswer" validate:"gte=0"`
	Explanation   string   `json:"explanation,omitempty" validate:"max=2000"`
}

type Test struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title" validate:"required,max=200"`
	Questions    []Question `json:"questions" validate:"min=1,dive"`
	PassingScore int        `json:"passingScore" validate:"gte=0,lte=100"`
	TimeLimit    *int       `json:"timeLimit,omitempty" validate:"omitempty,gte=1"` // minutes
	Order        int        `json:"order" validate:"gte=1"`
}

type FinalProject struct {
	Title                  string   `json:"title" validate:"required,max=200"`
	Description            string   `json:"description" validate:"required"`
	Requirements           []string `json:"requirements" validate:"dive,required"`
	SubmissionInstructions string   `json:"submissionInstructions" validate:"required"`
}

type Course struct {
	ID               uuid.UUID     `json:"id"`
	Slug             string        `json:"slug" validate:"required,max=200,slug"`
	Title            string        `json:"title" validate:"required,max=200"`
	Description      string        `json:"description" validate:"required"`
	SmallDescription string        `json:"smallDescription" validate:"required,max=300"`
	Category         string        `json:"category" validate:"required,max=100"`
	Level            Level         `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Duration         int           `json:"duration" validate:"gte=1"`
	Price            float64       `json:"price" validate:"gte=0"`
	Status           CourseStatus  `json:"status" validate:"required,oneof=draft published archived"`
	FileKey          string        `json:"fileKey" validate:"required,max=512"`
	Tests            []Test        `json:"tests" validate:"dive"`
	FinalProject     *FinalProject `json:"finalProject,omitempty" validate:"omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func (c *Course) Test(id uuid.UUID) (Test, bool) {
	for _, t := range c.Tests {
		if t.ID == id {
			return t, true
		}
	}
	return Test{}, false
}

// SortTests orders tests by their Order field, keeping insertion order on ties.
func (c *Course) SortTests() {
	sort.SliceStable(c.Tests, func(i, j int) bool {
		return c.Tests[i].Order < c.Tests[j].Order
	})
}

// CoursePatch holds the fields of a partial update. Nil fields are left untouched.
type CoursePatch struct {
	Slug             *string       `json:"slug"`
	Title            *string       `json:"title"`
	Description      *string       `json:"description"`
	SmallDescription *string       `json:"smallDescription"`
	Category         *string       `json:"category"`
	Level            *Level        `json:"level"`
	Duration         *int          `json:"duration"`
	Price            *float64      `json:"price"`
	Status           *CourseStatus `json:"status"`
	FileKey          *string       `json:"fileKey"`
	Tests            *[]Test       `json:"tests"`
	FinalProject     *FinalProject `json:"finalProject"`
}

func (p CoursePatch) Apply(c *Course) {
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.SmallDescription != nil {
		c.SmallDescription = *p.SmallDescription
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Level != nil {
		c.Level = *p.Level
	}
	if p.Duration != nil {
		c.Duration = *p.Duration
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.FileKey != nil {
		c.FileKey = *p.FileKey
	}
	if p.Tests != nil {
		c.Tests = append([]Test(nil), (*p.Tests)...)
	}
	if p.FinalProject != nil {
		fp := *p.FinalProject
		c.FinalProject = &fp
	}
}

type CourseFilter struct {
	Category string
	Level    Level
	Status   CourseStatus
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type CoursePage struct {
	Courses    []Course   `json:"courses"`
	Pagination Pagination `json:"pagination"`
}
