package models

import (
	"time"

	"github.com/google/uuid"
)

type Answer struct {
	QuestionIndex  int `json:"questionIndex"`
	SelectedAnswer int `json:"selectedAnswer"`
}

type AnswerRecord struct {
	QuestionIndex  int  `json:"questionIndex"`
	SelectedAnswer int  `json:"selectedAnswer"`
	IsCorrect      bool `json:"isCorrect"`
}

type TestResult struct {
	TestID      uuid.UUID      `json:"testId"`
	Score       float64        `json:"score"`
	Passed      bool           `json:"passed"`
	CompletedAt time.Time      `json:"completedAt"`
	Answers     []AnswerRecord `json:"answers"`
}

type SubmissionStatus string

const (
	SubmissionInReview SubmissionStatus = "in_review"
	SubmissionPass     SubmissionStatus = "pass"
	SubmissionFail     SubmissionStatus = "fail"
)

type FinalProjectSubmission struct {
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submittedAt"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
	Feedback    string           `json:"feedback,omitempty"`
	FileKeys    []string         `json:"fileKeys"`
	Grade       *int             `json:"grade,omitempty"`
}

type ProjectReview struct {
	Status   SubmissionStatus `json:"status" validate:"required,oneof=pass fail"`
	Feedback string           `json:"feedback" validate:"max=5000"`
	Grade    *int             `json:"grade" validate:"omitempty,gte=0,lte=100"`
}

type Enrollment struct {
	ID                     uuid.UUID               `json:"id"`
	UserID                 uuid.UUID               `json:"userId"`
	CourseID               uuid.UUID               `json:"courseId"`
	EnrolledAt             time.Time               `json:"enrolledAt"`
	CompletedAt            *time.Time              `json:"completedAt,omitempty"`
	Progress               int                     `json:"progress"`
	TestResults            []TestResult            `json:"testResults"`
	FinalProjectSubmission *FinalProjectSubmission `json:"finalProjectSubmission,omitempty"`
	IsActive               bool                    `json:"isActive"`
	CreatedAt              time.Time               `json:"createdAt"`
	UpdatedAt              time.Time               `json:"updatedAt"`
}
