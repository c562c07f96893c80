package enrollment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

func threeQuestionTest() models.Test {
	q := func(correct int) models.Question {
		return models.Question{Question: "q", Options: []string{"a", "b", "c"}, CorrectAnswer: correct}
	}
	return models.Test{ID: uuid.New(), Title: "t", PassingScore: 60, Order: 1, Questions: []models.Question{q(0), q(1), q(2)}}
}

func TestScore(t *testing.T) {
	test := threeQuestionTest()

	tests := []struct {
		name    string
		answers []models.Answer
		want    float64
	}{
		{"all correct", []models.Answer{{QuestionIndex: 0, SelectedAnswer: 0}, {QuestionIndex: 1, SelectedAnswer: 1}, {QuestionIndex: 2, SelectedAnswer: 2}}, 100},
		{"two of three", []models.Answer{{QuestionIndex: 2, SelectedAnswer: 2}, {QuestionIndex: 0, SelectedAnswer: 0}, {QuestionIndex: 1, SelectedAnswer: 0}}, 66.67},
		{"one of three", []models.Answer{{QuestionIndex: 0, SelectedAnswer: 0}, {QuestionIndex: 1, SelectedAnswer: 2}, {QuestionIndex: 2, SelectedAnswer: 0}}, 33.33},
		{"unanswered count as wrong", []models.Answer{{QuestionIndex: 1, SelectedAnswer: 1}}, 33.33},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, score, err := Score(test, tt.answers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, score)
			assert.Len(t, records, len(tt.answers))
		})
	}
}

func TestScore_RecordsAreOrderedAndMarked(t *testing.T) {
	records, _, err := Score(threeQuestionTest(), []models.Answer{{QuestionIndex: 2, SelectedAnswer: 0}, {QuestionIndex: 0, SelectedAnswer: 0}})
	require.NoError(t, err)

	assert.Equal(t, []models.AnswerRecord{
		{QuestionIndex: 0, SelectedAnswer: 0, IsCorrect: true},
		{QuestionIndex: 2, SelectedAnswer: 0, IsCorrect: false},
	}, records)
}

func TestScore_RejectsBadAnswers(t *testing.T) {
	test := threeQuestionTest()
	cases := map[string][]models.Answer{
		"question out of range": {{QuestionIndex: 3, SelectedAnswer: 0}},
		"negative question":     {{QuestionIndex: -1, SelectedAnswer: 0}},
		"duplicate question":    {{QuestionIndex: 0, SelectedAnswer: 0}, {QuestionIndex: 0, SelectedAnswer: 1}},
		"option out of range":   {{QuestionIndex: 0, SelectedAnswer: 3}},
		"negative option":       {{QuestionIndex: 0, SelectedAnswer: -1}},
		"too many answers":      {{QuestionIndex: 0, SelectedAnswer: 0}, {QuestionIndex: 1, SelectedAnswer: 1}, {QuestionIndex: 2, SelectedAnswer: 2}, {QuestionIndex: 0, SelectedAnswer: 0}},
	}
	for name, answers := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Score(test, answers)
			assert.ErrorIs(t, err, app_errors.ErrValidation)
		})
	}
}

func TestPassed_UsesExactShare(t *testing.T) {
	questions := make([]models.Question, 1001)
	for i := range questions {
		questions[i] = models.Question{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 0}
	}
	test := models.Test{ID: uuid.New(), Title: "long", PassingScore: 1, Order: 1, Questions: questions}
	answers := make([]models.Answer, len(questions))
	for i := range answers {
		answers[i] = models.Answer{QuestionIndex: i, SelectedAnswer: 1}
	}
	for i := 0; i < 10; i++ {
		answers[i].SelectedAnswer = 0
	}

	records, score, err := Score(test, answers)
	require.NoError(t, err)

	// 10/1001 is 0.999..%, shown as 1 after rounding
	assert.Equal(t, 1.0, score)
	assert.False(t, Passed(test, records))

	answers[10].SelectedAnswer = 0
	records, _, err = Score(test, answers)
	require.NoError(t, err)
	assert.True(t, Passed(test, records))
}

func TestProgress(t *testing.T) {
	t1, t2 := threeQuestionTest(), threeQuestionTest()
	course := &models.Course{Tests: []models.Test{t1, t2}}
	withProject := &models.Course{Tests: []models.Test{t1, t2}, FinalProject: &models.FinalProject{Title: "p"}}

	passed := func(id uuid.UUID) models.TestResult { return models.TestResult{TestID: id, Passed: true} }
	failed := func(id uuid.UUID) models.TestResult { return models.TestResult{TestID: id} }

	assert.Equal(t, 0, Progress(&models.Course{}, nil, nil))
	assert.Equal(t, 0, Progress(course, []models.TestResult{failed(t1.ID)}, nil))
	assert.Equal(t, 50, Progress(course, []models.TestResult{passed(t1.ID), passed(t1.ID)}, nil))
	assert.Equal(t, 100, Progress(course, []models.TestResult{failed(t2.ID), passed(t1.ID), passed(t2.ID)}, nil))
	// results of tests removed from the course do not count
	assert.Equal(t, 0, Progress(course, []models.TestResult{passed(uuid.New())}, nil))

	assert.Equal(t, 66, Progress(withProject, []models.TestResult{passed(t1.ID), passed(t2.ID)}, nil))
	assert.Equal(t, 66, Progress(withProject, []models.TestResult{passed(t1.ID), passed(t2.ID)},
		&models.FinalProjectSubmission{Status: models.SubmissionInReview}))
	assert.Equal(t, 100, Progress(withProject, []models.TestResult{passed(t1.ID), passed(t2.ID)},
		&models.FinalProjectSubmission{Status: models.SubmissionPass}))
}
