package enrollment

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

// Score grades answers against test. Unanswered questions count as wrong.
// The score is a percentage rounded to two decimals.
func Score(test models.Test, answers []models.Answer) ([]models.AnswerRecord, float64, error) {
	if len(answers) > len(test.Questions) {
		return nil, 0, app_errors.Invalid("answers", fmt.Sprintf("must contain at most %d items", len(test.Questions)))
	}

	seen := make(map[int]bool, len(answers))
	records := make([]models.AnswerRecord, 0, len(answers))
	correct := 0
	for i, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(test.Questions) {
			return nil, 0, app_errors.Invalid(fmt.Sprintf("answers[%d].questionIndex", i), "does not reference a question of the test")
		}
		if seen[a.QuestionIndex] {
			return nil, 0, app_errors.Invalid(fmt.Sprintf("answers[%d].questionIndex", i), "is answered more than once")
		}
		seen[a.QuestionIndex] = true

		q := test.Questions[a.QuestionIndex]
		if a.SelectedAnswer < 0 || a.SelectedAnswer >= len(q.Options) {
			return nil, 0, app_errors.Invalid(fmt.Sprintf("answers[%d].selectedAnswer", i), "does not reference an option of the question")
		}

		ok := a.SelectedAnswer == q.CorrectAnswer
		if ok {
			correct++
		}
		records = append(records, models.AnswerRecord{
			QuestionIndex:  a.QuestionIndex,
			SelectedAnswer: a.SelectedAnswer,
			IsCorrect:      ok,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].QuestionIndex < records[j].QuestionIndex })

	if len(test.Questions) == 0 {
		return records, 0, nil
	}
	score := float64(correct) / float64(len(test.Questions)) * 100
	return records, math.Round(score*100) / 100, nil
}

// Passed compares the exact correct share against the passing score, so a score that
// only reaches it by rounding does not pass.
func Passed(test models.Test, records []models.AnswerRecord) bool {
	correct := 0
	for _, r := range records {
		if r.IsCorrect {
			correct++
		}
	}
	return correct*100 >= test.PassingScore*len(test.Questions)
}

// Progress is the share of completed units of the course: every test counts once
// when passed at least once, and the final project counts once when it passed.
func Progress(course *models.Course, results []models.TestResult, submission *models.FinalProjectSubmission) int {
	units := len(course.Tests)
	if course.FinalProject != nil {
		units++
	}
	if units == 0 {
		return 0
	}

	passed := make(map[uuid.UUID]bool, len(course.Tests))
	for _, r := range results {
		if r.Passed {
			passed[r.TestID] = true
		}
	}
	done := 0
	for _, t := range course.Tests {
		if passed[t.ID] {
			done++
		}
	}
	if course.FinalProject != nil && submission != nil && submission.Status == models.SubmissionPass {
		done++
	}
	return done * 100 / units
}
