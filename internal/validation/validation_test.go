package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

func validCourse() models.Course {
	return models.Course{
		Slug:             "go-basics",
		Title:            "Go Basics",
		Description:      "<p>Learn Go</p>",
		SmallDescription: "Learn Go",
		Category:         "programming",
		Level:            models.LevelBeginner,
		Duration:         10,
		Price:            0,
		Status:           models.StatusDraft,
		FileKey:          "thumb.png",
		Tests: []models.Test{{
			ID:           uuid.New(),
			Title:        "Quiz 1",
			PassingScore: 70,
			Order:        1,
			Questions: []models.Question{{
				Question:      "2+2?",
				Options:       []string{"3", "4"},
				CorrectAnswer: 1,
			}},
		}},
	}
}

func fields(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, app_errors.ErrValidation))
	var ve *app_errors.ValidationError
	require.True(t, errors.As(err, &ve))
	out := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestValidator_Course(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		mutate    func(c *models.Course)
		wantField string
	}{
		{"valid", func(c *models.Course) {}, ""},
		{"slug with spaces", func(c *models.Course) { c.Slug = "go basics" }, "slug"},
		{"slug upper case", func(c *models.Course) { c.Slug = "Go-Basics" }, "slug"},
		{"missing title", func(c *models.Course) { c.Title = "" }, "title"},
		{"title too long", func(c *models.Course) { c.Title = strings.Repeat("a", 201) }, "title"},
		{"small description too long", func(c *models.Course) { c.SmallDescription = strings.Repeat("a", 301) }, "smallDescription"},
		{"unknown level", func(c *models.Course) { c.Level = "expert" }, "level"},
		{"negative price", func(c *models.Course) { c.Price = -1 }, "price"},
		{"zero duration", func(c *models.Course) { c.Duration = 0 }, "duration"},
		{"unknown status", func(c *models.Course) { c.Status = "deleted" }, "status"},
		{"missing file key", func(c *models.Course) { c.FileKey = "" }, "fileKey"},
		{"passing score above 100", func(c *models.Course) { c.Tests[0].PassingScore = 101 }, "passingScore"},
		{"order below 1", func(c *models.Course) { c.Tests[0].Order = 0 }, "order"},
		{"correct answer out of range", func(c *models.Course) { c.Tests[0].Questions[0].CorrectAnswer = 2 }, "correctAnswer"},
		{"single option", func(c *models.Course) { c.Tests[0].Questions[0].Options = []string{"4"} }, "options"},
		{"final project without title", func(c *models.Course) {
			c.FinalProject = &models.FinalProject{Description: "d", SubmissionInstructions: "s"}
		}, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCourse()
			tt.mutate(&c)
			err := v.Struct(c)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			got := fields(t, err)
			found := false
			for _, f := range got {
				if strings.HasSuffix(f, tt.wantField) {
					found = true
				}
			}
			assert.True(t, found, "want field %q in %v", tt.wantField, got)
		})
	}
}

func TestValidator_NestedFieldPath(t *testing.T) {
	c := validCourse()
	c.Tests[0].Questions[0].CorrectAnswer = 5

	got := fields(t, New().Struct(c))

	assert.Equal(t, []string{"tests[0].questions[0].correctAnswer"}, got)
}

func TestValidator_DuplicateTestIDs(t *testing.T) {
	c := validCourse()
	second := c.Tests[0]
	second.Order = 2
	c.Tests = append(c.Tests, second)

	got := fields(t, New().Struct(c))

	assert.Equal(t, []string{"tests[1].id"}, got)

	c.Tests[1].ID = uuid.New()
	assert.NoError(t, New().Struct(c))
}

func TestTranslate_NonValidatorError(t *testing.T) {
	err := Translate(errors.New("unexpected EOF"))

	got := fields(t, err)
	assert.Equal(t, []string{"body"}, got)
	assert.Nil(t, Translate(nil))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "go-basics", NormalizeSlug("  Go-Basics "))
	assert.Equal(t, "a@b.io", NormalizeEmail(" A@B.io"))
}
