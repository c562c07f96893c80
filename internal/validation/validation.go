// Package validation wraps go-playground/validator with the rules the domain
// models declare in their `validate` tags and turns failures into
// app_errors.ValidationError values with JSON field paths.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	register(v)
	return &Validator{v: v}
}

// RegisterGin installs the same tag names and custom rules on gin's binding engine.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	register(v)
	return nil
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	// the tag and func are static, registration cannot fail
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	v.RegisterStructValidation(correctAnswerInRange, models.Question{})
	v.RegisterStructValidation(uniqueTestIDs, models.Course{})
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func correctAnswerInRange(sl validator.StructLevel) {
	q := sl.Current().Interface().(models.Question)
	if len(q.Options) > 0 && q.CorrectAnswer >= len(q.Options) {
		sl.ReportError(q.CorrectAnswer, "correctAnswer", "CorrectAnswer", "option_index", "")
	}
}

func uniqueTestIDs(sl validator.StructLevel) {
	c := sl.Current().Interface().(models.Course)
	seen := make(map[uuid.UUID]bool, len(c.Tests))
	for i, t := range c.Tests {
		if t.ID == uuid.Nil {
			continue
		}
		if seen[t.ID] {
			sl.ReportError(t.ID, fmt.Sprintf("tests[%d].id", i), "ID", "unique_id", "")
		}
		seen[t.ID] = true
	}
}

func (v *Validator) Struct(s any) error {
	return Translate(v.v.Struct(s))
}

// Translate converts validator and binding errors into *app_errors.ValidationError.
// Other errors are reported as a malformed body.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var ve *app_errors.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return app_errors.Invalid("body", "is malformed: "+err.Error())
	}
	out := &app_errors.ValidationError{Fields: make([]app_errors.FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, app_errors.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name: "Course.tests[0].title" -> "tests[0].title".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	unit := ""
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = " items"
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s%s", fe.Param(), unit)
	case "min":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit)
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "slug":
		return "must contain only lowercase letters, digits and hyphens"
	case "option_index":
		return "must reference one of the options"
	case "unique_id":
		return "is already used by another test"
	}
	return fmt.Sprintf("failed the %q rule", fe.Tag())
}

func NormalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
