package question

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"testgen/internal/category"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuestionNotFound = errors.New("question not found")
)

type Type string

const (
	TypeSingle   Type = "single"
	TypeMultiple Type = "multiple"
)

type Question struct {
	ID             int64     `json:"id"`
	Specialty      string    `json:"specialty"`
	Course         string    `json:"course"`
	Discipline     string    `json:"discipline"`
	Topic          string    `json:"topic"`
	Text           string    `json:"question_text"`
	Type           Type      `json:"question_type"`
	Options        []string  `json:"options"`
	CorrectAnswers []int     `json:"correct_answers"`
	Points         int       `json:"points"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Labels returns the classification used for category matching.
func (q Question) Labels() category.Labels {
	return category.Labels{
		Specialty:  q.Specialty,
		Course:     q.Course,
		Discipline: q.Discipline,
		Topic:      q.Topic,
	}
}

// Clone returns a deep copy so snapshots never share slices with the bank.
func (q Question) Clone() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	out.CorrectAnswers = append([]int(nil), q.CorrectAnswers...)
	return out
}

// ValidationError lists every reason a question was rejected.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Reasons, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func NormalizeType(v string) Type {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "single", "single_choice", "pg_tunggal":
		return TypeSingle
	case "multiple", "multiple_choice", "multi":
		return TypeMultiple
	default:
		return Type(strings.TrimSpace(strings.ToLower(v)))
	}
}

// Normalize trims free text, canonicalizes the type and sorts the answer key.
// Labels are kept as entered since matching is exact.
func Normalize(q Question) Question {
	q.Text = strings.TrimSpace(q.Text)
	q.Type = NormalizeType(string(q.Type))
	opts := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, strings.TrimSpace(o))
	}
	q.Options = opts
	keys := append([]int(nil), q.CorrectAnswers...)
	sort.Ints(keys)
	q.CorrectAnswers = keys
	return q
}

// Validate checks the invariants every stored question must satisfy.
func Validate(q Question) error {
	var reasons []string

	if strings.TrimSpace(q.Text) == "" {
		reasons = append(reasons, "question_text is required")
	}
	if q.Points <= 0 {
		reasons = append(reasons, "points must be a positive integer")
	}
	for _, l := range []struct{ name, value string }{
		{"specialty", q.Specialty},
		{"course", q.Course},
		{"discipline", q.Discipline},
		{"topic", q.Topic},
	} {
		if strings.TrimSpace(l.value) == category.Wildcard {
			reasons = append(reasons, fmt.Sprintf("%s must not be the wildcard %s", l.name, category.Wildcard))
		}
		if strings.Contains(l.value, category.Separator) {
			reasons = append(reasons, fmt.Sprintf("%s must not contain %q", l.name, category.Separator))
		}
	}

	if len(q.Options) < 2 {
		reasons = append(reasons, "at least 2 options are required")
	}
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			reasons = append(reasons, fmt.Sprintf("option %d is empty", i))
		}
	}

	seen := make(map[int]struct{}, len(q.CorrectAnswers))
	for _, idx := range q.CorrectAnswers {
		if idx < 0 || idx >= len(q.Options) {
			reasons = append(reasons, fmt.Sprintf("correct answer index %d is out of range", idx))
			continue
		}
		if _, dup := seen[idx]; dup {
			reasons = append(reasons, fmt.Sprintf("correct answer index %d is duplicated", idx))
		}
		seen[idx] = struct{}{}
	}

	switch q.Type {
	case TypeSingle:
		if len(q.CorrectAnswers) != 1 {
			reasons = append(reasons, "single question requires exactly one correct answer")
		}
	case TypeMultiple:
		if len(q.CorrectAnswers) == 0 {
			reasons = append(reasons, "multiple question requires at least one correct answer")
		}
	default:
		reasons = append(reasons, fmt.Sprintf("unsupported question_type %q", q.Type))
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}
