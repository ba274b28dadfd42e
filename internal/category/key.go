// Package category implements the "specialty|course|discipline|topic"
// selector used to carve the question bank into pools.
package category

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator joins the four key fields in the textual form.
	Separator = "|"
	// Wildcard is accepted on input as an alternative to an empty field.
	Wildcard = "*"

	fieldCount = 4
)

var ErrInvalidKey = errors.New("invalid category key")

// Key selects questions by classification. An empty field matches any value.
type Key struct {
	Specialty  string
	Course     string
	Discipline string
	Topic      string
}

// Labels is the classification carried by a question.
type Labels struct {
	Specialty  string
	Course     string
	Discipline string
	Topic      string
}

// Parse reads the textual form. Missing trailing fields are wildcards; extra
// trailing fields are tolerated only when empty.
func Parse(raw string) (Key, error) {
	parts := strings.Split(raw, Separator)
	if len(parts) > fieldCount {
		for _, extra := range parts[fieldCount:] {
			if strings.TrimSpace(extra) != "" {
				return Key{}, fmt.Errorf("%w: %q has more than %d fields", ErrInvalidKey, raw, fieldCount)
			}
		}
		parts = parts[:fieldCount]
	}
	for len(parts) < fieldCount {
		parts = append(parts, "")
	}

	return Key{
		Specialty:  normalizeField(parts[0]),
		Course:     normalizeField(parts[1]),
		Discipline: normalizeField(parts[2]),
		Topic:      normalizeField(parts[3]),
	}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) Key {
	k, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return k
}

func normalizeField(v string) string {
	if v == Wildcard {
		return ""
	}
	return v
}

// String renders the key deterministically, wildcards as empty fields.
func (k Key) String() string {
	return strings.Join(k.fields(), Separator)
}

func (k Key) fields() []string {
	return []string{k.Specialty, k.Course, k.Discipline, k.Topic}
}

// IsAny reports whether every field is a wildcard.
func (k Key) IsAny() bool {
	return k == Key{}
}

// Matches applies every concrete field as an exact, case-sensitive predicate.
func (k Key) Matches(l Labels) bool {
	return fieldMatches(k.Specialty, l.Specialty) &&
		fieldMatches(k.Course, l.Course) &&
		fieldMatches(k.Discipline, l.Discipline) &&
		fieldMatches(k.Topic, l.Topic)
}

func fieldMatches(want, got string) bool {
	return want == "" || want == got
}

// Overlaps reports whether some question could satisfy both keys.
func (k Key) Overlaps(other Key) bool {
	a, b := k.fields(), other.fields()
	for i := range a {
		if a[i] != "" && b[i] != "" && a[i] != b[i] {
			return false
		}
	}
	return true
}

// MarshalText lets keys be used as JSON object keys.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
