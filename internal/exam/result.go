package exam

import (
	"strings"
	"time"
)

// BuildResult packages a score into the record that gets persisted. The
// result has no id until the store assigns one.
func BuildResult(v Variant, studentName string, sheet AnswerSheet, submittedAt time.Time) StudentResult {
	score := ScoreVariant(v, sheet)
	return StudentResult{
		VariantID:     v.ID,
		ConfigID:      v.ConfigID,
		VariantNumber: v.Number,
		StudentName:   strings.TrimSpace(studentName),
		EarnedPoints:  score.EarnedPoints,
		TotalPoints:   score.TotalPoints,
		Percentage:    score.Percentage,
		Grade:         score.Grade,
		Items:         score.Items,
		SubmittedAt:   submittedAt.UTC(),
	}
}
