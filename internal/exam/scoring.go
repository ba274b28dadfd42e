package exam

import (
	"sort"

	"testgen/internal/question"
)

type Grade string

const (
	GradeExcellent      Grade = "Excellent"
	GradeGood           Grade = "Good"
	GradeSatisfactory   Grade = "Satisfactory"
	GradeUnsatisfactory Grade = "Unsatisfactory"
)

const (
	ReasonCorrect            = "correct"
	ReasonWrong              = "wrong"
	ReasonUnanswered         = "unanswered"
	ReasonMalformedPayload   = "malformed_payload"
	ReasonMalformedAnswerKey = "malformed_answer_key"
)

// GradeFor maps a percentage to its label. Lower bounds are inclusive.
func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= 90:
		return GradeExcellent
	case percentage >= 75:
		return GradeGood
	case percentage >= 50:
		return GradeSatisfactory
	default:
		return GradeUnsatisfactory
	}
}

func Percentage(earned, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(earned) / float64(total) * 100
}

// Selection is one question's submitted answer. Malformed is set when the
// payload for that question could not be read as option indices.
type Selection struct {
	Indices   []int
	Malformed bool
}

// AnswerSheet is a submission keyed by question id. A missing id means the
// question was not answered.
type AnswerSheet map[int64]Selection

// Sheet converts typed answers; index validity is checked while scoring.
func (a Answers) Sheet() AnswerSheet {
	out := make(AnswerSheet, len(a))
	for id, idx := range a {
		out[id] = Selection{Indices: append([]int(nil), idx...)}
	}
	return out
}

type Score struct {
	EarnedPoints int
	TotalPoints  int
	Percentage   float64
	Grade        Grade
	Items        []ResultItem
}

// ScoreVariant grades a sheet against the variant's stored snapshot. Totals
// always come from the snapshot.
func ScoreVariant(v Variant, sheet AnswerSheet) Score {
	out := Score{Items: make([]ResultItem, 0, len(v.Questions))}
	for _, q := range v.Questions {
		sel, answered := sheet[q.ID]
		item := ScoreQuestion(q, sel, answered)
		out.TotalPoints += item.Points
		out.EarnedPoints += item.Earned
		out.Items = append(out.Items, item)
	}
	out.Percentage = Percentage(out.EarnedPoints, out.TotalPoints)
	out.Grade = GradeFor(out.Percentage)
	return out
}

// ScoreQuestion is binary: full points or nothing.
func ScoreQuestion(q question.Question, sel Selection, answered bool) ResultItem {
	points := q.Points
	if points < 0 {
		points = 0
	}
	item := ResultItem{QuestionID: q.ID, Points: points}

	correct, okKey := answerKey(q)
	if !okKey {
		item.Reason = ReasonMalformedAnswerKey
		return item
	}
	item.Correct = correct

	if sel.Malformed {
		item.Reason = ReasonMalformedPayload
		return item
	}
	if !answered || len(sel.Indices) == 0 {
		item.Reason = ReasonUnanswered
		return item
	}

	selected, ok := selectionSet(sel.Indices, len(q.Options))
	if !ok {
		item.Selected = append([]int(nil), sel.Indices...)
		item.Reason = ReasonMalformedPayload
		return item
	}
	item.Selected = selected

	switch question.NormalizeType(string(q.Type)) {
	case question.TypeSingle:
		item.IsCorrect = len(selected) == 1 && selected[0] == correct[0]
	default:
		item.IsCorrect = equalInts(selected, correct)
	}

	if item.IsCorrect {
		item.Earned = points
		item.Reason = ReasonCorrect
	} else {
		item.Reason = ReasonWrong
	}
	return item
}

// answerKey returns the sorted distinct correct indices, or false when the
// stored key cannot be scored.
func answerKey(q question.Question) ([]int, bool) {
	set, ok := selectionSet(q.CorrectAnswers, len(q.Options))
	if !ok || len(set) == 0 {
		return nil, false
	}
	switch question.NormalizeType(string(q.Type)) {
	case question.TypeSingle:
		if len(set) != 1 {
			return nil, false
		}
	case question.TypeMultiple:
	default:
		return nil, false
	}
	return set, true
}

func selectionSet(indices []int, optionCount int) ([]int, bool) {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= optionCount {
			return nil, false
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, true
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
