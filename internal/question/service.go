package question

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Service struct {
	store Store
}

type ImportReport struct {
	TotalRows   int              `json:"total_rows"`
	SuccessRows int              `json:"success_rows"`
	FailedRows  int              `json:"failed_rows"`
	Errors      []ImportRowError `json:"errors"`
}

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) ListQuestions(ctx context.Context, opts ListOpts) ([]Question, error) {
	return s.store.ListQuestions(ctx, opts)
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	if id <= 0 {
		return nil, ErrQuestionNotFound
	}
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *Service) CreateQuestion(ctx context.Context, in Question) (*Question, error) {
	q := Normalize(in)
	if err := Validate(q); err != nil {
		return nil, err
	}
	created, err := s.store.CreateQuestion(ctx, q)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateQuestion edits the bank only; variants generated earlier keep their
// own snapshot.
func (s *Service) UpdateQuestion(ctx context.Context, in Question) (*Question, error) {
	if in.ID <= 0 {
		return nil, &ValidationError{Reasons: []string{"id is required"}}
	}
	q := Normalize(in)
	if err := Validate(q); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateQuestion(ctx, q)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrQuestionNotFound
	}
	return s.store.DeleteQuestion(ctx, id)
}

// ImportCSV reads rows with the columns
// specialty,course,discipline,topic,question_text,question_type,options,correct_answers,points.
// options are separated by "|" and correct_answers by ";" or ",". Invalid rows
// are reported and skipped.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Errors: make([]ImportRowError, 0)}
	rowNo := 1
	for {
		rowNo++
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.TotalRows++
			report.FailedRows++
			report.Errors = append(report.Errors, ImportRowError{Row: rowNo, Error: fmt.Sprintf("csv parse error: %v", err)})
			continue
		}
		s.importRow(ctx, report, rowNo, rec, index)
	}

	return report, nil
}

// ImportExcel takes the same columns as ImportCSV from the first sheet of
// an xlsx workbook.
func (s *Service) ImportExcel(ctx context.Context, r io.Reader) (*ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, &ValidationError{Reasons: []string{"no header row found"}}
	}
	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Errors: make([]ImportRowError, 0)}
	for i := 1; i < len(rows); i++ {
		s.importRow(ctx, report, i+1, rows[i], index)
	}
	return report, nil
}

func (s *Service) importRow(ctx context.Context, report *ImportReport, rowNo int, rec []string, index map[string]int) {
	if isRowEmpty(rec) {
		return
	}
	report.TotalRows++

	q, err := questionFromRow(rec, index)
	if err == nil {
		_, err = s.CreateQuestion(ctx, q)
	}
	if err != nil {
		report.FailedRows++
		report.Errors = append(report.Errors, ImportRowError{Row: rowNo, Error: err.Error()})
		return
	}
	report.SuccessRows++
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if n := normalizeHeader(h); n != "" {
			index[n] = i
		}
	}
	for _, col := range []string{"question_text", "question_type", "options", "correct_answers"} {
		if _, ok := index[col]; !ok {
			return nil, &ValidationError{Reasons: []string{"missing required column: " + col}}
		}
	}
	return index, nil
}

func questionFromRow(rec []string, index map[string]int) (Question, error) {
	q := Question{
		Specialty:  cell(rec, index, "specialty"),
		Course:     cell(rec, index, "course"),
		Discipline: cell(rec, index, "discipline"),
		Topic:      cell(rec, index, "topic"),
		Text:       cell(rec, index, "question_text"),
		Type:       NormalizeType(cell(rec, index, "question_type")),
		Points:     1,
	}
	for _, o := range strings.Split(cell(rec, index, "options"), "|") {
		q.Options = append(q.Options, strings.TrimSpace(o))
	}

	keys := strings.FieldsFunc(cell(rec, index, "correct_answers"), func(r rune) bool {
		return r == ';' || r == ','
	})
	for _, k := range keys {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return Question{}, fmt.Errorf("correct_answers: %q is not an option index", k)
		}
		q.CorrectAnswers = append(q.CorrectAnswers, n)
	}

	if raw := cell(rec, index, "points"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Question{}, fmt.Errorf("points: %q is not an integer", raw)
		}
		q.Points = n
	}
	return q, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "-", "_")
	h = strings.ReplaceAll(h, " ", "_")
	return h
}

func cell(rec []string, idx map[string]int, key string) string {
	i, ok := idx[key]
	if !ok || i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isRowEmpty(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
