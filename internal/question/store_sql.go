package question

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"testgen/internal/category"
)

// SQLStore reads and writes the questions table. Placeholders use the $n
// form accepted by both the pgx and the modernc sqlite drivers.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const selectQuestionColumns = `
	SELECT id, specialty, course, discipline, topic, question_text,
	       question_type, options, correct_answers, points, created_at
	FROM questions`

func (s *SQLStore) FindQuestions(ctx context.Context, key category.Key) ([]Question, error) {
	where, args := keyPredicates(key, nil)
	query := selectQuestionColumns + " WHERE 1=1" + where + " ORDER BY id ASC"
	return s.query(ctx, "find questions", query, args...)
}

func (s *SQLStore) AllQuestions(ctx context.Context) ([]Question, error) {
	return s.query(ctx, "list all questions", selectQuestionColumns+" ORDER BY id ASC")
}

func (s *SQLStore) ListQuestions(ctx context.Context, opts ListOpts) ([]Question, error) {
	where, args := keyPredicates(opts.Key, nil)
	if q := strings.ToLower(strings.TrimSpace(opts.Query)); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (
			LOWER(question_text) LIKE $%[1]d OR LOWER(specialty) LIKE $%[1]d OR
			LOWER(course) LIKE $%[1]d OR LOWER(discipline) LIKE $%[1]d OR
			LOWER(topic) LIKE $%[1]d)`, n)
	}
	query := selectQuestionColumns + " WHERE 1=1" + where + " ORDER BY id DESC"
	return s.query(ctx, "list questions", query, args...)
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	row := s.db.QueryRowContext(ctx, selectQuestionColumns+" WHERE id = $1", id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrQuestionNotFound
		}
		return Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	optionsJSON, keyJSON, err := encodeAnswerColumns(q)
	if err != nil {
		return Question{}, err
	}
	q.CreatedAt = time.Now().UTC()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO questions (
			specialty, course, discipline, topic, question_text,
			question_type, options, correct_answers, points, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, q.Specialty, q.Course, q.Discipline, q.Topic, q.Text,
		string(q.Type), optionsJSON, keyJSON, q.Points, q.CreatedAt).Scan(&q.ID)
	if err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	optionsJSON, keyJSON, err := encodeAnswerColumns(q)
	if err != nil {
		return Question{}, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE questions
		SET specialty = $1, course = $2, discipline = $3, topic = $4,
			question_text = $5, question_type = $6, options = $7,
			correct_answers = $8, points = $9
		WHERE id = $10
	`, q.Specialty, q.Course, q.Discipline, q.Topic, q.Text,
		string(q.Type), optionsJSON, keyJSON, q.Points, q.ID)
	if err != nil {
		return Question{}, fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Question{}, ErrQuestionNotFound
	}
	return s.GetQuestion(ctx, q.ID)
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *SQLStore) query(ctx context.Context, op, query string, args ...any) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

// keyPredicates appends one exact-match predicate per concrete key field.
func keyPredicates(key category.Key, args []any) (string, []any) {
	var sb strings.Builder
	cols := []struct {
		name  string
		value string
	}{
		{"specialty", key.Specialty},
		{"course", key.Course},
		{"discipline", key.Discipline},
		{"topic", key.Topic},
	}
	for _, c := range cols {
		if c.value == "" {
			continue
		}
		args = append(args, c.value)
		fmt.Fprintf(&sb, " AND %s = $%d", c.name, len(args))
	}
	return sb.String(), args
}

func encodeAnswerColumns(q Question) (string, string, error) {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return "", "", fmt.Errorf("encode options: %w", err)
	}
	keyJSON, err := json.Marshal(q.CorrectAnswers)
	if err != nil {
		return "", "", fmt.Errorf("encode correct answers: %w", err)
	}
	return string(optionsJSON), string(keyJSON), nil
}

func scanQuestion(scanner interface{ Scan(dest ...any) error }) (Question, error) {
	var (
		q          Question
		qType      string
		optionsRaw string
		keyRaw     string
		createdAt  sql.NullTime
	)
	if err := scanner.Scan(
		&q.ID,
		&q.Specialty,
		&q.Course,
		&q.Discipline,
		&q.Topic,
		&q.Text,
		&qType,
		&optionsRaw,
		&keyRaw,
		&q.Points,
		&createdAt,
	); err != nil {
		return Question{}, err
	}
	q.Type = Type(qType)
	if createdAt.Valid {
		q.CreatedAt = createdAt.Time
	}
	if err := json.Unmarshal([]byte(optionsRaw), &q.Options); err != nil {
		return Question{}, fmt.Errorf("decode options of question %d: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(keyRaw), &q.CorrectAnswers); err != nil {
		return Question{}, fmt.Errorf("decode correct answers of question %d: %w", q.ID, err)
	}
	return q, nil
}
