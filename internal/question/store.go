package question

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"testgen/internal/category"
)

// Finder is the read side the variant generator depends on.
type Finder interface {
	FindQuestions(ctx context.Context, key category.Key) ([]Question, error)
}

type Store interface {
	Finder
	AllQuestions(ctx context.Context) ([]Question, error)
	ListQuestions(ctx context.Context, opts ListOpts) ([]Question, error)
	GetQuestion(ctx context.Context, id int64) (Question, error)
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
}

// ListOpts is the browsing filter. Key fields match exactly; Query is a
// case-insensitive substring over the text and labels.
type ListOpts struct {
	Key   category.Key
	Query string
}

func (o ListOpts) matches(q Question) bool {
	if !o.Key.Matches(q.Labels()) {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(o.Query))
	if needle == "" {
		return true
	}
	for _, hay := range []string{q.Text, q.Specialty, q.Course, q.Discipline, q.Topic} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

type MemoryStore struct {
	mu        sync.RWMutex
	seq       int64
	questions map[int64]Question
	now       func() time.Time
}

func NewMemoryStore(seed ...Question) *MemoryStore {
	s := &MemoryStore{
		questions: map[int64]Question{},
		now:       time.Now,
	}
	for _, q := range seed {
		if q.ID == 0 {
			s.seq++
			q.ID = s.seq
		} else if q.ID > s.seq {
			s.seq = q.ID
		}
		s.questions[q.ID] = q.Clone()
	}
	return s
}

func (s *MemoryStore) FindQuestions(_ context.Context, key category.Key) ([]Question, error) {
	return s.filter(func(q Question) bool { return key.Matches(q.Labels()) }), nil
}

func (s *MemoryStore) AllQuestions(_ context.Context) ([]Question, error) {
	return s.filter(func(Question) bool { return true }), nil
}

func (s *MemoryStore) ListQuestions(_ context.Context, opts ListOpts) ([]Question, error) {
	out := s.filter(opts.matches)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetQuestion(_ context.Context, id int64) (Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return q.Clone(), nil
}

func (s *MemoryStore) CreateQuestion(_ context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	q.ID = s.seq
	q.CreatedAt = s.now().UTC()
	s.questions[q.ID] = q.Clone()
	return q, nil
}

func (s *MemoryStore) UpdateQuestion(_ context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.questions[q.ID]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	q.CreatedAt = existing.CreatedAt
	s.questions[q.ID] = q.Clone()
	return q, nil
}

func (s *MemoryStore) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

// filter returns clones ordered by id ascending.
func (s *MemoryStore) filter(keep func(Question) bool) []Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Question, 0, len(s.questions))
	for _, q := range s.questions {
		if keep(q) {
			out = append(out, q.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
