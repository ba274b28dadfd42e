package exam

import (
	"context"
	"sort"
	"sync"
	"time"

	"testgen/internal/question"
)

type ConfigStore interface {
	CreateConfiguration(ctx context.Context, cfg Configuration) (Configuration, error)
	GetConfiguration(ctx context.Context, id int64) (Configuration, error)
	ListConfigurations(ctx context.Context) ([]Configuration, error)
	// DeleteConfiguration removes the configuration and its variants.
	DeleteConfiguration(ctx context.Context, id int64) error
}

type VariantStore interface {
	// ReplaceVariants swaps the whole variant set of a configuration in one
	// step and returns the stored variants with ids assigned.
	ReplaceVariants(ctx context.Context, configID int64, variants []Variant) ([]Variant, error)
	GetVariant(ctx context.Context, id int64) (Variant, error)
	ListVariants(ctx context.Context, configID int64) ([]Variant, error)
}

type ResultStore interface {
	SaveResult(ctx context.Context, r StudentResult) (int64, error)
	ListResults(ctx context.Context) ([]StudentResult, error)
}

type Store interface {
	ConfigStore
	VariantStore
	ResultStore
}

// MemoryStore keeps everything behind one lock so a replace is never seen
// half done.
type MemoryStore struct {
	mu         sync.RWMutex
	configSeq  int64
	variantSeq int64
	resultSeq  int64
	configs    map[int64]Configuration
	variants   map[int64]Variant
	byConfig   map[int64][]int64
	results    []StudentResult
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs:  map[int64]Configuration{},
		variants: map[int64]Variant{},
		byConfig: map[int64][]int64{},
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateConfiguration(_ context.Context, cfg Configuration) (Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configSeq++
	cfg.ID = s.configSeq
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = s.now().UTC()
	}
	cfg.Categories = append([]CategoryCount(nil), cfg.Categories...)
	s.configs[cfg.ID] = cfg
	return cloneConfig(cfg), nil
}

func (s *MemoryStore) GetConfiguration(_ context.Context, id int64) (Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	if !ok {
		return Configuration{}, ErrConfigNotFound
	}
	return cloneConfig(cfg), nil
}

func (s *MemoryStore) ListConfigurations(_ context.Context) ([]Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Configuration, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cloneConfig(cfg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteConfiguration(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[id]; !ok {
		return ErrConfigNotFound
	}
	for _, vid := range s.byConfig[id] {
		delete(s.variants, vid)
	}
	delete(s.byConfig, id)
	delete(s.configs, id)
	return nil
}

func (s *MemoryStore) ReplaceVariants(_ context.Context, configID int64, variants []Variant) ([]Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[configID]; !ok {
		return nil, ErrConfigNotFound
	}

	for _, vid := range s.byConfig[configID] {
		delete(s.variants, vid)
	}
	ids := make([]int64, 0, len(variants))
	out := make([]Variant, 0, len(variants))
	for _, v := range variants {
		s.variantSeq++
		v = cloneVariant(v)
		v.ID = s.variantSeq
		v.ConfigID = configID
		if v.CreatedAt.IsZero() {
			v.CreatedAt = s.now().UTC()
		}
		s.variants[v.ID] = v
		ids = append(ids, v.ID)
		out = append(out, cloneVariant(v))
	}
	s.byConfig[configID] = ids
	return out, nil
}

func (s *MemoryStore) GetVariant(_ context.Context, id int64) (Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variants[id]
	if !ok {
		return Variant{}, ErrVariantNotFound
	}
	return cloneVariant(v), nil
}

func (s *MemoryStore) ListVariants(_ context.Context, configID int64) ([]Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.configs[configID]; !ok {
		return nil, ErrConfigNotFound
	}
	ids := s.byConfig[configID]
	out := make([]Variant, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneVariant(s.variants[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) SaveResult(_ context.Context, r StudentResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultSeq++
	r.ID = s.resultSeq
	r.Items = append([]ResultItem(nil), r.Items...)
	s.results = append(s.results, r)
	return r.ID, nil
}

// ListResults returns the newest submission first.
func (s *MemoryStore) ListResults(_ context.Context) ([]StudentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StudentResult, len(s.results))
	for i := range s.results {
		out[len(s.results)-1-i] = s.results[i]
	}
	return out, nil
}

func cloneConfig(cfg Configuration) Configuration {
	cfg.Categories = append([]CategoryCount(nil), cfg.Categories...)
	return cfg
}

func cloneVariant(v Variant) Variant {
	qs := make([]question.Question, 0, len(v.Questions))
	for _, q := range v.Questions {
		qs = append(qs, q.Clone())
	}
	v.Questions = qs
	v.Shortfalls = append([]Shortfall(nil), v.Shortfalls...)
	return v
}
