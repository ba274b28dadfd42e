package exam

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"testgen/internal/category"
)

const DefaultMaxVariants = 100

type Service struct {
	store       Store
	gen         *Generator
	maxVariants int
	now         func() time.Time
	locks       *keyedMutex
}

type CreateConfigInput struct {
	Name       string
	ConfigData map[string]int
}

type SubmitInput struct {
	VariantID   int64
	StudentName string
	Answers     AnswerSheet
}

func NewService(store Store, gen *Generator, maxVariants int) *Service {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}
	return &Service{
		store:       store,
		gen:         gen,
		maxVariants: maxVariants,
		now:         time.Now,
		locks:       newKeyedMutex(),
	}
}

func (s *Service) CreateConfiguration(ctx context.Context, in CreateConfigInput) (*Configuration, error) {
	var reasons []string
	name := strings.TrimSpace(in.Name)
	if name == "" {
		reasons = append(reasons, "name is required")
	}

	cats := make([]CategoryCount, 0, len(in.ConfigData))
	seen := map[category.Key]struct{}{}
	for _, raw := range slices.Sorted(maps.Keys(in.ConfigData)) {
		key, err := category.Parse(raw)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("category %q: %v", raw, err))
			continue
		}
		count := in.ConfigData[raw]
		if count < 0 {
			reasons = append(reasons, fmt.Sprintf("count for %q must not be negative", raw))
			continue
		}
		if _, dup := seen[key]; dup {
			reasons = append(reasons, fmt.Sprintf("category %q is listed twice", key.String()))
			continue
		}
		seen[key] = struct{}{}
		cats = append(cats, CategoryCount{Key: key, Count: count})
	}
	if len(reasons) > 0 {
		return nil, invalid(reasons...)
	}

	cfg := Configuration{Name: name, Categories: cats}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.store.CreateConfiguration(ctx, cfg)
	if err != nil {
		return nil, storeErr("create configuration", err)
	}
	return &stored, nil
}

func (s *Service) ListConfigurations(ctx context.Context) ([]Configuration, error) {
	items, err := s.store.ListConfigurations(ctx)
	if err != nil {
		return nil, storeErr("list configurations", err)
	}
	return items, nil
}

func (s *Service) GetConfiguration(ctx context.Context, id int64) (*Configuration, error) {
	cfg, err := s.store.GetConfiguration(ctx, id)
	if err != nil {
		return nil, storeErr("load configuration", err)
	}
	return &cfg, nil
}

func (s *Service) DeleteConfiguration(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	if err := s.store.DeleteConfiguration(ctx, id); err != nil {
		return storeErr("delete configuration", err)
	}
	logEvent("configuration_deleted", map[string]any{"test_config_id": id})
	return nil
}

// GenerateVariants replaces the configuration's variant set with n fresh
// variants. Calls for the same configuration run one at a time.
func (s *Service) GenerateVariants(ctx context.Context, configID int64, n int) ([]Variant, error) {
	var reasons []string
	if configID <= 0 {
		reasons = append(reasons, "config_id is required")
	}
	if n <= 0 {
		reasons = append(reasons, "num_variants must be greater than 0")
	} else if n > s.maxVariants {
		reasons = append(reasons, fmt.Sprintf("num_variants must be at most %d", s.maxVariants))
	}
	if len(reasons) > 0 {
		return nil, invalid(reasons...)
	}

	unlock := s.locks.Lock(configID)
	defer unlock()

	cfg, err := s.store.GetConfiguration(ctx, configID)
	if err != nil {
		return nil, storeErr("load configuration", err)
	}

	variants, err := s.gen.Generate(ctx, cfg, n)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ReplaceVariants(ctx, cfg.ID, variants)
	if err != nil {
		return nil, storeErr("replace variants", err)
	}

	if len(stored) > 0 {
		for _, sf := range stored[0].Shortfalls {
			logEvent("category_shortfall", map[string]any{
				"test_config_id": cfg.ID,
				"category":       sf.Key.String(),
				"requested":      sf.Requested,
				"available":      sf.Available,
			})
		}
		logEvent("variants_generated", map[string]any{
			"test_config_id": cfg.ID,
			"generation_id":  stored[0].GenerationID,
			"variants":       len(stored),
			"questions":      len(stored[0].Questions),
		})
	}
	return stored, nil
}

func (s *Service) ListVariants(ctx context.Context, configID int64) ([]Variant, error) {
	items, err := s.store.ListVariants(ctx, configID)
	if err != nil {
		return nil, storeErr("list variants", err)
	}
	return items, nil
}

func (s *Service) GetVariant(ctx context.Context, id int64) (*Variant, error) {
	v, err := s.store.GetVariant(ctx, id)
	if err != nil {
		return nil, storeErr("load variant", err)
	}
	return &v, nil
}

// SubmitAnswers scores a submission against the stored variant and saves
// the result. Client totals are never consulted.
func (s *Service) SubmitAnswers(ctx context.Context, in SubmitInput) (*StudentResult, error) {
	var reasons []string
	if in.VariantID <= 0 {
		reasons = append(reasons, "variant_id is required")
	}
	if strings.TrimSpace(in.StudentName) == "" {
		reasons = append(reasons, "student_name is required")
	}
	if in.Answers == nil {
		reasons = append(reasons, "answers is required")
	}
	if len(reasons) > 0 {
		return nil, invalid(reasons...)
	}

	v, err := s.store.GetVariant(ctx, in.VariantID)
	if err != nil {
		return nil, storeErr("load variant", err)
	}

	result := BuildResult(v, in.StudentName, in.Answers, s.now())
	id, err := s.store.SaveResult(ctx, result)
	if err != nil {
		return nil, storeErr("save result", err)
	}
	result.ID = id

	logEvent("result_saved", map[string]any{
		"result_id":  result.ID,
		"variant_id": result.VariantID,
		"earned":     result.EarnedPoints,
		"total":      result.TotalPoints,
		"grade":      result.Grade,
	})
	return &result, nil
}

func (s *Service) ListResults(ctx context.Context) ([]StudentResult, error) {
	items, err := s.store.ListResults(ctx)
	if err != nil {
		return nil, storeErr("list results", err)
	}
	return items, nil
}

// keyedMutex hands out one lock per configuration id and drops it once no
// caller holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[int64]*refLock{}}
}

func (k *keyedMutex) Lock(id int64) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
