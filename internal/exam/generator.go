package exam

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"testgen/internal/question"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultFetchLimit = 4

// Generator assembles variants by stratified sampling: a fixed draw from each
// category pool, merged and then shuffled once.
type Generator struct {
	finder     question.Finder
	source     func() rand.Source
	fetchLimit int
	now        func() time.Time
}

type GeneratorOption func(*Generator)

// WithSource sets the factory called once per Generate call.
func WithSource(fn func() rand.Source) GeneratorOption {
	return func(g *Generator) {
		if fn != nil {
			g.source = fn
		}
	}
}

// WithSeed makes every Generate call replay the same draws for the same pools.
func WithSeed(seed uint64) GeneratorOption {
	return WithSource(func() rand.Source {
		return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	})
}

// WithFetchLimit bounds concurrent pool queries.
func WithFetchLimit(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.fetchLimit = n
		}
	}
}

func withClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(finder question.Finder, opts ...GeneratorOption) *Generator {
	g := &Generator{
		finder:     finder,
		fetchLimit: defaultFetchLimit,
		now:        time.Now,
		source: func() rand.Source {
			t := uint64(time.Now().UnixNano())
			return rand.NewPCG(t, rand.Uint64())
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type pool struct {
	entry     CategoryCount
	questions []question.Question
}

// Generate builds numVariants variants numbered from 1. Variants are not
// persisted here and carry no id yet.
func (g *Generator) Generate(ctx context.Context, cfg Configuration, numVariants int) ([]Variant, error) {
	if numVariants <= 0 {
		return nil, invalid("num_variants must be greater than 0")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pools, err := g.fetchPools(ctx, cfg.Categories)
	if err != nil {
		return nil, err
	}

	var shortfalls []Shortfall
	for _, p := range pools {
		if len(p.questions) < p.entry.Count {
			shortfalls = append(shortfalls, Shortfall{
				Key:       p.entry.Key,
				Requested: p.entry.Count,
				Available: len(p.questions),
			})
		}
	}

	rng := rand.New(g.source())
	generationID := uuid.NewString()
	createdAt := g.now().UTC()

	variants := make([]Variant, 0, numVariants)
	for n := 1; n <= numVariants; n++ {
		v := Variant{
			ConfigID:     cfg.ID,
			Number:       n,
			GenerationID: generationID,
			Questions:    drawVariant(rng, pools),
			CreatedAt:    createdAt,
		}
		if len(shortfalls) > 0 {
			v.Shortfalls = append([]Shortfall(nil), shortfalls...)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// fetchPools reads every positive entry once; pools are reused by all
// variants of the call.
func (g *Generator) fetchPools(ctx context.Context, entries []CategoryCount) ([]pool, error) {
	active := make([]CategoryCount, 0, len(entries))
	for _, e := range entries {
		if e.Count > 0 {
			active = append(active, e)
		}
	}

	pools := make([]pool, len(active))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.fetchLimit)
	for i, entry := range active {
		eg.Go(func() error {
			qs, err := g.finder.FindQuestions(egCtx, entry.Key)
			if err != nil {
				return storeErr(fmt.Sprintf("find questions %q", entry.Key.String()), err)
			}
			pools[i] = pool{entry: entry, questions: qs}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return pools, nil
}

func drawVariant(rng *rand.Rand, pools []pool) []question.Question {
	total := 0
	for _, p := range pools {
		total += min(p.entry.Count, len(p.questions))
	}

	out := make([]question.Question, 0, total)
	for _, p := range pools {
		for _, idx := range sample(rng, len(p.questions), p.entry.Count) {
			out = append(out, p.questions[idx].Clone())
		}
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// sample returns min(k, n) distinct indices in [0, n) using a partial
// Fisher-Yates shuffle.
func sample(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
