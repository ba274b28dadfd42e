package exam

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"testgen/internal/category"
	"testgen/internal/question"
)

// CategoryCount asks for Count questions drawn from the pool selected by Key.
type CategoryCount struct {
	Key   category.Key `json:"key"`
	Count int          `json:"count"`
}

// Configuration is the named recipe variants are assembled from.
type Configuration struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Categories []CategoryCount `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
}

type configurationJSON struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	ConfigData map[string]int `json:"config_data"`
	CreatedAt  time.Time      `json:"created_at"`
}

// MarshalJSON keeps the {"specialty|course|discipline|topic": count} wire form.
func (c Configuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(configurationJSON{
		ID:         c.ID,
		Name:       c.Name,
		ConfigData: c.ConfigData(),
		CreatedAt:  c.CreatedAt,
	})
}

// ConfigData renders the categories in their persisted form.
func (c Configuration) ConfigData() map[string]int {
	out := make(map[string]int, len(c.Categories))
	for _, cc := range c.Categories {
		out[cc.Key.String()] += cc.Count
	}
	return out
}

// ParseConfigData reads the persisted form. Keys are sorted so seeded
// generation draws categories in a stable order.
func ParseConfigData(data map[string]int) ([]CategoryCount, error) {
	raws := make([]string, 0, len(data))
	for raw := range data {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	out := make([]CategoryCount, 0, len(raws))
	for _, raw := range raws {
		key, err := category.Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryCount{Key: key, Count: data[raw]})
	}
	return out, nil
}

// Validate rejects configurations with nothing to draw.
func (c Configuration) Validate() error {
	var reasons []string
	active := 0
	for _, cc := range c.Categories {
		if cc.Count > 0 {
			active++
		}
	}
	if active == 0 {
		reasons = append(reasons, "configuration must have at least one category with a positive count")
	}
	if len(reasons) > 0 {
		return invalid(reasons...)
	}
	return nil
}

// Shortfall records a category whose pool was smaller than requested.
type Shortfall struct {
	Key       category.Key `json:"key"`
	Requested int          `json:"requested"`
	Available int          `json:"available"`
}

func (s Shortfall) Missing() int {
	return s.Requested - s.Available
}

// Variant is one fixed exam instance. Questions are snapshots taken at
// generation time.
type Variant struct {
	ID           int64               `json:"id"`
	ConfigID     int64               `json:"test_config_id"`
	Number       int                 `json:"variant_number"`
	GenerationID string              `json:"generation_id"`
	Questions    []question.Question `json:"questions"`
	Shortfalls   []Shortfall         `json:"shortfalls,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (v Variant) TotalPoints() int {
	total := 0
	for _, q := range v.Questions {
		total += q.Points
	}
	return total
}

// RequestedQuestions is the nominal size of the variant before shortfalls.
func (v Variant) RequestedQuestions() int {
	n := len(v.Questions)
	for _, s := range v.Shortfalls {
		n += s.Missing()
	}
	return n
}

// Answers maps a question id to the chosen option indices.
type Answers map[int64][]int

// ResultItem is the per-question breakdown stored with a result.
type ResultItem struct {
	QuestionID int64  `json:"question_id"`
	Selected   []int  `json:"selected"`
	Correct    []int  `json:"correct"`
	IsCorrect  bool   `json:"is_correct"`
	Points     int    `json:"points"`
	Earned     int    `json:"earned"`
	Reason     string `json:"reason"`
}

// StudentResult is written once per submission and never edited.
type StudentResult struct {
	ID            int64        `json:"id"`
	VariantID     int64        `json:"variant_id"`
	ConfigID      int64        `json:"test_config_id"`
	VariantNumber int          `json:"variant_number"`
	StudentName   string       `json:"student_name"`
	EarnedPoints  int          `json:"earned_points"`
	TotalPoints   int          `json:"total_points"`
	Percentage    float64      `json:"percentage"`
	Grade         Grade        `json:"grade"`
	Items         []ResultItem `json:"items,omitempty"`
	SubmittedAt   time.Time    `json:"created_at"`
}

// PercentageText formats the percentage with two decimals for display.
func (r StudentResult) PercentageText() string {
	return fmt.Sprintf("%.2f", r.Percentage)
}
