package report

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"testgen/internal/exam"

	"github.com/xuri/excelize/v2"
)

// source is the read side of the exam service used for reporting.
type source interface {
	GetConfiguration(ctx context.Context, id int64) (*exam.Configuration, error)
	ListConfigurations(ctx context.Context) ([]exam.Configuration, error)
	ListResults(ctx context.Context) ([]exam.StudentResult, error)
}

type Service struct {
	src source
}

type ConfigSummary struct {
	ConfigID     int64              `json:"test_config_id"`
	ConfigName   string             `json:"test_config_name"`
	Participants int                `json:"participants"`
	AverageScore float64            `json:"average_percentage"`
	HighestScore float64            `json:"highest_percentage"`
	LowestScore  float64            `json:"lowest_percentage"`
	GradeCounts  map[exam.Grade]int `json:"grade_counts"`
	ByVariant    map[int]int        `json:"participants_by_variant"`
}

func NewService(src source) *Service {
	return &Service{src: src}
}

// SummaryByConfig aggregates every result submitted against any variant of
// the configuration, including variants that were since regenerated.
func (s *Service) SummaryByConfig(ctx context.Context, configID int64) (*ConfigSummary, error) {
	cfg, err := s.src.GetConfiguration(ctx, configID)
	if err != nil {
		return nil, err
	}
	results, err := s.src.ListResults(ctx)
	if err != nil {
		return nil, err
	}

	out := &ConfigSummary{
		ConfigID:    cfg.ID,
		ConfigName:  cfg.Name,
		GradeCounts: map[exam.Grade]int{},
		ByVariant:   map[int]int{},
	}
	for _, g := range []exam.Grade{exam.GradeExcellent, exam.GradeGood, exam.GradeSatisfactory, exam.GradeUnsatisfactory} {
		out.GradeCounts[g] = 0
	}

	sum := 0.0
	for _, r := range results {
		if r.ConfigID != configID {
			continue
		}
		if out.Participants == 0 {
			out.HighestScore = r.Percentage
			out.LowestScore = r.Percentage
		}
		out.Participants++
		sum += r.Percentage
		out.HighestScore = math.Max(out.HighestScore, r.Percentage)
		out.LowestScore = math.Min(out.LowestScore, r.Percentage)
		out.GradeCounts[r.Grade]++
		out.ByVariant[r.VariantNumber]++
	}
	if out.Participants > 0 {
		out.AverageScore = round2(sum / float64(out.Participants))
	}
	out.HighestScore = round2(out.HighestScore)
	out.LowestScore = round2(out.LowestScore)
	return out, nil
}

var exportHeaders = []string{
	"id", "student_name", "test_config", "variant_number",
	"earned_points", "total_points", "percentage", "grade", "submitted_at",
}

// ExportResultsExcel renders all results, newest first, as an xlsx file.
func (s *Service) ExportResultsExcel(ctx context.Context) ([]byte, error) {
	results, err := s.src.ListResults(ctx)
	if err != nil {
		return nil, err
	}
	configs, err := s.src.ListConfigurations(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(configs))
	for _, c := range configs {
		names[c.ID] = c.Name
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := "Results"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, r := range results {
		row := i + 2
		configName := names[r.ConfigID]
		if configName == "" {
			configName = fmt.Sprintf("#%d", r.ConfigID)
		}
		values := []any{
			r.ID,
			r.StudentName,
			configName,
			r.VariantNumber,
			r.EarnedPoints,
			r.TotalPoints,
			round2(r.Percentage),
			string(r.Grade),
			r.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "I", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
