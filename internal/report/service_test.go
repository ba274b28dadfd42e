package report

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"testgen/internal/exam"
	"testgen/internal/question"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seeded(t *testing.T) (*exam.Service, int64) {
	t.Helper()
	ctx := context.Background()
	store := exam.NewMemoryStore()
	svc := exam.NewService(store, exam.NewGenerator(question.NewMemoryStore()), 0)

	cfg, err := svc.CreateConfiguration(ctx, exam.CreateConfigInput{Name: "Final", ConfigData: map[string]int{"Math|||": 1}})
	require.NoError(t, err)
	other, err := svc.CreateConfiguration(ctx, exam.CreateConfigInput{Name: "Other", ConfigData: map[string]int{"Bio|||": 1}})
	require.NoError(t, err)

	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, r := range []exam.StudentResult{
		{ConfigID: cfg.ID, VariantNumber: 1, StudentName: "A", EarnedPoints: 9, TotalPoints: 10, Percentage: 90, Grade: exam.GradeExcellent, SubmittedAt: at},
		{ConfigID: cfg.ID, VariantNumber: 2, StudentName: "B", EarnedPoints: 2, TotalPoints: 3, Percentage: 200.0 / 3, Grade: exam.GradeSatisfactory, SubmittedAt: at},
		{ConfigID: cfg.ID, VariantNumber: 1, StudentName: "C", EarnedPoints: 0, TotalPoints: 10, Percentage: 0, Grade: exam.GradeUnsatisfactory, SubmittedAt: at},
		{ConfigID: other.ID, VariantNumber: 1, StudentName: "D", EarnedPoints: 1, TotalPoints: 1, Percentage: 100, Grade: exam.GradeExcellent, SubmittedAt: at},
	} {
		_, err := store.SaveResult(ctx, r)
		require.NoError(t, err)
	}
	return svc, cfg.ID
}

func TestSummaryByConfig(t *testing.T) {
	src, cfgID := seeded(t)
	svc := NewService(src)

	got, err := svc.SummaryByConfig(context.Background(), cfgID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.ConfigName)
	assert.Equal(t, 3, got.Participants)
	assert.Equal(t, 52.22, got.AverageScore)
	assert.Equal(t, 90.0, got.HighestScore)
	assert.Equal(t, 0.0, got.LowestScore)
	assert.Equal(t, 1, got.GradeCounts[exam.GradeExcellent])
	assert.Equal(t, 0, got.GradeCounts[exam.GradeGood])
	assert.Equal(t, 1, got.GradeCounts[exam.GradeSatisfactory])
	assert.Equal(t, 1, got.GradeCounts[exam.GradeUnsatisfactory])
	assert.Equal(t, map[int]int{1: 2, 2: 1}, got.ByVariant)
}

func TestSummaryByConfigNotFound(t *testing.T) {
	src, _ := seeded(t)
	_, err := NewService(src).SummaryByConfig(context.Background(), 99)
	assert.ErrorIs(t, err, exam.ErrConfigNotFound)
}

func TestExportResultsExcel(t *testing.T) {
	src, _ := seeded(t)
	data, err := NewService(src).ExportResultsExcel(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "D", rows[1][1])
	assert.Equal(t, "Other", rows[1][2])
	assert.Equal(t, "66.67", rows[3][6])
	assert.Equal(t, "Satisfactory", rows[3][7])
}

func TestSummaryHandler(t *testing.T) {
	src, cfgID := seeded(t)
	h := NewHandler(NewService(src))

	tests := []struct {
		id   string
		want int
	}{
		{id: "1", want: http.StatusOK},
		{id: "99", want: http.StatusNotFound},
		{id: "x", want: http.StatusBadRequest},
	}
	require.Equal(t, int64(1), cfgID)
	for _, tc := range tests {
		r := chi.NewRouter()
		r.Get("/api/v1/reports/test-configs/{id}/summary", h.Summary)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/reports/test-configs/"+tc.id+"/summary", nil))
		assert.Equal(t, tc.want, rr.Code, "id %s", tc.id)
	}
}

func TestExportHandlerHeaders(t *testing.T) {
	src, _ := seeded(t)
	h := NewHandler(NewService(src))
	rr := httptest.NewRecorder()
	h.ExportResults(rr, httptest.NewRequest(http.MethodGet, "/api/v1/student-results/export", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rr.Body.Len())
}
