package exam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"testgen/internal/question"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExamService struct {
	createConfigurationFn func(ctx context.Context, in CreateConfigInput) (*Configuration, error)
	listConfigurationsFn  func(ctx context.Context) ([]Configuration, error)
	getConfigurationFn    func(ctx context.Context, id int64) (*Configuration, error)
	deleteConfigurationFn func(ctx context.Context, id int64) error
	generateVariantsFn    func(ctx context.Context, configID int64, n int) ([]Variant, error)
	listVariantsFn        func(ctx context.Context, configID int64) ([]Variant, error)
	getVariantFn          func(ctx context.Context, id int64) (*Variant, error)
	submitAnswersFn       func(ctx context.Context, in SubmitInput) (*StudentResult, error)
	listResultsFn         func(ctx context.Context) ([]StudentResult, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockExamService) CreateConfiguration(ctx context.Context, in CreateConfigInput) (*Configuration, error) {
	if m.createConfigurationFn == nil {
		return nil, errNotImplemented
	}
	return m.createConfigurationFn(ctx, in)
}

func (m *mockExamService) ListConfigurations(ctx context.Context) ([]Configuration, error) {
	if m.listConfigurationsFn == nil {
		return nil, errNotImplemented
	}
	return m.listConfigurationsFn(ctx)
}

func (m *mockExamService) GetConfiguration(ctx context.Context, id int64) (*Configuration, error) {
	if m.getConfigurationFn == nil {
		return nil, errNotImplemented
	}
	return m.getConfigurationFn(ctx, id)
}

func (m *mockExamService) DeleteConfiguration(ctx context.Context, id int64) error {
	if m.deleteConfigurationFn == nil {
		return errNotImplemented
	}
	return m.deleteConfigurationFn(ctx, id)
}

func (m *mockExamService) GenerateVariants(ctx context.Context, configID int64, n int) ([]Variant, error) {
	if m.generateVariantsFn == nil {
		return nil, errNotImplemented
	}
	return m.generateVariantsFn(ctx, configID, n)
}

func (m *mockExamService) ListVariants(ctx context.Context, configID int64) ([]Variant, error) {
	if m.listVariantsFn == nil {
		return nil, errNotImplemented
	}
	return m.listVariantsFn(ctx, configID)
}

func (m *mockExamService) GetVariant(ctx context.Context, id int64) (*Variant, error) {
	if m.getVariantFn == nil {
		return nil, errNotImplemented
	}
	return m.getVariantFn(ctx, id)
}

func (m *mockExamService) SubmitAnswers(ctx context.Context, in SubmitInput) (*StudentResult, error) {
	if m.submitAnswersFn == nil {
		return nil, errNotImplemented
	}
	return m.submitAnswersFn(ctx, in)
}

func (m *mockExamService) ListResults(ctx context.Context) ([]StudentResult, error) {
	if m.listResultsFn == nil {
		return nil, errNotImplemented
	}
	return m.listResultsFn(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func errorDetails(t *testing.T, rr *httptest.ResponseRecorder) []any {
	t.Helper()
	errObj, ok := decodeBody(t, rr)["error"].(map[string]any)
	require.True(t, ok)
	details, _ := errObj["details"].([]any)
	return details
}

func TestGenerateDefaultsNumVariants(t *testing.T) {
	var gotN int
	h := NewHandler(&mockExamService{
		generateVariantsFn: func(ctx context.Context, configID int64, n int) ([]Variant, error) {
			assert.Equal(t, int64(3), configID)
			gotN = n
			return []Variant{{ID: 1, Number: 1}}, nil
		},
	}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate-test", bytes.NewBufferString(`{"config_id":3}`))
	rr := httptest.NewRecorder()
	h.Generate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, DefaultNumVariants, gotN)
}

func TestGenerateRequestValidation(t *testing.T) {
	h := NewHandler(&mockExamService{}, 5)
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing config", body: `{"num_variants":2}`, want: "config_id is required"},
		{name: "zero variants", body: `{"config_id":1,"num_variants":0}`, want: "num_variants must be greater than 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/generate-test", bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()
			h.Generate(rr, req)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, errorDetails(t, rr), tc.want)
		})
	}
}

func TestGenerateNotFound(t *testing.T) {
	h := NewHandler(&mockExamService{
		generateVariantsFn: func(context.Context, int64, int) ([]Variant, error) {
			return nil, ErrConfigNotFound
		},
	}, 5)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate-test", bytes.NewBufferString(`{"config_id":9,"num_variants":2}`))
	rr := httptest.NewRecorder()
	h.Generate(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSubmitParsesAnswers(t *testing.T) {
	h := NewHandler(&mockExamService{
		submitAnswersFn: func(ctx context.Context, in SubmitInput) (*StudentResult, error) {
			assert.Equal(t, int64(4), in.VariantID)
			assert.Equal(t, "Anna", in.StudentName)
			assert.Equal(t, []int{0, 2}, in.Answers[11].Indices)
			assert.True(t, in.Answers[12].Malformed)
			return &StudentResult{ID: 1, VariantID: 4, EarnedPoints: 2, TotalPoints: 2, Percentage: 100, Grade: GradeExcellent}, nil
		},
	}, 5)

	body := `{"variant_id":4,"student_name":"Anna","answers":{"11":[0,2],"12":"b"},"total_points":999}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/student-results", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	data := decodeBody(t, rr)["data"].(map[string]any)
	assert.Equal(t, "Excellent", data["grade"])
	assert.Equal(t, float64(2), data["total_points"])
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	h := NewHandler(&mockExamService{}, 5)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/student-results", bytes.NewBufferString(`{"answers":{}}`))
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	details := errorDetails(t, rr)
	assert.Contains(t, details, "variant_id is required")
	assert.Contains(t, details, "student_name is required")
}

func TestSubmitRejectsNonObjectAnswers(t *testing.T) {
	h := NewHandler(&mockExamService{}, 5)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/student-results", bytes.NewBufferString(`{"variant_id":1,"student_name":"A","answers":[1,2]}`))
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorDetails(t, rr), "answers must be an object")
}

func TestGetVariantNotFound(t *testing.T) {
	h := NewHandler(&mockExamService{
		getVariantFn: func(context.Context, int64) (*Variant, error) { return nil, ErrVariantNotFound },
	}, 5)
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/variants/5", nil), "id", "5")
	rr := httptest.NewRecorder()
	h.GetVariant(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStoreErrorIsInternal(t *testing.T) {
	h := NewHandler(&mockExamService{
		listResultsFn: func(context.Context) ([]StudentResult, error) {
			return nil, &StoreError{Op: "list results", Err: errors.New("boom")}
		},
	}, 5)
	rr := httptest.NewRecorder()
	h.ListResults(rr, httptest.NewRequest(http.MethodGet, "/api/v1/student-results", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestCreateConfigRoundTrip(t *testing.T) {
	svc := NewService(NewMemoryStore(), NewGenerator(question.NewMemoryStore()), 0)
	h := NewHandler(svc, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/test-configs",
		bytes.NewBufferString(`{"name":"Final","config_data":{"Math|1||":2,"||||":0}}`))
	rr := httptest.NewRecorder()
	h.CreateConfig(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	data := decodeBody(t, rr)["data"].(map[string]any)
	assert.Equal(t, "Final", data["name"])
	cfgData := data["config_data"].(map[string]any)
	assert.Equal(t, float64(2), cfgData["Math|1||"])
	assert.Equal(t, float64(0), cfgData["|||"])
}

func TestCreateConfigRejectsEmpty(t *testing.T) {
	svc := NewService(NewMemoryStore(), NewGenerator(question.NewMemoryStore()), 0)
	h := NewHandler(svc, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/test-configs", bytes.NewBufferString(`{"name":"Empty","config_data":{}}`))
	rr := httptest.NewRecorder()
	h.CreateConfig(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NotEmpty(t, errorDetails(t, rr))
}
