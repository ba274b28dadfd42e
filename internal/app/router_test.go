package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	if cfg.MaxVariants == 0 {
		cfg.MaxVariants = 10
	}
	if cfg.DefaultVariants == 0 {
		cfg.DefaultVariants = 2
	}
	cfg.GeneratorSeed = 7
	svc, err := NewServices(cfg, nil)
	require.NoError(t, err)
	return NewRouter(cfg, svc, nil)
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func TestHealthz(t *testing.T) {
	h := testRouter(t, Config{})
	rr, _ := call(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
}

func TestGenerateAndSubmitFlow(t *testing.T) {
	h := testRouter(t, Config{SubmitRateLimitPerMin: 10})

	rr, env := call(t, h, http.MethodPost, "/api/v1/questions", `{
		"specialty":"Math","course":"1","discipline":"Algebra","topic":"Equations",
		"question_text":"Solve 2x + 5 = 15","question_type":"single",
		"options":["x = 5","x = 10"],"correct_answers":[0],"points":2}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct{ ID int64 }
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rr, env = call(t, h, http.MethodPost, "/api/v1/test-configs", `{"name":"Midterm","config_data":{"Math|1||":1,"Physics|||":1}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var cfg struct{ ID int64 }
	require.NoError(t, json.Unmarshal(env.Data, &cfg))

	rr, env = call(t, h, http.MethodPost, "/api/v1/generate-test", fmt.Sprintf(`{"config_id":%d}`, cfg.ID))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var gen struct {
		Variants []struct {
			ID        int64 `json:"id"`
			Number    int   `json:"variant_number"`
			Questions []struct {
				ID int64 `json:"id"`
			} `json:"questions"`
		} `json:"variants"`
		Shortfalls []struct {
			Requested int `json:"requested"`
			Available int `json:"available"`
		} `json:"shortfalls"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &gen))
	require.Len(t, gen.Variants, 2)
	require.Len(t, gen.Shortfalls, 1)
	assert.Equal(t, 0, gen.Shortfalls[0].Available)
	require.Len(t, gen.Variants[0].Questions, 1)
	assert.Equal(t, created.ID, gen.Variants[0].Questions[0].ID)

	rr, _ = call(t, h, http.MethodGet, fmt.Sprintf("/api/v1/test-configs/%d/variants", cfg.ID), "")
	assert.Equal(t, http.StatusOK, rr.Code)

	body := fmt.Sprintf(`{"variant_id":%d,"student_name":"Anna","answers":{"%d":0}}`, gen.Variants[0].ID, created.ID)
	rr, env = call(t, h, http.MethodPost, "/api/v1/student-results", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res struct {
		Earned     int     `json:"earned_points"`
		Total      int     `json:"total_points"`
		Percentage float64 `json:"percentage"`
		Grade      string  `json:"grade"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.Earned)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 100.0, res.Percentage)
	assert.Equal(t, "Excellent", res.Grade)

	rr, env = call(t, h, http.MethodGet, fmt.Sprintf("/api/v1/reports/test-configs/%d/summary", cfg.ID), "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var summary struct {
		Participants int `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.Participants)

	rr, _ = call(t, h, http.MethodGet, "/metrics", "")
	assert.Contains(t, rr.Body.String(), `path="/api/v1/generate-test"`)
}

func TestUnknownVariantIsNotFound(t *testing.T) {
	h := testRouter(t, Config{})
	rr, env := call(t, h, http.MethodGet, "/api/v1/variants/999", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, env.OK)
}

func TestSubmitIsRateLimited(t *testing.T) {
	h := testRouter(t, Config{SubmitRateLimitPerMin: 1})
	body := `{"variant_id":1,"student_name":"A","answers":{}}`

	rr, _ := call(t, h, http.MethodPost, "/api/v1/student-results", body)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr, _ = call(t, h, http.MethodPost, "/api/v1/student-results", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Reads are not limited.
	rr, _ = call(t, h, http.MethodGet, "/api/v1/student-results", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
