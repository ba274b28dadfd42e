package app

import (
	"database/sql"
	"net/http"
	"time"

	"testgen/internal/app/observability"
	"testgen/internal/exam"
	"testgen/internal/question"
	"testgen/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg Config, svc *Services, conn *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(conn)
	r.Use(collector.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	questionHandler := question.NewHandler(svc.Questions)
	examHandler := exam.NewHandler(svc.Exams, cfg.DefaultVariants)
	reportHandler := report.NewHandler(svc.Reports)
	submitLimiter := NewIPRateLimiter(cfg.SubmitRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if conn != nil {
			if err := conn.PingContext(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"ok":false}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/questions", questionHandler.List)
		api.Post("/questions", questionHandler.Create)
		api.Post("/questions/import", questionHandler.Import)
		api.Get("/questions/{id}", questionHandler.Get)
		api.Put("/questions/{id}", questionHandler.Update)
		api.Delete("/questions/{id}", questionHandler.Delete)

		api.Get("/test-configs", examHandler.ListConfigs)
		api.Post("/test-configs", examHandler.CreateConfig)
		api.Get("/test-configs/{id}", examHandler.GetConfig)
		api.Delete("/test-configs/{id}", examHandler.DeleteConfig)
		api.Get("/test-configs/{id}/variants", examHandler.ListConfigVariants)

		api.Post("/generate-test", examHandler.Generate)
		api.Get("/variants/{id}", examHandler.GetVariant)

		api.Get("/student-results", examHandler.ListResults)
		api.Get("/student-results/export", reportHandler.ExportResults)
		api.With(RateLimitMiddleware(submitLimiter)).Post("/student-results", examHandler.Submit)

		api.Get("/reports/test-configs/{id}/summary", reportHandler.Summary)
	})

	return r
}
