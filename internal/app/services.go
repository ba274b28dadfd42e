package app

import (
	"database/sql"

	"testgen/internal/db"
	"testgen/internal/exam"
	"testgen/internal/question"
	"testgen/internal/report"
)

// Services is the wired domain layer shared by the HTTP server and the CLI.
type Services struct {
	Questions *question.Service
	Exams     *exam.Service
	Reports   *report.Service
}

// NewServices builds SQL-backed services on conn, or in-memory ones when
// conn is nil. Only the in-memory bank is ever seeded with samples.
func NewServices(cfg Config, conn *sql.DB) (*Services, error) {
	var (
		bank  question.Store
		store exam.Store
	)
	if conn == nil {
		var seed []question.Question
		if cfg.SeedSampleQuestions {
			seed = question.SampleQuestions()
		}
		bank = question.NewMemoryStore(seed...)
		store = exam.NewMemoryStore()
	} else {
		driver, err := db.NormalizeDriver(cfg.DBDriver)
		if err != nil {
			return nil, err
		}
		bank = question.NewSQLStore(conn)
		store = exam.NewSQLStore(conn, driver)
	}

	var opts []exam.GeneratorOption
	if cfg.GeneratorSeed != 0 {
		opts = append(opts, exam.WithSeed(cfg.GeneratorSeed))
	}
	examSvc := exam.NewService(store, exam.NewGenerator(bank, opts...), cfg.MaxVariants)

	return &Services{
		Questions: question.NewService(bank),
		Exams:     examSvc,
		Reports:   report.NewService(examSvc),
	}, nil
}
