package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"testgen/internal/db"
)

// SQLStore persists configurations, variants and results. Variant snapshots
// are stored as JSON text so later question edits never reach them.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(conn *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: conn, driver: driver}
}

func (s *SQLStore) CreateConfiguration(ctx context.Context, cfg Configuration) (Configuration, error) {
	data, err := json.Marshal(cfg.ConfigData())
	if err != nil {
		return Configuration{}, storeErr("encode config_data", err)
	}
	cfg.CreatedAt = time.Now().UTC()
	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO test_configs (name, config_data, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, cfg.Name, string(data), cfg.CreatedAt).Scan(&cfg.ID); err != nil {
		return Configuration{}, storeErr("insert test_config", err)
	}
	return cfg, nil
}

func (s *SQLStore) GetConfiguration(ctx context.Context, id int64) (Configuration, error) {
	cfg, err := scanConfig(s.db.QueryRowContext(ctx, `
		SELECT id, name, config_data, created_at
		FROM test_configs
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Configuration{}, ErrConfigNotFound
		}
		return Configuration{}, storeErr("load test_config", err)
	}
	return cfg, nil
}

func (s *SQLStore) ListConfigurations(ctx context.Context) ([]Configuration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, config_data, created_at
		FROM test_configs
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, storeErr("list test_configs", err)
	}
	defer rows.Close()

	out := make([]Configuration, 0)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, storeErr("scan test_config", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate test_configs", err)
	}
	return out, nil
}

func (s *SQLStore) DeleteConfiguration(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin delete tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_variants WHERE test_config_id = $1`, id); err != nil {
		return storeErr("delete test_variants", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM test_configs WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete test_config", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConfigNotFound
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit delete", err)
	}
	return nil
}

// ReplaceVariants deletes and inserts inside one transaction. On Postgres a
// transaction-scoped advisory lock keyed by the configuration id also keeps
// other processes from interleaving.
func (s *SQLStore) ReplaceVariants(ctx context.Context, configID int64, variants []Variant) ([]Variant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin replace tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.driver == db.DriverPostgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, configID); err != nil {
			return nil, storeErr("lock test_config", err)
		}
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM test_configs WHERE id = $1`, configID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, storeErr("check test_config", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_variants WHERE test_config_id = $1`, configID); err != nil {
		return nil, storeErr("delete test_variants", err)
	}

	out := make([]Variant, 0, len(variants))
	for _, v := range variants {
		v.ConfigID = configID
		if v.CreatedAt.IsZero() {
			v.CreatedAt = time.Now().UTC()
		}
		questionsJSON, err := json.Marshal(v.Questions)
		if err != nil {
			return nil, storeErr("encode questions_data", err)
		}
		shortfallsJSON, err := json.Marshal(v.Shortfalls)
		if err != nil {
			return nil, storeErr("encode shortfalls_data", err)
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO test_variants (
				test_config_id,
				variant_number,
				generation_id,
				questions_data,
				shortfalls_data,
				created_at
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, configID, v.Number, v.GenerationID, string(questionsJSON), string(shortfallsJSON), v.CreatedAt).Scan(&v.ID); err != nil {
			return nil, storeErr("insert test_variant", err)
		}
		out = append(out, v)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit replace", err)
	}
	return out, nil
}

const selectVariantColumns = `
	SELECT id, test_config_id, variant_number, generation_id,
	       questions_data, shortfalls_data, created_at
	FROM test_variants`

func (s *SQLStore) GetVariant(ctx context.Context, id int64) (Variant, error) {
	v, err := scanVariant(s.db.QueryRowContext(ctx, selectVariantColumns+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Variant{}, ErrVariantNotFound
		}
		return Variant{}, storeErr("load test_variant", err)
	}
	return v, nil
}

func (s *SQLStore) ListVariants(ctx context.Context, configID int64) ([]Variant, error) {
	if _, err := s.GetConfiguration(ctx, configID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, selectVariantColumns+" WHERE test_config_id = $1 ORDER BY variant_number ASC", configID)
	if err != nil {
		return nil, storeErr("list test_variants", err)
	}
	defer rows.Close()

	out := make([]Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, storeErr("scan test_variant", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate test_variants", err)
	}
	return out, nil
}

func (s *SQLStore) SaveResult(ctx context.Context, r StudentResult) (int64, error) {
	itemsJSON, err := json.Marshal(r.Items)
	if err != nil {
		return 0, storeErr("encode items_data", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO student_results (
			variant_id,
			test_config_id,
			variant_number,
			student_name,
			earned_points,
			total_points,
			percentage,
			grade,
			items_data,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, r.VariantID, r.ConfigID, r.VariantNumber, r.StudentName, r.EarnedPoints, r.TotalPoints,
		r.Percentage, string(r.Grade), string(itemsJSON), r.SubmittedAt).Scan(&id); err != nil {
		return 0, storeErr("insert student_result", err)
	}
	return id, nil
}

func (s *SQLStore) ListResults(ctx context.Context) ([]StudentResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, variant_id, test_config_id, variant_number, student_name,
		       earned_points, total_points, percentage, grade, items_data, created_at
		FROM student_results
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, storeErr("list student_results", err)
	}
	defer rows.Close()

	out := make([]StudentResult, 0)
	for rows.Next() {
		var (
			r         StudentResult
			grade     string
			itemsRaw  sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(
			&r.ID,
			&r.VariantID,
			&r.ConfigID,
			&r.VariantNumber,
			&r.StudentName,
			&r.EarnedPoints,
			&r.TotalPoints,
			&r.Percentage,
			&grade,
			&itemsRaw,
			&createdAt,
		); err != nil {
			return nil, storeErr("scan student_result", err)
		}
		r.Grade = Grade(grade)
		if createdAt.Valid {
			r.SubmittedAt = createdAt.Time
		}
		if itemsRaw.Valid && itemsRaw.String != "" {
			if err := json.Unmarshal([]byte(itemsRaw.String), &r.Items); err != nil {
				return nil, storeErr(fmt.Sprintf("decode items of result %d", r.ID), err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate student_results", err)
	}
	return out, nil
}

func scanConfig(scanner interface{ Scan(dest ...any) error }) (Configuration, error) {
	var (
		cfg       Configuration
		dataRaw   string
		createdAt sql.NullTime
	)
	if err := scanner.Scan(&cfg.ID, &cfg.Name, &dataRaw, &createdAt); err != nil {
		return Configuration{}, err
	}
	if createdAt.Valid {
		cfg.CreatedAt = createdAt.Time
	}
	var data map[string]int
	if err := json.Unmarshal([]byte(dataRaw), &data); err != nil {
		return Configuration{}, fmt.Errorf("decode config_data of test_config %d: %w", cfg.ID, err)
	}
	cats, err := ParseConfigData(data)
	if err != nil {
		return Configuration{}, fmt.Errorf("parse config_data of test_config %d: %w", cfg.ID, err)
	}
	cfg.Categories = cats
	return cfg, nil
}

func scanVariant(scanner interface{ Scan(dest ...any) error }) (Variant, error) {
	var (
		v             Variant
		generationID  sql.NullString
		questionsRaw  string
		shortfallsRaw sql.NullString
		createdAt     sql.NullTime
	)
	if err := scanner.Scan(&v.ID, &v.ConfigID, &v.Number, &generationID, &questionsRaw, &shortfallsRaw, &createdAt); err != nil {
		return Variant{}, err
	}
	v.GenerationID = generationID.String
	if createdAt.Valid {
		v.CreatedAt = createdAt.Time
	}
	if err := json.Unmarshal([]byte(questionsRaw), &v.Questions); err != nil {
		return Variant{}, fmt.Errorf("decode questions_data of variant %d: %w", v.ID, err)
	}
	if shortfallsRaw.Valid && shortfallsRaw.String != "" && shortfallsRaw.String != "null" {
		if err := json.Unmarshal([]byte(shortfallsRaw.String), &v.Shortfalls); err != nil {
			return Variant{}, fmt.Errorf("decode shortfalls_data of variant %d: %w", v.ID, err)
		}
	}
	return v, nil
}
