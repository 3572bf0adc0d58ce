package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the append-only records table.
const Schema = `
CREATE TABLE IF NOT EXISTS appointment_records (
	id                 UUID PRIMARY KEY,
	raw_text           TEXT NOT NULL,
	extracted_entities JSONB NOT NULL,
	normalized_data    JSONB NOT NULL,
	department         TEXT NOT NULL,
	status             TEXT NOT NULL,
	source             TEXT NOT NULL,
	ocr_confidence     DOUBLE PRECISION,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS appointment_records_created_at_idx
	ON appointment_records (created_at DESC);
`

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PgRepository)(nil)

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// EnsureSchema applies Schema.
func (r *PgRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Helpers

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var entities, normalized []byte

	err := row.Scan(
		&rec.ID,
		&rec.RawText,
		&entities,
		&normalized,
		&rec.Department,
		&rec.Status,
		&rec.Source,
		&rec.OCRConfidence,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(entities, &rec.ExtractedEntities); err != nil {
		return nil, fmt.Errorf("decode extracted_entities: %w", err)
	}
	if err := json.Unmarshal(normalized, &rec.NormalizedData); err != nil {
		return nil, fmt.Errorf("decode normalized_data: %w", err)
	}
	return &rec, nil
}

const recordColumns = `id, raw_text, extracted_entities, normalized_data, department, status, source, ocr_confidence, created_at`

// Interface methods

func (r *PgRepository) Insert(ctx context.Context, rec *Record) error {
	entities, err := json.Marshal(rec.ExtractedEntities)
	if err != nil {
		return fmt.Errorf("encode extracted_entities: %w", err)
	}
	normalized, err := json.Marshal(rec.NormalizedData)
	if err != nil {
		return fmt.Errorf("encode normalized_data: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointment_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, rec.ID, rec.RawText, entities, normalized, rec.Department, rec.Status, rec.Source, rec.OCRConfidence, rec.CreatedAt)

	if err := row.Scan(&rec.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("insert appointment record: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM appointment_records
		WHERE id = $1
	`, id)
	return scanRecord(row)
}

func (r *PgRepository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM appointment_records
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointment_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count appointment records: %w", err)
	}
	return n, nil
}
