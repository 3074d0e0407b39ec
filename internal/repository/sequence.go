package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const sequenceColumns = `document_type, prefix, format, counter, reset_interval, last_reset_at, updated_at`

type SequenceRepository struct {
	db *sql.DB
}

func NewSequenceRepository(db *sql.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) Get(ctx context.Context, docType domain.DocumentType) (*domain.SequenceCounter, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sequenceColumns+` FROM sequence_counters WHERE document_type = $1`, docType,
	)
	c, err := scanSequence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

// GetForUpdate locks the counter row until tx ends. Concurrent allocators of
// the same type queue here; other types are untouched.
func (r *SequenceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, docType domain.DocumentType) (*domain.SequenceCounter, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+sequenceColumns+` FROM sequence_counters WHERE document_type = $1 FOR UPDATE`, docType,
	)
	c, err := scanSequence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return c, nil
}

func (r *SequenceRepository) List(ctx context.Context) ([]domain.SequenceCounter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sequenceColumns+` FROM sequence_counters ORDER BY document_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var counters []domain.SequenceCounter
	for rows.Next() {
		c, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		counters = append(counters, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return counters, nil
}

func (r *SequenceRepository) UpdateCounter(ctx context.Context, tx *sql.Tx, docType domain.DocumentType, counter int64, lastResetAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE sequence_counters
		SET counter = $1, last_reset_at = $2, updated_at = now()
		WHERE document_type = $3`,
		counter, lastResetAt, docType,
	)
	if err != nil {
		return fmt.Errorf("UpdateCounter: %w", err)
	}
	if err := expectOneRow(res, domain.ErrNotFound); err != nil {
		return fmt.Errorf("UpdateCounter: %w", err)
	}
	return nil
}

func (r *SequenceRepository) UpdateSettings(ctx context.Context, c *domain.SequenceCounter) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sequence_counters
		SET prefix = $1, format = $2, reset_interval = $3, updated_at = now()
		WHERE document_type = $4`,
		c.Prefix, c.Format, c.ResetInterval, c.DocumentType,
	)
	if err != nil {
		return fmt.Errorf("UpdateSettings: %w", err)
	}
	if err := expectOneRow(res, domain.ErrNotFound); err != nil {
		return fmt.Errorf("UpdateSettings: %w", err)
	}
	return nil
}

func scanSequence(s scanner) (*domain.SequenceCounter, error) {
	var c domain.SequenceCounter
	err := s.Scan(
		&c.DocumentType, &c.Prefix, &c.Format, &c.Counter,
		&c.ResetInterval, &c.LastResetAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
