package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const sessionColumns = `id, article_id, session_date, capacity, created_at`

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, article_id, session_date, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.ArticleID, s.Date, s.Capacity, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_sessions_article_date") {
			return fmt.Errorf("Create: %w", domain.ErrSessionExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: session: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Session, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: session: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) List(ctx context.Context, articleID *uuid.UUID) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		WHERE ($1::uuid IS NULL OR article_id = $1)
		ORDER BY session_date, article_id`, articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return sessions, nil
}

// ReservedSeats sums the party sizes of the session's active orders. Pass the
// locking transaction to read under the session lock, or nil for a plain read.
func (r *SessionRepository) ReservedSeats(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID) (int, error) {
	var reserved int
	err := on(r.db, tx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(party_size), 0) FROM orders
		WHERE session_id = $1 AND status = $2`,
		sessionID, domain.OrderStatusActive,
	).Scan(&reserved)
	if err != nil {
		return 0, fmt.Errorf("ReservedSeats: %w", err)
	}
	return reserved, nil
}

func scanSession(s scanner) (*domain.Session, error) {
	var sess domain.Session
	if err := s.Scan(&sess.ID, &sess.ArticleID, &sess.Date, &sess.Capacity, &sess.CreatedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}
