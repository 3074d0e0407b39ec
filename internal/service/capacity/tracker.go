package capacity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type sessionRepo interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Session, error)
	List(ctx context.Context, articleID *uuid.UUID) ([]domain.Session, error)
	ReservedSeats(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID) (int, error)
}

// Availability is a session together with its derived seat counts.
type Availability struct {
	Session   domain.Session
	Reserved  int
	Remaining int
}

// Tracker guards session capacity. Seats are never stored; they are derived
// from the active orders attached to the session.
type Tracker struct {
	sessions sessionRepo
}

func NewTracker(sessions sessionRepo) *Tracker {
	return &Tracker{sessions: sessions}
}

func (t *Tracker) CreateSession(ctx context.Context, articleID uuid.UUID, date time.Time, capacity int) (*domain.Session, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("CreateSession: %w", domain.ErrInvalidCapacity)
	}
	s := &domain.Session{
		ID:        uuid.New(),
		ArticleID: articleID,
		Date:      domain.DateOf(date),
		Capacity:  capacity,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("CreateSession: %w", err)
	}
	logging.FromContext(ctx).Info("session created",
		"session_id", s.ID,
		"article_id", s.ArticleID,
		"capacity", s.Capacity,
	)
	return s, nil
}

func (t *Tracker) GetSession(ctx context.Context, id uuid.UUID) (*Availability, error) {
	s, err := t.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetSession: %w", err)
	}
	return t.availability(ctx, nil, s)
}

func (t *Tracker) ListSessions(ctx context.Context, articleID *uuid.UUID) ([]Availability, error) {
	sessions, err := t.sessions.List(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("ListSessions: %w", err)
	}
	out := make([]Availability, 0, len(sessions))
	for i := range sessions {
		a, err := t.availability(ctx, nil, &sessions[i])
		if err != nil {
			return nil, fmt.Errorf("ListSessions: %w", err)
		}
		out = append(out, *a)
	}
	return out, nil
}

// Remaining returns the free seats on a session, never below zero. The value
// is a snapshot and may be stale by the time the caller acts on it.
func (t *Tracker) Remaining(ctx context.Context, sessionID uuid.UUID) (int, error) {
	a, err := t.GetSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("Remaining: %w", err)
	}
	return a.Remaining, nil
}

// Reserve checks that partySize seats are free while holding the session row
// lock. The caller must insert the order in the same transaction, before the
// lock is released, for the reservation to count.
func (t *Tracker) Reserve(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID, partySize int) (int, error) {
	if partySize < 1 {
		return 0, fmt.Errorf("Reserve: %w", domain.ErrInvalidPartySize)
	}

	s, err := t.sessions.GetForUpdate(ctx, tx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("Reserve: %w", err)
	}
	a, err := t.availability(ctx, tx, s)
	if err != nil {
		return 0, fmt.Errorf("Reserve: %w", err)
	}

	if partySize > a.Remaining {
		logging.FromContext(ctx).Warn("session capacity exceeded",
			"session_id", sessionID,
			"requested", partySize,
			"remaining", a.Remaining,
		)
		return 0, fmt.Errorf("Reserve: %w", domain.ErrCapacityExceeded)
	}
	return a.Remaining - partySize, nil
}

// Release is called after the order holding the seats has been cancelled in
// tx. It takes the session lock so concurrent reservations observe the freed
// seats only once tx commits, and returns the recomputed remaining count.
func (t *Tracker) Release(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID, partySize int) (int, error) {
	s, err := t.sessions.GetForUpdate(ctx, tx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("Release: %w", err)
	}
	a, err := t.availability(ctx, tx, s)
	if err != nil {
		return 0, fmt.Errorf("Release: %w", err)
	}

	logging.FromContext(ctx).Info("session seats released",
		"session_id", sessionID,
		"released", partySize,
		"remaining", a.Remaining,
	)
	return a.Remaining, nil
}

func (t *Tracker) availability(ctx context.Context, tx *sql.Tx, s *domain.Session) (*Availability, error) {
	reserved, err := t.sessions.ReservedSeats(ctx, tx, s.ID)
	if err != nil {
		return nil, err
	}
	return &Availability{
		Session:   *s,
		Reserved:  reserved,
		Remaining: max(0, s.Capacity-reserved),
	}, nil
}
