package capacity

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

type fakeSessions struct {
	sessions map[uuid.UUID]*domain.Session
	reserved map[uuid.UUID]int
	locked   []uuid.UUID
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: make(map[uuid.UUID]*domain.Session),
		reserved: make(map[uuid.UUID]int),
	}
}

func (f *fakeSessions) add(capacity, reserved int) uuid.UUID {
	id := uuid.New()
	f.sessions[id] = &domain.Session{ID: id, ArticleID: uuid.New(), Capacity: capacity}
	f.reserved[id] = reserved
	return id
}

func (f *fakeSessions) Create(_ context.Context, s *domain.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) GetForUpdate(ctx context.Context, _ *sql.Tx, id uuid.UUID) (*domain.Session, error) {
	f.locked = append(f.locked, id)
	return f.GetByID(ctx, id)
}

func (f *fakeSessions) List(_ context.Context, _ *uuid.UUID) ([]domain.Session, error) {
	out := make([]domain.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessions) ReservedSeats(_ context.Context, _ *sql.Tx, id uuid.UUID) (int, error) {
	return f.reserved[id], nil
}

func TestReserve(t *testing.T) {
	tests := []struct {
		name          string
		capacity      int
		reserved      int
		partySize     int
		wantErr       error
		wantRemaining int
	}{
		{"fits", 10, 8, 2, nil, 0},
		{"one over", 10, 8, 3, domain.ErrCapacityExceeded, 0},
		{"empty session", 4, 0, 4, nil, 0},
		{"zero capacity", 0, 0, 1, domain.ErrCapacityExceeded, 0},
		{"overbooked legacy data", 5, 7, 1, domain.ErrCapacityExceeded, 0},
		{"zero party", 10, 0, 0, domain.ErrInvalidPartySize, 0},
		{"negative party", 10, 0, -2, domain.ErrInvalidPartySize, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeSessions()
			id := repo.add(tc.capacity, tc.reserved)
			tr := NewTracker(repo)

			remaining, err := tr.Reserve(context.Background(), nil, id, tc.partySize)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantRemaining, remaining)
			assert.Equal(t, []uuid.UUID{id}, repo.locked)
		})
	}
}

func TestReserve_UnknownSession(t *testing.T) {
	tr := NewTracker(newFakeSessions())
	_, err := tr.Reserve(context.Background(), nil, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemaining_NeverNegative(t *testing.T) {
	repo := newFakeSessions()
	id := repo.add(3, 5)

	remaining, err := NewTracker(repo).Remaining(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestCreateSession_RejectsNegativeCapacity(t *testing.T) {
	tr := NewTracker(newFakeSessions())
	_, err := tr.CreateSession(context.Background(), uuid.New(), time.Now(), -1)
	require.ErrorIs(t, err, domain.ErrInvalidCapacity)

	s, err := tr.CreateSession(context.Background(), uuid.New(), time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC), s.Date)
}
