package numbering

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type counterRepo interface {
	Get(ctx context.Context, docType domain.DocumentType) (*domain.SequenceCounter, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, docType domain.DocumentType) (*domain.SequenceCounter, error)
	List(ctx context.Context) ([]domain.SequenceCounter, error)
	UpdateCounter(ctx context.Context, tx *sql.Tx, docType domain.DocumentType, counter int64, lastResetAt time.Time) error
	UpdateSettings(ctx context.Context, c *domain.SequenceCounter) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Allocator hands out document numbers. Numbers are allocated inside the
// caller's transaction while holding the counter row lock, so a rolled back
// document gives its number back and no two callers see the same value.
type Allocator struct {
	counters counterRepo
	db       txRunner
	now      func() time.Time
}

type Option func(*Allocator)

func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

func NewAllocator(counters counterRepo, db txRunner, opts ...Option) *Allocator {
	a := &Allocator{
		counters: counters,
		db:       db,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next allocates the next number for docType within tx.
func (a *Allocator) Next(ctx context.Context, tx *sql.Tx, docType domain.DocumentType) (string, error) {
	if !docType.IsValid() {
		return "", fmt.Errorf("Next: %w", domain.ErrInvalidDocumentType)
	}

	c, err := a.counters.GetForUpdate(ctx, tx, docType)
	if err != nil {
		return "", fmt.Errorf("Next: %w", err)
	}

	now := a.now()
	seq, resetAt := Advance(c, now)
	if err := a.counters.UpdateCounter(ctx, tx, docType, seq, resetAt); err != nil {
		return "", fmt.Errorf("Next: %w", err)
	}

	if seq == 1 && c.Counter > 0 {
		logging.FromContext(ctx).Info("sequence counter reset",
			"document_type", docType,
			"previous_counter", c.Counter,
			"reset_interval", c.ResetInterval,
		)
	}
	return Format(c.Format, c.Prefix, seq, now), nil
}

// Allocate runs Next in a transaction of its own. Use it only when the
// number is not tied to a document written in the same transaction.
func (a *Allocator) Allocate(ctx context.Context, docType domain.DocumentType) (string, error) {
	var number string
	err := a.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		number, err = a.Next(ctx, tx, docType)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("Allocate: %w", err)
	}
	return number, nil
}

// Preview returns the number the next allocation would produce. It takes no
// lock and writes nothing, so the value is advisory.
func (a *Allocator) Preview(ctx context.Context, docType domain.DocumentType) (string, error) {
	if !docType.IsValid() {
		return "", fmt.Errorf("Preview: %w", domain.ErrInvalidDocumentType)
	}
	c, err := a.counters.Get(ctx, docType)
	if err != nil {
		return "", fmt.Errorf("Preview: %w", err)
	}
	now := a.now()
	seq, _ := Advance(c, now)
	return Format(c.Format, c.Prefix, seq, now), nil
}

func (a *Allocator) List(ctx context.Context) ([]domain.SequenceCounter, error) {
	counters, err := a.counters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return counters, nil
}

type UpdateRequest struct {
	Prefix        *string
	Format        *string
	ResetInterval *domain.ResetInterval
}

// Update changes how future numbers look. The counter itself is untouched.
func (a *Allocator) Update(ctx context.Context, docType domain.DocumentType, req UpdateRequest) (*domain.SequenceCounter, error) {
	if !docType.IsValid() {
		return nil, fmt.Errorf("Update: %w", domain.ErrInvalidDocumentType)
	}
	c, err := a.counters.Get(ctx, docType)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	if req.Prefix != nil {
		if strings.TrimSpace(*req.Prefix) == "" {
			return nil, fmt.Errorf("Update: %w", domain.ErrInvalidPrefix)
		}
		c.Prefix = strings.TrimSpace(*req.Prefix)
	}
	if req.Format != nil {
		if !strings.Contains(*req.Format, "{SEQ}") {
			return nil, fmt.Errorf("Update: %w", domain.ErrInvalidFormat)
		}
		c.Format = *req.Format
	}
	if req.ResetInterval != nil {
		if !req.ResetInterval.IsValid() {
			return nil, fmt.Errorf("Update: %w", domain.ErrInvalidResetInterval)
		}
		c.ResetInterval = *req.ResetInterval
	}

	if err := a.counters.UpdateSettings(ctx, c); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	logging.FromContext(ctx).Info("numbering settings updated",
		"document_type", docType,
		"prefix", c.Prefix,
		"format", c.Format,
		"reset_interval", c.ResetInterval,
	)
	return c, nil
}
