package auth

import (
	"context"

	"github.com/google/uuid"
)

type actorKey struct{}

// ContextWithActor stores the authenticated staff member's id. Ledger writes
// record it as the actor.
func ContextWithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

func ActorFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok
}

// ActorPtr is ActorFromContext shaped for the optional actor fields on
// ledger requests.
func ActorPtr(ctx context.Context) *uuid.UUID {
	id, ok := ActorFromContext(ctx)
	if !ok {
		return nil
	}
	return &id
}
