package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
)

// Store is the message store. repository.Queries and sqlitestore.Store both
// satisfy it.
type Store interface {
	CreateThread(ctx context.Context) (domain.Thread, error)
	GetThread(ctx context.Context, id uuid.UUID) (domain.Thread, error)
	AddMessage(ctx context.Context, arg domain.NewMessage) (domain.Message, error)
	ListMessages(ctx context.Context, threadID uuid.UUID) ([]domain.Message, error)

	TryStartTurn(ctx context.Context, threadID uuid.UUID) error
	FinishTurn(ctx context.Context, threadID uuid.UUID) error
	CleanupStaleTurns(ctx context.Context, olderThan time.Duration) (int64, error)
}
