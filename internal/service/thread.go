package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
)

type ThreadService struct {
	store Store
}

func NewThreadService(store Store) *ThreadService {
	return &ThreadService{store: store}
}

func (s *ThreadService) Create(ctx context.Context) (*domain.Thread, error) {
	t, err := s.store.CreateThread(ctx)
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return &t, nil
}

func (s *ThreadService) Get(ctx context.Context, id uuid.UUID) (*domain.Thread, error) {
	t, err := s.store.GetThread(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrThreadNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &t, nil
}

// History returns the thread's messages oldest first.
func (s *ThreadService) History(ctx context.Context, id uuid.UUID) ([]domain.Message, error) {
	msgs, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// CleanupStaleTurns releases turn guards left behind by crashed requests.
func (s *ThreadService) CleanupStaleTurns(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.store.CleanupStaleTurns(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cleanup stale turns: %w", err)
	}
	return n, nil
}

// ParseThreadID validates a client-supplied thread identifier.
func ParseThreadID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, domain.ErrMissingThreadID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidThreadID
	}
	return id, nil
}
