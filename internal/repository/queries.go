package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/set-night/mindchat/internal/domain"
)

// Postgres error codes the store translates into domain errors.
const (
	pgForeignKeyViolation = "23503"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the Postgres-backed message store.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const createThread = `
INSERT INTO threads DEFAULT VALUES
RETURNING id, created_at, updated_at`

func (q *Queries) CreateThread(ctx context.Context) (domain.Thread, error) {
	return scanThread(q.db.QueryRow(ctx, createThread))
}

const getThread = `
SELECT id, created_at, updated_at FROM threads WHERE id = $1`

func (q *Queries) GetThread(ctx context.Context, id uuid.UUID) (domain.Thread, error) {
	t, err := scanThread(q.db.QueryRow(ctx, getThread, pgUUID(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Thread{}, domain.ErrThreadNotFound
	}
	return t, err
}

// addMessage inserts the message and bumps the owning thread's updated_at in
// one statement.
const addMessage = `
WITH inserted AS (
    INSERT INTO messages (thread_id, role, content, image_url)
    VALUES ($1, $2, $3, $4)
    RETURNING id, thread_id, role, content, image_url, created_at
), touched AS (
    UPDATE threads SET updated_at = clock_timestamp() WHERE id = $1
)
SELECT id, thread_id, role, content, image_url, created_at FROM inserted`

func (q *Queries) AddMessage(ctx context.Context, arg domain.NewMessage) (domain.Message, error) {
	row := q.db.QueryRow(ctx, addMessage,
		pgUUID(arg.ThreadID),
		string(arg.Role),
		arg.Content,
		stringPtrToPgText(arg.ImageURL),
	)
	m, err := scanMessage(row)
	if err != nil {
		return domain.Message{}, translateError(err)
	}
	return m, nil
}

const listMessages = `
SELECT id, thread_id, role, content, image_url, created_at
FROM messages
WHERE thread_id = $1
ORDER BY created_at ASC, id ASC`

func (q *Queries) ListMessages(ctx context.Context, threadID uuid.UUID) ([]domain.Message, error) {
	rows, err := q.db.Query(ctx, listMessages, pgUUID(threadID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

const tryStartTurn = `
INSERT INTO active_turns (thread_id) VALUES ($1)
ON CONFLICT (thread_id) DO NOTHING`

func (q *Queries) TryStartTurn(ctx context.Context, threadID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, tryStartTurn, pgUUID(threadID))
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTurnInProgress
	}
	return nil
}

const finishTurn = `DELETE FROM active_turns WHERE thread_id = $1`

func (q *Queries) FinishTurn(ctx context.Context, threadID uuid.UUID) error {
	_, err := q.db.Exec(ctx, finishTurn, pgUUID(threadID))
	return err
}

const cleanupStaleTurns = `DELETE FROM active_turns WHERE started_at < $1`

func (q *Queries) CleanupStaleTurns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := pgtype.Timestamptz{Time: time.Now().Add(-olderThan), Valid: true}
	tag, err := q.db.Exec(ctx, cleanupStaleTurns, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanThread(row pgx.Row) (domain.Thread, error) {
	var (
		id                   pgtype.UUID
		createdAt, updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		return domain.Thread{}, err
	}
	return domain.Thread{
		ID:        fromPgUUID(id),
		CreatedAt: pgTimestamptzToTime(createdAt),
		UpdatedAt: pgTimestamptzToTime(updatedAt),
	}, nil
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var (
		id, threadID pgtype.UUID
		role         string
		content      string
		imageURL     pgtype.Text
		createdAt    pgtype.Timestamptz
	)
	if err := row.Scan(&id, &threadID, &role, &content, &imageURL, &createdAt); err != nil {
		return domain.Message{}, err
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return domain.Message{}, fmt.Errorf("scan message: %w", err)
	}
	return domain.Message{
		ID:        fromPgUUID(id),
		ThreadID:  fromPgUUID(threadID),
		Role:      r,
		Content:   content,
		ImageURL:  pgTextToStringPtr(imageURL),
		CreatedAt: pgTimestamptzToTime(createdAt),
	}, nil
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: %s", domain.ErrThreadNotFound, pgErr.ConstraintName)
	}
	return err
}
