// Package sqlitestore is a single-file message store for local runs and tests.
// It mirrors the Postgres schema and semantics of repository.Queries.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/set-night/mindchat/internal/domain"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer keeps created_at assignment race free.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			created_at_us INTEGER NOT NULL,
			updated_at_us INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL DEFAULT '',
			image_url TEXT,
			created_at_us INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_thread_created_idx ON messages(thread_id, created_at_us)`,
		`CREATE TABLE IF NOT EXISTS active_turns (
			thread_id TEXT PRIMARY KEY REFERENCES threads(id) ON DELETE CASCADE,
			started_at_us INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite store: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateThread(ctx context.Context) (domain.Thread, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	t := domain.Thread{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, created_at_us, updated_at_us) VALUES (?, ?, ?)`,
		t.ID.String(), now.UnixMicro(), now.UnixMicro(),
	)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("insert thread: %w", err)
	}
	return t, nil
}

func (s *Store) GetThread(ctx context.Context, id uuid.UUID) (domain.Thread, error) {
	var createdUS, updatedUS int64
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at_us, updated_at_us FROM threads WHERE id = ?`, id.String(),
	).Scan(&createdUS, &updatedUS)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Thread{}, domain.ErrThreadNotFound
	}
	if err != nil {
		return domain.Thread{}, err
	}
	return domain.Thread{ID: id, CreatedAt: fromMicros(createdUS), UpdatedAt: fromMicros(updatedUS)}, nil
}

// AddMessage assigns created_at strictly after the thread's latest message.
func (s *Store) AddMessage(ctx context.Context, arg domain.NewMessage) (domain.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Message{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var last sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT (SELECT MAX(created_at_us) FROM messages WHERE thread_id = ?) FROM threads WHERE id = ?`,
		arg.ThreadID.String(), arg.ThreadID.String(),
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Message{}, domain.ErrThreadNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}

	created := time.Now().UTC().UnixMicro()
	if last.Valid && created <= last.Int64 {
		created = last.Int64 + 1
	}

	msg := domain.Message{
		ID:        uuid.New(),
		ThreadID:  arg.ThreadID,
		Role:      arg.Role,
		Content:   arg.Content,
		CreatedAt: fromMicros(created),
	}
	var image sql.NullString
	if arg.ImageURL != nil && *arg.ImageURL != "" {
		image = sql.NullString{String: *arg.ImageURL, Valid: true}
		url := *arg.ImageURL
		msg.ImageURL = &url
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, thread_id, role, content, image_url, created_at_us) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID.String(), msg.ThreadID.String(), string(msg.Role), msg.Content, image, created,
	); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE threads SET updated_at_us = ? WHERE id = ?`, created, arg.ThreadID.String(),
	); err != nil {
		return domain.Message{}, fmt.Errorf("touch thread: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, threadID uuid.UUID) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, image_url, created_at_us FROM messages
		 WHERE thread_id = ? ORDER BY created_at_us ASC, id ASC`, threadID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var (
			id, role, content string
			image             sql.NullString
			createdUS         int64
		)
		if err := rows.Scan(&id, &role, &content, &image, &createdUS); err != nil {
			return nil, err
		}
		msgID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse message id: %w", err)
		}
		r, err := domain.ParseRole(role)
		if err != nil {
			return nil, err
		}
		m := domain.Message{
			ID:        msgID,
			ThreadID:  threadID,
			Role:      r,
			Content:   content,
			CreatedAt: fromMicros(createdUS),
		}
		if image.Valid {
			url := image.String
			m.ImageURL = &url
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) TryStartTurn(ctx context.Context, threadID uuid.UUID) error {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO active_turns (thread_id, started_at_us) VALUES (?, ?) ON CONFLICT(thread_id) DO NOTHING`,
		threadID.String(), time.Now().UnixMicro(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTurnInProgress
	}
	return nil
}

func (s *Store) FinishTurn(ctx context.Context, threadID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM active_turns WHERE thread_id = ?`, threadID.String())
	return err
}

func (s *Store) CleanupStaleTurns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMicro()
	res, err := s.db.ExecContext(ctx, `DELETE FROM active_turns WHERE started_at_us < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
