package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/notify"
	"github.com/set-night/mindchat/internal/provider"
)

const releaseTimeout = 5 * time.Second

type TurnOptions struct {
	SystemPrompt   string
	MaxTokens      int
	PersistTimeout time.Duration
}

// TurnService runs one chat turn: record the user's message, stream the
// model's reply to the caller, then save the reply.
type TurnService struct {
	store    Store
	provider provider.Provider
	notifier notify.Notifier
	opts     TurnOptions
}

func NewTurnService(store Store, p provider.Provider, n notify.Notifier, opts TurnOptions) *TurnService {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = config.DefaultSystemPrompt
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = config.PersistTimeout
	}
	if n == nil {
		n = notify.Nop{}
	}
	return &TurnService{store: store, provider: p, notifier: n, opts: opts}
}

type TurnInput struct {
	ThreadID string
	Message  string
	ImageURL string
}

// PreparedTurn holds the thread's turn guard until Release is called.
type PreparedTurn struct {
	ThreadID    uuid.UUID
	UserMessage domain.Message
	History     []domain.Message
	Units       []domain.ContentUnit

	release func()
	once    sync.Once
}

func (t *PreparedTurn) Release() {
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
	})
}

// StreamResult describes how a streamed turn ended. Nothing in it is shown
// to the client; it exists for logging and alerting.
type StreamResult struct {
	Text        string
	Fragments   int
	Message     *domain.Message
	ProviderErr error
	PersistErr  error
	WriteErr    error
}

// Prepare validates the input and records the user's message. It never
// writes to the client, so any error it returns can still become a normal
// HTTP error response.
func (s *TurnService) Prepare(ctx context.Context, in TurnInput) (*PreparedTurn, error) {
	threadID, err := ParseThreadID(in.ThreadID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Message)
	imageURL := strings.TrimSpace(in.ImageURL)
	if text == "" && imageURL == "" {
		return nil, domain.ErrEmptyTurn
	}
	if len(text) > config.MaxMessageLength {
		return nil, domain.ErrMessageTooLong
	}

	if err := s.store.TryStartTurn(ctx, threadID); err != nil {
		if errors.Is(err, domain.ErrTurnInProgress) || errors.Is(err, domain.ErrThreadNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("start turn: %w", err)
	}

	turn := &PreparedTurn{ThreadID: threadID}
	turn.release = func() { s.finishTurn(ctx, threadID) }

	var img *string
	if imageURL != "" {
		img = &imageURL
	}
	userMsg, err := s.store.AddMessage(ctx, domain.NewMessage{
		ThreadID: threadID,
		Role:     domain.RoleUser,
		Content:  text,
		ImageURL: img,
	})
	if err != nil {
		turn.Release()
		if errors.Is(err, domain.ErrThreadNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("save user message: %w", err)
	}
	turn.UserMessage = userMsg

	history, err := s.store.ListMessages(ctx, threadID)
	if err != nil {
		turn.Release()
		return nil, fmt.Errorf("load history: %w", err)
	}
	turn.History = history
	turn.Units = ToContentUnits(history)

	return turn, nil
}

// Stream forwards the model's reply to w fragment by fragment. On a provider
// failure the error sentinel is written and nothing is saved. On success the
// full reply is saved as one assistant message; a failed save is logged and
// alerted but never reported through w, which may already be complete.
//
// The turn guard is released on every path.
func (s *TurnService) Stream(ctx context.Context, turn *PreparedTurn, w io.Writer) (res StreamResult) {
	start := time.Now()
	defer turn.Release()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during turn stream",
				"thread_id", turn.ThreadID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res.ProviderErr = fmt.Errorf("panic: %v", r)
			_, _ = io.WriteString(w, domain.FormatStreamError("internal error"))
		}
	}()

	var buf strings.Builder
	seq := s.provider.Stream(ctx, provider.Request{
		System:    s.opts.SystemPrompt,
		MaxTokens: s.opts.MaxTokens,
		Messages:  turn.Units,
	})
	for fragment, err := range seq {
		if err != nil {
			res.ProviderErr = err
			break
		}
		if fragment == "" {
			continue
		}
		if res.WriteErr == nil {
			if _, werr := io.WriteString(w, fragment); werr != nil {
				res.WriteErr = werr
				slog.Debug("client stopped reading", "thread_id", turn.ThreadID, "error", werr)
			}
		}
		buf.WriteString(fragment)
		res.Fragments++
	}
	res.Text = buf.String()

	if res.ProviderErr != nil {
		slog.Warn("provider stream failed",
			"thread_id", turn.ThreadID,
			"provider", s.provider.Name(),
			"fragments", res.Fragments,
			"error", res.ProviderErr,
		)
		if res.WriteErr == nil {
			_, _ = io.WriteString(w, domain.FormatStreamError(clientMessage(res.ProviderErr)))
		}
		return res
	}

	msg, err := s.persistReply(ctx, turn.ThreadID, res.Text)
	if err != nil {
		res.PersistErr = err
		return res
	}
	res.Message = msg

	slog.Info("turn completed",
		"thread_id", turn.ThreadID,
		"provider", s.provider.Name(),
		"fragments", res.Fragments,
		"bytes", len(res.Text),
		"duration", time.Since(start),
	)
	return res
}

func (s *TurnService) persistReply(ctx context.Context, threadID uuid.UUID, text string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()

	msg, err := s.store.AddMessage(ctx, domain.NewMessage{
		ThreadID: threadID,
		Role:     domain.RoleAssistant,
		Content:  text,
	})
	if err != nil {
		err = fmt.Errorf("save assistant message: %w", err)
		slog.Error("reply streamed but not saved",
			"thread_id", threadID,
			"bytes", len(text),
			"error", err,
		)
		go s.notifier.NotifyError(context.WithoutCancel(ctx), err, "thread "+threadID.String())
		return nil, err
	}
	return &msg, nil
}

func (s *TurnService) finishTurn(ctx context.Context, threadID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.store.FinishTurn(ctx, threadID); err != nil {
		slog.Error("failed to release turn", "thread_id", threadID, "error", err)
	}
}

// clientMessage is the text placed after the error sentinel.
func clientMessage(err error) string {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "the model took too long to respond"
	}
	return err.Error()
}
