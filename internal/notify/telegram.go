package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const sendTimeout = 10 * time.Second

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

var _ Notifier = (*Telegram)(nil)

// Telegram posts alerts to a chat, optionally inside a forum topic.
type Telegram struct {
	sender  messageSender
	chatID  int64
	topicID int
	maxLen  int
	now     func() time.Time
}

func NewTelegram(token string, chatID int64, topicID, maxLen int) (*Telegram, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{sender: b, chatID: chatID, topicID: topicID, maxLen: maxLen, now: time.Now}, nil
}

func (t *Telegram) NotifyError(ctx context.Context, err error, where string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		where, err.Error(), t.now().Format("2006-01-02 15:04:05"))

	if t.maxLen > 0 && len([]rune(msg)) > t.maxLen {
		msg = string([]rune(msg)[:t.maxLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	_, sendErr := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          t.chatID,
		Text:            msg,
		ParseMode:       "Markdown",
		MessageThreadID: t.topicID,
	})
	if sendErr != nil {
		slog.Error("failed to send telegram alert", "context", where, "error", sendErr)
	}
}
