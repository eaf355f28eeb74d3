// Package notify sends operational alerts about failures users cannot see,
// such as a streamed reply that could not be saved.
package notify

import "context"

type Notifier interface {
	NotifyError(ctx context.Context, err error, context string)
}

// Nop discards alerts.
type Nop struct{}

func (Nop) NotifyError(context.Context, error, string) {}
