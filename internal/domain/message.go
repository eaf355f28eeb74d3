package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Message is immutable once persisted. Within a thread, CreatedAt is strictly
// increasing and defines conversation order.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Message) HasImage() bool {
	return m.ImageURL != nil && *m.ImageURL != ""
}

// NewMessage carries the caller-supplied fields of a message to be appended.
type NewMessage struct {
	ThreadID uuid.UUID
	Role     Role
	Content  string
	ImageURL *string
}

// ContentUnit is the provider-facing form of one message: plain text, or an
// image paired with text when ImageURL is set.
type ContentUnit struct {
	Role     Role
	Text     string
	ImageURL string
}

func (u ContentUnit) HasImage() bool {
	return u.ImageURL != ""
}
