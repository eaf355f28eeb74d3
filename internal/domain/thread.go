package domain

import (
	"time"

	"github.com/google/uuid"
)

type Thread struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
