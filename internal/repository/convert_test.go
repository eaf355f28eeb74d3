package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDConversion(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, fromPgUUID(pgUUID(id)))
	assert.Equal(t, uuid.Nil, fromPgUUID(pgtype.UUID{}))
}

func TestTextConversion(t *testing.T) {
	assert.False(t, stringPtrToPgText(nil).Valid)

	empty := ""
	assert.False(t, stringPtrToPgText(&empty).Valid)

	url := "https://cdn.example.com/x.webp"
	text := stringPtrToPgText(&url)
	require.True(t, text.Valid)
	assert.Equal(t, &url, pgTextToStringPtr(text))
	assert.Nil(t, pgTextToStringPtr(pgtype.Text{}))
}

func TestTimestamptzConversion(t *testing.T) {
	now := time.Now()
	assert.Equal(t, now, pgTimestamptzToTime(pgtype.Timestamptz{Time: now, Valid: true}))
	assert.True(t, pgTimestamptzToTime(pgtype.Timestamptz{}).IsZero())
}
