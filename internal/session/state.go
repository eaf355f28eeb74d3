// Package session drives one chat thread from the client side: it shows the
// user's message immediately, mirrors the reply while it streams and turns
// it into a finished message when the stream ends.
package session

import (
	"errors"
	"slices"

	"github.com/set-night/mindchat/internal/client"
	"github.com/set-night/mindchat/internal/domain"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseFinalized
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	case PhaseFinalized:
		return "finalized"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Message is a message as displayed. Locally created messages carry a
// client-generated ID that never matches a stored one.
type Message struct {
	ID       string
	Role     domain.Role
	Content  string
	ImageURL string
}

// State is a snapshot; Reduce never mutates one in place, so observers may
// keep the values they receive.
type State struct {
	Phase     Phase
	Messages  []Message
	Streaming string
	Busy      bool
	Err       string
}

type Event interface {
	event()
}

type (
	// Submitted adds the user's message before anything is sent.
	Submitted struct{ Message Message }
	// Uploaded sets the public URL of the image on message ID.
	Uploaded struct{ ID, URL string }
	// ChunkReceived carries the reply so far, not just the new part.
	ChunkReceived struct{ Text string }
	// ErrorReceived is an in-band failure reported by the server.
	ErrorReceived struct{ Message string }
	// StreamEnded finalizes the reply as one assistant message.
	StreamEnded struct{ ID, Text string }
	// Failed is a transport or request failure.
	Failed struct{ Err error }
	// Settled ends the turn, whatever happened.
	Settled struct{}
)

func (Submitted) event()     {}
func (Uploaded) event()      {}
func (ChunkReceived) event() {}
func (ErrorReceived) event() {}
func (StreamEnded) event()   {}
func (Failed) event()        {}
func (Settled) event()       {}

// Reduce is the only place state transitions happen.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case Submitted:
		s.Phase = PhaseSending
		s.Busy = true
		s.Err = ""
		s.Streaming = ""
		s.Messages = append(slices.Clip(s.Messages), ev.Message)
	case Uploaded:
		msgs := slices.Clone(s.Messages)
		for i := range msgs {
			if msgs[i].ID == ev.ID {
				msgs[i].ImageURL = ev.URL
			}
		}
		s.Messages = msgs
	case ChunkReceived:
		s.Phase = PhaseStreaming
		s.Streaming = ev.Text
	case ErrorReceived:
		s.Phase = PhaseErrored
		s.Streaming = ""
		s.Err = ev.Message
	case StreamEnded:
		s.Phase = PhaseFinalized
		s.Streaming = ""
		s.Messages = append(slices.Clip(s.Messages), Message{
			ID:      ev.ID,
			Role:    domain.RoleAssistant,
			Content: ev.Text,
		})
	case Failed:
		s.Phase = PhaseErrored
		s.Streaming = ""
		s.Err = failureMessage(ev.Err)
	case Settled:
		s.Phase = PhaseIdle
		s.Busy = false
		s.Streaming = ""
	}
	return s
}

func failureMessage(err error) string {
	if err == nil {
		return "Unknown error"
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
