// Package provider streams assistant replies from a hosted language model.
//
// A Provider yields text fragments as an iter.Seq2. The sequence is lazy,
// finite and not restartable: it ends either naturally or with exactly one
// non-nil error, after which no further fragments are produced.
package provider

import (
	"context"
	"fmt"
	"iter"

	"github.com/set-night/mindchat/internal/domain"
)

type Request struct {
	System    string
	MaxTokens int
	Messages  []domain.ContentUnit
}

type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// APIError is a non-success response from the model API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error [%d]: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

// fail is a sequence holding a single error.
func fail(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}
