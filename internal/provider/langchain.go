package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/tmc/langchaingo/llms"

	"github.com/set-night/mindchat/internal/domain"
)

var errStopStreaming = errors.New("consumer stopped reading")

var _ Provider = (*LangChain)(nil)

// LangChain adapts any langchaingo model to Provider. Fragments are yielded
// from inside the model's streaming callback, so the caller's loop body runs
// before the next fragment is requested.
type LangChain struct {
	llm       llms.Model
	name      string
	imageURLs bool
}

// NewLangChain wraps llm. When imageURLs is false the backend cannot fetch
// remote images, and image references are passed inline as text instead.
func NewLangChain(llm llms.Model, name string, imageURLs bool) *LangChain {
	return &LangChain{llm: llm, name: name, imageURLs: imageURLs}
}

func (l *LangChain) Name() string {
	return l.name
}

func (l *LangChain) messages(req Request) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, u := range req.Messages {
		msgType := llms.ChatMessageTypeHuman
		if u.Role == domain.RoleAssistant {
			msgType = llms.ChatMessageTypeAI
		}

		var parts []llms.ContentPart
		switch {
		case u.HasImage() && l.imageURLs:
			parts = append(parts, llms.ImageURLPart(u.ImageURL), llms.TextPart(u.Text))
		case u.HasImage():
			parts = append(parts, llms.TextPart(fmt.Sprintf("[image: %s]\n%s", u.ImageURL, u.Text)))
		default:
			parts = append(parts, llms.TextPart(u.Text))
		}
		out = append(out, llms.MessageContent{Role: msgType, Parts: parts})
	}
	return out
}

func (l *LangChain) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stopped := false
		opts := []llms.CallOption{
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				if stopped || len(chunk) == 0 {
					return nil
				}
				if !yield(string(chunk), nil) {
					stopped = true
					return errStopStreaming
				}
				return nil
			}),
		}
		if req.MaxTokens > 0 {
			opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
		}

		_, err := l.llm.GenerateContent(ctx, l.messages(req), opts...)
		if stopped {
			return
		}
		if err != nil {
			yield("", fmt.Errorf("%s: %w", l.name, err))
		}
	}
}
