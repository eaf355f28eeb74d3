package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/set-night/mindchat/internal/domain"
)

const (
	anthropicMessagesPath = "/v1/messages"
	anthropicVersion      = "2023-06-01"

	// maxSSELine bounds a single server-sent event line.
	maxSSELine = 1024 * 1024
)

// ErrIncompleteStream means the connection closed before message_stop.
var ErrIncompleteStream = errors.New("stream ended before the reply was complete")

var _ Provider = (*Anthropic)(nil)

// Anthropic streams from the Messages API over server-sent events.
type Anthropic struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewAnthropic creates a client. baseURL has no trailing slash, e.g.
// "https://api.anthropic.com". A nil httpClient uses http.DefaultClient.
func NewAnthropic(baseURL, apiKey, model string, httpClient *http.Client) *Anthropic {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Anthropic{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

func (a *Anthropic) Name() string {
	return "anthropic/" + a.model
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

func (a *Anthropic) buildRequest(req Request) anthropicRequest {
	out := anthropicRequest{
		Model:     a.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Stream:    true,
		Messages:  make([]anthropicMessage, 0, len(req.Messages)),
	}
	for _, u := range req.Messages {
		msg := anthropicMessage{Role: string(u.Role)}
		if u.HasImage() {
			msg.Content = append(msg.Content, anthropicContent{
				Type:   "image",
				Source: &anthropicSource{Type: "url", URL: u.ImageURL},
			})
		}
		msg.Content = append(msg.Content, anthropicContent{Type: "text", Text: u.Text})
		out.Messages = append(out.Messages, msg)
	}
	return out
}

func (a *Anthropic) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	payload, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return fail(fmt.Errorf("marshal request: %w", err))
	}

	return func(yield func(string, error) bool) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+anthropicMessagesPath, bytes.NewReader(payload))
		if err != nil {
			yield("", fmt.Errorf("create request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("x-api-key", a.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)

		resp, err := a.httpClient.Do(httpReq)
		if err != nil {
			yield("", fmt.Errorf("messages request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			msg := gjson.GetBytes(body, "error.message").String()
			if msg == "" {
				msg = strings.TrimSpace(string(body))
			}
			if msg == "" {
				msg = http.StatusText(resp.StatusCode)
			}
			yield("", &APIError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: msg})
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if !gjson.Valid(data) {
				continue
			}

			event := gjson.Parse(data)
			switch event.Get("type").String() {
			case "content_block_delta":
				if event.Get("delta.type").String() != "text_delta" {
					continue
				}
				if text := event.Get("delta.text").String(); text != "" {
					if !yield(text, nil) {
						return
					}
				}
			case "error":
				msg := event.Get("error.message").String()
				if msg == "" {
					msg = event.Get("error.type").String()
				}
				yield("", &APIError{Provider: "anthropic", Message: msg})
				return
			case "message_stop":
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("read stream: %w", err))
			return
		}
		yield("", ErrIncompleteStream)
	}
}
