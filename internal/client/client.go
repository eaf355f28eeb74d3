// Package client talks to a mindchat server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
)

// APIError is a non-2xx response carrying the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL. A nil httpClient means
// http.DefaultClient; streaming replies need it to have no overall timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) CreateThread(ctx context.Context) (uuid.UUID, error) {
	var out struct {
		ThreadID uuid.UUID `json:"threadId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/threads", struct{}{}, &out); err != nil {
		return uuid.Nil, fmt.Errorf("create thread: %w", err)
	}
	return out.ThreadID, nil
}

type History struct {
	Thread   domain.Thread    `json:"thread"`
	Messages []domain.Message `json:"messages"`
}

func (c *Client) History(ctx context.Context, threadID uuid.UUID) (*History, error) {
	var out History
	if err := c.doJSON(ctx, http.MethodGet, "/api/threads/"+threadID.String()+"/messages", nil, &out); err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return &out, nil
}

// UploadImage sends an image for threadID and returns its public URL. The
// content type is taken from the file extension.
func (c *Client) UploadImage(ctx context.Context, threadID uuid.UUID, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("threadId", threadID.String()); err != nil {
		return "", fmt.Errorf("write form: %w", err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", ContentTypeFor(filename))
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("write form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("write form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return out.ImageURL, nil
}

type TurnRequest struct {
	ThreadID uuid.UUID `json:"threadId"`
	Message  string    `json:"message"`
	ImageURL string    `json:"imageUrl,omitempty"`
}

// SubmitTurn starts a turn and returns the raw reply stream. The caller must
// close it. An error before streaming starts is returned as *APIError.
func (c *Client) SubmitTurn(ctx context.Context, turn TurnRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(turn)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit turn: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp.Body, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// ContentTypeFor guesses an image MIME type from a file name.
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
