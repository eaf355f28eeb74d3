package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
)

// memStore is an in-memory Store with injectable failures.
type memStore struct {
	mu       sync.Mutex
	threads  map[uuid.UUID]domain.Thread
	messages []domain.Message
	active   map[uuid.UUID]time.Time
	clock    time.Time

	failAdd       func(domain.NewMessage) error
	failList      error
	finishedTurns int
}

func newMemStore() *memStore {
	return &memStore{
		threads: make(map[uuid.UUID]domain.Thread),
		active:  make(map[uuid.UUID]time.Time),
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memStore) CreateThread(ctx context.Context) (domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	t := domain.Thread{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	m.threads[t.ID] = t
	return t, nil
}

func (m *memStore) GetThread(ctx context.Context, id uuid.UUID) (domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok {
		return domain.Thread{}, domain.ErrThreadNotFound
	}
	return t, nil
}

func (m *memStore) AddMessage(ctx context.Context, arg domain.NewMessage) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd != nil {
		if err := m.failAdd(arg); err != nil {
			return domain.Message{}, err
		}
	}
	if _, ok := m.threads[arg.ThreadID]; !ok {
		return domain.Message{}, domain.ErrThreadNotFound
	}
	msg := domain.Message{
		ID:        uuid.New(),
		ThreadID:  arg.ThreadID,
		Role:      arg.Role,
		Content:   arg.Content,
		ImageURL:  arg.ImageURL,
		CreatedAt: m.tick(),
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memStore) ListMessages(ctx context.Context, threadID uuid.UUID) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) TryStartTurn(ctx context.Context, threadID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.threads[threadID]; !ok {
		return domain.ErrThreadNotFound
	}
	if _, ok := m.active[threadID]; ok {
		return domain.ErrTurnInProgress
	}
	m.active[threadID] = m.tick()
	return nil
}

func (m *memStore) FinishTurn(ctx context.Context, threadID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, threadID)
	m.finishedTurns++
	return nil
}

func (m *memStore) CleanupStaleTurns(ctx context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, started := range m.active {
		if m.clock.Sub(started) > olderThan {
			delete(m.active, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) isActive(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[id]
	return ok
}

func (m *memStore) count(id uuid.UUID) int {
	msgs, _ := m.ListMessages(context.Background(), id)
	return len(msgs)
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (o *memObjects) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if o.err != nil {
		return o.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = buf.Bytes()
	o.types[key] = contentType
	return nil
}

func (o *memObjects) PublicURL(key string) string {
	return "https://cdn.test/chat-images/" + key
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	block chan struct{}
	sent  chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan string, 1)}
}

func (n *recordingNotifier) NotifyError(ctx context.Context, err error, where string) {
	if n.block != nil {
		<-n.block
	}
	msg := where + ": " + err.Error()
	n.mu.Lock()
	n.calls = append(n.calls, msg)
	n.mu.Unlock()
	if n.sent != nil {
		n.sent <- msg
	}
}

func (n *recordingNotifier) waitSent(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-n.sent:
		return msg
	case <-time.After(time.Second):
		t.Fatal("alert was not sent")
		return ""
	}
}

// failingWriter accepts limit bytes and then fails.
type failingWriter struct {
	bytes.Buffer
	limit int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.Len()+len(p) > w.limit {
		return 0, io.ErrClosedPipe
	}
	return w.Buffer.Write(p)
}
