package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	threadID uuid.UUID
	reply    []string
	status   int
	messages []map[string]any
	turns    []map[string]any
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/threads", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"threadId": f.threadID.String()})
	})
	mux.HandleFunc("GET /api/threads/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"thread":   map[string]any{"id": f.threadID},
			"messages": f.messages,
		})
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.turns = append(f.turns, body)
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":"Thread not found"}`))
			return
		}
		for _, s := range f.reply {
			_, _ = w.Write([]byte(s))
			w.(http.Flusher).Flush()
		}
	})
	return mux
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, string, error) {
	t.Helper()
	serverURL, plain, sendThread, sendImage, historyThread = "", false, "", "", ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewPrintsThreadID(t *testing.T) {
	f := &fakeServer{threadID: uuid.New()}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	out, _, err := run(t, srv, "new")
	require.NoError(t, err)
	assert.Equal(t, f.threadID.String()+"\n", out)
}

func TestSendStreamsReply(t *testing.T) {
	f := &fakeServer{threadID: uuid.New(), reply: []string{"Hel", "lo", "!"}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	out, _, err := run(t, srv, "send", "--thread", f.threadID.String(), "hi", "there")
	require.NoError(t, err)
	assert.Equal(t, "Hello!\n", out)

	require.Len(t, f.turns, 1)
	assert.Equal(t, "hi there", f.turns[0]["message"])
	assert.Equal(t, f.threadID.String(), f.turns[0]["threadId"])
}

func TestSendCreatesThreadWhenMissing(t *testing.T) {
	f := &fakeServer{threadID: uuid.New(), reply: []string{"ok"}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	out, errOut, err := run(t, srv, "send", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
	assert.Contains(t, errOut, f.threadID.String())
}

func TestSendInBandError(t *testing.T) {
	f := &fakeServer{threadID: uuid.New(), reply: []string{"Part", "\n\n[ERROR]: overloaded"}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	out, _, err := run(t, srv, "send", "--thread", f.threadID.String(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
	assert.True(t, strings.HasPrefix(out, "Part"))
	assert.NotContains(t, out, "[ERROR]")
}

func TestSendRejected(t *testing.T) {
	f := &fakeServer{threadID: uuid.New(), status: http.StatusBadRequest}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	_, _, err := run(t, srv, "send", "--thread", f.threadID.String(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Thread not found")
}

func TestSendNothing(t *testing.T) {
	f := &fakeServer{threadID: uuid.New()}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	_, _, err := run(t, srv, "send", "--thread", f.threadID.String())
	require.Error(t, err)
	assert.Empty(t, f.turns)
}

func TestHistoryPlain(t *testing.T) {
	f := &fakeServer{threadID: uuid.New(), messages: []map[string]any{
		{"id": uuid.New(), "role": "user", "content": "hi", "created_at": time.Now()},
		{"id": uuid.New(), "role": "assistant", "content": "**hello**", "created_at": time.Now()},
	}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	out, _, err := run(t, srv, "history", "--plain", "--thread", f.threadID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "### You")
	assert.Contains(t, out, "### Assistant")
	assert.Contains(t, out, "**hello**")
}

func TestHistoryEmpty(t *testing.T) {
	f := &fakeServer{threadID: uuid.New()}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	out, _, err := run(t, srv, "history", "--thread", f.threadID.String())
	require.NoError(t, err)
	assert.Equal(t, "No messages yet.\n", out)
}
