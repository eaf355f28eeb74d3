package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/client"
	"github.com/set-night/mindchat/internal/domain"
)

var ErrBusy = errors.New("a message is already being sent")

// ReplyError is an error the server reported inside the reply stream.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return "reply failed: " + e.Message
}

// Backend is the part of client.Client the controller needs.
type Backend interface {
	UploadImage(ctx context.Context, threadID uuid.UUID, filename string, r io.Reader) (string, error)
	SubmitTurn(ctx context.Context, turn client.TurnRequest) (io.ReadCloser, error)
}

type Attachment struct {
	Filename string
	Body     io.Reader
}

type Options struct {
	// Messages seeds the history, usually from client.History.
	Messages []Message
	// NewID generates local message ids. Defaults to random UUIDs.
	NewID func() string
	// ReadSize is the read buffer size for the reply stream.
	ReadSize int
}

type Controller struct {
	backend  Backend
	threadID uuid.UUID
	newID    func() string
	readSize int

	mu        sync.Mutex
	state     State
	observers map[int]func(State)
	nextObs   int
}

func NewController(backend Backend, threadID uuid.UUID, opts Options) *Controller {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = 4096
	}
	return &Controller{
		backend:   backend,
		threadID:  threadID,
		newID:     opts.NewID,
		readSize:  opts.ReadSize,
		state:     State{Messages: opts.Messages},
		observers: make(map[int]func(State)),
	}
}

// FromHistory converts stored messages for Options.Messages.
func FromHistory(msgs []domain.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		v := Message{ID: m.ID.String(), Role: m.Role, Content: m.Content}
		if m.HasImage() {
			v.ImageURL = *m.ImageURL
		}
		out = append(out, v)
	}
	return out
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every new state. Observers run on the
// goroutine calling Submit and must not call Submit themselves.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Controller) dispatch(ev Event) {
	c.mu.Lock()
	s, fns := c.apply(ev)
	c.mu.Unlock()
	notifyAll(fns, s)
}

// begin applies Submitted unless a turn is already running.
func (c *Controller) begin(msg Message) error {
	c.mu.Lock()
	if c.state.Busy {
		c.mu.Unlock()
		return ErrBusy
	}
	s, fns := c.apply(Submitted{Message: msg})
	c.mu.Unlock()
	notifyAll(fns, s)
	return nil
}

// apply must be called with mu held.
func (c *Controller) apply(ev Event) (State, []func(State)) {
	c.state = Reduce(c.state, ev)
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	return c.state, fns
}

func notifyAll(fns []func(State), s State) {
	for _, fn := range fns {
		fn(s)
	}
}

// Submit sends one turn and blocks until the reply has finished, failed or
// been cut off by an in-band error. Busy is cleared on every path.
func (c *Controller) Submit(ctx context.Context, text string, att *Attachment) error {
	text = strings.TrimSpace(text)
	if text == "" && att == nil {
		return domain.ErrEmptyTurn
	}

	local := Message{ID: c.newID(), Role: domain.RoleUser, Content: text}
	if err := c.begin(local); err != nil {
		return err
	}
	defer c.dispatch(Settled{})

	err := c.run(ctx, local.ID, text, att)
	var replyErr *ReplyError
	if err != nil && !errors.As(err, &replyErr) {
		c.dispatch(Failed{Err: err})
	}
	return err
}

func (c *Controller) run(ctx context.Context, localID, text string, att *Attachment) error {
	var imageURL string
	if att != nil {
		url, err := c.backend.UploadImage(ctx, c.threadID, att.Filename, att.Body)
		if err != nil {
			return err
		}
		imageURL = url
		c.dispatch(Uploaded{ID: localID, URL: url})
	}

	body, err := c.backend.SubmitTurn(ctx, client.TurnRequest{
		ThreadID: c.threadID,
		Message:  text,
		ImageURL: imageURL,
	})
	if err != nil {
		return err
	}
	defer body.Close()

	var (
		reply   strings.Builder
		pending []byte
		buf     = make([]byte, c.readSize)
	)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completePrefix(pending)
			if cut > 0 {
				reply.Write(pending[:cut])
				pending = append(pending[:0], pending[cut:]...)

				if msg, ok := domain.ParseStreamError(reply.String()); ok {
					c.dispatch(ErrorReceived{Message: msg})
					return &ReplyError{Message: msg}
				}
				c.dispatch(ChunkReceived{Text: reply.String()})
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if len(pending) > 0 {
		reply.Write(pending)
		if msg, ok := domain.ParseStreamError(reply.String()); ok {
			c.dispatch(ErrorReceived{Message: msg})
			return &ReplyError{Message: msg}
		}
	}
	if reply.Len() > 0 {
		c.dispatch(StreamEnded{ID: c.newID(), Text: reply.String()})
	}
	return nil
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte UTF-8 sequence.
func completePrefix(b []byte) int {
	end := len(b)
	// A rune is at most 4 bytes, so only the tail can be incomplete.
	for i := end - 1; i >= 0 && i >= end-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:end]) {
			return end
		}
		return i
	}
	return end
}
