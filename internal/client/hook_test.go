package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/realtime"
	"github.com/favorly/backend/internal/service"
)

// fakeAPI scripts the REST surface.
type fakeAPI struct {
	mu       sync.Mutex
	view     *service.TopicView
	messages []model.ChatMessage
	msgErr   error

	sent []string
	seen []string
}

func (a *fakeAPI) TopicView(ctx context.Context, topicID uint64) (*service.TopicView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view == nil {
		return nil, errors.New("no view")
	}
	return a.view, nil
}

func (a *fakeAPI) Messages(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.msgErr != nil {
		return nil, a.msgErr
	}
	out := make([]model.ChatMessage, len(a.messages))
	copy(out, a.messages)
	return out, nil
}

func (a *fakeAPI) SendMessage(ctx context.Context, topicID uint64, content string) (*model.ChatMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, content)
	msg := model.ChatMessage{ID: "rest-" + content, ChatRoomID: "room-1", SenderID: "7", RecipientID: "12", Content: content, Status: model.StatusSent, CreatedAt: time.Now()}
	a.messages = append(a.messages, msg)
	return &msg, nil
}

func (a *fakeAPI) MarkSeen(ctx context.Context, messageID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, messageID)
	return nil
}

// fakeSocket feeds frames to the read loop through a channel and records
// everything written.
type fakeSocket struct {
	mu       sync.Mutex
	incoming chan []byte
	written  []realtime.Inbound
	closed   bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{incoming: make(chan []byte, 16)}
}

func (s *fakeSocket) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("socket closed")
	}
	in, ok := v.(realtime.Inbound)
	if !ok {
		return errors.New("unexpected frame type")
	}
	s.written = append(s.written, in)
	return nil
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	raw, ok := <-s.incoming
	if !ok {
		return 0, nil, io.EOF
	}
	return 1, raw, nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.incoming)
	}
	return nil
}

func (s *fakeSocket) push(t *testing.T, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	s.incoming <- raw
}

func (s *fakeSocket) writes() []realtime.Inbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]realtime.Inbound, len(s.written))
	copy(out, s.written)
	return out
}

type dialScript struct {
	mu      sync.Mutex
	sockets []*fakeSocket
	errs    []error
	calls   int
}

func (d *dialScript) dial(ctx context.Context) (socketConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.sockets) {
		return d.sockets[i], nil
	}
	return nil, errors.New("no more sockets scripted")
}

func (d *dialScript) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func msg(id, sender, content string, status model.MessageStatus, at time.Time) model.ChatMessage {
	recipient := "12"
	if sender == "12" {
		recipient = "7"
	}
	return model.ChatMessage{ID: id, ChatRoomID: "room-1", SenderID: sender, RecipientID: recipient, Content: content, Status: status, CreatedAt: at}
}

func newTestHook(api *fakeAPI, dial Dialer) *Hook {
	h := New(api, dial, zap.NewNop())
	h.retryDelay = 20 * time.Millisecond
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestEnableFetchesHistoryAndHandshakes(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{
		view: &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12", OtherUserOnline: true},
		messages: []model.ChatMessage{
			msg("m1", "7", "hello", model.StatusSeen, now.Add(-2*time.Minute)),
			msg("m2", "12", "hey", model.StatusDelivered, now.Add(-time.Minute)),
		},
	}
	sock := newFakeSocket()
	script := &dialScript{sockets: []*fakeSocket{sock}}

	h := newTestHook(api, script.dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	view := h.Snapshot()
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "12", view.OtherUserID)
	assert.True(t, view.OtherOnline)

	writes := sock.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, realtime.EventRegisterUser, writes[0].Type)
	assert.Equal(t, "7", writes[0].UserID)
	assert.Equal(t, realtime.EventJoinChat, writes[1].Type)
	assert.Equal(t, uint64(30), writes[1].TopicID)
}

func TestEnableRequiresAllIdentifiers(t *testing.T) {
	h := newTestHook(&fakeAPI{}, (&dialScript{}).dial)
	assert.ErrorIs(t, h.Enable(context.Background(), "", 30, "7"), ErrDisabled)
	assert.ErrorIs(t, h.Enable(context.Background(), "room-1", 0, "7"), ErrDisabled)
	assert.ErrorIs(t, h.Enable(context.Background(), "room-1", 30, ""), ErrDisabled)
}

func TestRESTHistoryBeatsSocketSnapshot(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{
		view:     &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"},
		messages: []model.ChatMessage{msg("m1", "7", "rest copy", model.StatusSeen, now)},
	}
	sock := newFakeSocket()
	h := newTestHook(api, (&dialScript{sockets: []*fakeSocket{sock}}).dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	// A stale socket snapshot arrives after the REST adoption.
	sock.push(t, realtime.ChatHistoryFrame{
		Type:     realtime.EventChatHistory,
		Messages: []model.ChatMessage{},
		Presence: realtime.PresenceInfo{OtherUserID: "12", Online: true},
	})
	waitFor(t, func() bool { return h.Snapshot().OtherOnline })

	view := h.Snapshot()
	// The REST history survived; only presence was taken from the frame.
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "rest copy", view.Messages[0].Content)
}

func TestIncrementalPatchesAreIDKeyed(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{
		view:     &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"},
		messages: []model.ChatMessage{msg("m1", "7", "first", model.StatusSent, now.Add(-time.Minute))},
	}
	sock := newFakeSocket()
	h := newTestHook(api, (&dialScript{sockets: []*fakeSocket{sock}}).dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	incoming := msg("m2", "12", "second", model.StatusDelivered, now)
	sock.push(t, realtime.MessageFrame{Type: realtime.EventNewMessage, Message: &incoming})
	waitFor(t, func() bool { return len(h.Snapshot().Messages) == 2 })

	// A duplicate frame for the same id does not append again.
	sock.push(t, realtime.MessageFrame{Type: realtime.EventNewMessage, Message: &incoming})
	sock.push(t, realtime.MessageSeenFrame{Type: realtime.EventMessageSeen, MessageID: "m1", SeenBy: "12"})
	waitFor(t, func() bool { return h.Snapshot().Messages[0].Status == model.StatusSeen })

	view := h.Snapshot()
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "m1", view.Messages[0].ID)
	assert.Equal(t, "m2", view.Messages[1].ID)
}

func TestStatusNeverRegresses(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{
		view:     &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"},
		messages: []model.ChatMessage{msg("m1", "7", "first", model.StatusSent, now)},
	}
	sock := newFakeSocket()
	h := newTestHook(api, (&dialScript{sockets: []*fakeSocket{sock}}).dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	// Out-of-order delivery: seen lands before delivered.
	sock.push(t, realtime.MessageSeenFrame{Type: realtime.EventMessageSeen, MessageID: "m1", SeenBy: "12"})
	waitFor(t, func() bool { return h.Snapshot().Messages[0].Status == model.StatusSeen })
	sock.push(t, realtime.MessageDeliveredFrame{Type: realtime.EventMessageDelivered, MessageID: "m1", DeliveredTo: "12"})

	// Give the late frame time to be (not) applied.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, model.StatusSeen, h.Snapshot().Messages[0].Status)
}

func TestSendPrefersSocket(t *testing.T) {
	api := &fakeAPI{view: &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"}}
	sock := newFakeSocket()
	h := newTestHook(api, (&dialScript{sockets: []*fakeSocket{sock}}).dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	require.NoError(t, h.Send(context.Background(), "hello"))

	writes := sock.writes()
	require.Len(t, writes, 3) // register, join, send
	assert.Equal(t, realtime.EventSendMessage, writes[2].Type)
	assert.Equal(t, "hello", writes[2].Content)
	assert.Empty(t, api.sent)
}

func TestSendFallsBackToRESTAndRefetches(t *testing.T) {
	api := &fakeAPI{view: &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"}}
	// Dial never succeeds; the hook stays on the REST path.
	h := newTestHook(api, (&dialScript{errs: []error{errors.New("refused"), errors.New("refused")}}).dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	require.NoError(t, h.Send(context.Background(), "over rest"))

	assert.Equal(t, []string{"over rest"}, api.sent)
	// The re-fetch brought the sender's own message into the view.
	view := h.Snapshot()
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "over rest", view.Messages[0].Content)
}

func TestReconnectHandshakesAgain(t *testing.T) {
	api := &fakeAPI{view: &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"}}
	first := newFakeSocket()
	second := newFakeSocket()
	script := &dialScript{sockets: []*fakeSocket{first, second}}

	h := newTestHook(api, script.dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	// Server drops the connection.
	require.NoError(t, first.Close())

	waitFor(t, func() bool { return script.dialCount() == 2 })
	waitFor(t, func() bool { return len(second.writes()) == 2 })

	writes := second.writes()
	assert.Equal(t, realtime.EventRegisterUser, writes[0].Type)
	assert.Equal(t, realtime.EventJoinChat, writes[1].Type)
}

func TestDisableCancelsPendingRetry(t *testing.T) {
	api := &fakeAPI{view: &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"}}
	script := &dialScript{errs: []error{errors.New("refused")}}

	h := newTestHook(api, script.dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	require.Equal(t, 1, script.dialCount())

	h.Disable()
	// Past the retry delay: no second dial happened.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, script.dialCount())
	assert.Empty(t, h.Snapshot().Messages)
}

func TestDisabledHookIsNoop(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHook(api, (&dialScript{}).dial)

	assert.NoError(t, h.Send(context.Background(), "hello"))
	h.Typing(true)
	assert.NoError(t, h.MarkSeen(context.Background(), "m1"))
	assert.Empty(t, api.sent)
	assert.Empty(t, api.seen)
}

func TestDeactivationTurnsViewReadOnly(t *testing.T) {
	api := &fakeAPI{view: &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"}}
	sock := newFakeSocket()
	h := newTestHook(api, (&dialScript{sockets: []*fakeSocket{sock}}).dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	notice := model.ChatMessage{ID: "n1", ChatRoomID: "room-1", SenderID: "system", Kind: model.KindSystem, Content: "read-only", CreatedAt: time.Now()}
	sock.push(t, realtime.MessageFrame{Type: realtime.EventChatDeactivated, Message: &notice})

	waitFor(t, func() bool { return h.Snapshot().ReadOnly })
	view := h.Snapshot()
	require.Len(t, view.Messages, 1)
	assert.Equal(t, model.KindSystem, view.Messages[0].Kind)
}

func TestTypingAndPresenceFrames(t *testing.T) {
	api := &fakeAPI{view: &service.TopicView{ChatRoomID: "room-1", TopicID: 30, OtherUserID: "12"}}
	sock := newFakeSocket()
	h := newTestHook(api, (&dialScript{sockets: []*fakeSocket{sock}}).dial)
	require.NoError(t, h.Enable(context.Background(), "room-1", 30, "7"))
	defer h.Disable()

	sock.push(t, realtime.TypingFrame{Type: realtime.EventTyping, UserID: "12", IsTyping: true})
	waitFor(t, func() bool { return h.Snapshot().OtherTyping })

	sock.push(t, realtime.PresenceFrame{Type: realtime.EventUserOffline, UserID: "12"})
	waitFor(t, func() bool {
		v := h.Snapshot()
		return !v.OtherOnline && !v.OtherTyping
	})

	// Frames about someone else do not touch the counterpart's state.
	sock.push(t, realtime.TypingFrame{Type: realtime.EventTyping, UserID: "99", IsTyping: true})
	time.Sleep(30 * time.Millisecond)
	assert.False(t, h.Snapshot().OtherTyping)
}
