package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fastchat/internal/logging"
	"github.com/dmitrijs2005/fastchat/internal/server/models"
	"github.com/dmitrijs2005/fastchat/internal/server/registry"
)

// testPeer records delivered lines.
type testPeer struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

func (p *testPeer) Deliver(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("closed")
	}
	p.lines = append(p.lines, line)
	return nil
}

func (p *testPeer) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

// memoryLog is an in-memory MessageLog.
type memoryLog struct {
	mu       sync.Mutex
	messages []models.Message
	fail     bool
}

func (l *memoryLog) Append(_ context.Context, msg *models.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("log unavailable")
	}
	l.messages = append(l.messages, *msg)
	return nil
}

func (l *memoryLog) Messages() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Message(nil), l.messages...)
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestRouter(t *testing.T) (*Router, *registry.Registry, *memoryLog) {
	t.Helper()
	reg := registry.New()
	log := &memoryLog{}
	r := NewRouter(reg, log, testLogger())
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	r.newID = func() string { return "msg-1" }
	return r, reg, log
}

func TestBroadcast_ReachesEveryoneExceptSender(t *testing.T) {
	r, reg, log := newTestRouter(t)

	alice, bob, carol := &testPeer{}, &testPeer{}, &testPeer{}
	require.NoError(t, reg.Register(alice, "alice"))
	require.NoError(t, reg.Register(bob, "bob"))
	require.NoError(t, reg.Register(carol, "carol"))

	r.Broadcast(context.Background(), "alice", alice, "hello all")

	assert.Empty(t, alice.Lines(), "sender must not receive own broadcast")
	assert.Equal(t, []string{"[alice] hello all"}, bob.Lines())
	assert.Equal(t, []string{"[alice] hello all"}, carol.Lines())

	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].Sender)
	assert.Empty(t, msgs[0].Recipient)
	assert.Equal(t, "hello all", msgs[0].Body)
}

func TestDirect_DeliversAndEchoes(t *testing.T) {
	r, reg, log := newTestRouter(t)

	alice, bob := &testPeer{}, &testPeer{}
	require.NoError(t, reg.Register(alice, "alice"))
	require.NoError(t, reg.Register(bob, "bob"))

	r.Direct(context.Background(), "alice", alice, "bob", "aGVsbG8=")

	assert.Equal(t, []string{"[PM from alice] aGVsbG8="}, bob.Lines())
	assert.Equal(t, []string{"[PM to bob] aGVsbG8="}, alice.Lines())

	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "bob", msgs[0].Recipient)
	assert.Equal(t, "aGVsbG8=", msgs[0].Body, "payload must be stored as sent")
}

func TestDirect_OfflineTarget(t *testing.T) {
	r, reg, log := newTestRouter(t)

	alice := &testPeer{}
	require.NoError(t, reg.Register(alice, "alice"))

	r.Direct(context.Background(), "alice", alice, "bob", "hi")

	assert.Equal(t, []string{"SYSTEM: user bob is not online"}, alice.Lines())
	assert.Empty(t, log.Messages(), "offline PM must not touch the log")
}

func TestDirect_TargetClosedMidDelivery(t *testing.T) {
	r, reg, log := newTestRouter(t)

	alice, bob := &testPeer{}, &testPeer{}
	require.NoError(t, reg.Register(alice, "alice"))
	require.NoError(t, reg.Register(bob, "bob"))
	bob.closed = true

	r.Direct(context.Background(), "alice", alice, "bob", "hi")

	assert.Equal(t, []string{"SYSTEM: user bob is not online"}, alice.Lines())
	assert.Empty(t, log.Messages())
}

func TestBroadcast_LogFailureDoesNotBlockDelivery(t *testing.T) {
	r, reg, log := newTestRouter(t)
	log.fail = true

	alice, bob := &testPeer{}, &testPeer{}
	require.NoError(t, reg.Register(alice, "alice"))
	require.NoError(t, reg.Register(bob, "bob"))

	r.Broadcast(context.Background(), "alice", alice, "still delivered")

	assert.Equal(t, []string{"[alice] still delivered"}, bob.Lines())
}

func TestNotify_NotPersisted(t *testing.T) {
	r, reg, log := newTestRouter(t)

	alice, bob := &testPeer{}, &testPeer{}
	require.NoError(t, reg.Register(alice, "alice"))
	require.NoError(t, reg.Register(bob, "bob"))

	r.Notify(alice, "alice joined the chat")

	assert.Equal(t, []string{"SYSTEM: alice joined the chat"}, bob.Lines())
	assert.Empty(t, alice.Lines())
	assert.Empty(t, log.Messages())
}
