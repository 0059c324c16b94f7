package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatyni/internal/app/user"
	"chatyni/internal/pkg/errs"
)

// fakeConn records what the registry pushes to it. Broadcast frames are decoded back into
// events; the raw frames are kept as well.
type fakeConn struct {
	mu          sync.Mutex
	events      []Event
	frames      [][]byte
	closed      bool
	closeCode   int
	closeReason string
	capacity    int
}

func newFakeConn() *fakeConn {
	return &fakeConn{capacity: 64}
}

func (f *fakeConn) Send(evt Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrConnClosed
	}
	if len(f.events) >= f.capacity {
		return ErrSendQueueFull
	}
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeConn) SendFrame(frame []byte) error {
	evt, err := decodeFrame(frame)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrConnClosed
	}
	if len(f.events) >= f.capacity {
		return ErrSendQueueFull
	}
	f.events = append(f.events, evt)
	f.frames = append(f.frames, frame)
	return nil
}

// Terminate ignores capacity for final, as a real client frees a slot for it.
func (f *fakeConn) Terminate(final Event, code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.events = append(f.events, final)
	f.closed = true
	f.closeCode = code
	f.closeReason = reason
}

func (f *fakeConn) Close(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.closeCode = code
	f.closeReason = reason
}

func (f *fakeConn) snapshot() ([]Event, bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Event(nil), f.events...), f.closed, f.closeCode
}

func (f *fakeConn) eventsOfType(t EventType) []Event {
	events, _, _ := f.snapshot()

	var out []Event
	for _, evt := range events {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}

func decodeFrame(frame []byte) (Event, error) {
	var raw inboundEvent
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Event{}, err
	}

	var payload any
	switch raw.Type {
	case TypeNewMessage:
		var msg ChatMessage
		if err := json.Unmarshal(raw.Payload, &msg); err != nil {
			return Event{}, err
		}
		payload = msg
	case TypeBanned:
		var banned BannedPayload
		if err := json.Unmarshal(raw.Payload, &banned); err != nil {
			return Event{}, err
		}
		payload = banned
	default:
		return Event{}, fmt.Errorf("unexpected frame type %q", raw.Type)
	}

	return Event{Type: raw.Type, Payload: payload}, nil
}

func newTestHub(t *testing.T, usernames ...string) (*Hub, *user.MemoryRepository) {
	t.Helper()

	repo := user.NewMemoryRepository()
	for _, name := range usernames {
		require.NoError(t, repo.Create(context.Background(), &user.User{
			Username:  name,
			Email:     name + "@x",
			Role:      user.RoleMember,
			Status:    user.StatusActive,
			AvatarURL: "https://img.example/" + name,
		}))
	}

	return NewHub(repo), repo
}

func ban(t *testing.T, repo *user.MemoryRepository, username, reason string, expiresAt *time.Time) {
	t.Helper()

	_, err := repo.Update(context.Background(), username, func(u *user.User) error {
		u.Status = user.StatusBanned
		u.BanDetails = user.BanDetails{BannedBy: "Admin", Reason: reason, ExpiresAt: expiresAt}
		return nil
	})
	require.NoError(t, err)
}

func TestRegister_MostRecentConnectionWins(t *testing.T) {
	hub, _ := newTestHub(t, "alice")
	first, second := newFakeConn(), newFakeConn()

	require.NoError(t, hub.Register("alice", first))
	require.NoError(t, hub.Register("alice", second))

	current, ok := hub.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, current)
	assert.Equal(t, 1, hub.Count())

	_, closed, _ := first.snapshot()
	assert.False(t, closed, "superseded connection stays open")
}

func TestRegister_UnknownUser(t *testing.T) {
	hub, _ := newTestHub(t)

	err := hub.Register("ghost", newFakeConn())
	require.Error(t, err)
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.Equal(t, 0, hub.Count())
}

func TestRegister_RefusesBannedUser(t *testing.T) {
	hub, repo := newTestHub(t, "alice")
	ban(t, repo, "alice", "spam", nil)

	err := hub.Register("alice", newFakeConn())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBanned)

	var bannedErr *BannedError
	require.ErrorAs(t, err, &bannedErr)
	assert.Equal(t, "spam", bannedErr.Reason)

	_, ok := hub.Lookup("alice")
	assert.False(t, ok)
}

func TestRegister_AdmitsLapsedBan(t *testing.T) {
	hub, repo := newTestHub(t, "alice")
	lapsed := time.Now().Add(-time.Minute)
	ban(t, repo, "alice", "spam", &lapsed)

	assert.NoError(t, hub.Register("alice", newFakeConn()))
}

func TestUnregister_CompareAndRemove(t *testing.T) {
	hub, _ := newTestHub(t, "alice")
	old, current := newFakeConn(), newFakeConn()

	require.NoError(t, hub.Register("alice", old))
	require.NoError(t, hub.Register("alice", current))

	assert.False(t, hub.Unregister("alice", old), "stale handle must not evict the newer one")

	got, ok := hub.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, current, got)

	assert.True(t, hub.Unregister("alice", current))
	assert.False(t, hub.Unregister("alice", current))
	assert.Equal(t, 0, hub.Count())
}

func TestKick_DeliversBannedThenClosesAndRemoves(t *testing.T) {
	hub, _ := newTestHub(t, "alice")
	conn := newFakeConn()
	require.NoError(t, hub.Register("alice", conn))

	assert.True(t, hub.Kick("alice", "test"))

	events, closed, code := conn.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, TypeBanned, events[0].Type)
	assert.Equal(t, BannedPayload{Reason: "test"}, events[0].Payload)
	assert.True(t, closed)
	assert.Equal(t, WsCloseCodeBanned, code)

	_, ok := hub.Lookup("alice")
	assert.False(t, ok)

	assert.False(t, hub.Kick("alice", "test"), "second kick finds no session")
	events, _, _ = conn.snapshot()
	assert.Len(t, events, 1, "banned notice is delivered exactly once")
}

func TestKick_NoticeSurvivesSaturatedQueue(t *testing.T) {
	hub, _ := newTestHub(t, "alice")
	conn := newFakeConn()
	conn.capacity = 1
	require.NoError(t, hub.Register("alice", conn))
	require.NoError(t, conn.Send(Event{Type: TypeNewMessage, Payload: ChatMessage{Text: "backlog"}}))
	require.ErrorIs(t, conn.Send(Event{Type: TypeNewMessage}), ErrSendQueueFull)

	assert.True(t, hub.Kick("alice", "spam"))

	banned := conn.eventsOfType(TypeBanned)
	require.Len(t, banned, 1)
	assert.Equal(t, BannedPayload{Reason: "spam"}, banned[0].Payload)

	_, closed, code := conn.snapshot()
	assert.True(t, closed)
	assert.Equal(t, WsCloseCodeBanned, code)
}

func TestKick_NoSessionIsNotAnError(t *testing.T) {
	hub, _ := newTestHub(t, "alice")
	assert.False(t, hub.Kick("alice", "test"))
}

func TestKick_SupersededConnectionIsUntouched(t *testing.T) {
	hub, _ := newTestHub(t, "alice")
	old, current := newFakeConn(), newFakeConn()
	require.NoError(t, hub.Register("alice", old))
	require.NoError(t, hub.Register("alice", current))

	hub.Kick("alice", "test")

	oldEvents, oldClosed, _ := old.snapshot()
	assert.Empty(t, oldEvents)
	assert.False(t, oldClosed)

	_, currentClosed, _ := current.snapshot()
	assert.True(t, currentClosed)
}

func TestKick_TruncatesLongCloseReason(t *testing.T) {
	hub, _ := newTestHub(t, "alice")
	conn := newFakeConn()
	require.NoError(t, hub.Register("alice", conn))

	reason := strings.Repeat("é", 100)
	hub.Kick("alice", reason)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.LessOrEqual(t, len(conn.closeReason), maxCloseReasonBytes)
	assert.True(t, strings.HasPrefix(reason, conn.closeReason))
	assert.Equal(t, BannedPayload{Reason: reason}, conn.events[0].Payload, "banned event keeps the full reason")
}

func TestPublish_ReachesEveryoneIncludingSender(t *testing.T) {
	hub, _ := newTestHub(t, "alice", "bob")
	alice, bob := newFakeConn(), newFakeConn()
	require.NoError(t, hub.Register("alice", alice))
	require.NoError(t, hub.Register("bob", bob))

	delivered := hub.Publish("alice", alice, "hi")
	assert.Equal(t, 2, delivered)

	for _, conn := range []*fakeConn{alice, bob} {
		msgs := conn.eventsOfType(TypeNewMessage)
		require.Len(t, msgs, 1)

		msg, ok := msgs[0].Payload.(ChatMessage)
		require.True(t, ok)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, "https://img.example/alice", msg.AvatarURL)
		assert.Equal(t, "hi", msg.Text)
		assert.NotEmpty(t, msg.ID)
	}
}

func TestPublish_EncodesOnceForAllRecipients(t *testing.T) {
	hub, _ := newTestHub(t, "alice", "bob", "carol")
	conns := []*fakeConn{newFakeConn(), newFakeConn(), newFakeConn()}
	for i, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, hub.Register(name, conns[i]))
	}

	require.Equal(t, 3, hub.Publish("alice", conns[0], "hi"))

	first := conns[0].frames[0]
	for _, conn := range conns[1:] {
		require.Len(t, conn.frames, 1)
		assert.True(t, &first[0] == &conn.frames[0][0], "recipients share one encoded frame")
	}
}

func TestPublish_UnboundOrStaleConnectionIsDropped(t *testing.T) {
	hub, _ := newTestHub(t, "alice", "bob")
	old, current, bob := newFakeConn(), newFakeConn(), newFakeConn()
	require.NoError(t, hub.Register("alice", old))
	require.NoError(t, hub.Register("alice", current))
	require.NoError(t, hub.Register("bob", bob))

	assert.Equal(t, 0, hub.Publish("alice", old, "from the old tab"))
	assert.Equal(t, 0, hub.Publish("", newFakeConn(), "anonymous"))
	assert.Equal(t, 0, hub.Publish("carol", newFakeConn(), "never registered"))

	assert.Empty(t, bob.eventsOfType(TypeNewMessage))
	assert.Empty(t, current.eventsOfType(TypeNewMessage))
}

func TestPublish_KickedUserCannotSend(t *testing.T) {
	hub, _ := newTestHub(t, "alice", "bob")
	alice, bob := newFakeConn(), newFakeConn()
	require.NoError(t, hub.Register("alice", alice))
	require.NoError(t, hub.Register("bob", bob))

	hub.Kick("alice", "test")

	assert.Equal(t, 0, hub.Publish("alice", alice, "still here?"))
	assert.Empty(t, bob.eventsOfType(TypeNewMessage))
}

func TestPublish_EmptyAndOversizedText(t *testing.T) {
	hub, _ := newTestHub(t, "alice")
	alice := newFakeConn()
	require.NoError(t, hub.Register("alice", alice))

	assert.Equal(t, 0, hub.Publish("alice", alice, "   "))
	assert.Empty(t, alice.eventsOfType(TypeNewMessage))

	assert.Equal(t, 0, hub.Publish("alice", alice, strings.Repeat("x", MaxContentBytes+1)))
	errorsSent := alice.eventsOfType(TypeError)
	require.Len(t, errorsSent, 1)
	assert.Equal(t, errs.ErrMessageContentTooLong, errorsSent[0].Payload.(ErrorPayload).Code)

	assert.Equal(t, 1, hub.Publish("alice", alice, strings.Repeat("x", MaxContentBytes)))
}

func TestPublish_FullQueueDoesNotBlockOthers(t *testing.T) {
	hub, _ := newTestHub(t, "alice", "bob", "carol")
	alice, bob, carol := newFakeConn(), newFakeConn(), newFakeConn()
	bob.capacity = 0

	require.NoError(t, hub.Register("alice", alice))
	require.NoError(t, hub.Register("bob", bob))
	require.NoError(t, hub.Register("carol", carol))

	assert.Equal(t, 2, hub.Publish("alice", alice, "hi"))
	assert.Len(t, carol.eventsOfType(TypeNewMessage), 1)
	assert.Empty(t, bob.eventsOfType(TypeNewMessage))
}

func TestUsernamesAndShutdown(t *testing.T) {
	hub, _ := newTestHub(t, "bob", "alice")
	alice, bob := newFakeConn(), newFakeConn()
	require.NoError(t, hub.Register("bob", bob))
	require.NoError(t, hub.Register("alice", alice))

	assert.Equal(t, []string{"alice", "bob"}, hub.Usernames())

	hub.Shutdown()

	assert.Equal(t, 0, hub.Count())
	for _, conn := range []*fakeConn{alice, bob} {
		_, closed, code := conn.snapshot()
		assert.True(t, closed)
		assert.Equal(t, websocket.CloseGoingAway, code)
	}
}

func TestConcurrentRegisterAndKick(t *testing.T) {
	hub, repo := newTestHub(t, "alice")

	var wg sync.WaitGroup
	conns := make([]*fakeConn, 20)
	for i := range conns {
		conns[i] = newFakeConn()
	}

	for _, conn := range conns {
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			_ = hub.Register("alice", c)
		}(conn)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = repo.Update(context.Background(), "alice", func(u *user.User) error {
			u.Status = user.StatusBanned
			u.BanDetails = user.BanDetails{BannedBy: "Admin", Reason: "race"}
			return nil
		})
		hub.Kick("alice", "race")
	}()

	wg.Wait()

	// Registrations that won the lock before Kick were removed by it; later ones saw the ban.
	_, ok := hub.Lookup("alice")
	assert.False(t, ok)
	assert.ErrorIs(t, hub.Register("alice", newFakeConn()), ErrBanned)
}
