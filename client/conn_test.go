package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"code.hybscloud.com/iox"

	"github.com/mazei513/wlsession/internal/transport"
	"github.com/mazei513/wlsession/proto"
	"github.com/mazei513/wlsession/wire"
)

const lockManager = "ext_session_lock_manager_v1"

// compositor is the far end of a socket pair standing in for the server.
type compositor struct {
	t    *testing.T
	sock *transport.Socket
}

func newTestConn(t *testing.T) (*Conn, *compositor) {
	t.Helper()
	return newLoggedConn(t, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newLoggedConn(t *testing.T, logger *slog.Logger) (*Conn, *compositor) {
	t.Helper()
	a, b, err := transport.Pair()
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewConn(a, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		c.Close()
		b.Close()
	})
	return c, &compositor{t: t, sock: b}
}

func (s *compositor) send(msgs ...[]byte) {
	s.t.Helper()
	for _, m := range msgs {
		if _, err := s.sock.Write(m); err != nil {
			s.t.Fatalf("compositor write: %v", err)
		}
	}
}

// received returns every byte the client has written so far.
func (s *compositor) received() []byte {
	s.t.Helper()
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := s.sock.Read(buf)
		if iox.IsWouldBlock(err) {
			return out
		}
		if err != nil {
			s.t.Fatalf("compositor read: %v", err)
		}
		out = append(out, buf[:n]...)
	}
}

func (s *compositor) expect(reqs ...proto.Request) {
	s.t.Helper()
	var want []byte
	for _, r := range reqs {
		b, err := r.MarshalBinary()
		if err != nil {
			s.t.Fatal(err)
		}
		want = append(want, b...)
	}
	if got := s.received(); !bytes.Equal(got, want) {
		s.t.Fatalf("client sent\n% x\nwant\n% x", got, want)
	}
}

func event(t *testing.T, object wire.ObjectID, opcode uint16, build func(e *wire.Encoder)) []byte {
	t.Helper()
	e := wire.NewEncoder(0)
	if build != nil {
		build(e)
	}
	msg, err := wire.Frame(object, opcode, e.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func global(t *testing.T, name uint32, iface string, version uint32) []byte {
	return event(t, 2, 0, func(e *wire.Encoder) {
		e.PutUint32(name)
		e.PutString(iface)
		e.PutUint32(version)
	})
}

func done(t *testing.T, callback wire.ObjectID) []byte {
	return event(t, callback, 0, func(e *wire.Encoder) { e.PutUint32(0) })
}

// ready brings c through the handshake with the given globals.
func ready(t *testing.T, c *Conn, s *compositor, globals ...[]byte) {
	t.Helper()
	if err := c.GetRegistry(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := c.Sync(t.Context()); err != nil {
		t.Fatal(err)
	}
	s.received()
	s.send(globals...)
	s.send(done(t, 3))
	if err := c.Dispatch(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateReady {
		t.Fatalf("state %s after handshake", c.State())
	}
}

func TestSessionLockEndToEnd(t *testing.T) {
	c, s := newTestConn(t)

	if err := c.GetRegistry(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.Registry().ID() != 2 || c.State() != StateRegistrySent {
		t.Fatalf("registry %d, state %s", c.Registry().ID(), c.State())
	}
	if err := c.Sync(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateSyncPending {
		t.Fatalf("state %s", c.State())
	}
	s.expect(proto.Display{}.GetRegistry(2), proto.Display{}.Sync(3))

	s.send(append(global(t, 9, lockManager, 1), done(t, 3)...))
	if err := c.Dispatch(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateReady {
		t.Fatalf("state %s", c.State())
	}
	all := c.Globals().All()
	if len(all) != 1 || all[0] != (Global{Name: 9, Interface: lockManager, Version: 1}) {
		t.Fatalf("globals %+v", all)
	}

	m, err := c.BindSessionLockManager(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if m.ID() != 4 {
		t.Errorf("manager id %d, want 4", m.ID())
	}
	bind := s.received()
	// header, name, string (length word + 28 bytes), version, id
	if want := 24 + 28; len(bind) != want {
		t.Fatalf("bind is %d bytes, want %d", len(bind), want)
	}
	h, _ := wire.ParseHeader(bind)
	if h != (wire.Header{Object: 2, Opcode: 0, Size: 52}) {
		t.Errorf("bind header %+v", h)
	}

	if err := c.Lock(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.LockState() != LockLocked || c.Locked() {
		t.Fatalf("lock state %s, confirmed %v", c.LockState(), c.Locked())
	}
	s.expect(proto.NewSessionLockManager(4).Lock(5))

	s.send(event(t, 5, 0, nil))
	if err := c.WaitLocked(t.Context()); err != nil {
		t.Fatal(err)
	}
	if !c.Locked() {
		t.Fatal("lock not confirmed")
	}

	if err := c.Unlock(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.LockState() != LockUnlocked {
		t.Fatalf("lock state %s", c.LockState())
	}
	s.expect(proto.NewSessionLock(5).UnlockAndDestroy())
}

func TestHandshake(t *testing.T) {
	c, s := newTestConn(t)
	// Events are already queued when the handshake starts.
	s.send(global(t, 1, "wl_compositor", 6), global(t, 2, "wl_shm", 1), done(t, 3))
	if err := c.Handshake(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.Globals().Len() != 2 {
		t.Errorf("%d globals", c.Globals().Len())
	}
	s.expect(proto.Display{}.GetRegistry(2), proto.Display{}.Sync(3))
}

func TestSyncOrdering(t *testing.T) {
	c, s := newTestConn(t)
	if err := c.GetRegistry(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := c.Sync(t.Context()); err != nil {
		t.Fatal(err)
	}

	const n = 50
	var buf []byte
	for i := range uint32(n) {
		buf = append(buf, global(t, i+1, "wl_output", 4)...)
	}
	buf = append(buf, done(t, 3)...)
	s.send(buf)

	if err := c.Dispatch(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateReady {
		t.Fatalf("state %s", c.State())
	}
	if c.Globals().Len() != n {
		t.Errorf("%d globals, want %d", c.Globals().Len(), n)
	}
}

func TestSplitDelivery(t *testing.T) {
	c, s := newTestConn(t)
	if err := c.GetRegistry(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := c.Sync(t.Context()); err != nil {
		t.Fatal(err)
	}

	buf := append(global(t, 9, lockManager, 1), done(t, 3)...)
	cut := 13
	s.send(buf[:cut])
	if err := c.Dispatch(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateSyncPending || c.Globals().Len() != 0 {
		t.Fatalf("state %s with %d globals after partial frame", c.State(), c.Globals().Len())
	}
	s.send(buf[cut:])
	if err := c.Dispatch(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateReady {
		t.Fatalf("state %s", c.State())
	}
	if g, ok := c.Globals().Lookup(9); !ok || g.Interface != lockManager {
		t.Errorf("Lookup(9) = %+v, %v", g, ok)
	}
}

func TestBindUnsupported(t *testing.T) {
	c, s := newTestConn(t)
	ready(t, c, s, global(t, 5, "wl_compositor", 4))

	next := c.nextID
	_, err := c.Bind(t.Context(), "wl_seat")
	if !errors.Is(err, ErrUnsupportedInterface) {
		t.Fatalf("got %v", err)
	}
	var uerr *UnsupportedInterfaceError
	if !errors.As(err, &uerr) || uerr.Interface != "wl_seat" {
		t.Errorf("got %#v", err)
	}
	if c.nextID != next {
		t.Errorf("id counter moved from %d to %d", next, c.nextID)
	}
	if got := s.received(); len(got) != 0 {
		t.Errorf("client sent % x", got)
	}

	if _, err := c.BindSessionLockManager(t.Context()); !errors.Is(err, ErrUnsupportedInterface) {
		t.Errorf("lock manager: %v", err)
	}

	id, err := c.Bind(t.Context(), "wl_compositor")
	if err != nil {
		t.Fatal(err)
	}
	if id != next {
		t.Errorf("bound id %d, want %d", id, next)
	}
	s.expect(c.Registry().Bind(5, wire.NewID{Interface: "wl_compositor", Version: 4, ID: id}))
}

func TestBindCapsLockManagerVersion(t *testing.T) {
	c, s := newTestConn(t)
	ready(t, c, s, global(t, 3, lockManager, 3))
	m, err := c.BindSessionLockManager(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	again, err := c.BindSessionLockManager(t.Context())
	if err != nil || again != m {
		t.Fatalf("second bind returned %v, %v", again, err)
	}
	s.expect(c.Registry().Bind(3, wire.NewID{Interface: lockManager, Version: 1, ID: m.ID()}))
}

func TestStateErrors(t *testing.T) {
	c, s := newTestConn(t)
	if err := c.Sync(t.Context()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("sync before get_registry: %v", err)
	}
	if _, err := c.Bind(t.Context(), "wl_compositor"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("bind before ready: %v", err)
	}
	if err := c.GetRegistry(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := c.GetRegistry(t.Context()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second get_registry: %v", err)
	}
	if err := c.Lock(t.Context()); !errors.Is(err, ErrNoLockManager) {
		t.Errorf("lock without manager: %v", err)
	}
	if err := c.Unlock(t.Context()); !errors.Is(err, ErrNotLocked) {
		t.Errorf("unlock without lock: %v", err)
	}
	if err := c.WaitLocked(t.Context()); !errors.Is(err, ErrNotLocked) {
		t.Errorf("wait without lock: %v", err)
	}
	s.received()
}

func TestDoubleLock(t *testing.T) {
	c, s := newTestConn(t)
	ready(t, c, s, global(t, 9, lockManager, 1))
	if _, err := c.BindSessionLockManager(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := c.Lock(t.Context()); err != nil {
		t.Fatal(err)
	}
	next := c.nextID
	if err := c.Lock(t.Context()); !errors.Is(err, ErrAlreadyLocked) {
		t.Errorf("second lock: %v", err)
	}
	if c.nextID != next {
		t.Error("failed lock consumed an id")
	}
}

func TestLockFinished(t *testing.T) {
	c, s := newTestConn(t)
	ready(t, c, s, global(t, 9, lockManager, 1))
	m, err := c.BindSessionLockManager(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Lock(t.Context()); err != nil {
		t.Fatal(err)
	}
	s.received()
	lock := m.ID() + 1

	s.send(event(t, lock, 1, nil))
	if err := c.WaitLocked(t.Context()); !errors.Is(err, ErrLockFinished) {
		t.Fatalf("got %v", err)
	}
	if err := c.Unlock(t.Context()); err != nil {
		t.Fatal(err)
	}
	// A lock that was never granted is destroyed, not unlocked.
	s.expect(proto.NewSessionLock(lock).Destroy())
}

func TestProtocolError(t *testing.T) {
	c, s := newTestConn(t)
	if err := c.GetRegistry(t.Context()); err != nil {
		t.Fatal(err)
	}
	s.send(event(t, 1, 0, func(e *wire.Encoder) {
		e.PutObject(2)
		e.PutUint32(1)
		e.PutString("invalid arguments")
	}))
	err := c.Dispatch(t.Context())
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v", err)
	}
	if perr.Object != 2 || perr.Interface != proto.RegistryInterface || perr.Code != 1 || perr.Message != "invalid arguments" {
		t.Errorf("got %+v", perr)
	}
	if err := c.Dispatch(t.Context()); !errors.As(err, &perr) {
		t.Errorf("error not sticky: %v", err)
	}
	if err := c.Sync(t.Context()); !errors.As(err, &perr) {
		t.Errorf("send after fatal error: %v", err)
	}
}

func TestMalformedEventIsFatal(t *testing.T) {
	c, s := newTestConn(t)
	if err := c.GetRegistry(t.Context()); err != nil {
		t.Fatal(err)
	}
	s.send(event(t, 2, 0, func(e *wire.Encoder) { e.PutUint32(1) }))
	if err := c.Dispatch(t.Context()); !errors.Is(err, wire.ErrShortBuffer) {
		t.Fatalf("got %v", err)
	}
}

func TestUnhandledEventsIgnored(t *testing.T) {
	c, s := newTestConn(t)
	if err := c.GetRegistry(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := c.Sync(t.Context()); err != nil {
		t.Fatal(err)
	}
	s.send(
		event(t, 77, 0, func(e *wire.Encoder) { e.PutUint32(1) }),
		event(t, 2, 5, nil),
		global(t, 1, "wl_compositor", 6),
		done(t, 3),
	)
	if err := c.Dispatch(t.Context()); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateReady || c.Globals().Len() != 1 {
		t.Fatalf("state %s, %d globals", c.State(), c.Globals().Len())
	}
}

func TestDeleteIDAndGlobalRemove(t *testing.T) {
	c, s := newTestConn(t)
	ready(t, c, s, global(t, 1, "wl_compositor", 6), global(t, 2, "wl_output", 4))

	s.send(
		event(t, 1, 1, func(e *wire.Encoder) { e.PutObject(3) }),
		event(t, 2, 1, func(e *wire.Encoder) { e.PutUint32(2) }),
	)
	if err := c.Dispatch(t.Context()); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.demux.Interface(3); ok {
		t.Error("callback 3 still routed after delete_id")
	}
	if _, ok := c.Globals().Lookup(2); ok {
		t.Error("global 2 still present after global_remove")
	}
	// Freed ids are not handed out again.
	if c.allocate() == 3 {
		t.Error("id 3 reused")
	}
}

func TestRoundtrip(t *testing.T) {
	c, s := newTestConn(t)
	ready(t, c, s)
	next := c.nextID
	s.send(done(t, next))
	if err := c.Roundtrip(t.Context()); err != nil {
		t.Fatal(err)
	}
	s.expect(proto.Display{}.Sync(next))
	if len(c.callbacks) != 0 {
		t.Errorf("%d callbacks outstanding", len(c.callbacks))
	}
}

func TestPeerClosed(t *testing.T) {
	c, s := newTestConn(t)
	s.sock.Close()
	if err := c.Dispatch(t.Context()); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("got %v", err)
	}
}

func TestBindRoutesLockManager(t *testing.T) {
	c, s := newTestConn(t)
	ready(t, c, s, global(t, 9, lockManager, 2))

	id, err := c.Bind(t.Context(), lockManager)
	if err != nil {
		t.Fatal(err)
	}
	m, err := c.BindSessionLockManager(t.Context())
	if err != nil || m.ID() != id {
		t.Fatalf("manager %v, %v; Bind returned %d", m, err, id)
	}
	if err := c.Lock(t.Context()); err != nil {
		t.Fatalf("lock after Bind: %v", err)
	}
	s.expect(
		c.Registry().Bind(9, wire.NewID{Interface: lockManager, Version: 1, ID: id}),
		proto.NewSessionLockManager(id).Lock(id+1),
	)
}

type ctxKey struct{}

// recordHandler keeps each record's message along with the ctxKey value of
// the context it was logged with.
type recordHandler struct {
	lines *[]string
}

func (h recordHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h recordHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h recordHandler) WithGroup(string) slog.Handler            { return h }

func (h recordHandler) Handle(ctx context.Context, r slog.Record) error {
	line := r.Message
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "event" {
			line += " " + a.Value.String()
		}
		return true
	})
	tag, _ := ctx.Value(ctxKey{}).(string)
	*h.lines = append(*h.lines, tag+": "+line)
	return nil
}

func TestLogsCarryContext(t *testing.T) {
	var lines []string
	c, s := newLoggedConn(t, slog.New(recordHandler{lines: &lines}))
	ctx := context.WithValue(t.Context(), ctxKey{}, "handshake")

	s.send(global(t, 1, "wl_compositor", 6), done(t, 3))
	if err := c.Handshake(ctx); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"handshake: request",
		"handshake: event wl_registry.global",
		"handshake: event wl_callback.done",
		"handshake: registry complete",
	} {
		found := false
		for _, l := range lines {
			if l == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no %q in\n%s", want, strings.Join(lines, "\n"))
		}
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "handshake: ") {
			t.Errorf("logged without the caller's context: %q", l)
		}
	}
}
