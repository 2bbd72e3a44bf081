// Package client drives a Wayland connection: the registry handshake,
// binding globals, the session lock extension, and the event loop that
// applies incoming events to the connection state.
//
// A Conn is owned by one goroutine and does no locking. Methods take a
// context only for logging; the blocking wait in Dispatch cannot be
// cancelled.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mazei513/wlsession/internal/transport"
	"github.com/mazei513/wlsession/proto"
	"github.com/mazei513/wlsession/wire"
)

const readBufferSize = 4096

// State is the progress of the registry handshake.
type State int

const (
	// StateConnected: socket open, only the display exists.
	StateConnected State = iota
	// StateRegistrySent: get_registry sent, registry id reserved.
	StateRegistrySent
	// StateSyncPending: sync sent, waiting for its done event.
	StateSyncPending
	// StateReady: every global announced before the sync is known.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateRegistrySent:
		return "registry-sent"
	case StateSyncPending:
		return "sync-pending"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Conn is a client connection to a compositor.
type Conn struct {
	sock   *transport.Socket
	poller *transport.Poller
	logger *slog.Logger

	demux   *proto.Demux
	globals *Globals
	display proto.Display
	nextID  wire.ObjectID

	state        State
	registry     *proto.Registry
	syncCallback wire.ObjectID
	// Outstanding Roundtrip callbacks, true once done arrived.
	callbacks map[wire.ObjectID]bool

	manager *proto.SessionLockManager
	lock    *sessionLock

	readBuf []byte
	err     error
}

// Dial connects to the compositor socket at path.
func Dial(path string, logger *slog.Logger) (*Conn, error) {
	sock, err := transport.Dial(path)
	if err != nil {
		return nil, err
	}
	c, err := NewConn(sock, logger)
	if err != nil {
		sock.Close()
		return nil, err
	}
	return c, nil
}

// NewConn wraps a connected socket. The Conn takes ownership of sock.
func NewConn(sock *transport.Socket, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	poller, err := transport.NewPoller(sock)
	if err != nil {
		return nil, err
	}
	return &Conn{
		sock:      sock,
		poller:    poller,
		logger:    logger,
		demux:     proto.NewDemux(logger),
		globals:   newGlobals(),
		nextID:    wire.DisplayID + 1,
		state:     StateConnected,
		callbacks: make(map[wire.ObjectID]bool),
		readBuf:   make([]byte, readBufferSize),
	}, nil
}

func (c *Conn) Close() error {
	perr := c.poller.Close()
	if err := c.sock.Close(); err != nil {
		return err
	}
	return perr
}

func (c *Conn) State() State           { return c.state }
func (c *Conn) Globals() *Globals      { return c.globals }
func (c *Conn) Display() proto.Display { return c.display }

// Registry returns the registry object, or nil before GetRegistry.
func (c *Conn) Registry() *proto.Registry { return c.registry }

// Err returns the error that ended the connection, if any.
func (c *Conn) Err() error { return c.err }

// allocate returns the next unused object id. Ids are never reused.
func (c *Conn) allocate() wire.ObjectID {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Conn) send(ctx context.Context, req proto.Request) error {
	if c.err != nil {
		return c.err
	}
	msg, err := req.MarshalBinary()
	if err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "request", "id", req.Object, "opcode", req.Opcode, "size", len(msg))
	if _, err := c.sock.Write(msg); err != nil {
		return c.fail(fmt.Errorf("write: %w", err))
	}
	return nil
}

func (c *Conn) fail(err error) error {
	if c.err == nil {
		c.err = err
	}
	return c.err
}

// GetRegistry creates the registry object.
func (c *Conn) GetRegistry(ctx context.Context) error {
	if c.state != StateConnected {
		return fmt.Errorf("get_registry in state %s: %w", c.state, ErrInvalidState)
	}
	id := c.allocate()
	c.registry = proto.NewRegistry(id)
	c.demux.Register(id, proto.RegistryEvents)
	if err := c.send(ctx, c.display.GetRegistry(id)); err != nil {
		return err
	}
	c.state = StateRegistrySent
	return nil
}

// Sync requests the callback whose done event completes the handshake.
func (c *Conn) Sync(ctx context.Context) error {
	if c.state != StateRegistrySent {
		return fmt.Errorf("sync in state %s: %w", c.state, ErrInvalidState)
	}
	id := c.allocate()
	c.demux.Register(id, proto.CallbackEvents)
	if err := c.send(ctx, c.display.Sync(id)); err != nil {
		return err
	}
	c.syncCallback = id
	c.state = StateSyncPending
	return nil
}

// Handshake sends whatever of get_registry and sync is still outstanding
// and dispatches events until the globals table is complete.
func (c *Conn) Handshake(ctx context.Context) error {
	if c.state == StateConnected {
		if err := c.GetRegistry(ctx); err != nil {
			return err
		}
	}
	if c.state == StateRegistrySent {
		if err := c.Sync(ctx); err != nil {
			return err
		}
	}
	for c.state != StateReady {
		if err := c.Dispatch(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Roundtrip blocks until the compositor has processed every request sent
// so far.
func (c *Conn) Roundtrip(ctx context.Context) error {
	id := c.allocate()
	c.demux.Register(id, proto.CallbackEvents)
	c.callbacks[id] = false
	defer delete(c.callbacks, id)
	if err := c.send(ctx, c.display.Sync(id)); err != nil {
		return err
	}
	for !c.callbacks[id] {
		if err := c.Dispatch(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Bind binds the most recently announced global implementing iface at
// its advertised version and returns the new object id.
// ext_session_lock_manager_v1 goes through BindSessionLockManager, so a
// manager bound here is the one Lock uses.
func (c *Conn) Bind(ctx context.Context, iface string) (wire.ObjectID, error) {
	if iface == proto.SessionLockManagerInterface {
		m, err := c.BindSessionLockManager(ctx)
		if err != nil {
			return 0, err
		}
		return m.ID(), nil
	}
	return c.bind(ctx, iface, 0)
}

// bind caps the version at maxVersion unless it is 0.
func (c *Conn) bind(ctx context.Context, iface string, maxVersion uint32) (wire.ObjectID, error) {
	if c.state != StateReady {
		return 0, fmt.Errorf("bind %s in state %s: %w", iface, c.state, ErrInvalidState)
	}
	g, ok := c.globals.Find(iface)
	if !ok {
		return 0, &UnsupportedInterfaceError{Interface: iface}
	}
	version := g.Version
	if maxVersion != 0 && version > maxVersion {
		version = maxVersion
	}
	id := c.allocate()
	c.demux.Register(id, proto.LookupInterface(iface))
	err := c.send(ctx, c.registry.Bind(g.Name, wire.NewID{Interface: iface, Version: version, ID: id}))
	if err != nil {
		return 0, err
	}
	c.logger.DebugContext(ctx, "bound global", "interface", iface, "name", g.Name, "version", version, "id", id)
	return id, nil
}
