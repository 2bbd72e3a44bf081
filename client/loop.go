package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"code.hybscloud.com/iox"

	"github.com/mazei513/wlsession/proto"
)

// Dispatch blocks until the socket is readable, then reads and applies
// events until a read would block. Errors are fatal: once Dispatch has
// failed every later call returns the same error.
func (c *Conn) Dispatch(ctx context.Context) error {
	if c.err != nil {
		return c.err
	}
	if err := c.poller.Wait(); err != nil {
		return c.fail(err)
	}
	return c.drain(ctx)
}

func (c *Conn) drain(ctx context.Context) error {
	for {
		n, err := c.sock.Read(c.readBuf)
		switch {
		case iox.IsWouldBlock(err):
			return nil
		case errors.Is(err, io.EOF):
			return c.fail(ErrConnectionClosed)
		case err != nil:
			return c.fail(fmt.Errorf("read: %w", err))
		}
		c.logger.DebugContext(ctx, "read", "bytes", n)
		if err := c.handle(ctx, c.readBuf[:n]); err != nil {
			return c.fail(err)
		}
	}
}

// handle runs b through the demultiplexer and applies the resulting
// events in order.
func (c *Conn) handle(ctx context.Context, b []byte) error {
	msgs, ferr := c.demux.Feed(ctx, b)
	for _, m := range msgs {
		if err := c.apply(ctx, m); err != nil {
			return err
		}
	}
	if ferr != nil {
		return fmt.Errorf("decode: %w", ferr)
	}
	return nil
}

func (c *Conn) apply(ctx context.Context, m proto.Message) error {
	id := m.Header.Object
	c.logger.DebugContext(ctx, "event", "id", id, "opcode", m.Header.Opcode, "event", m.Event.Kind())
	switch ev := m.Event.(type) {
	case proto.DisplayError:
		perr := &ProtocolError{Object: ev.Object, Code: ev.Code, Message: ev.Message}
		if iface, ok := c.demux.Interface(ev.Object); ok {
			perr.Interface = iface.Name
		}
		c.logger.ErrorContext(ctx, "protocol error", "id", ev.Object, "interface", perr.Interface, "code", ev.Code, "message", ev.Message)
		return perr
	case proto.DeleteID:
		c.demux.Forget(ev.ID)
		c.logger.DebugContext(ctx, "delete_id", "id", ev.ID)
	case proto.Global:
		c.globals.add(Global{Name: ev.Name, Interface: ev.Interface, Version: ev.Version})
		c.logger.DebugContext(ctx, "global", "name", ev.Name, "interface", ev.Interface, "version", ev.Version)
	case proto.GlobalRemove:
		if g, ok := c.globals.remove(ev.Name); ok {
			c.logger.DebugContext(ctx, "global removed", "name", ev.Name, "interface", g.Interface)
		}
	case proto.Done:
		if id == c.syncCallback && c.state == StateSyncPending {
			c.state = StateReady
			c.logger.InfoContext(ctx, "registry complete", "globals", c.globals.Len())
		} else if _, ok := c.callbacks[id]; ok {
			c.callbacks[id] = true
		}
	case proto.Locked:
		if c.lock != nil && c.lock.obj.ID() == id {
			c.lock.granted = true
			c.logger.InfoContext(ctx, "session locked", "id", id)
		}
	case proto.Finished:
		if c.lock != nil && c.lock.obj.ID() == id {
			c.lock.finished = true
			c.logger.WarnContext(ctx, "session lock finished by compositor", "id", id)
		}
	case proto.Unhandled:
	}
	return nil
}
