// wllock locks the Wayland session through ext_session_lock_v1, keeps it
// locked for a while, then unlocks it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/mazei513/wlsession/client"
	"github.com/mazei513/wlsession/internal/config"
	"github.com/mazei513/wlsession/internal/socketpath"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wllock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		socket     string
		logLevel   string
		duration   time.Duration
		list       bool
	)
	flags := pflag.NewFlagSet("wllock", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", os.Getenv("WLLOCK_CONFIG"), "path to YAML config file")
	flags.StringVar(&socket, "socket", "", "compositor socket path (default from WAYLAND_DISPLAY and XDG_RUNTIME_DIR)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flags.DurationVarP(&duration, "duration", "d", 0, "how long to keep the session locked")
	flags.BoolVarP(&list, "list", "l", false, "print the compositor's globals and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flags.Changed("socket") {
		cfg.Socket = socket
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("duration") {
		cfg.LockDuration = duration
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cfg.Socket == "" {
		cfg.Socket, err = socketpath.Resolve(os.Getenv)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.DebugContext(ctx, "connecting", "socket", cfg.Socket)
	conn, err := client.Dial(cfg.Socket, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Handshake(ctx); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	if list {
		for _, g := range conn.Globals().All() {
			fmt.Printf("%d\t%s\tv%d\n", g.Name, g.Interface, g.Version)
		}
		return nil
	}

	if _, err := conn.BindSessionLockManager(ctx); err != nil {
		return err
	}
	if err := conn.Lock(ctx); err != nil {
		return err
	}
	if err := conn.WaitLocked(ctx); err != nil {
		if errors.Is(err, client.ErrLockFinished) {
			// The compositor refused; the lock object still has to go.
			return errors.Join(err, conn.Unlock(ctx))
		}
		return err
	}
	logger.InfoContext(ctx, "locked", "duration", cfg.LockDuration)

	select {
	case <-time.After(cfg.LockDuration):
	case <-ctx.Done():
		logger.InfoContext(ctx, "interrupted")
	}

	if err := conn.Unlock(ctx); err != nil {
		return err
	}
	// Unlocking is only final once the compositor has seen the request.
	return conn.Roundtrip(ctx)
}
