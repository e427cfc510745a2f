// Package audio drives mpv as the local output device.
package audio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/player"
)

// Config controls how mpv is launched.
type Config struct {
	Path      string   // mpv binary (defaults to "mpv" on PATH)
	SocketDir string   // where the IPC socket is created (defaults to os.TempDir())
	ExtraArgs []string // appended to the command line
}

// MPV is a player.Device backed by an mpv process.
type MPV struct {
	*conn

	cmd    *exec.Cmd
	socket string
}

var _ player.Device = (*MPV)(nil)

// Start launches mpv in idle mode and connects to its IPC socket.
func Start(ctx context.Context, cfg Config, logger zerolog.Logger) (*MPV, error) {
	path := cfg.Path
	if path == "" {
		path = "mpv"
	}
	dir := cfg.SocketDir
	if dir == "" {
		dir = os.TempDir()
	}
	socket := filepath.Join(dir, "crate-mpv-"+uuid.NewString()+".sock")

	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server=" + socket,
	}
	args = append(args, cfg.ExtraArgs...)

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	nc, err := dialSocket(ctx, socket)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	m := &MPV{
		conn:   newConn(nc, logger),
		cmd:    cmd,
		socket: socket,
	}
	if err := m.observe(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}

	m.logger.Info().
		Str("socket", socket).
		Int("pid", cmd.Process.Pid).
		Msg("Started mpv")
	return m, nil
}

// dialSocket waits for mpv to create its socket.
func dialSocket(ctx context.Context, socket string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d net.Dialer
	for {
		nc, err := d.DialContext(ctx, "unix", socket)
		if err == nil {
			return nc, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to mpv socket: %w", err)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Close quits mpv and removes its socket.
func (m *MPV) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := m.command(ctx, "quit"); err != nil && !errors.Is(err, errClosed) {
		m.logger.Debug().Err(err).Msg("Failed to send quit")
	}
	m.conn.close()

	waited := make(chan error, 1)
	go func() { waited <- m.cmd.Wait() }()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		_ = m.cmd.Process.Kill()
		<-waited
	}

	if err := os.Remove(m.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove mpv socket: %w", err)
	}
	return nil
}
