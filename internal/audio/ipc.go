package audio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/player"
)

var errClosed = errors.New("mpv: connection closed")

// pauseObserver is the observe_property id for the pause flag.
const pauseObserver = 1

// message is one line from mpv: either a reply or an event.
type message struct {
	RequestID *int64          `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Event     string          `json:"event,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Name      string          `json:"name,omitempty"`
}

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type reply struct {
	data json.RawMessage
	err  error
}

// conn speaks mpv's newline-delimited JSON IPC over rw. It implements
// player.Device; MPV adds process management on top.
type conn struct {
	rw     io.ReadWriteCloser
	logger zerolog.Logger

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan reply
	source  string
	paused  bool
	backlog []player.Event

	wake      chan struct{}
	events    chan player.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(rw io.ReadWriteCloser, logger zerolog.Logger) *conn {
	c := &conn{
		rw:      rw,
		logger:  logger.With().Str("component", "mpv").Logger(),
		pending: make(map[int64]chan reply),
		paused:  true,
		wake:    make(chan struct{}, 1),
		events:  make(chan player.Event),
		done:    make(chan struct{}),
	}
	go c.read()
	go c.pump()
	return c
}

// Events delivers end-of-track and pause notifications. It is closed when
// the connection goes away.
func (c *conn) Events() <-chan player.Event {
	return c.events
}

func (c *conn) observe(ctx context.Context) error {
	if _, err := c.command(ctx, "observe_property", pauseObserver, "pause"); err != nil {
		return fmt.Errorf("failed to observe pause: %w", err)
	}
	return nil
}

func (c *conn) Load(ctx context.Context, url string) error {
	if _, err := c.command(ctx, "loadfile", url, "replace"); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	c.mu.Lock()
	c.source = url
	c.mu.Unlock()
	return nil
}

func (c *conn) Play(ctx context.Context) error {
	return c.setPaused(ctx, false)
}

func (c *conn) Pause(ctx context.Context) error {
	return c.setPaused(ctx, true)
}

func (c *conn) setPaused(ctx context.Context, paused bool) error {
	if _, err := c.command(ctx, "set_property", "pause", paused); err != nil {
		return fmt.Errorf("failed to set pause: %w", err)
	}
	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()
	return nil
}

func (c *conn) Stop(ctx context.Context) error {
	if _, err := c.command(ctx, "stop"); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	c.mu.Lock()
	c.source = ""
	c.mu.Unlock()
	return nil
}

func (c *conn) Seek(ctx context.Context, pos time.Duration) error {
	if _, err := c.command(ctx, "seek", pos.Seconds(), "absolute"); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

func (c *conn) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

func (c *conn) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused || c.source == ""
}

// Position reads time-pos, duration and speed. Properties mpv cannot
// report yet (while a file is still opening) read as zero.
func (c *conn) Position(ctx context.Context) (player.Status, error) {
	c.mu.Lock()
	status := player.Status{Paused: c.paused, Idle: c.source == "", Rate: 1}
	c.mu.Unlock()
	if status.Idle {
		return status, nil
	}

	pos, err := c.float(ctx, "time-pos")
	if err != nil {
		return status, err
	}
	dur, err := c.float(ctx, "duration")
	if err != nil {
		return status, err
	}
	rate, err := c.float(ctx, "speed")
	if err != nil {
		return status, err
	}

	status.Position = seconds(pos)
	status.Duration = seconds(dur)
	if rate > 0 {
		status.Rate = rate
	}
	return status, nil
}

func (c *conn) float(ctx context.Context, property string) (float64, error) {
	data, err := c.command(ctx, "get_property", property)
	if err != nil {
		var perr propertyError
		if errors.As(err, &perr) && perr == "property unavailable" {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get %s: %w", property, err)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", property, err)
	}
	return v, nil
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

// propertyError is an error string reported by mpv.
type propertyError string

func (e propertyError) Error() string { return "mpv: " + string(e) }

// command sends one request and waits for its reply.
func (c *conn) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	ch := make(chan reply, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	line, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	line = append(line, '\n')

	select {
	case <-c.done:
		return nil, errClosed
	default:
	}

	c.writeMu.Lock()
	_, err = c.rw.Write(line)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to write command: %w", err)
	}

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, errClosed
	}
}

// read routes replies to waiting commands and turns events into
// player events until the connection closes.
func (c *conn) read() {
	defer c.close()

	scanner := bufio.NewScanner(c.rw)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			c.logger.Debug().Err(err).Str("line", scanner.Text()).Msg("Ignoring malformed message")
			continue
		}

		if msg.RequestID != nil && msg.Event == "" {
			c.deliver(*msg.RequestID, msg)
			continue
		}
		c.handleEvent(msg)
	}
	if err := scanner.Err(); err != nil {
		c.logger.Debug().Err(err).Msg("IPC read failed")
	}
}

func (c *conn) deliver(id int64, msg message) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return
	}

	r := reply{data: msg.Data}
	if msg.Error != "" && msg.Error != "success" {
		r.err = propertyError(msg.Error)
	}
	ch <- r
}

func (c *conn) handleEvent(msg message) {
	switch msg.Event {
	case "end-file":
		if msg.Reason != "eof" {
			return
		}
		c.mu.Lock()
		ended := c.source
		c.source = ""
		c.mu.Unlock()
		c.emit(player.Event{Kind: player.EventEnded, Source: ended})
	case "property-change":
		if msg.Name != "pause" {
			return
		}
		var paused bool
		if err := json.Unmarshal(msg.Data, &paused); err != nil {
			return
		}
		c.mu.Lock()
		c.paused = paused
		c.mu.Unlock()
		if paused {
			c.emit(player.Event{Kind: player.EventPaused})
		} else {
			c.emit(player.Event{Kind: player.EventPlaying})
		}
	}
}

// emit queues an event without blocking the reader, which must stay free
// to deliver replies to commands issued while handling earlier events.
func (c *conn) emit(ev player.Event) {
	c.mu.Lock()
	c.backlog = append(c.backlog, ev)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *conn) pump() {
	defer close(c.events)

	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		c.mu.Lock()
		batch := c.backlog
		c.backlog = nil
		c.mu.Unlock()

		for _, ev := range batch {
			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
		}
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.rw.Close()
	})
}
