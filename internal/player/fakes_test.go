package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jfmyers9/crate/internal/nowplaying"
)

type fakeDevice struct {
	mu       sync.Mutex
	source   string
	paused   bool
	calls    []string
	loadErr  error
	playErr  error
	status   Status
	statuses []Status
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{paused: true}
}

func (d *fakeDevice) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *fakeDevice) Load(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("load " + url)
	if d.loadErr != nil {
		return d.loadErr
	}
	d.source = url
	return nil
}

func (d *fakeDevice) Play(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("play")
	if d.playErr != nil {
		return d.playErr
	}
	d.paused = false
	return nil
}

func (d *fakeDevice) Pause(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("pause")
	d.paused = true
	return nil
}

func (d *fakeDevice) Stop(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("stop")
	d.source = ""
	d.paused = true
	return nil
}

func (d *fakeDevice) Seek(_ context.Context, pos time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("seek " + pos.String())
	return nil
}

func (d *fakeDevice) Source() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

func (d *fakeDevice) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *fakeDevice) Position(context.Context) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.statuses) > 0 {
		s := d.statuses[0]
		d.statuses = d.statuses[1:]
		return s, nil
	}
	return d.status, nil
}

func (d *fakeDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

type fakeSink struct {
	mu        sync.Mutex
	metadata  []*nowplaying.Metadata
	states    []nowplaying.PlaybackState
	positions []nowplaying.Position
	handlers  nowplaying.Handlers
	err       error
}

func (s *fakeSink) SetMetadata(md *nowplaying.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = append(s.metadata, md)
	return s.err
}

func (s *fakeSink) SetPlaybackState(state nowplaying.PlaybackState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
	return s.err
}

func (s *fakeSink) SetPosition(pos nowplaying.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, pos)
	return s.err
}

func (s *fakeSink) SetHandlers(h nowplaying.Handlers) {
	s.handlers = h
}

var errRejected = errors.New("rejected")
