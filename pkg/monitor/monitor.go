// Package monitor watches the default output device for volume, mute
// and default-device changes by polling. Core Audio offers listener
// callbacks for this, but polling keeps the core synchronous and works
// identically against the mock backend.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/audioctl/volumed/pkg/coreaudio"
	"github.com/audioctl/volumed/pkg/protocol"
)

// Watcher polls the default output device and emits a change event
// whenever volume, mute state or the default device itself changes.
type Watcher struct {
	api      coreaudio.PropertyAPI
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates a watcher polling at the given interval.
func New(api coreaudio.PropertyAPI, interval time.Duration) *Watcher {
	return &Watcher{
		api:      api,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start captures the current device state as a baseline and begins
// polling. The returned channel delivers change events and is closed
// when the watcher stops.
func (w *Watcher) Start() (<-chan protocol.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil, fmt.Errorf("watcher is already running")
	}

	dev, err := coreaudio.DefaultOutputDevice(w.api)
	if err != nil {
		return nil, fmt.Errorf("failed to bind default output device: %w", err)
	}

	last := readState(dev)
	w.running = true

	events := make(chan protocol.Event, 16)
	go w.loop(dev, last, events)

	return events, nil
}

// Stop halts polling and closes the event channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
}

// IsRunning reports whether the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

type state struct {
	volume   int
	hasVol   bool
	muted    bool
	deviceID coreaudio.DeviceID
}

// readState snapshots what the poll loop compares against. Read
// failures leave the affected field at its zero value; a transient
// platform error should not fabricate a change event.
func readState(dev *coreaudio.OutputDevice) state {
	s := state{deviceID: dev.ID()}

	if vol, err := dev.Volume(); err == nil {
		s.volume = int(vol)
		s.hasVol = true
	}
	if muted, err := dev.Muted(); err == nil {
		s.muted = muted
	}

	return s
}

func (w *Watcher) loop(dev *coreaudio.OutputDevice, last state, events chan<- protocol.Event) {
	defer close(events)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
		}

		// A stale controller keeps addressing the old device, so the
		// default-device check comes first and forces a rebind.
		if isDefault, err := dev.IsDefault(); err == nil && !isDefault {
			fresh, err := coreaudio.DefaultOutputDevice(w.api)
			if err != nil {
				continue
			}
			dev = fresh
			last = readState(dev)
			w.emit(events, protocol.Event{
				Kind:      protocol.EventDevice,
				Timestamp: time.Now(),
				Volume:    last.volume,
				Muted:     last.muted,
				DeviceID:  uint32(last.deviceID),
			})
			continue
		}

		current := readState(dev)

		if current.hasVol && last.hasVol && current.volume != last.volume {
			w.emit(events, protocol.Event{
				Kind:      protocol.EventVolume,
				Timestamp: time.Now(),
				Volume:    current.volume,
				Muted:     current.muted,
				DeviceID:  uint32(current.deviceID),
			})
		}

		if current.muted != last.muted {
			w.emit(events, protocol.Event{
				Kind:      protocol.EventMute,
				Timestamp: time.Now(),
				Volume:    current.volume,
				Muted:     current.muted,
				DeviceID:  uint32(current.deviceID),
			})
		}

		last = current
	}
}

// emit delivers without blocking the poll loop; a slow consumer drops
// events rather than stalling polling.
func (w *Watcher) emit(events chan<- protocol.Event, event protocol.Event) {
	select {
	case events <- event:
	default:
	}
}
