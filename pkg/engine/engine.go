package engine

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/audioctl/volumed/pkg/config"
	"github.com/audioctl/volumed/pkg/coreaudio"
	"github.com/audioctl/volumed/pkg/monitor"
	"github.com/audioctl/volumed/pkg/protocol"
	"github.com/audioctl/volumed/pkg/storage"
)

const version = "0.1.0-dev"

// defaultVolumeStep is the step for VOLUME:up / VOLUME:down when no
// explicit step is given.
const defaultVolumeStep = 5

// Engine owns the device controller and serves the control protocol
// over a Unix socket. It rebinds the controller whenever the system
// default output device changes, records observed changes to the event
// store and fans them out to subscribers.
type Engine struct {
	config     *config.Config
	socketPath string
	api        coreaudio.PropertyAPI
	listener   net.Listener
	running    bool
	mutex      sync.RWMutex
	startTime  time.Time

	// Current device snapshot; replaced when stale
	devMutex sync.Mutex
	device   *coreaudio.OutputDevice

	store   *storage.EventStore
	watcher *monitor.Watcher

	// Event fan-out to websocket clients
	subMutex    sync.Mutex
	subscribers map[chan protocol.Event]struct{}
}

// New creates a new engine bound to the given property backend.
func New(cfg *config.Config, api coreaudio.PropertyAPI) *Engine {
	return &Engine{
		config:      cfg,
		socketPath:  cfg.Daemon.UnixSocket,
		api:         api,
		startTime:   time.Now(),
		subscribers: make(map[chan protocol.Event]struct{}),
	}
}

// Start binds the default output device and starts the Unix socket
// server, the change watcher and the event store.
func (e *Engine) Start() error {
	e.mutex.Lock()
	e.running = true
	e.mutex.Unlock()

	device, err := coreaudio.DefaultOutputDevice(e.api)
	if err != nil {
		return fmt.Errorf("failed to bind default output device: %w", err)
	}
	e.devMutex.Lock()
	e.device = device
	e.devMutex.Unlock()
	log.Printf("Bound default output device %d (channels %v)", device.ID(), device.Channels())

	// Event store is optional
	if e.config.Storage.DatabasePath != "" {
		store, err := storage.NewEventStore(e.config.Storage.DatabasePath, e.config.Storage.MaxEvents)
		if err != nil {
			return fmt.Errorf("failed to open event store: %w", err)
		}
		e.store = store
	}

	e.watcher = monitor.New(e.api, e.config.PollInterval())
	events, err := e.watcher.Start()
	if err != nil {
		return fmt.Errorf("failed to start change watcher: %w", err)
	}
	go e.forwardEvents(events)

	// Remove existing socket file
	os.Remove(e.socketPath)

	listener, err := net.Listen("unix", e.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create Unix socket: %w", err)
	}
	e.listener = listener

	if err := os.Chmod(e.socketPath, 0660); err != nil {
		log.Printf("Warning: failed to set socket permissions: %v", err)
	}

	log.Printf("Engine listening on %s", e.socketPath)

	go e.acceptConnections()

	return nil
}

// Stop stops the engine
func (e *Engine) Stop() error {
	e.mutex.Lock()
	e.running = false
	e.mutex.Unlock()

	if e.watcher != nil {
		e.watcher.Stop()
	}

	if e.listener != nil {
		e.listener.Close()
	}

	if e.store != nil {
		e.store.Close()
	}

	os.Remove(e.socketPath)

	return nil
}

func (e *Engine) isRunning() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.running
}

// Subscribe returns a channel receiving change events until
// Unsubscribe is called.
func (e *Engine) Subscribe() chan protocol.Event {
	ch := make(chan protocol.Event, 16)
	e.subMutex.Lock()
	e.subscribers[ch] = struct{}{}
	e.subMutex.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (e *Engine) Unsubscribe(ch chan protocol.Event) {
	e.subMutex.Lock()
	if _, ok := e.subscribers[ch]; ok {
		delete(e.subscribers, ch)
		close(ch)
	}
	e.subMutex.Unlock()
}

// forwardEvents persists watcher events and fans them out to
// subscribers. Slow subscribers drop events instead of blocking.
func (e *Engine) forwardEvents(events <-chan protocol.Event) {
	for event := range events {
		log.Printf("Change: %s volume=%d muted=%t device=%d",
			event.Kind, event.Volume, event.Muted, event.DeviceID)

		if e.store != nil {
			if err := e.store.RecordEvent(event); err != nil {
				log.Printf("Warning: failed to record event: %v", err)
			}
		}

		e.subMutex.Lock()
		for ch := range e.subscribers {
			select {
			case ch <- event:
			default:
			}
		}
		e.subMutex.Unlock()
	}
}

// currentDevice returns the device controller, rebinding it when the
// system default output device has changed since the last call. The
// stale controller would keep addressing the old device otherwise.
func (e *Engine) currentDevice() (*coreaudio.OutputDevice, error) {
	e.devMutex.Lock()
	defer e.devMutex.Unlock()

	if e.device != nil {
		isDefault, err := e.device.IsDefault()
		if err == nil && isDefault {
			return e.device, nil
		}
	}

	device, err := coreaudio.DefaultOutputDevice(e.api)
	if err != nil {
		return nil, err
	}

	if e.device == nil || device.ID() != e.device.ID() {
		log.Printf("Rebound to default output device %d (channels %v)", device.ID(), device.Channels())
	}
	e.device = device

	return e.device, nil
}

// acceptConnections accepts and handles socket connections
func (e *Engine) acceptConnections() {
	for e.isRunning() {
		conn, err := e.listener.Accept()
		if err != nil {
			if e.isRunning() {
				log.Printf("Socket accept error: %v", err)
			}
			continue
		}

		go e.handleConnection(conn)
	}
}

// handleConnection handles a single socket connection
func (e *Engine) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			response := protocol.NewErrorResponse(fmt.Sprintf("parse error: %v", err))
			conn.Write([]byte(response.String() + "\n"))
			continue
		}

		response := e.handleCommand(cmd)
		conn.Write([]byte(response.String() + "\n"))

		if cmd.Type == protocol.CmdQuit {
			break
		}
	}
}

// handleCommand processes a single command
func (e *Engine) handleCommand(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CmdStatus:
		return e.handleStatus()

	case protocol.CmdVolume:
		return e.handleVolume(cmd)

	case protocol.CmdMute:
		return e.handleMute(cmd)

	case protocol.CmdDevice:
		return e.handleDevice()

	case protocol.CmdHistory:
		return e.handleHistory(cmd)

	case protocol.CmdPing:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"pong": time.Now().Unix(),
		})

	case protocol.CmdQuit:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"message": "goodbye",
		})

	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown command: %s", cmd.Type))
	}
}

// handleStatus returns current daemon status
func (e *Engine) handleStatus() *protocol.Response {
	device, err := e.currentDevice()
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("no default output device: %v", err))
	}

	status := protocol.Status{
		DeviceID:  uint32(device.ID()),
		Channels:  device.Channels(),
		Default:   true,
		MockAudio: e.config.Daemon.MockAudio,
		Uptime:    time.Since(e.startTime).String(),
		StartTime: e.startTime,
		Version:   version,
	}

	if volume, err := device.Volume(); err == nil {
		status.Volume = int(volume)
	}
	if muted, err := device.Muted(); err == nil {
		status.Muted = muted
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"status": status,
	})
}

// handleVolume reads or changes the volume
func (e *Engine) handleVolume(cmd *protocol.Command) *protocol.Response {
	device, err := e.currentDevice()
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("no default output device: %v", err))
	}

	value, hasValue := cmd.Args["value"].(string)
	if !hasValue {
		volume, err := device.Volume()
		if err != nil {
			return volumeError(err)
		}
		return protocol.NewSuccessResponse(map[string]interface{}{
			"volume": int(volume),
		})
	}

	target, resp := volumeTarget(device, value, cmd.Args)
	if resp != nil {
		return resp
	}

	if err := device.SetVolume(target); err != nil {
		return volumeError(err)
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"volume": int(target),
	})
}

// volumeTarget resolves a VOLUME argument ("55", "up", "down") to an
// absolute percentage.
func volumeTarget(device *coreaudio.OutputDevice, value string, args map[string]interface{}) (uint8, *protocol.Response) {
	switch value {
	case "up", "down":
		step := defaultVolumeStep
		if stepStr, ok := args["step"].(string); ok {
			parsed, err := strconv.Atoi(stepStr)
			if err != nil || parsed < 1 || parsed > 100 {
				return 0, protocol.NewErrorResponse(fmt.Sprintf("invalid volume step: %s", stepStr))
			}
			step = parsed
		}

		current, err := device.Volume()
		if err != nil {
			return 0, volumeError(err)
		}

		target := int(current)
		if value == "up" {
			target += step
		} else {
			target -= step
		}
		if target > 100 {
			target = 100
		}
		if target < 0 {
			target = 0
		}
		return uint8(target), nil

	default:
		pct, err := strconv.Atoi(value)
		if err != nil || pct < 0 || pct > 100 {
			return 0, protocol.NewErrorResponse(fmt.Sprintf("invalid volume: %s", value))
		}
		return uint8(pct), nil
	}
}

// handleMute reads or changes the mute state
func (e *Engine) handleMute(cmd *protocol.Command) *protocol.Response {
	device, err := e.currentDevice()
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("no default output device: %v", err))
	}

	state, hasState := cmd.Args["state"].(string)
	if !hasState {
		muted, err := device.Muted()
		if err != nil {
			return protocol.NewErrorResponse(fmt.Sprintf("failed to read mute state: %v", err))
		}
		return protocol.NewSuccessResponse(map[string]interface{}{
			"muted": muted,
		})
	}

	var target bool
	switch state {
	case "on", "true", "1":
		target = true
	case "off", "false", "0":
		target = false
	case "toggle":
		muted, err := device.Muted()
		if err != nil {
			return protocol.NewErrorResponse(fmt.Sprintf("failed to read mute state: %v", err))
		}
		target = !muted
	default:
		return protocol.NewErrorResponse(fmt.Sprintf("invalid mute state: %s", state))
	}

	if err := device.SetMute(target); err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to set mute: %v", err))
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"muted": target,
	})
}

// handleDevice returns the bound device identity
func (e *Engine) handleDevice() *protocol.Response {
	device, err := e.currentDevice()
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("no default output device: %v", err))
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"device_id": uint32(device.ID()),
		"channels":  device.Channels(),
		"default":   true,
	})
}

// handleHistory returns recorded change events
func (e *Engine) handleHistory(cmd *protocol.Command) *protocol.Response {
	if e.store == nil {
		return protocol.NewErrorResponse("history not enabled: no database_path configured")
	}

	query := storage.EventQuery{Limit: 50}

	if limitStr, ok := cmd.Args["limit"].(string); ok {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return protocol.NewErrorResponse(fmt.Sprintf("invalid history limit: %s", limitStr))
		}
		query.Limit = limit
	}

	if kind, ok := cmd.Args["kind"].(string); ok {
		query.Kind = kind
	}

	events, err := e.store.GetEvents(query)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to query history: %v", err))
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func volumeError(err error) *protocol.Response {
	if errors.Is(err, coreaudio.ErrNoChannels) {
		return protocol.NewErrorResponse("device has no volume-capable channels")
	}
	return protocol.NewErrorResponse(fmt.Sprintf("volume operation failed: %v", err))
}
