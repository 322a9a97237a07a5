package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/audioctl/volumed/pkg/config"
	"github.com/audioctl/volumed/pkg/coreaudio"
	"github.com/audioctl/volumed/pkg/protocol"
)

func newTestEngine(t *testing.T) (*Engine, *coreaudio.MockAPI) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Daemon.UnixSocket = filepath.Join(dir, "volumed.sock")
	cfg.Daemon.PollIntervalMs = 50
	cfg.Daemon.MockAudio = true
	cfg.Storage.DatabasePath = filepath.Join(dir, "events.db")
	cfg.Storage.MaxEvents = 100

	api := coreaudio.NewMockAPI()
	api.AddOutputDevice(42, 1, 2)
	api.SetDefaultOutputDevice(42)

	eng := New(cfg, api)
	if err := eng.Start(); err != nil {
		t.Fatalf("failed to start engine: %v", err)
	}
	t.Cleanup(func() { eng.Stop() })

	return eng, api
}

func sendCommand(t *testing.T, socketPath, line string) *protocol.Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		t.Fatalf("failed to connect to %s: %v", socketPath, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		t.Fatalf("failed to send command: %v", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("no response for %q: %v", line, scanner.Err())
	}

	var resp protocol.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON %q: %v", scanner.Text(), err)
	}

	return &resp
}

func dataInt(t *testing.T, resp *protocol.Response, key string) int {
	t.Helper()

	value, ok := resp.Data[key].(float64)
	if !ok {
		t.Fatalf("expected numeric %q in response data, got %v", key, resp.Data)
	}
	return int(value)
}

func TestEngineStatus(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := sendCommand(t, eng.socketPath, "STATUS")
	if !resp.Success {
		t.Fatalf("STATUS failed: %s", resp.Error)
	}

	status, ok := resp.Data["status"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected status object, got %v", resp.Data)
	}
	if status["device_id"].(float64) != 42 {
		t.Errorf("expected device_id 42, got %v", status["device_id"])
	}
	if status["volume"].(float64) != 50 {
		t.Errorf("expected volume 50, got %v", status["volume"])
	}
	if status["muted"].(bool) {
		t.Error("expected muted false")
	}
	if !status["mock_audio"].(bool) {
		t.Error("expected mock_audio true")
	}
}

func TestEngineVolume(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := sendCommand(t, eng.socketPath, "VOLUME")
	if !resp.Success || dataInt(t, resp, "volume") != 50 {
		t.Errorf("expected initial volume 50, got %v (%s)", resp.Data, resp.Error)
	}

	resp = sendCommand(t, eng.socketPath, "VOLUME:30")
	if !resp.Success || dataInt(t, resp, "volume") != 30 {
		t.Errorf("expected volume 30 after set, got %v (%s)", resp.Data, resp.Error)
	}

	resp = sendCommand(t, eng.socketPath, "VOLUME")
	if dataInt(t, resp, "volume") != 30 {
		t.Errorf("expected readback 30, got %v", resp.Data)
	}

	resp = sendCommand(t, eng.socketPath, "VOLUME:up")
	if dataInt(t, resp, "volume") != 35 {
		t.Errorf("expected 35 after up, got %v", resp.Data)
	}

	resp = sendCommand(t, eng.socketPath, "VOLUME:down:10")
	if dataInt(t, resp, "volume") != 25 {
		t.Errorf("expected 25 after down:10, got %v", resp.Data)
	}

	resp = sendCommand(t, eng.socketPath, "VOLUME:up:90")
	if dataInt(t, resp, "volume") != 100 {
		t.Errorf("expected clamp to 100, got %v", resp.Data)
	}

	resp = sendCommand(t, eng.socketPath, "VOLUME:150")
	if resp.Success {
		t.Error("expected error for out-of-range volume")
	}

	resp = sendCommand(t, eng.socketPath, "VOLUME:loud")
	if resp.Success {
		t.Error("expected error for non-numeric volume")
	}
}

func TestEngineMute(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := sendCommand(t, eng.socketPath, "MUTE")
	if !resp.Success || resp.Data["muted"].(bool) {
		t.Errorf("expected unmuted initially, got %v (%s)", resp.Data, resp.Error)
	}

	resp = sendCommand(t, eng.socketPath, "MUTE:on")
	if !resp.Success || !resp.Data["muted"].(bool) {
		t.Errorf("expected muted after MUTE:on, got %v (%s)", resp.Data, resp.Error)
	}

	resp = sendCommand(t, eng.socketPath, "MUTE:toggle")
	if resp.Data["muted"].(bool) {
		t.Errorf("expected unmuted after toggle, got %v", resp.Data)
	}

	resp = sendCommand(t, eng.socketPath, "MUTE:sideways")
	if resp.Success {
		t.Error("expected error for invalid mute state")
	}
}

func TestEngineDeviceRebind(t *testing.T) {
	eng, api := newTestEngine(t)

	resp := sendCommand(t, eng.socketPath, "DEVICE")
	if !resp.Success || dataInt(t, resp, "device_id") != 42 {
		t.Fatalf("expected device 42, got %v (%s)", resp.Data, resp.Error)
	}

	api.AddOutputDevice(43, 1)
	api.SetDefaultOutputDevice(43)

	resp = sendCommand(t, eng.socketPath, "DEVICE")
	if !resp.Success || dataInt(t, resp, "device_id") != 43 {
		t.Errorf("expected rebind to device 43, got %v (%s)", resp.Data, resp.Error)
	}
}

func TestEngineHistory(t *testing.T) {
	eng, api := newTestEngine(t)

	// External change picked up by the watcher
	api.SetChannelVolume(42, 1, 0.80)
	api.SetChannelVolume(42, 2, 0.80)

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := sendCommand(t, eng.socketPath, "HISTORY:10")
		if !resp.Success {
			t.Fatalf("HISTORY failed: %s", resp.Error)
		}
		if dataInt(t, resp, "count") > 0 {
			events, ok := resp.Data["events"].([]interface{})
			if !ok || len(events) == 0 {
				t.Fatalf("expected events array, got %v", resp.Data)
			}
			event := events[0].(map[string]interface{})
			if event["kind"] != protocol.EventVolume {
				t.Errorf("expected volume event, got %v", event["kind"])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for recorded event")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestEngineSubscribe(t *testing.T) {
	eng, api := newTestEngine(t)

	events := eng.Subscribe()
	defer eng.Unsubscribe(events)

	api.SetMuteValue(42, coreaudio.ElementMaster, true)

	select {
	case event := <-events:
		if event.Kind != protocol.EventMute || !event.Muted {
			t.Errorf("expected mute event, got %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}
}

func TestEnginePingAndUnknown(t *testing.T) {
	eng, _ := newTestEngine(t)

	resp := sendCommand(t, eng.socketPath, "PING")
	if !resp.Success {
		t.Errorf("PING failed: %s", resp.Error)
	}
	if _, ok := resp.Data["pong"]; !ok {
		t.Errorf("expected pong in response, got %v", resp.Data)
	}

	resp = sendCommand(t, eng.socketPath, "FROBNICATE")
	if resp.Success {
		t.Error("expected error for unknown command")
	}
}
