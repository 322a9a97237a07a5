package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/audioctl/volumed/pkg/protocol"
)

// SocketClient represents a client connection to the core engine
type SocketClient struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketClient creates a new socket client
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SendCommand sends a command and returns the response
func (c *SocketClient) SendCommand(cmd string) (*protocol.Response, error) {
	// Connect to Unix socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	// Set read/write timeout
	conn.SetDeadline(time.Now().Add(c.timeout))

	// Send command
	_, err = conn.Write([]byte(cmd + "\n"))
	if err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}

	// Read response
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return nil, fmt.Errorf("no response received")
	}

	responseText := scanner.Text()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	// Parse JSON response
	var response protocol.Response
	if err := json.Unmarshal([]byte(responseText), &response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &response, nil
}

// GetStatus gets the current daemon status
func (c *SocketClient) GetStatus() (*protocol.Status, error) {
	resp, err := c.SendCommand("STATUS")
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("status error: %s", resp.Error)
	}

	statusData, ok := resp.Data["status"]
	if !ok {
		return nil, fmt.Errorf("status not found in response")
	}

	// Convert to JSON and back to parse properly
	statusJSON, _ := json.Marshal(statusData)
	var status protocol.Status
	if err := json.Unmarshal(statusJSON, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}

	return &status, nil
}

// GetVolume reads the current volume percentage
func (c *SocketClient) GetVolume() (int, error) {
	resp, err := c.SendCommand("VOLUME")
	if err != nil {
		return 0, err
	}

	if !resp.Success {
		return 0, fmt.Errorf("volume error: %s", resp.Error)
	}

	return responseInt(resp, "volume")
}

// SetVolume sets the volume to a percentage in [0, 100]
func (c *SocketClient) SetVolume(pct int) (int, error) {
	resp, err := c.SendCommand(fmt.Sprintf("VOLUME:%d", pct))
	if err != nil {
		return 0, err
	}

	if !resp.Success {
		return 0, fmt.Errorf("volume error: %s", resp.Error)
	}

	return responseInt(resp, "volume")
}

// AdjustVolume steps the volume up or down and returns the new value
func (c *SocketClient) AdjustVolume(direction string, step int) (int, error) {
	cmd := fmt.Sprintf("VOLUME:%s", direction)
	if step > 0 {
		cmd = fmt.Sprintf("VOLUME:%s:%d", direction, step)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return 0, err
	}

	if !resp.Success {
		return 0, fmt.Errorf("volume error: %s", resp.Error)
	}

	return responseInt(resp, "volume")
}

// GetMute reads the current mute state
func (c *SocketClient) GetMute() (bool, error) {
	resp, err := c.SendCommand("MUTE")
	if err != nil {
		return false, err
	}

	if !resp.Success {
		return false, fmt.Errorf("mute error: %s", resp.Error)
	}

	muted, ok := resp.Data["muted"].(bool)
	if !ok {
		return false, fmt.Errorf("muted not found in response")
	}

	return muted, nil
}

// SetMute sets the mute state
func (c *SocketClient) SetMute(mute bool) (bool, error) {
	state := "off"
	if mute {
		state = "on"
	}
	return c.sendMute(state)
}

// ToggleMute flips the mute state and returns the new value
func (c *SocketClient) ToggleMute() (bool, error) {
	return c.sendMute("toggle")
}

func (c *SocketClient) sendMute(state string) (bool, error) {
	resp, err := c.SendCommand("MUTE:" + state)
	if err != nil {
		return false, err
	}

	if !resp.Success {
		return false, fmt.Errorf("mute error: %s", resp.Error)
	}

	muted, ok := resp.Data["muted"].(bool)
	if !ok {
		return false, fmt.Errorf("muted not found in response")
	}

	return muted, nil
}

// GetHistory gets recent change events
func (c *SocketClient) GetHistory(limit int) ([]protocol.Event, error) {
	cmd := "HISTORY"
	if limit > 0 {
		cmd = fmt.Sprintf("HISTORY:%d", limit)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("history error: %s", resp.Error)
	}

	eventsData, ok := resp.Data["events"]
	if !ok {
		return []protocol.Event{}, nil
	}

	// Convert to JSON and back to parse properly
	eventsJSON, _ := json.Marshal(eventsData)
	var events []protocol.Event
	if err := json.Unmarshal(eventsJSON, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}

	return events, nil
}

// Ping checks connectivity to the daemon
func (c *SocketClient) Ping() error {
	resp, err := c.SendCommand("PING")
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("ping error: %s", resp.Error)
	}

	return nil
}

// IsConnected checks if the daemon is reachable
func (c *SocketClient) IsConnected() bool {
	return c.Ping() == nil
}

func responseInt(resp *protocol.Response, key string) (int, error) {
	value, ok := resp.Data[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%s not found in response", key)
	}
	return int(value), nil
}
