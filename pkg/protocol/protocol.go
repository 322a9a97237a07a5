package protocol

import (
	"encoding/json"
	"strings"
	"time"
)

// Command represents a command sent to the core engine
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response represents a response from the core engine
type Response struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Status represents the current daemon status
type Status struct {
	Volume    int       `json:"volume"`
	Muted     bool      `json:"muted"`
	DeviceID  uint32    `json:"device_id"`
	Channels  []uint32  `json:"channels"`
	Default   bool      `json:"default"`
	MockAudio bool      `json:"mock_audio"`
	Uptime    string    `json:"uptime"`
	StartTime time.Time `json:"start_time"`
	Version   string    `json:"version"`
}

// Event kinds recorded in history and pushed to websocket clients
const (
	EventVolume = "volume"
	EventMute   = "mute"
	EventDevice = "device"
)

// Event represents one observed change of the default output device
type Event struct {
	ID        int       `json:"id,omitempty"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Volume    int       `json:"volume"`
	Muted     bool      `json:"muted"`
	DeviceID  uint32    `json:"device_id"`
}

// ParseCommand parses a text command into a Command struct
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	parts := strings.SplitN(text, ":", 2)

	cmd := &Command{
		Type: strings.ToUpper(parts[0]),
		Args: make(map[string]interface{}),
	}

	if len(parts) > 1 {
		args := parts[1]

		switch cmd.Type {
		case CmdVolume:
			// VOLUME:50 or VOLUME:up or VOLUME:down:5
			volParts := strings.SplitN(args, ":", 2)
			cmd.Args["value"] = strings.ToLower(volParts[0])
			if len(volParts) > 1 {
				cmd.Args["step"] = volParts[1]
			}

		case CmdMute:
			// MUTE:on, MUTE:off, MUTE:toggle
			cmd.Args["state"] = strings.ToLower(args)

		case CmdHistory:
			// HISTORY:20 or HISTORY:kind:volume
			if strings.Contains(args, "kind:") {
				kindParts := strings.Split(args, "kind:")
				if len(kindParts) > 1 {
					cmd.Args["kind"] = kindParts[1]
				}
			} else {
				cmd.Args["limit"] = args
			}
		}
	}

	return cmd, nil
}

// FormatResponse converts a Response to JSON string
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data map[string]interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// Protocol commands
const (
	CmdStatus  = "STATUS"
	CmdVolume  = "VOLUME"
	CmdMute    = "MUTE"
	CmdDevice  = "DEVICE"
	CmdHistory = "HISTORY"
	CmdPing    = "PING"
	CmdQuit    = "QUIT"
)
