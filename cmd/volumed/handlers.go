package main

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// handleGetStatus returns daemon status via socket
func (d *VolumeDaemon) handleGetStatus(c *gin.Context) {
	status, err := d.socketClient.GetStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "running",
		"version":    Version,
		"volume":     status.Volume,
		"muted":      status.Muted,
		"device_id":  status.DeviceID,
		"channels":   status.Channels,
		"mock_audio": status.MockAudio,
		"uptime":     status.Uptime,
	})
}

// handleGetVolume returns the current volume via socket
func (d *VolumeDaemon) handleGetVolume(c *gin.Context) {
	volume, err := d.socketClient.GetVolume()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"volume": volume,
	})
}

// handleSetVolume sets the volume via socket. Accepts either an
// absolute percentage or a direction with an optional step.
func (d *VolumeDaemon) handleSetVolume(c *gin.Context) {
	var req struct {
		Volume    *int   `json:"volume"`
		Direction string `json:"direction"`
		Step      int    `json:"step"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var volume int
	var err error
	switch {
	case req.Volume != nil:
		volume, err = d.socketClient.SetVolume(*req.Volume)
	case req.Direction == "up" || req.Direction == "down":
		volume, err = d.socketClient.AdjustVolume(req.Direction, req.Step)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "volume or direction (up/down) required",
		})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"volume": volume,
	})
}

// handleGetMute returns the current mute state via socket
func (d *VolumeDaemon) handleGetMute(c *gin.Context) {
	muted, err := d.socketClient.GetMute()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"muted": muted,
	})
}

// handleSetMute sets or toggles the mute state via socket
func (d *VolumeDaemon) handleSetMute(c *gin.Context) {
	var req struct {
		Muted  *bool `json:"muted"`
		Toggle bool  `json:"toggle"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var muted bool
	var err error
	switch {
	case req.Toggle:
		muted, err = d.socketClient.ToggleMute()
	case req.Muted != nil:
		muted, err = d.socketClient.SetMute(*req.Muted)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "muted or toggle required",
		})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"muted": muted,
	})
}

// handleGetDevice returns the bound output device via socket
func (d *VolumeDaemon) handleGetDevice(c *gin.Context) {
	resp, err := d.socketClient.SendCommand("DEVICE")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	if !resp.Success {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": resp.Error,
		})
		return
	}

	c.JSON(http.StatusOK, resp.Data)
}

// handleGetHistory returns recent change events via socket
func (d *VolumeDaemon) handleGetHistory(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		limit = 50
	}

	events, err := d.socketClient.GetHistory(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// handleEventWebSocket streams change events to a WebSocket client
func (d *VolumeDaemon) handleEventWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Event WebSocket client connected")

	events := d.coreEngine.Subscribe()
	defer d.coreEngine.Unsubscribe(events)

	// Drain client messages so pings and closes are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data := map[string]interface{}{
				"type":      fmt.Sprintf("%s_change", event.Kind),
				"kind":      event.Kind,
				"timestamp": event.Timestamp.Unix(),
				"volume":    event.Volume,
				"muted":     event.Muted,
				"device_id": event.DeviceID,
			}
			if err := conn.WriteJSON(data); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-done:
			log.Printf("Event WebSocket client disconnected")
			return

		case <-d.ctx.Done():
			log.Printf("Event WebSocket client disconnected (context cancelled)")
			return
		}
	}
}
