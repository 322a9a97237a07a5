package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/audioctl/volumed/pkg/client"
	"github.com/audioctl/volumed/pkg/config"
	"github.com/audioctl/volumed/pkg/coreaudio"
	"github.com/audioctl/volumed/pkg/engine"
)

// VolumeDaemon wires the core engine, the Unix socket client and the
// optional web interface together.
type VolumeDaemon struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Core components
	coreEngine   *engine.Engine
	socketClient *client.SocketClient
	webServer    *http.Server
}

// NewVolumeDaemon creates a new daemon instance
func NewVolumeDaemon(cfg *config.Config) (*VolumeDaemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	daemon := &VolumeDaemon{
		config:       cfg,
		ctx:          ctx,
		cancel:       cancel,
		socketClient: client.NewSocketClient(cfg.Daemon.UnixSocket),
	}

	api := coreaudio.SystemAPI()
	if cfg.Daemon.MockAudio {
		mock := coreaudio.NewMockAPI()
		mock.AddOutputDevice(1, 1, 2)
		mock.SetDefaultOutputDevice(1)
		api = mock
		log.Printf("Using mock audio backend")
	}

	daemon.coreEngine = engine.New(cfg, api)

	if cfg.Web.Enabled {
		if err := daemon.setupWebServer(); err != nil {
			return nil, fmt.Errorf("failed to setup web server: %w", err)
		}
	}

	return daemon, nil
}

// Start starts the daemon
func (d *VolumeDaemon) Start() error {
	log.Printf("Starting volumed daemon...")

	// Start core engine first
	if err := d.coreEngine.Start(); err != nil {
		return fmt.Errorf("failed to start core engine: %w", err)
	}

	// Wait a moment for socket to be ready
	time.Sleep(100 * time.Millisecond)

	// Test socket connection
	if !d.socketClient.IsConnected() {
		return fmt.Errorf("failed to connect to core engine socket")
	}

	if d.webServer != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			log.Printf("Starting web server on %s", d.webServer.Addr)
			if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Web server error: %v", err)
			}
		}()
	}

	return nil
}

// Stop stops the daemon gracefully
func (d *VolumeDaemon) Stop() error {
	log.Printf("Stopping daemon...")

	d.cancel()

	// Shutdown web server
	if d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
	}

	// Stop core engine
	if d.coreEngine != nil {
		if err := d.coreEngine.Stop(); err != nil {
			log.Printf("Core engine shutdown error: %v", err)
		}
	}

	// Wait for goroutines to finish
	d.wg.Wait()

	log.Printf("Daemon stopped")
	return nil
}

// setupWebServer initializes the web server and routes
func (d *VolumeDaemon) setupWebServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// API routes
	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.GET("/volume", d.handleGetVolume)
		api.PUT("/volume", d.handleSetVolume)
		api.GET("/mute", d.handleGetMute)
		api.PUT("/mute", d.handleSetMute)
		api.GET("/device", d.handleGetDevice)
		api.GET("/history", d.handleGetHistory)
	}

	// WebSocket event stream
	router.GET("/ws/events", d.handleEventWebSocket)

	addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
	d.webServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return nil
}
