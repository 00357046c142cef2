package distribution

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"go.uber.org/zap"
)

// HubConfig configures the WebSocket hub.
type HubConfig struct {
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
	// WriteTimeout bounds a single frame write to a client.
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	// SendBuffer is the number of pending messages a client may lag behind before it is dropped.
	SendBuffer int `yaml:"send_buffer" json:"send_buffer" validate:"gte=0"`
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		Address:      ":8081",
		Path:         "/ws/signals",
		WriteTimeout: 5 * time.Second,
		SendBuffer:   32,
	}
}

type hubClient struct {
	conn   *websocket.Conn
	send   chan []byte
	symbol string
}

// Hub broadcasts signals to WebSocket subscribers. A subscriber may pass
// ?symbol=EURUSD to receive one symbol only.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	router   *mux.Router
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*hubClient]struct{}

	httpServer *http.Server
	listener   net.Listener
}

// NewHub creates a hub and its router. Zero config values fall back to DefaultHubConfig.
func NewHub(config HubConfig, log *logger.Logger) *Hub {
	defaults := DefaultHubConfig()
	if config.Path == "" {
		config.Path = defaults.Path
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	if config.SendBuffer <= 0 {
		config.SendBuffer = defaults.SendBuffer
	}

	hub := &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		router:  mux.NewRouter(),
		logger:  log.Named("websocket"),
		clients: make(map[*hubClient]struct{}),
	}

	hub.router.HandleFunc(config.Path, hub.handleWebSocket)
	hub.router.HandleFunc("/health", hub.handleHealth).Methods(http.MethodGet)

	return hub
}

func (h *Hub) Name() string {
	return "websocket"
}

// Router returns the hub's router so other handlers (metrics) can share the listener.
func (h *Hub) Router() *mux.Router {
	return h.router
}

// Start serves the router on address. An empty address or ":0" picks a free port.
func (h *Hub) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	h.listener = listener
	h.httpServer = &http.Server{
		Handler:           h.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := h.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			h.logger.Error("websocket server stopped", zap.Error(err))
		}
	}()

	h.logger.Info("websocket hub listening", zap.String("address", listener.Addr().String()), zap.String("path", h.config.Path))

	return nil
}

// Stop disconnects every client and shuts the server down.
func (h *Hub) Stop() error {
	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	if h.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return h.httpServer.Shutdown(ctx)
	}

	return nil
}

// Address returns the address the hub is listening on.
func (h *Hub) Address() string {
	if h.listener == nil {
		return ""
	}

	return h.listener.Addr().String()
}

// URL returns the subscriber URL.
func (h *Hub) URL() string {
	return "ws://" + h.Address() + h.config.Path
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Distribute implements Distributor. Subscribers whose buffer is full are dropped.
func (h *Hub) Distribute(_ context.Context, signal types.Signal) error {
	data, err := Encode(signal, time.Now())
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.symbol != "" && !strings.EqualFold(client.symbol, signal.Candidate.Symbol) {
			continue
		}

		select {
		case client.send <- data:
		default:
			h.logger.Warn("dropping slow websocket subscriber", zap.String("remote", client.conn.RemoteAddr().String()))
			delete(h.clients, client)
			close(client.send)
		}
	}

	return nil
}

func (h *Hub) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","clients":%d}`, h.Clients())
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	client := &hubClient{
		conn:   conn,
		send:   make(chan []byte, h.config.SendBuffer),
		symbol: r.URL.Query().Get("symbol"),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	h.readLoop(client)
}

// readLoop discards inbound frames and unregisters the client once the connection closes.
func (h *Hub) readLoop(client *hubClient) {
	defer h.unregister(client)

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(client *hubClient) {
	defer client.conn.Close()

	for data := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))

		if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.unregister(client)

			return
		}
	}

	_ = client.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}

func (h *Hub) unregister(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}
