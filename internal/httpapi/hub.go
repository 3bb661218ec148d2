package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/alerting"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
	"github.com/azrilxx/tradenestkgsb-sub000/internal/observability"
)

// HubConfig configures alert feed connections.
type HubConfig struct {
	// SendBuffer is the per-client queue length. Messages beyond it are dropped.
	SendBuffer int
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PingInterval is the interval between ping frames.
	PingInterval time.Duration
	// PongWait is how long a client may stay silent before it is dropped.
	PongWait time.Duration
}

// DefaultHubConfig returns default alert feed configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:   64,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
	}
}

// FeedMessage is the frame pushed to alert feed clients.
type FeedMessage struct {
	Type  string              `json:"type"`
	Alert *domain.AlertRecord `json:"alert"`
}

// Hub fans newly created alerts out to websocket clients.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	metrics  *observability.Metrics
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup
}

var _ alerting.Notifier = (*Hub)(nil)

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewHub creates a Hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig, metrics *observability.Metrics, logger *zerolog.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	h := &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		metrics: metrics,
		logger:  log.Logger,
		clients: make(map[*feedClient]struct{}),
	}
	if logger != nil {
		h.logger = *logger
	}
	return h
}

// ServeHTTP upgrades the request and streams alerts until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &feedClient{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
		done: make(chan struct{}),
	}
	// Re-checked under mu: Close either snapshots this client or the check sees closed.
	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		deadline := time.Now().Add(h.config.WriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"), deadline)
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.wg.Add(2)
	if h.metrics != nil {
		h.metrics.WSClients.Inc()
	}
	h.mu.Unlock()
	h.logger.Debug().Int("clients", n).Str("remote", r.RemoteAddr).Msg("feed client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Publish queues rec for every connected client without blocking.
func (h *Hub) Publish(rec *domain.AlertRecord) {
	if h.closed.Load() || rec == nil {
		return
	}
	msg, err := json.Marshal(FeedMessage{Type: "alert_created", Alert: rec})
	if err != nil {
		h.logger.Error().Err(err).Str("alert_id", rec.ID).Msg("encode feed message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
			if h.metrics != nil {
				h.metrics.WSMessagesSent.Inc()
			}
		default:
			if h.metrics != nil {
				h.metrics.WSMessagesDrops.Inc()
			}
			h.logger.Warn().Str("alert_id", rec.ID).Msg("feed client too slow, message dropped")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.closed.CompareAndSwap(false, true) {
		h.mu.Unlock()
		return
	}
	clients := make([]*feedClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
	h.wg.Wait()
}

func (h *Hub) remove(c *feedClient) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.done)
		c.conn.Close()
		if h.metrics != nil {
			h.metrics.WSClients.Dec()
		}
	})
}

// writeLoop sends queued messages and keepalive pings.
func (h *Hub) writeLoop(c *feedClient) {
	defer h.wg.Done()
	defer h.remove(c)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug().Err(err).Msg("feed write failed")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.config.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Hub) readLoop(c *feedClient) {
	defer h.wg.Done()
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
