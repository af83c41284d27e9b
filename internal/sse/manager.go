package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/katalogpart/katalog-server/internal/id"
)

const (
	clientBuffer = 256
	// maxPending caps the render events held for a viewer whose stream is not
	// connected. It exceeds clientBuffer so an evicted client's backlog fits.
	maxPending = 2 * clientBuffer
)

// Client represents a connected SSE stream.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	// Filtering field: render events are only delivered to streams of this viewer.
	ViewerID    string
}

// Manager fans events out to connected streams. Events addressed to a viewer
// with no stream are held until it connects.
type Manager struct {
	clients           map[string]*Client
	pending           map[string][]Event
	seq               map[string]uint64
	events            chan Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients:           make(map[string]*Client),
		pending:           make(map[string][]Event),
		seq:               make(map[string]uint64),
		events:            make(chan Event, 1000), // Buffer 1000 events
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
}

// Start begins the event broadcasting loop.
// This should be called once at server startup in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("SSE manager starting")

	// Start heartbeat ticker.
	heartbeatTicker := time.NewTicker(m.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.broadcast(event)

		case <-heartbeatTicker.C:
			// Send heartbeat to all clients.
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, drains the queue and closes all clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("SSE manager shutdown initiated")

	// Mark as shutdown AND close channel atomically while holding lock.
	// This prevents race with Emit() which holds read lock during send.
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	// Drain remaining events with context timeout.
	done := make(chan struct{})
	go func() {
		for event := range m.events {
			m.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
	}

	// Wait for broadcast goroutine to exit.
	m.wg.Wait()
	m.closeAllClients()

	m.logger.Info("SSE manager shutdown complete")
	return nil
}

// broadcast sends an event to connected clients, filtered by viewer.
func (m *Manager) broadcast(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ViewerID != "" {
		m.seq[event.ViewerID]++
		event.Seq = m.seq[event.ViewerID]
	}

	var delivered, dropped int
	var held []Event
	for clientID, client := range m.clients {
		// Filter by viewer when the event is viewer-specific.
		// Empty event.ViewerID means broadcast to all streams.
		if event.ViewerID != "" && client.ViewerID != event.ViewerID {
			continue
		}
		// Non-blocking send (drop or evict if client is slow/stuck).
		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			if event.ViewerID == "" {
				m.logger.Warn("dropped event for slow client",
					slog.String("client_id", client.ID),
					slog.String("event_type", string(event.Type)))
				continue
			}
			// A render stream cannot skip ops. Evict the client so the
			// browser reconnects and gets the backlog replayed in order.
			held = append(held, m.evict(clientID, client)...)
		}
	}

	if delivered == 0 && event.ViewerID != "" {
		m.hold(event.ViewerID, append(held, event)...)
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.String("viewer_id", event.ViewerID),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("dropped", dropped)))
	}
}

// evict removes a client that fell behind and returns the events it never
// read. Callers hold m.mu.
func (m *Manager) evict(clientID string, client *Client) []Event {
	delete(m.clients, clientID)
	close(client.Done)

	var unread []Event
	for {
		select {
		case event := <-client.EventChan:
			unread = append(unread, event)
		default:
			close(client.EventChan)
			m.logger.Warn("evicted slow client",
				slog.String("client_id", client.ID),
				slog.String("viewer_id", client.ViewerID),
				slog.Int("unread", len(unread)))
			return unread
		}
	}
}

// hold queues events for a viewer with no stream. Callers hold m.mu.
func (m *Manager) hold(viewerID string, events ...Event) {
	queue := append(m.pending[viewerID], events...)
	if over := len(queue) - maxPending; over > 0 {
		queue = queue[over:]
	}
	m.pending[viewerID] = queue
}

// Connect registers a stream for viewerID and replays anything held for it.
func (m *Manager) Connect(viewerID string) (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	held := m.pending[viewerID]
	client := &Client{
		ID:          clientID,
		ViewerID:    viewerID,
		EventChan:   make(chan Event, clientBuffer+len(held)),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}
	for _, event := range held {
		client.EventChan <- event
	}
	delete(m.pending, viewerID)
	m.clients[client.ID] = client
	total := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", clientID),
		slog.String("viewer_id", viewerID),
		slog.Int("total_clients", total))
	return client, nil
}

// Disconnect removes a client and closes its channels.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	total := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", total))
}

// Forget drops held events and sequence state for a closed viewer.
func (m *Manager) Forget(viewerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, viewerID)
	delete(m.seq, viewerID)
}

// Emit queues an event for broadcasting.
func (m *Manager) Emit(event Event) {
	// Hold read lock through the entire send operation.
	// This prevents race with Shutdown() which holds write lock when closing channel.
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- event:
	default:
		// Event channel full, log and drop.
		// This should rarely happen with a 1000-event buffer.
		m.logger.Error("SSE event channel full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// EmitToViewer queues an event for one viewer only.
func (m *Manager) EmitToViewer(viewerID string, event Event) {
	event.ViewerID = viewerID
	m.Emit(event)
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Connected reports whether viewerID has a live stream.
func (m *Manager) Connected(viewerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, client := range m.clients {
		if client.ViewerID == viewerID {
			return true
		}
	}
	return false
}

// Pending returns how many events are held for viewerID.
func (m *Manager) Pending(viewerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending[viewerID])
}

// closeAllClients closes all client connections (used during shutdown).
func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		close(client.Done)
		close(client.EventChan)
	}
	m.clients = make(map[string]*Client) // Clear the map
}
