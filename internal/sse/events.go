// Package sse streams render instructions and catalog notices to viewers over
// Server-Sent Events.
package sse

import "time"

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventRender carries a batch of render ops for one viewer.
	EventRender EventType = "render"
	// EventCatalogRefreshed tells every viewer a new catalog revision is live.
	EventCatalogRefreshed EventType = "catalog.refreshed"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// ViewerID targets one viewer. Empty means every connected client.
	ViewerID string `json:"-"`
	// Seq orders render events within a viewer.
	Seq uint64 `json:"seq,omitempty"`
}

// RenderEventData is the payload of render events.
type RenderEventData struct {
	SessionID string `json:"session_id,omitempty"`
	Ops       any    `json:"ops"`
}

// CatalogRefreshedEventData is the payload of catalog refresh events.
type CatalogRefreshedEventData struct {
	Revision string `json:"revision"`
	Figures  int    `json:"figures"`
	Parts    int    `json:"parts"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewRenderEvent creates a render event addressed to viewerID.
func NewRenderEvent(viewerID string, ops any) Event {
	return Event{
		Type:      EventRender,
		Timestamp: time.Now(),
		ViewerID:  viewerID,
		Data:      RenderEventData{Ops: ops},
	}
}

// NewCatalogRefreshedEvent creates a broadcast catalog refresh event.
func NewCatalogRefreshedEvent(revision string, figures, parts int) Event {
	return Event{
		Type:      EventCatalogRefreshed,
		Timestamp: time.Now(),
		Data: CatalogRefreshedEventData{
			Revision: revision,
			Figures:  figures,
			Parts:    parts,
		},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
