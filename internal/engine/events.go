package engine

import "slices"

// EventType names a client-side occurrence posted to the engine.
type EventType string

// Client events.
const (
	EventImageVisible    EventType = "image_visible"
	EventImageLoaded     EventType = "image_loaded"
	EventImageResized    EventType = "image_resized"
	EventWindowResized   EventType = "window_resized"
	EventMarkerClick     EventType = "marker_click"
	EventRowClick        EventType = "row_click"
	EventQtyChange       EventType = "qty_change"
	EventAddToEstimation EventType = "add_to_estimation"
)

// Classes of row descendants whose clicks never trigger row-to-marker sync.
const (
	ClassQtyInput   = "qty-input"
	ClassCartAction = "cart-action"
)

var excludedRowTargets = []string{ClassQtyInput, ClassCartAction}

// Event is one client-side occurrence. Target is the element id the event
// happened on; Classes are the classes of the element actually clicked.
type Event struct {
	Type     EventType `json:"type"`
	Target   string    `json:"target,omitempty"`
	Geometry *Geometry `json:"geometry,omitempty"`
	Classes  []string  `json:"classes,omitempty"`
	Qty      int       `json:"qty,omitempty"`
}

// fromExcludedTarget reports whether the event originated on an element that
// must not trigger row-to-marker sync.
func (e Event) fromExcludedTarget() bool {
	for _, c := range e.Classes {
		if slices.Contains(excludedRowTargets, c) {
			return true
		}
	}
	return false
}

// Capabilities describes what the client can observe.
type Capabilities struct {
	LazyLoad       bool `json:"lazy_load"`
	ResizeObserver bool `json:"resize_observer"`
}
