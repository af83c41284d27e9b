package engine

import "github.com/katalogpart/katalog-server/internal/domain"

// OpKind names a render instruction for the client.
type OpKind string

// Render instructions.
const (
	OpMountSkeleton   OpKind = "mount_skeleton"
	OpShowError       OpKind = "show_error"
	OpAssignSrc       OpKind = "assign_src"
	OpMarkersClear    OpKind = "markers_clear"
	OpMarkerAdd       OpKind = "marker_add"
	OpRowAdd          OpKind = "row_add"
	OpClassAdd        OpKind = "class_add"
	OpClassRemove     OpKind = "class_remove"
	OpScrollIntoView  OpKind = "scroll_into_view"
	OpScrollContainer OpKind = "scroll_container"
	OpEstimate        OpKind = "add_to_estimation"
	OpTeardown        OpKind = "teardown"
)

// CSS classes toggled by the sync controller.
const (
	ClassRowHighlight = "row-highlight"
	ClassRowActive    = "row-active"
	ClassMarkerGlow   = "marker-glow"
)

// Op is one render instruction. Only the fields relevant to Kind are set.
type Op struct {
	Kind           OpKind                 `json:"op"`
	Target         string                 `json:"target,omitempty"`
	Layer          string                 `json:"layer,omitempty"`
	PartCode       string                 `json:"part_code,omitempty"`
	Class          string                 `json:"class,omitempty"`
	Tooltip        string                 `json:"tooltip,omitempty"`
	Message        string                 `json:"message,omitempty"`
	URL            string                 `json:"url,omitempty"`
	Block          string                 `json:"block,omitempty"`
	Position       *domain.Point          `json:"position,omitempty"`
	Top            *float64               `json:"top,omitempty"`
	Row            *RowView               `json:"row,omitempty"`
	Skeleton       *Skeleton              `json:"skeleton,omitempty"`
	Item           *domain.EstimationItem `json:"item,omitempty"`
	Total          int64                  `json:"total,omitempty"`
	PreventDefault bool                   `json:"prevent_default,omitempty"`
}

// Skeleton is the empty figure view mounted once data has arrived.
type Skeleton struct {
	FigureID       string   `json:"figure"`
	ImageID        string   `json:"image_id"`
	Layer          string   `json:"layer"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	BlurHash       string   `json:"blurhash,omitempty"`
	Lazy           bool     `json:"lazy"`
	ObserveResize  bool     `json:"observe_resize"`
	ExcludeClasses []string `json:"exclude_classes"`
}

// RowView is the table row as rendered by the client.
type RowView struct {
	ID          string `json:"id"`
	PartCode    string `json:"part_code"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Qty         int    `json:"qty"`
	Positioned  bool   `json:"positioned"`
}

// Renderer receives render instructions for one client.
type Renderer interface {
	Render(ops ...Op)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ops ...Op)

// Render implements Renderer.
func (f RendererFunc) Render(ops ...Op) { f(ops...) }
