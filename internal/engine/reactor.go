package engine

import (
	"log/slog"

	"github.com/bep/debounce"
)

// LayoutReactor decides when the marker layer is built and rebuilt. The image
// src is assigned lazily when the client can report visibility; the first load
// triggers the initial build; resizes are debounced and rebuild with the last
// reported geometry. Nothing is built before the image has loaded.
type LayoutReactor struct {
	imageID string
	url     string
	caps    Capabilities
	r       Renderer
	post    func(func())
	logger  *slog.Logger

	debounced func(func())
	onLoad    func(Geometry)
	onResize  func(Geometry)

	releases    []func()
	srcAssigned bool
	loaded      bool
	stopped     bool
	latest      Geometry
}

// ReactorHooks are invoked on the owner's event loop.
type ReactorHooks struct {
	// FirstLoad runs once, after the image first reports its natural size.
	FirstLoad func(Geometry)
	// Relayout runs after a settled resize or a reload of the image.
	Relayout func(Geometry)
}

// NewLayoutReactor creates a reactor for one image. post must enqueue onto the
// same loop that dispatches the bindings passed to Start.
func NewLayoutReactor(imageID, url string, caps Capabilities, opts Options, r Renderer, post func(func()), hooks ReactorHooks, logger *slog.Logger) *LayoutReactor {
	return &LayoutReactor{
		imageID:   imageID,
		url:       url,
		caps:      caps,
		r:         r,
		post:      post,
		logger:    logger,
		debounced: debounce.New(opts.ResizeDebounce),
		onLoad:    hooks.FirstLoad,
		onResize:  hooks.Relayout,
	}
}

// Start registers the image listeners on bindings and, when the client has no
// resize observation, a window-level resize listener on window.
func (lr *LayoutReactor) Start(bindings, window *Bindings) {
	lr.releases = append(lr.releases,
		bindings.On(EventImageLoaded, lr.imageID, lr.imageLoaded),
	)

	if lr.caps.LazyLoad {
		lr.releases = append(lr.releases,
			bindings.On(EventImageVisible, lr.imageID, lr.imageVisible),
		)
	} else {
		lr.assignSrc()
	}

	if lr.caps.ResizeObserver {
		lr.releases = append(lr.releases,
			bindings.On(EventImageResized, lr.imageID, lr.resized),
		)
	} else {
		// Window events arrive off-loop.
		lr.releases = append(lr.releases,
			window.On(EventWindowResized, "", func(ev Event) {
				lr.post(func() { lr.resized(ev) })
			}),
		)
	}
}

// Stop releases every listener. Pending debounced work becomes a no-op.
func (lr *LayoutReactor) Stop() {
	lr.stopped = true
	lr.releases = releaseAll(lr.releases)
}

// Loaded reports whether the image has loaded at least once.
func (lr *LayoutReactor) Loaded() bool {
	return lr.loaded
}

// SrcAssigned reports whether the client has been told to fetch the image.
func (lr *LayoutReactor) SrcAssigned() bool {
	return lr.srcAssigned
}

func (lr *LayoutReactor) assignSrc() {
	if lr.srcAssigned || lr.stopped {
		return
	}
	lr.srcAssigned = true
	lr.r.Render(Op{Kind: OpAssignSrc, Target: lr.imageID, URL: lr.url})
}

func (lr *LayoutReactor) imageVisible(Event) {
	lr.assignSrc()
}

func (lr *LayoutReactor) imageLoaded(ev Event) {
	if lr.stopped {
		return
	}
	if !lr.srcAssigned {
		lr.logger.Debug("image load before src assignment ignored", "image", lr.imageID)
		return
	}
	if ev.Geometry == nil || ev.Geometry.NaturalWidth <= 0 {
		lr.logger.Warn("image load without natural size ignored", "image", lr.imageID)
		return
	}

	lr.latest = *ev.Geometry
	if !lr.loaded {
		lr.loaded = true
		lr.onLoad(lr.latest)
		return
	}
	lr.onResize(lr.latest)
}

func (lr *LayoutReactor) resized(ev Event) {
	if lr.stopped || ev.Geometry == nil {
		return
	}
	lr.latest = *ev.Geometry
	lr.debounced(func() {
		lr.post(func() {
			if lr.stopped || !lr.loaded {
				return
			}
			lr.onResize(lr.latest)
		})
	})
}
