package engine

import "sync"

// Handler reacts to a dispatched event.
type Handler func(Event)

type bindingKey struct {
	typ    EventType
	target string
}

// Bindings is a registry of event handlers keyed by event type and target id.
// Every registration returns a release func; objects keep their releases and
// call them when destroyed, so nothing outlives its owner.
type Bindings struct {
	mu       sync.Mutex
	next     uint64
	handlers map[bindingKey]map[uint64]Handler
	count    int
}

// NewBindings creates an empty registry.
func NewBindings() *Bindings {
	return &Bindings{handlers: make(map[bindingKey]map[uint64]Handler)}
}

// On registers h for events of typ on target. The returned func is idempotent.
func (b *Bindings) On(typ EventType, target string, h Handler) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := bindingKey{typ: typ, target: target}
	b.next++
	hid := b.next
	if b.handlers[key] == nil {
		b.handlers[key] = make(map[uint64]Handler)
	}
	b.handlers[key][hid] = h
	b.count++

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if hs, ok := b.handlers[key]; ok {
				if _, ok := hs[hid]; ok {
					delete(hs, hid)
					b.count--
				}
				if len(hs) == 0 {
					delete(b.handlers, key)
				}
			}
		})
	}
}

// Dispatch invokes every handler registered for the event's type and target,
// outside the registry lock. Returns the number of handlers invoked.
func (b *Bindings) Dispatch(ev Event) int {
	b.mu.Lock()
	hs := b.handlers[bindingKey{typ: ev.Type, target: ev.Target}]
	snapshot := make([]Handler, 0, len(hs))
	for _, h := range hs {
		snapshot = append(snapshot, h)
	}
	b.mu.Unlock()

	for _, h := range snapshot {
		h(ev)
	}
	return len(snapshot)
}

// Len returns the number of live registrations.
func (b *Bindings) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Count returns the number of live registrations for one event type.
func (b *Bindings) Count(typ EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for key, hs := range b.handlers {
		if key.typ == typ {
			n += len(hs)
		}
	}
	return n
}

// releaseAll calls and forgets every release func in fns.
func releaseAll(fns []func()) []func() {
	for _, release := range fns {
		release()
	}
	return fns[:0]
}
