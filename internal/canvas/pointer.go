package canvas

import (
	"sync"
)

// Pointer event types.
const (
	PointerMove = "pointermove"
	PointerUp   = "pointerup"
)

// PointerEvent is a global pointer notification in grid pixel space.
type PointerEvent struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// PointerHandler receives pointer events.
type PointerHandler func(PointerEvent)

// PointerHub fans global pointer events out to the listeners installed by
// active gestures.
type PointerHub struct {
	mu       sync.Mutex
	next     int
	handlers map[string]map[int]PointerHandler
}

// NewPointerHub creates an empty hub.
func NewPointerHub() *PointerHub {
	return &PointerHub{handlers: make(map[string]map[int]PointerHandler)}
}

// On installs fn for events of type typ. The returned function removes it
// and is safe to call more than once.
func (h *PointerHub) On(typ string, fn PointerHandler) (off func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	if h.handlers[typ] == nil {
		h.handlers[typ] = make(map[int]PointerHandler)
	}
	h.handlers[typ][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers[typ], id)
			if len(h.handlers[typ]) == 0 {
				delete(h.handlers, typ)
			}
			h.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every listener of its type. Listeners run
// outside the hub lock and may remove themselves.
func (h *PointerHub) Dispatch(ev PointerEvent) {
	h.mu.Lock()
	fns := make([]PointerHandler, 0, len(h.handlers[ev.Type]))
	for _, fn := range h.handlers[ev.Type] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of installed listeners.
func (h *PointerHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.handlers {
		n += len(m)
	}
	return n
}
