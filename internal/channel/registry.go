package channel

import (
	"encoding/json"
	"reflect"
	"sync"
)

// Handler receives the raw payload of one named event. Handlers are
// invoked from the connection's read goroutine in server-send order.
type Handler func(payload json.RawMessage)

// registry maps event names to handlers independently of any live
// connection. It is the source of truth for "who wants to hear event X":
// a connection's own handler set is always a projection of the registry,
// rebuilt after every (re)connect, so subscriptions survive reconnects
// without application code re-subscribing.
type registry struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string][]Handler)}
}

func (r *registry) add(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], h)
}

// remove drops one handler by function identity. It removes a single
// occurrence, mirroring how it was added.
func (r *registry) remove(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.handlers[event]
	target := reflectPointer(h)
	for i, existing := range list {
		if reflectPointer(existing) == target {
			r.handlers[event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.handlers[event]) == 0 {
		delete(r.handlers, event)
	}
}

func (r *registry) clear(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
}

// reflectPointer gives a comparable identity for a handler func, so Off
// can remove the same callback On added.
func reflectPointer(h Handler) uintptr {
	return reflect.ValueOf(h).Pointer()
}

// snapshot returns a deep copy of the registry, used to build a new
// connection's handler projection.
func (r *registry) snapshot() map[string][]Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]Handler, len(r.handlers))
	for event, list := range r.handlers {
		cp := make([]Handler, len(list))
		copy(cp, list)
		out[event] = cp
	}
	return out
}
