package shell

import "sync"

// Point is a pointer position in cell coordinates.
type Point struct {
	X int
	Y int
}

// Rect is an axis-aligned screen region. Zero-sized rects contain nothing.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// PointerEventSource delivers pointer-down events to subscribers.
type PointerEventSource interface {
	Subscribe(handler func(Point)) (unsubscribe func())
}

// PointerBus is an in-process PointerEventSource.
type PointerBus struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(Point)
}

// NewPointerBus returns an empty bus.
func NewPointerBus() *PointerBus {
	return &PointerBus{handlers: make(map[int]func(Point))}
}

// Subscribe registers handler until the returned func is called.
func (b *PointerBus) Subscribe(handler func(Point)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.handlers[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Publish delivers p to every subscriber outside the bus lock.
func (b *PointerBus) Publish(p Point) {
	b.mu.Lock()
	handlers := make([]func(Point), 0, len(b.handlers))
	for _, handler := range b.handlers {
		handlers = append(handlers, handler)
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(p)
	}
}
