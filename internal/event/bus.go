package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	// ArtistNew fires after an unknown name was enriched and inserted.
	ArtistNew Type = "artist.new"
	// VenueRecorded fires after a venue visit was appended for an artist.
	VenueRecorded Type = "venue.recorded"
	// ScrapeCompleted fires after a venue calendar was scraped.
	ScrapeCompleted Type = "scrape.completed"
)

// Event represents something that happened in the pipeline.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler is a function that processes an event.
type Handler func(Event)

// Publisher is the write side of the bus. Components that only emit events
// depend on this instead of *Bus.
type Publisher interface {
	Publish(e Event)
}

// Bus is an in-process event bus backed by a buffered channel. Handlers run
// on the single dispatch goroutine, in publish order.
type Bus struct {
	ch       chan Event
	mu       sync.RWMutex
	subs     map[Type][]Handler
	all      []Handler
	logger   *slog.Logger
	done     chan struct{}
	drained  chan struct{}
	stopOnce sync.Once
	dropped  atomic.Int64
}

// NewBus creates a new event bus with the given buffer size.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		ch:      make(chan Event, bufSize),
		subs:    make(map[Type][]Handler),
		logger:  logger.With(slog.String("component", "event-bus")),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// SubscribeAll registers a handler that receives every event, after the
// type-specific handlers.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish sends an event to the bus. Non-blocking; drops with a warning if
// the buffer is full or the bus has been stopped.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case <-b.done:
		b.dropped.Add(1)
		b.logger.Warn("event bus stopped, dropping event", slog.String("type", string(e.Type)))
		return
	default:
	}
	select {
	case b.ch <- e:
	default:
		b.dropped.Add(1)
		b.logger.Warn("event bus full, dropping event", slog.String("type", string(e.Type)))
	}
}

// Dropped returns how many events were discarded since the bus was created.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Start begins draining the channel and dispatching events to subscribers.
// Call this in a goroutine. It returns once Stop is called and the buffer
// has been emptied.
func (b *Bus) Start() {
	defer close(b.drained)
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-b.done:
			for {
				select {
				case e := <-b.ch:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

// Stop signals the bus to stop and waits up to timeout for buffered events
// to be dispatched. It is safe to call more than once. Returns false if the
// buffer was not drained in time.
func (b *Bus) Stop(timeout time.Duration) bool {
	b.stopOnce.Do(func() { close(b.done) })
	select {
	case <-b.drained:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type])+len(b.all))
	handlers = append(handlers, b.subs[e.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked",
						slog.String("type", string(e.Type)),
						slog.Any("panic", r))
				}
			}()
			h(e)
		}()
	}
}

// LogHandler returns a handler that writes each event to logger at info level.
func LogHandler(logger *slog.Logger) Handler {
	return func(e Event) {
		attrs := make([]any, 0, len(e.Data)+1)
		attrs = append(attrs, slog.String("type", string(e.Type)))
		for k, v := range e.Data {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.Info("event", attrs...)
	}
}
