package events

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
)

// DefaultHistorySize bounds the replayable history when no option is given.
const DefaultHistorySize = 1000

// Event is a single emitted record as kept in history.
type Event struct {
	Name      Name      `json:"event"`
	Payload   Payload   `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ListenerFunc reacts to an event. Returned errors are contained by the bus.
type ListenerFunc func(ctx context.Context, evt Event) error

// Handler is a registered listener. Identity is the pointer: registering the
// same *Handler twice for one event keeps a single registration.
type Handler struct {
	fn    ListenerFunc
	async bool
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// Async runs the listener on its own goroutine. Emit still waits for it.
func Async() HandlerOption {
	return func(h *Handler) { h.async = true }
}

// NewHandler wraps fn into a registrable handler.
func NewHandler(fn ListenerFunc, opts ...HandlerOption) *Handler {
	h := &Handler{fn: fn}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Emitter is the producer side of the bus, accepted by services.
type Emitter interface {
	Emit(ctx context.Context, payload Payload)
}

// Bus is the in-process publish/subscribe hub.
type Bus struct {
	mu         sync.RWMutex
	listeners  map[Name][]*Handler
	history    *circularbuffer.Queue
	maxHistory int
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for contained listener failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// WithHistorySize overrides DefaultHistorySize.
func WithHistorySize(n int) Option {
	return func(b *Bus) { b.maxHistory = n }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBus constructs an isolated bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		listeners:  make(map[Name][]*Handler),
		maxHistory: DefaultHistorySize,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxHistory > 0 {
		b.history = circularbuffer.New(b.maxHistory)
	}
	return b
}

// On registers h for name and returns an idempotent unsubscribe func.
func (b *Bus) On(name Name, h *Handler) func() {
	if h == nil || h.fn == nil {
		return func() {}
	}
	b.mu.Lock()
	if !slices.Contains(b.listeners[name], h) {
		b.listeners[name] = append(b.listeners[name], h)
	}
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, h) })
	}
}

// OnFunc registers fn under a fresh handler.
func (b *Bus) OnFunc(name Name, fn ListenerFunc, opts ...HandlerOption) func() {
	return b.On(name, NewHandler(fn, opts...))
}

// Once registers fn for a single delivery.
func (b *Bus) Once(name Name, fn ListenerFunc, opts ...HandlerOption) func() {
	var fired atomic.Bool
	var h *Handler
	h = NewHandler(func(ctx context.Context, evt Event) error {
		if !fired.CompareAndSwap(false, true) {
			return nil
		}
		b.remove(name, h)
		return fn(ctx, evt)
	}, opts...)
	return b.On(name, h)
}

func (b *Bus) remove(name Name, h *Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.listeners[name]
	idx := slices.Index(list, h)
	if idx < 0 {
		return
	}
	list = slices.Delete(slices.Clone(list), idx, idx+1)
	if len(list) == 0 {
		delete(b.listeners, name)
		return
	}
	b.listeners[name] = list
}

// Emit records the event and delivers it to every listener registered at the
// time of the call. Listener failures are logged and re-emitted as
// system:error; Emit itself never fails.
func (b *Bus) Emit(ctx context.Context, payload Payload) {
	if payload == nil {
		return
	}
	evt := Event{Name: payload.EventName(), Payload: payload, Timestamp: b.now()}

	b.mu.Lock()
	if b.history != nil {
		b.history.Enqueue(evt)
	}
	handlers := slices.Clone(b.listeners[evt.Name])
	b.mu.Unlock()

	b.metrics.observeEmit(evt.Name)

	var wg sync.WaitGroup
	for _, h := range handlers {
		if h.async {
			wg.Add(1)
			go func(h *Handler) {
				defer wg.Done()
				if err := b.dispatch(ctx, h, evt); err != nil {
					b.fail(ctx, evt, err)
				}
			}(h)
			continue
		}
		if err := b.dispatch(ctx, h, evt); err != nil {
			b.fail(ctx, evt, err)
		}
	}
	wg.Wait()
}

func (b *Bus) dispatch(ctx context.Context, h *Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return h.fn(ctx, evt)
}

func (b *Bus) fail(ctx context.Context, evt Event, err error) {
	b.metrics.observeFailure(evt.Name)
	b.logger.Error("event listener failed",
		slog.String("event", string(evt.Name)),
		slog.Any("error", err),
	)
	if evt.Name == SystemError {
		return
	}
	b.Emit(ctx, Failure(fmt.Sprintf("Event listener error for %s", evt.Name), ErrorContext{
		Event: evt.Name,
		Data:  evt.Payload,
		Error: err.Error(),
	}))
}

// Off removes every listener for name.
func (b *Bus) Off(name Name) {
	b.mu.Lock()
	delete(b.listeners, name)
	b.mu.Unlock()
}

// RemoveAllListeners resets all registrations.
func (b *Bus) RemoveAllListeners() {
	b.mu.Lock()
	b.listeners = make(map[Name][]*Handler)
	b.mu.Unlock()
}

// GetEvents returns history in chronological order. A non-empty pattern is a
// regular expression matched against event names; an invalid expression is
// matched as a plain substring.
func (b *Bus) GetEvents(pattern string) []Event {
	b.mu.RLock()
	all := b.snapshot()
	b.mu.RUnlock()
	if pattern == "" {
		return all
	}
	match := func(name Name) bool { return strings.Contains(string(name), pattern) }
	if re, err := regexp.Compile(pattern); err == nil {
		match = func(name Name) bool { return re.MatchString(string(name)) }
	}
	out := make([]Event, 0, len(all))
	for _, evt := range all {
		if match(evt.Name) {
			out = append(out, evt)
		}
	}
	return out
}

func (b *Bus) snapshot() []Event {
	if b.history == nil {
		return []Event{}
	}
	values := b.history.Values()
	out := make([]Event, 0, len(values))
	for _, v := range values {
		out = append(out, v.(Event))
	}
	return out
}

// ListenerCount reports how many listeners are registered for name.
func (b *Bus) ListenerCount(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}

// EventNames lists names with at least one listener, sorted.
func (b *Bus) EventNames() []Name {
	b.mu.RLock()
	names := make([]Name, 0, len(b.listeners))
	for name := range b.listeners {
		names = append(names, name)
	}
	b.mu.RUnlock()
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ClearHistory drops all recorded events.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	if b.history != nil {
		b.history.Clear()
	}
	b.mu.Unlock()
}

// SetMaxHistorySize changes the bound, keeping the most recent events. A
// non-positive size disables history.
func (b *Bus) SetMaxHistorySize(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing := b.snapshot()
	b.maxHistory = n
	if n <= 0 {
		b.history = nil
		return
	}
	b.history = circularbuffer.New(n)
	if len(existing) > n {
		existing = existing[len(existing)-n:]
	}
	for _, evt := range existing {
		b.history.Enqueue(evt)
	}
}

var _ Emitter = (*Bus)(nil)

// DebugInfo summarises the bus state.
type DebugInfo struct {
	ListenerCounts map[Name]int `json:"listenerCounts"`
	HistorySize    int          `json:"historySize"`
	MaxHistorySize int          `json:"maxHistorySize"`
	RecentEvents   []Event      `json:"recentEvents"`
}

// DebugInfo reports listener counts and the ten most recent events.
func (b *Bus) DebugInfo() DebugInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := make(map[Name]int, len(b.listeners))
	for name, list := range b.listeners {
		counts[name] = len(list)
	}
	history := b.snapshot()
	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	return DebugInfo{
		ListenerCounts: counts,
		HistorySize:    len(history),
		MaxHistorySize: b.maxHistory,
		RecentEvents:   recent,
	}
}
