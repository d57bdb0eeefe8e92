package notify

import (
	"sync"
	"time"
)

const (
	defaultHistoryCapacity = 256
	defaultSubscriberDepth = 64
)

// CenterOption adjusts the behaviour of a Center.
type CenterOption func(*centerConfig)

type centerConfig struct {
	historyCapacity int
	subscriberDepth int
	now             func() time.Time
}

// WithHistoryCapacity sets how many notifications are retained for inspection.
func WithHistoryCapacity(capacity int) CenterOption {
	return func(cfg *centerConfig) {
		if capacity > 0 {
			cfg.historyCapacity = capacity
		}
	}
}

// WithSubscriberDepth sets the buffer depth of subscriber channels. A slow
// subscriber whose buffer is full misses notifications rather than blocking
// the writer.
func WithSubscriberDepth(depth int) CenterOption {
	return func(cfg *centerConfig) {
		if depth > 0 {
			cfg.subscriberDepth = depth
		}
	}
}

// withClock overrides the timestamp source (test only).
func withClock(now func() time.Time) CenterOption {
	return func(cfg *centerConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Center is an in-memory notification hub: it retains a bounded history and
// fans incoming notifications out to live subscribers.
type Center struct {
	mu      sync.Mutex
	history notifyRing
	subs    map[int]chan Notification
	nextSub int
	depth   int
	now     func() time.Time
	closed  bool
}

// NewCenter constructs a hub with optional customisation.
func NewCenter(opts ...CenterOption) *Center {
	cfg := centerConfig{
		historyCapacity: defaultHistoryCapacity,
		subscriberDepth: defaultSubscriberDepth,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Center{
		history: newNotifyRing(cfg.historyCapacity),
		subs:    make(map[int]chan Notification),
		depth:   cfg.subscriberDepth,
		now:     cfg.now,
	}
}

// Notify implements Notifier. Nil-safe so components can run without a hub.
func (c *Center) Notify(n Notification) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.now().UTC()
	}
	c.history.push(n)
	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// History returns a snapshot of retained notifications, oldest first.
func (c *Center) History() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]Notification, 0, c.history.len())
	c.history.forEach(func(n Notification) {
		snapshot = append(snapshot, n)
	})
	return snapshot
}

// Subscribe registers a live feed. The returned cancel func must be called to
// release the subscription; the channel is closed by cancel or Close.
func (c *Center) Subscribe() (<-chan Notification, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Notification, c.depth)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close tears down all subscriptions. Subsequent Notify calls are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// notifyRing is a fixed-size ring buffer that overwrites the oldest entry on
// overflow.
type notifyRing struct {
	buf  []Notification
	head int
	size int
}

func newNotifyRing(capacity int) notifyRing {
	if capacity <= 0 {
		return notifyRing{}
	}
	return notifyRing{buf: make([]Notification, capacity)}
}

func (r *notifyRing) push(n Notification) {
	if len(r.buf) == 0 {
		return
	}
	idx := (r.head + r.size) % len(r.buf)
	r.buf[idx] = n
	if r.size < len(r.buf) {
		r.size++
		return
	}
	r.head = (r.head + 1) % len(r.buf)
}

func (r *notifyRing) len() int { return r.size }

func (r *notifyRing) forEach(fn func(Notification)) {
	for i := 0; i < r.size; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}
