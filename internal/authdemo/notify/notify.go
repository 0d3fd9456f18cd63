package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultCapacity bounds the number of undelivered toasts kept per visitor.
const DefaultCapacity = 16

// DismissAfter is how long the browser keeps a toast on screen.
const DismissAfter = 3 * time.Second

// Toast is a single notification emitted by the application.
type Toast struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier receives discrete success and error events. Display is left to the caller.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Queue buffers toasts until the next render drains them and fans them out to live subscribers.
type Queue struct {
	mu       sync.Mutex
	items    []Toast
	capacity int
	now      func() time.Time
	nextID   int
	subs     map[int]func(Toast)
}

// Option customises a Queue.
type Option func(*Queue)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// NewQueue constructs an empty Queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		capacity: DefaultCapacity,
		now:      time.Now,
		subs:     make(map[int]func(Toast)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Success enqueues a success toast.
func (q *Queue) Success(message string) {
	q.Push(LevelSuccess, message)
}

// Error enqueues an error toast.
func (q *Queue) Error(message string) {
	q.Push(LevelError, message)
}

// Info enqueues an informational toast.
func (q *Queue) Info(message string) {
	q.Push(LevelInfo, message)
}

// Push appends a toast, dropping the oldest one when full, and returns it.
func (q *Queue) Push(level Level, message string) Toast {
	toast := Toast{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: q.now().UTC(),
	}

	q.mu.Lock()
	q.items = append(q.items, toast)
	if over := len(q.items) - q.capacity; over > 0 {
		q.items = append([]Toast(nil), q.items[over:]...)
	}
	subs := make([]func(Toast), 0, len(q.subs))
	for id := 1; id <= q.nextID; id++ {
		if fn, ok := q.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(toast)
	}
	return toast
}

// Drain returns and clears every buffered toast, oldest first.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of buffered toasts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Subscribe registers fn for every future toast and returns a function that removes it.
func (q *Queue) Subscribe(fn func(Toast)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	q.subs[id] = fn
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subs, id)
			q.mu.Unlock()
		})
	}
}

// Discard is a Notifier that drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}
