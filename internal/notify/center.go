package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Level tells the front end how to present a notification
type Level string

const (
	LevelError    Level = "error"
	LevelBusiness Level = "business"
	LevelInfo     Level = "info"
)

// Notification is one user-facing message
type Notification struct {
	ID      uuid.UUID `json:"id"`
	Level   Level     `json:"level"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// UserFacing is implemented by errors that carry a message meant for the operator
type UserFacing interface {
	error
	Operation() string
	UserMessage() string
	Business() bool
}

// Notifier is what view-models use to surface outcomes
type Notifier interface {
	Failure(err error)
	Info(op, message string)
}

// Center keeps the latest notifications and fans them out to subscribers
type Center struct {
	mu    sync.RWMutex
	limit int
	items []Notification
	subs  map[chan Notification]struct{}
	nowFn func() time.Time
}

// NewCenter creates a center that remembers at most limit notifications
func NewCenter(limit int) *Center {
	if limit <= 0 {
		limit = 100
	}
	return &Center{
		limit: limit,
		subs:  make(map[chan Notification]struct{}),
		nowFn: time.Now,
	}
}

// Failure records a failed operation. Errors that are not user-facing are
// logged and shown with their plain text.
func (c *Center) Failure(err error) {
	if err == nil {
		return
	}

	n := Notification{Level: LevelError, Message: err.Error()}
	var uf UserFacing
	if errors.As(err, &uf) {
		n.Op = uf.Operation()
		n.Message = uf.UserMessage()
		if uf.Business() {
			n.Level = LevelBusiness
		}
	}

	log.Error().Err(err).Str("op", n.Op).Str("level", string(n.Level)).Msg(n.Message)
	c.push(n)
}

// Info records a confirmation
func (c *Center) Info(op, message string) {
	log.Info().Str("op", op).Msg(message)
	c.push(Notification{Level: LevelInfo, Op: op, Message: message})
}

// List returns the remembered notifications, oldest first
func (c *Center) List() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Subscribe returns a channel receiving every new notification and a func to stop.
// Slow subscribers miss notifications instead of blocking producers.
func (c *Center) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, 16)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Center) push(n Notification) {
	n.ID = uuid.New()
	n.At = c.nowFn()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, n)
	if len(c.items) > c.limit {
		c.items = c.items[len(c.items)-c.limit:]
	}

	for ch := range c.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
