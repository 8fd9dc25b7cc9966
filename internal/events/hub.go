package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const subscriptionBuffer = 16

// Hub delivers submission events to the live verdict feeds of connected users.
type Hub struct {
	mu    sync.RWMutex
	users map[uint]map[*Subscription]struct{}
	log   zerolog.Logger
}

// Subscription is one live feed. Events are dropped when the reader falls behind.
type Subscription struct {
	UserID uint

	events chan SubmissionEvent
	hub    *Hub
	once   sync.Once
}

// NewHub builds an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		users: make(map[uint]map[*Subscription]struct{}),
		log:   logger.With().Str("component", "submission_hub").Logger(),
	}
}

// Subscribe opens a feed for userID.
func (h *Hub) Subscribe(userID uint) *Subscription {
	sub := &Subscription{
		UserID: userID,
		events: make(chan SubmissionEvent, subscriptionBuffer),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Subscription]struct{})
	}
	h.users[userID][sub] = struct{}{}
	return sub
}

// Subscribers returns the number of open feeds for userID.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Deliver fans the event out to the feeds of its user without blocking.
func (h *Hub) Deliver(event SubmissionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.users[event.UserID] {
		select {
		case sub.events <- event:
		default:
			h.log.Warn().Uint("user_id", event.UserID).Msg("feed buffer full, dropping submission event")
		}
	}
}

// Wrap returns a publisher that also delivers every published event to local feeds.
func (h *Hub) Wrap(next Publisher) Publisher {
	return &hubPublisher{next: next, hub: h}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.users[sub.UserID]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.users, sub.UserID)
	}
	close(sub.events)
}

// Events yields delivered events until Close.
func (s *Subscription) Events() <-chan SubmissionEvent {
	return s.events
}

// Close detaches the feed from the hub. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

type hubPublisher struct {
	next Publisher
	hub  *Hub
}

func (p *hubPublisher) PublishSubmission(ctx context.Context, event SubmissionEvent) {
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}
	p.next.PublishSubmission(ctx, event)
	p.hub.Deliver(event)
}

func (p *hubPublisher) Listen(ctx context.Context, handler func(SubmissionEvent)) {
	p.next.Listen(ctx, handler)
}
