package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

type EventType string

const (
	EventTaskUnlocked  EventType = "TASK_UNLOCKED"
	EventTaskClaimed   EventType = "TASK_CLAIMED"
	EventTaskSubmitted EventType = "TASK_SUBMITTED"
	EventTaskApproved  EventType = "TASK_APPROVED"
	EventTaskRejected  EventType = "TASK_REJECTED"
	EventTaskExpired   EventType = "TASK_EXPIRED"
	EventTaskReminder  EventType = "TASK_REMINDER"
)

// Event carries a snapshot of the task at transition time plus the amounts
// relevant to scoring. Points is the award for approvals (already reflecting
// any admin override); FineAmount is the deduction for expiries.
type Event struct {
	Type       EventType
	Task       models.Task
	Points     int
	FineAmount int
	Urgent     bool
}

type HandlerFunc func(ctx context.Context, e Event) error

type subscription struct {
	name       string
	bestEffort bool
	fn         HandlerFunc
}

// EventBus is an in-process synchronous-await dispatcher. Publish runs all
// handlers for the event type concurrently and joins them before returning;
// failures from non-best-effort handlers are aggregated into the returned
// error, which is what lets the lifecycle service roll back an approval
// whose points award did not land.
type EventBus struct {
	mu   sync.RWMutex
	subs map[EventType][]subscription
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[EventType][]subscription)}
}

// Subscribe registers a handler. Registration happens once at process start;
// bestEffort handlers have their failures logged but never fail the publish.
func (b *EventBus) Subscribe(t EventType, name string, bestEffort bool, fn HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], subscription{name: name, bestEffort: bestEffort, fn: fn})
}

func (b *EventBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[e.Type]))
	copy(subs, b.subs[e.Type])
	b.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	errCh := make(chan error, len(subs))
	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s subscription) {
			defer wg.Done()
			err := s.fn(ctx, e)
			if err == nil {
				return
			}
			if s.bestEffort {
				log.Printf("[events] handler %s failed for %s (ignored): %v", s.name, e.Type, err)
				return
			}
			log.Printf("[events] handler %s failed for %s: %v", s.name, e.Type, err)
			errCh <- err
		}(s)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
