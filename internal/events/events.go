// Package events provides event handling functionality
package events

import (
	"context"
	"sync"
	"time"

	"github.com/openmapping/tasking/internal/logger"
)

// EventType represents the type of task event
type EventType string

const (
	// EventTaskLocked is emitted when a mapping or validation lock is taken
	EventTaskLocked EventType = "task_locked"
	// EventTaskUnlocked is emitted when a lock holder releases a task
	EventTaskUnlocked EventType = "task_unlocked"
	// EventTaskAutoUnlocked is emitted when a stale lock is cleared
	EventTaskAutoUnlocked EventType = "task_auto_unlocked"
	// EventTaskCommented is emitted when a comment is added
	EventTaskCommented EventType = "task_commented"
	// EventTaskSplit is emitted when a task is replaced by its children
	EventTaskSplit EventType = "task_split"
	// EventChannelSize is the buffer size for the event channel
	EventChannelSize = 100
)

// AllTypes lists every event type
var AllTypes = []EventType{
	EventTaskLocked,
	EventTaskUnlocked,
	EventTaskAutoUnlocked,
	EventTaskCommented,
	EventTaskSplit,
}

// Event represents a committed task transition
type Event struct {
	Type      EventType // The type of event
	ProjectID int64     // The project of the task
	TaskID    int64     // The task the event is about
	UserID    int64     // The acting user, or the former lock holder for auto unlocks
	Status    string    // The task status after the event
	Children  []int64   // The ids created by a split
	At        time.Time // When the transition was committed
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

// Bus fans events out to the handlers subscribed to their type
type Bus struct {
	// handlers is a map of event types to their handlers
	handlers   map[EventType][]Handler
	handlersMu sync.RWMutex
	// eventChan is a channel for events
	eventChan chan Event
	wg        sync.WaitGroup
}

// NewBus creates a bus with a buffer of size events
func NewBus(size int) *Bus {
	if size <= 0 {
		size = EventChannelSize
	}
	return &Bus{
		handlers:  make(map[EventType][]Handler),
		eventChan: make(chan Event, size),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	logger.Debugf("📝 Registered handler for event type: %s", eventType)
}

// Publish queues an event. Events are dropped when the buffer is full so a
// slow handler never blocks a task transition.
func (b *Bus) Publish(event Event) {
	select {
	case b.eventChan <- event:
		logger.Debugf("📢 Published event: %s (project %d, task %d)", event.Type, event.ProjectID, event.TaskID)
	default:
		logger.Warnf("Event buffer full, dropping %s for task %d", event.Type, event.TaskID)
	}
}

// Start starts the event processing loop
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.processEvents(ctx)
	logger.Info("🎯 Started event processing loop")
}

// Wait blocks until the processing loop and all running handlers have returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// processEvents handles events in the background
func (b *Bus) processEvents(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Stopping event processing loop")
			return
		case event := <-b.eventChan:
			b.handlersMu.RLock()
			eventHandlers := b.handlers[event.Type]
			b.handlersMu.RUnlock()

			// Process event with all registered handlers
			for _, handler := range eventHandlers {
				b.wg.Add(1)
				go func(h Handler, e Event) {
					defer b.wg.Done()
					if err := h(ctx, e); err != nil {
						logger.Errorf("❌ Failed to handle event %s: %v", e.Type, err)
					}
				}(handler, event)
			}
		}
	}
}

// LogActivity writes every event to the log as a task activity line
func LogActivity(_ context.Context, e Event) error {
	fields := logger.Fields{
		"event":      string(e.Type),
		"project_id": e.ProjectID,
		"task_id":    e.TaskID,
		"user_id":    e.UserID,
		"status":     e.Status,
	}
	if len(e.Children) > 0 {
		fields["children"] = e.Children
	}
	logger.InfoWithFields("Task activity", fields)
	return nil
}
