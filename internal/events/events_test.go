package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitTimeout fails the test when wg is not done within two seconds
func waitTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for event handler")
	}
}

func TestEventBus(t *testing.T) {
	t.Run("Subscribe and Publish", func(t *testing.T) {
		bus := NewBus(EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(1)

		var receivedEvent Event
		bus.Subscribe(EventTaskSplit, func(_ context.Context, event Event) error {
			receivedEvent = event
			wg.Done()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bus.Start(ctx)

		testEvent := Event{
			Type:      EventTaskSplit,
			ProjectID: 1,
			TaskID:    7,
			UserID:    3,
			Status:    "SPLIT",
			Children:  []int64{8, 9, 10, 11},
		}
		bus.Publish(testEvent)
		waitTimeout(t, &wg)

		assert.Equal(t, testEvent, receivedEvent)
	})

	t.Run("Multiple Handlers", func(t *testing.T) {
		bus := NewBus(0)

		var wg sync.WaitGroup
		wg.Add(2)

		handlerCalls := make(map[string]bool)
		var mu sync.Mutex
		record := func(name string) Handler {
			return func(context.Context, Event) error {
				mu.Lock()
				handlerCalls[name] = true
				mu.Unlock()
				wg.Done()
				return nil
			}
		}
		bus.Subscribe(EventTaskLocked, record("handler1"))
		bus.Subscribe(EventTaskLocked, record("handler2"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bus.Start(ctx)

		bus.Publish(Event{Type: EventTaskLocked, ProjectID: 1, TaskID: 2})
		waitTimeout(t, &wg)

		mu.Lock()
		assert.True(t, handlerCalls["handler1"], "Handler 1 should have been called")
		assert.True(t, handlerCalls["handler2"], "Handler 2 should have been called")
		mu.Unlock()
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		bus := NewBus(EventChannelSize)
		bus.Subscribe(EventTaskLocked, func(context.Context, Event) error {
			t.Error("Handler should not be called after context cancellation")
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		bus.Start(ctx)
		cancel()
		bus.Wait()

		// Publishing after the loop stopped must not block or panic
		bus.Publish(Event{Type: EventTaskLocked, TaskID: 1})
	})

	t.Run("Full buffer drops events", func(t *testing.T) {
		bus := NewBus(1)
		bus.Publish(Event{Type: EventTaskCommented, TaskID: 1})
		bus.Publish(Event{Type: EventTaskCommented, TaskID: 2})
		require.Len(t, bus.eventChan, 1)

		event := <-bus.eventChan
		assert.Equal(t, int64(1), event.TaskID)
	})

	t.Run("Handler errors do not stop the loop", func(t *testing.T) {
		bus := NewBus(EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(2)
		bus.Subscribe(EventTaskUnlocked, func(context.Context, Event) error {
			wg.Done()
			return assert.AnError
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bus.Start(ctx)

		bus.Publish(Event{Type: EventTaskUnlocked, TaskID: 1})
		bus.Publish(Event{Type: EventTaskUnlocked, TaskID: 2})
		waitTimeout(t, &wg)
	})
}

func TestLogActivity(t *testing.T) {
	for _, typ := range AllTypes {
		assert.NoError(t, LogActivity(context.Background(), Event{Type: typ, ProjectID: 1, TaskID: 1}))
	}
}
