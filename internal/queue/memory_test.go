package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	testhelpers "github.com/polkiloo/fulfillrelay/internal/test"
)

func TestMemoryDeliversTasks(t *testing.T) {
	q := NewMemory(4, 3, testhelpers.DiscardLogger())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan model.Task, 1)
	go q.Consume(ctx, func(_ context.Context, task model.Task) error {
		got <- task
		return nil
	})

	if err := q.Publish(ctx, model.Task{Type: model.TaskStatusCheck}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case task := <-got:
		if task.Type != model.TaskStatusCheck || task.Deliveries != 0 {
			t.Fatalf("unexpected task %+v", task)
		}
	case <-time.After(time.Second):
		t.Fatal("task was not delivered")
	}
}

func TestMemoryRedeliversUpToLimit(t *testing.T) {
	const maxDeliveries = 3
	q := NewMemory(4, maxDeliveries, testhelpers.DiscardLogger())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	seen := make(chan int, maxDeliveries+2)
	go q.Consume(ctx, func(_ context.Context, task model.Task) error {
		calls.Add(1)
		seen <- task.Deliveries
		return domainErrors.Fatal(errors.New("always failing"))
	})

	if err := q.Publish(ctx, model.Task{Type: model.TaskFulfillment}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for want := 0; want <= maxDeliveries; want++ {
		select {
		case got := <-seen:
			if got != want {
				t.Fatalf("expected delivery %d, got %d", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("delivery %d did not happen", want)
		}
	}

	select {
	case extra := <-seen:
		t.Fatalf("unexpected delivery %d beyond limit", extra)
	case <-time.After(100 * time.Millisecond):
	}
	if calls.Load() != maxDeliveries+1 {
		t.Fatalf("expected %d handler calls, got %d", maxDeliveries+1, calls.Load())
	}
}

func TestMemoryClose(t *testing.T) {
	q := NewMemory(1, 1, testhelpers.DiscardLogger())

	done := make(chan error, 1)
	go func() {
		done <- q.Consume(context.Background(), func(context.Context, model.Task) error { return nil })
	}()

	if err := q.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close must be idempotent: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	if err := q.Publish(context.Background(), model.Task{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryPublishHonoursContext(t *testing.T) {
	q := NewMemory(1, 1, testhelpers.DiscardLogger())
	defer q.Close()

	if err := q.Publish(context.Background(), model.Task{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Publish(ctx, model.Task{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryDropsTasksWithoutFatalFailure(t *testing.T) {
	q := NewMemory(4, 3, testhelpers.DiscardLogger())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go q.Consume(ctx, func(context.Context, model.Task) error {
		calls.Add(1)
		return domainErrors.Recoverable(errors.New("no provider"))
	})

	if err := q.Publish(ctx, model.Task{Type: model.TaskFulfillment}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("expected a single delivery, got %d", calls.Load())
	}
}
