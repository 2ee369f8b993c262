package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/dupscan/internal/domain/errkind"
	"github.com/okian/dupscan/internal/domain/model"
)

func job(id string) Job {
	return model.ScanJob{ID: id, TenantID: "t1", MinScore: 50, Status: model.JobQueued}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if err := q.Enqueue(ctx, job("job1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.ID != "job1" {
		t.Errorf("expected job1, got %v", j.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"job1", "job2"} {
		if err := q.Enqueue(ctx, job(id)); err != nil {
			t.Fatalf("expected enqueue of %s to succeed, got %v", id, err)
		}
	}

	err := q.Enqueue(ctx, job("job3"))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if !errors.Is(err, errkind.ErrBackpressure) {
		t.Error("expected a full queue to be classified as backpressure")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()
	numGoroutines := 10
	numJobs := 50

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numJobs; j++ {
				if err := q.Enqueue(ctx, job(fmt.Sprintf("job-%d-%d", id, j))); err != nil {
					t.Errorf("unexpected enqueue error: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != numGoroutines*numJobs {
		t.Errorf("expected length %d, got %d", numGoroutines*numJobs, l)
	}

	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	received := 0
	for range q.Dequeue(ctx) {
		received++
	}
	if received != numGoroutines*numJobs {
		t.Errorf("expected to drain %d jobs, got %d", numGoroutines*numJobs, received)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, job("job1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}

	if err := q.Enqueue(ctx, job("job2")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}

	ch := q.Dequeue(ctx)
	select {
	case j, ok := <-ch:
		if !ok || j.ID != "job1" {
			t.Errorf("expected queued job1 to be delivered after close, got %v (ok=%v)", j.ID, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queued job")
	}
	if _, ok := <-ch; ok {
		t.Error("expected dequeue channel to close after draining")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, job("job1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
