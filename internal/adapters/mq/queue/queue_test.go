package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quietcam/reid/internal/domain/model"
	"github.com/quietcam/reid/pkg/metrics"
)

func testJob(id string) Job {
	return Job{
		Detection: model.Detection{
			DetectionID: id,
			CameraID:    "cam-1",
			CameraName:  "Front Door",
			Class:       model.ClassPerson,
		},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	if !q.Enqueue(ctx, testJob("det-1")) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	jobChan := q.Dequeue(ctx)
	job := <-jobChan
	if job.Detection.DetectionID != "det-1" {
		t.Errorf("expected det-1, got %v", job.Detection.DetectionID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, testJob("det-1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, testJob("det-2")) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, testJob("det-3")) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, testJob("det-1")) {
		t.Error("expected enqueue to succeed")
	}

	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}

	// Enqueue after close must fail
	if q.Enqueue(ctx, testJob("det-2")) {
		t.Error("expected enqueue to fail after close")
	}

	// Buffered jobs drain, then the channel closes
	jobChan := q.Dequeue(ctx)
	job, ok := <-jobChan
	if !ok || job.Detection.DetectionID != "det-1" {
		t.Errorf("expected buffered det-1, got %v (ok=%v)", job.Detection.DetectionID, ok)
	}
	select {
	case _, ok := <-jobChan:
		if ok {
			t.Error("expected channel to close after drain")
		}
	case <-time.After(time.Second):
		t.Error("dequeue channel never closed")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if !q.Enqueue(ctx, testJob(fmt.Sprintf("det-%d-%d", id, j))) {
					t.Errorf("enqueue failed for producer %d", id)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != producers*perProducer {
		t.Errorf("expected length %d, got %d", producers*perProducer, l)
	}

	_ = q.Close()
	received := 0
	for range q.Dequeue(ctx) {
		received++
	}
	if received != producers*perProducer {
		t.Errorf("expected %d jobs, got %d", producers*perProducer, received)
	}
}

func TestLenDoesNotWriteGauges(t *testing.T) {
	ctx := context.Background()

	q := NewInMemoryQueue(WithCapacity(4))
	if !q.Enqueue(ctx, testJob("det-1")) {
		t.Fatal("enqueue failed")
	}

	// Constructing another queue resets the shared size gauge to zero. A
	// read-only Len on the first queue must not write it back.
	_ = NewInMemoryQueue(WithCapacity(4))

	if l := q.Len(ctx); l != 1 {
		t.Fatalf("expected length 1, got %d", l)
	}

	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "reid_engine_queue_size" {
			continue
		}
		if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 0 {
			t.Errorf("expected queue size gauge 0, got %v", v)
		}
		return
	}
	t.Fatal("queue size gauge not found")
}
