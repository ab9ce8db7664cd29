package queue

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T, visibility time.Duration) *AnalysisQueue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewAnalysisQueueWithClient(client, visibility)
}

func TestEnqueueDequeueAck(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, time.Minute)

	if err := q.Enqueue(ctx, "job-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, "job-2"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if depth, _ := q.ReadyDepth(ctx); depth != 2 {
		t.Fatalf("depth = %d, want 2", depth)
	}

	first, err := q.DequeueWithLease(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if first != "job-1" {
		t.Errorf("dequeued %s, want job-1 (FIFO)", first)
	}

	second, _ := q.DequeueWithLease(ctx)
	if second != "job-2" {
		t.Errorf("dequeued %s, want job-2", second)
	}

	// Queue drained; leased jobs are not redelivered.
	if empty, _ := q.DequeueWithLease(ctx); empty != "" {
		t.Errorf("dequeued %s from empty queue", empty)
	}

	if err := q.Ack(ctx, first); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if requeued, _ := q.RequeueExpired(ctx, time.Now().Add(2*time.Minute), 10); len(requeued) != 1 || requeued[0] != second {
		t.Errorf("requeued = %v, want only the unacked job", requeued)
	}
}

func TestRequeueExpiredRestartsJob(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, time.Millisecond)

	_ = q.Enqueue(ctx, "job-1")
	if id, _ := q.DequeueWithLease(ctx); id != "job-1" {
		t.Fatalf("dequeued %s", id)
	}

	// Lease expired: the job becomes visible again and runs from scratch.
	requeued, err := q.RequeueExpired(ctx, time.Now().Add(time.Second), 10)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if len(requeued) != 1 {
		t.Fatalf("requeued %v", requeued)
	}
	if id, _ := q.DequeueWithLease(ctx); id != "job-1" {
		t.Errorf("redelivered %s, want job-1", id)
	}
}

func TestExtendLeaseKeepsJobInflight(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, time.Minute)

	_ = q.Enqueue(ctx, "job-1")
	_, _ = q.DequeueWithLease(ctx)

	if err := q.ExtendLease(ctx, "job-1", time.Hour); err != nil {
		t.Fatalf("extend: %v", err)
	}
	requeued, _ := q.RequeueExpired(ctx, time.Now().Add(30*time.Minute), 10)
	if len(requeued) != 0 {
		t.Errorf("requeued %v despite extended lease", requeued)
	}
}
