package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"okr-progression-system/services"

	"github.com/cenkalti/backoff/v5"
)

// flakyPublisher fails the first failures calls, then records tasks.
type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	calls     int
	published []services.Task
	done      chan struct{}
}

func (p *flakyPublisher) Publish(ctx context.Context, task services.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, task)
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	return nil
}

func fastDispatcher(pub Publisher, buffer int) *Dispatcher {
	d := NewDispatcher(pub, buffer)
	d.BackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return d
}

func TestDispatcherRetriesUntilPublished(t *testing.T) {
	pub := &flakyPublisher{failures: 2, done: make(chan struct{})}
	done := pub.done
	d := fastDispatcher(pub, 4)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	if !d.Enqueue(services.Task{Kind: "challenge.invitation", UserID: "u1"}) {
		t.Fatal("Enqueue() = false, want true")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was never published")
	}
	cancel()
	d.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.calls != 3 || len(pub.published) != 1 {
		t.Errorf("calls = %d, published = %d, want 3 and 1", pub.calls, len(pub.published))
	}
}

func TestDispatcherGivesUp(t *testing.T) {
	pub := &flakyPublisher{failures: 100}
	d := fastDispatcher(pub, 1)
	d.MaxTries = 3

	d.deliver(context.Background(), services.Task{Kind: "x"})

	if pub.calls != 3 || len(pub.published) != 0 {
		t.Errorf("calls = %d, published = %d, want 3 and 0", pub.calls, len(pub.published))
	}
}

func TestDispatcherEnqueueDropsWhenFull(t *testing.T) {
	d := fastDispatcher(&flakyPublisher{}, 1)

	if !d.Enqueue(services.Task{Kind: "a"}) {
		t.Fatal("first Enqueue() = false")
	}
	if d.Enqueue(services.Task{Kind: "b"}) {
		t.Error("Enqueue() on a full buffer = true, want false")
	}
}
