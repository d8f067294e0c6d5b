// workers/dispatcher.go
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"okr-progression-system/services"

	"github.com/cenkalti/backoff/v5"
)

// Publisher hands a task to the notification collaborator.
type Publisher interface {
	Publish(ctx context.Context, task services.Task) error
}

// Dispatcher decouples notification side effects from the request path:
// Enqueue never blocks, and a single goroutine publishes with retries.
type Dispatcher struct {
	pub      Publisher
	tasks    chan services.Task
	MaxTries uint
	BackOff  func() backoff.BackOff
	Timeout  time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(pub Publisher, buffer int) *Dispatcher {
	return &Dispatcher{
		pub:      pub,
		tasks:    make(chan services.Task, buffer),
		MaxTries: 5,
		BackOff:  func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		Timeout:  10 * time.Second,
	}
}

// Enqueue reports false when the buffer is full and the task was dropped.
func (d *Dispatcher) Enqueue(task services.Task) bool {
	select {
	case d.tasks <- task:
		return true
	default:
		slog.Warn("[DISPATCH] queue full, dropping task", "kind", task.Kind, "user_id", task.UserID)
		return false
	}
}

// Start runs the publish loop until ctx is done. Wait blocks until it exits.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		slog.Info("[DISPATCH] notification dispatcher running")
		for {
			select {
			case <-ctx.Done():
				slog.Info("[DISPATCH] stopped", "pending", len(d.tasks))
				return
			case task := <-d.tasks:
				d.deliver(ctx, task)
			}
		}
	}()
}

func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) deliver(ctx context.Context, task services.Task) {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		pctx, cancel := context.WithTimeout(ctx, d.Timeout)
		defer cancel()
		return struct{}{}, d.pub.Publish(pctx, task)
	}, backoff.WithBackOff(d.BackOff()), backoff.WithMaxTries(d.MaxTries))
	if err != nil {
		slog.Error("[DISPATCH] giving up on task", "kind", task.Kind, "user_id", task.UserID, "err", err)
		return
	}
	slog.Debug("[DISPATCH] task published", "kind", task.Kind, "user_id", task.UserID)
}
