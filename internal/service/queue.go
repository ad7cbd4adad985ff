package service

import (
	"context"
	"log/slog"
	"sync"

	"trade_go/internal/domain"
)

// Queue decouples notification producers from delivery. Execution loops
// call Notify from hot paths; delivery to the sinks happens on a worker
// goroutine and a full queue drops rather than blocks.
type Queue struct {
	logger *slog.Logger
	sinks  []domain.Notifier
	ch     chan string

	startOnce sync.Once
	wg        sync.WaitGroup
}

var _ domain.Notifier = (*Queue)(nil)

func NewQueue(logger *slog.Logger, sinks ...domain.Notifier) *Queue {
	return &Queue{
		logger: logger,
		sinks:  sinks,
		ch:     make(chan string, 256),
	}
}

// Notify enqueues one message. Never blocks; an overflowing queue drops
// the message with a log line.
func (q *Queue) Notify(text string) {
	select {
	case q.ch <- text:
	default:
		q.logger.Warn("notification queue full, message dropped", "text", text)
	}
}

// Start launches the delivery worker. It drains until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case text := <-q.ch:
					q.deliver(text)
				}
			}
		}()
	})
}

func (q *Queue) deliver(text string) {
	q.logger.Info("notify", "text", text)
	for _, sink := range q.sinks {
		sink.Notify(text)
	}
}

// Wait blocks until the worker exits after cancellation.
func (q *Queue) Wait() {
	q.wg.Wait()
}
