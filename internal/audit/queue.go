package audit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

const defaultQueueBuffer = 256

// QueueRecorder hands events to a background goroutine that publishes them
// for the audit worker. Record never waits on the broker; when the buffer
// is full the event is logged and dropped.
type QueueRecorder struct {
	Pub     Publisher
	Logger  *logrus.Logger
	Timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}
}

func NewQueueRecorder(pub Publisher, logger *logrus.Logger) *QueueRecorder {
	return newQueueRecorder(pub, logger, defaultQueueBuffer)
}

func newQueueRecorder(pub Publisher, logger *logrus.Logger, buffer int) *QueueRecorder {
	r := &QueueRecorder{
		Pub:     pub,
		Logger:  logger,
		Timeout: 2 * time.Second,
		events:  make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *QueueRecorder) Record(ctx context.Context, e Event) {
	if r == nil || r.Pub == nil {
		return
	}
	e = stamp(ctx, e)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- e:
	default:
		if r.Logger != nil {
			r.Logger.WithField("audit", string(e.Action)).Warn("audit queue full, dropping event")
		}
	}
}

// Close stops accepting events and waits until the buffered ones have been
// published or have failed.
func (r *QueueRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()
	<-r.done
}

func (r *QueueRecorder) drain() {
	defer close(r.done)
	for e := range r.events {
		c, cancel := context.WithTimeout(context.Background(), r.Timeout)
		err := r.Pub.PublishJSON(c, e)
		cancel()
		if err != nil && r.Logger != nil {
			r.Logger.WithError(err).WithField("audit", string(e.Action)).Warn("publish audit event failed")
		}
	}
}
