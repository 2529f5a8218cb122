package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Sink stores decoded events. *Store satisfies it.
type Sink interface {
	Insert(ctx context.Context, e Event) error
}

// ErrMalformed marks a delivery that can never be stored.
type ErrMalformed struct{ Err error }

func (e ErrMalformed) Error() string { return fmt.Sprintf("malformed audit event: %v", e.Err) }
func (e ErrMalformed) Unwrap() error { return e.Err }

// Worker drains the audit queue into a Sink.
type Worker struct {
	Sink    Sink
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewWorker(sink Sink, logger *logrus.Logger) *Worker {
	return &Worker{Sink: sink, Logger: logger, Timeout: 10 * time.Second}
}

// Handle decodes and stores one message body.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return ErrMalformed{Err: err}
	}
	if e.Action == "" {
		return ErrMalformed{Err: fmt.Errorf("missing action")}
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	c, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	return w.Sink.Insert(c, e)
}

// Run acks stored messages, drops malformed ones and requeues the rest.
// It returns when msgs is closed or ctx is done.
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			err := w.Handle(ctx, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case isMalformed(err):
				w.Logger.WithError(err).Warn("dropping audit message")
				_ = msg.Nack(false, false)
			default:
				w.Logger.WithError(err).Error("store audit event failed")
				_ = msg.Nack(false, true)
			}
		}
	}
}

func isMalformed(err error) bool {
	_, ok := err.(ErrMalformed)
	return ok
}
