package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 30 * time.Second
)

// Dispatcher drains a bounded queue of messages onto a Sender from a single
// background worker. Enqueue never blocks the caller; when the queue is full
// the message is dropped and logged. Confirmation mail can always be
// re-requested, so dropping beats stalling signups.
type Dispatcher struct {
	sender Sender
	queue  chan Message

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		queue:  make(chan Message, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Stop closes the queue and waits for the worker to drain what remains.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
		<-d.done
	})
}

// Enqueue hands a message to the background worker. It returns immediately;
// a full queue drops the message with a warning.
func (d *Dispatcher) Enqueue(msg Message) {
	select {
	case d.queue <- msg:
	default:
		slog.Warn("mail queue full, dropping message",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
		)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
		if err := d.sender.Send(ctx, msg); err != nil {
			slog.Error("mail delivery failed",
				slog.String("to", msg.To),
				slog.String("subject", msg.Subject),
				slog.Any("error", err),
			)
		}
		cancel()
	}
}
