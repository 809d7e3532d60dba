package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transport delivers one record. Implementations must be safe for
// concurrent use by every worker.
type Transport interface {
	Send(ctx context.Context, rec Record) error
}

// Options tunes a Publisher. Zero values fall back to the defaults below.
type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultSendTimeout = 5 * time.Second
)

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.QueueSize < 0 {
		o.QueueSize = 0
	}
	if o.QueueSize == 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = defaultSendTimeout
	}
	return o
}

type job struct {
	topic    string
	envelope Envelope
}

// Publisher hands envelopes to a Transport on a fixed pool of workers.
// Delivery is at most once: failures are logged and dropped.
type Publisher struct {
	transport Transport
	logger    *zap.SugaredLogger
	opts      Options

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

func NewPublisher(t Transport, logger *zap.SugaredLogger, opts Options) *Publisher {
	opts = opts.normalized()
	p := &Publisher{
		transport: t,
		logger:    logger,
		opts:      opts,
		queue:     make(chan job, opts.QueueSize),
	}
	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.worker()
	}
	return p
}

// Publish queues e for delivery to topic and returns without waiting. When
// the queue is full or the publisher is closed the envelope is dropped.
func (p *Publisher) Publish(topic string, e Envelope) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logDrop("publisher closed", topic, e)
		return
	}
	select {
	case p.queue <- job{topic: topic, envelope: e}:
	default:
		p.logDrop("publish queue full", topic, e)
	}
}

// Close stops accepting envelopes and waits for queued ones to be sent or
// for ctx to end, whichever comes first.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		p.deliver(j)
	}
}

func (p *Publisher) deliver(j job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorw("event publish panicked",
				"topic", j.topic,
				"event_type", string(j.envelope.Kind),
				"subject_id", j.envelope.SubjectID,
				"event_id", j.envelope.ID,
				"panic", r,
			)
		}
	}()

	rec, err := encode(j.topic, j.envelope)
	if err != nil {
		p.logFailure("event serialization failed", j, err)
		return
	}

	// detached from any request: a client hanging up must not cancel delivery
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.SendTimeout)
	defer cancel()
	if err := p.transport.Send(ctx, rec); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.logFailure("event delivery timed out", j, err)
			return
		}
		p.logFailure("event delivery failed", j, err)
		return
	}
	p.logger.Debugw("event published",
		"topic", j.topic,
		"event_type", string(j.envelope.Kind),
		"subject_id", j.envelope.SubjectID,
		"event_id", j.envelope.ID,
	)
}

func (p *Publisher) logFailure(msg string, j job, err error) {
	p.logger.Errorw(msg,
		"topic", j.topic,
		"event_type", string(j.envelope.Kind),
		"subject_id", j.envelope.SubjectID,
		"event_id", j.envelope.ID,
		"err", err,
	)
}

func (p *Publisher) logDrop(reason, topic string, e Envelope) {
	p.logger.Errorw("event dropped",
		"reason", reason,
		"topic", topic,
		"event_type", string(e.Kind),
		"subject_id", e.SubjectID,
		"event_id", e.ID,
	)
}
