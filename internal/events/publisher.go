package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/carebook/carebook/internal/config"
	"github.com/carebook/carebook/pkg/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher writes appointment events to Kafka from a single background
// worker. Publish enqueues without blocking; when the buffer is full the
// event is dropped and a warning is emitted.
type KafkaPublisher struct {
	writer  *kafka.Writer
	log     *zap.Logger
	metrics *metrics.Collector
	entries chan AppointmentEvent
	done    chan struct{}

	// mu orders Publish against Shutdown: a handler still in flight after the
	// HTTP drain times out must not send on a closed channel.
	mu     sync.Mutex
	closed bool
}

func NewKafkaPublisher(cfg config.EventsConfig, log *zap.Logger, m *metrics.Collector) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		}),
		log:     log,
		metrics: m,
		entries: make(chan AppointmentEvent, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	go p.worker()
	return p
}

// Publish enqueues an event for async delivery. After Shutdown it drops the
// event instead of sending.
func (p *KafkaPublisher) Publish(evt AppointmentEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.metrics.EventsDropped.Inc()
		p.log.Warn("publisher shut down, dropping event",
			zap.String("event_type", evt.EventType),
			zap.String("appointment_id", evt.AppointmentID.String()),
		)
		return
	}

	select {
	case p.entries <- evt:
		p.metrics.EventsPublished.Inc()
	default:
		p.metrics.EventsDropped.Inc()
		p.log.Warn("event buffer full, dropping event",
			zap.String("event_type", evt.EventType),
			zap.String("appointment_id", evt.AppointmentID.String()),
		)
	}
}

// Shutdown stops intake, drains queued events, and closes the writer. Safe to
// call more than once.
func (p *KafkaPublisher) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.entries)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(10 * time.Second):
		p.log.Warn("event publisher shutdown timed out; some events may be lost")
	}
	_ = p.writer.Close()
}

func (p *KafkaPublisher) worker() {
	defer close(p.done)
	for evt := range p.entries {
		payload, err := json.Marshal(evt)
		if err != nil {
			p.log.Error("failed to marshal event", zap.Error(err))
			continue
		}

		msg := kafka.Message{
			// Key by appointment so a consumer sees one appointment's
			// lifecycle in order.
			Key:   []byte(evt.AppointmentID.String()),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(evt.EventID.String())},
				{Key: "event_type", Value: []byte(evt.EventType)},
			},
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.log.Error("failed to publish event",
				zap.Error(err),
				zap.String("event_type", evt.EventType),
			)
		}
		cancel()
	}
}
