package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
)

const (
	kafkaQueueSize    = 64
	kafkaWriteTimeout = 5 * time.Second
)

var (
	ErrQueueFull       = errors.New("alert publish queue full")
	ErrPublisherClosed = errors.New("alert publisher closed")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes alerts to a Kafka topic, keyed by subject.
// Messages are queued and written by a single background goroutine.
type KafkaPublisher struct {
	writer  messageWriter
	logger  *logs.Logger
	metrics *metrics.Registry

	queue     chan kafka.Message
	pending   sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *logs.Logger, reg *metrics.Registry) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, logger, reg), nil
}

func newKafkaPublisher(w messageWriter, logger *logs.Logger, reg *metrics.Registry) *KafkaPublisher {
	p := &KafkaPublisher{
		writer:  w,
		logger:  logger,
		metrics: reg,
		queue:   make(chan kafka.Message, kafkaQueueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues the alert for writing.
func (p *KafkaPublisher) Publish(_ context.Context, alert Alert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(alert.SubjectID),
		Value: value,
		Time:  alert.Timestamp,
		Headers: []kafka.Header{
			{Key: "alert_id", Value: []byte(alert.ID)},
			{Key: "severity", Value: []byte(alert.Severity)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	p.pending.Add(1)
	select {
	case p.queue <- msg:
		return nil
	default:
		p.pending.Done()
		return ErrQueueFull
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
		err := p.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.metrics.Inc(metrics.AlertPublishFailuresTotal)
			p.logger.Error("failed to write alert to kafka",
				zap.ByteString("key", msg.Key),
				zap.Error(err),
			)
		} else {
			p.logger.Debug("alert written to kafka", zap.ByteString("key", msg.Key))
		}
		p.pending.Done()
	}
}

// Flush waits until every queued alert has been written or has failed.
func (p *KafkaPublisher) Flush() {
	p.pending.Wait()
}

// Close drains queued alerts and closes the writer.
func (p *KafkaPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		<-p.done
		err = p.writer.Close()
	})
	return err
}
