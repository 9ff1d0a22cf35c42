package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("broker unavailable")

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes keyed messages to one topic behind a circuit breaker.
type Producer struct {
	writer  messageWriter
	topic   string
	cb      *gobreaker.CircuitBreaker
	logger  logger.ZapLogger
	metrics *metrics.Metrics
}

func NewProducer(cfg *Config, log logger.ZapLogger, m *metrics.Metrics) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newProducer(writer, cfg.Topic, log, m)
}

func newProducer(writer messageWriter, topic string, log logger.ZapLogger, m *metrics.Metrics) *Producer {
	p := &Producer{writer: writer, topic: topic, logger: log, metrics: m}
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-" + topic,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests >= 10 {
				return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			m.SetCircuitBreakerState(name, int(to))
		},
	})
	return p
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(key),
			Value: value,
			Time:  time.Now().UTC(),
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: circuit breaker open for %s", ErrUnavailable, p.topic)
	}
	p.metrics.RecordEventPublished(p.topic, err)
	return err
}

func (p *Producer) State() gobreaker.State {
	return p.cb.State()
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
