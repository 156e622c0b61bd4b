// Package events publishes stored-feedback notifications for the
// summarization pipeline.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// FeedbackSubmitted is emitted after a record is stored. Consumers compute
// a summary and write it back through the summary endpoint.
type FeedbackSubmitted struct {
	ID               int64     `json:"id"`
	BoothID          string    `json:"booth_id"`
	VisitorAttribute string    `json:"visitor_attribute"`
	PraiseRatio      int       `json:"praise_ratio"`
	AdviceRatio      int       `json:"advice_ratio"`
	RawText          string    `json:"raw_text"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// Publisher writes events to Kafka, or only logs them when Kafka is disabled.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	logger  *zap.Logger

	published *prometheus.CounterVec
	latency   prometheus.Histogram
}

// New creates a publisher. A nil config, Enabled=false or no brokers selects
// log-only mode.
func New(cfg *Config, logger *zap.Logger, reg prometheus.Registerer) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("events")

	factory := promauto.With(reg)
	p := &Publisher{
		logger: logger,
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booth_feedback",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Feedback events handled by the publisher, by outcome.",
		}, []string{"outcome"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booth_feedback",
			Subsystem: "events",
			Name:      "publish_duration_seconds",
			Help:      "Time spent writing an event to Kafka.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if cfg == nil {
		logger.Info("kafka disabled (nil config), using log-only mode")
		return p
	}
	p.topic = cfg.Topic

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info("kafka disabled, using log-only mode", zap.String("topic", cfg.Topic))
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}
	p.enabled = true

	logger.Info("kafka publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic))
	return p
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishSubmitted writes ev keyed by booth id so a booth's events stay
// ordered within one partition.
func (p *Publisher) PublishSubmitted(ctx context.Context, ev FeedbackSubmitted) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.published.WithLabelValues("error").Inc()
		return err
	}

	p.logger.Debug("publishing event",
		zap.String("topic", p.topic),
		zap.String("key", ev.BoothID),
		zap.ByteString("payload", payload))

	if !p.enabled || p.writer == nil {
		p.published.WithLabelValues("logged").Inc()
		return nil
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.BoothID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("feedback.submitted")},
			{Key: "feedbackId", Value: []byte(strconv.FormatInt(ev.ID, 10))},
		},
	})
	p.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		p.logger.Error("failed to write to kafka",
			zap.String("topic", p.topic),
			zap.Int64("id", ev.ID),
			zap.Error(err))
		p.published.WithLabelValues("error").Inc()
		return err
	}

	p.published.WithLabelValues("published").Inc()
	return nil
}

// Close flushes and closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
