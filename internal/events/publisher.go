// Package events publishes computed portfolio snapshots to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// EventSnapshotComputed is the type carried by every snapshot event.
const EventSnapshotComputed = "portfolio.snapshot.computed"

const defaultPublishTimeout = 2 * time.Second

// SnapshotEvent is the JSON message value. Positions are omitted; consumers
// that need them re-read the portfolio.
type SnapshotEvent struct {
	Type             string             `json:"type"`
	UserID           string             `json:"user_id"`
	Portfolio        string             `json:"portfolio"`
	Timestamp        time.Time          `json:"timestamp"`
	Currency         string             `json:"currency,omitempty"`
	TotalValue       float64            `json:"total_value"`
	TotalCost        float64            `json:"total_cost"`
	TotalPerformance float64            `json:"total_performance"`
	IsTotalTWR       bool               `json:"is_total_twr"`
	HHI              float64            `json:"hhi"`
	WeightedBeta     float64            `json:"weighted_beta"`
	HealthScore      int                `json:"health_score"`
	IsCriticalRisk   bool               `json:"is_critical_risk"`
	HealthCriteria   []models.Criterion `json:"health_criteria"`
	Positions        int                `json:"positions"`
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements interfaces.SnapshotPublisher.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *common.Logger
	now     func() time.Time
}

// NewPublisher returns a Kafka publisher, or a no-op publisher when no
// brokers are configured.
func NewPublisher(config common.EventsConfig, logger *common.Logger) interfaces.SnapshotPublisher {
	if len(config.Brokers) == 0 {
		logger.Debug().Msg("No event brokers configured, snapshot events disabled")
		return NoopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            config.GetMaxAttempts(),
		WriteBackoffMin:        50 * time.Millisecond,
		WriteBackoffMax:        500 * time.Millisecond,
		WriteTimeout:           config.GetPublishTimeout(),
	}

	logger.Info().Strs("brokers", config.Brokers).Str("topic", config.Topic).Msg("Snapshot event publisher created")
	p := newKafkaPublisher(writer, config.Topic, logger)
	p.timeout = config.GetPublishTimeout()
	return p
}

func newKafkaPublisher(w messageWriter, topic string, logger *common.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, timeout: defaultPublishTimeout, logger: logger, now: time.Now}
}

// PublishSnapshot writes one event keyed by user and portfolio so a
// portfolio's events stay ordered on a single partition. The write outlives
// cancellation of ctx but never runs longer than the publish timeout.
func (p *KafkaPublisher) PublishSnapshot(ctx context.Context, userID, portfolio string, snapshot *models.PortfolioSnapshot) error {
	if snapshot == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	event := SnapshotEvent{
		Type:             EventSnapshotComputed,
		UserID:           userID,
		Portfolio:        portfolio,
		Timestamp:        p.now().UTC(),
		Currency:         snapshot.Currency,
		TotalValue:       snapshot.TotalValue,
		TotalCost:        snapshot.TotalCost,
		TotalPerformance: snapshot.TotalPerformance,
		IsTotalTWR:       snapshot.IsTotalTWR,
		HHI:              snapshot.HHI,
		WeightedBeta:     snapshot.WeightedBeta,
		HealthScore:      snapshot.HealthScore,
		IsCriticalRisk:   snapshot.IsCriticalRisk,
		HealthCriteria:   snapshot.HealthCriteria,
		Positions:        len(snapshot.Positions),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(MessageKey(userID, portfolio)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(EventSnapshotComputed)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish snapshot event: %w", err)
	}

	p.logger.Debug().Str("topic", p.topic).Str("user_id", userID).Str("portfolio", portfolio).Msg("Snapshot event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// MessageKey is the partition key for a user's portfolio.
func MessageKey(userID, portfolio string) string {
	return userID + "/" + portfolio
}

// NoopPublisher discards every snapshot.
type NoopPublisher struct{}

func (NoopPublisher) PublishSnapshot(context.Context, string, string, *models.PortfolioSnapshot) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

var (
	_ interfaces.SnapshotPublisher = (*KafkaPublisher)(nil)
	_ interfaces.SnapshotPublisher = NoopPublisher{}
)
