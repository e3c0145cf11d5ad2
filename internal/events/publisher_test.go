package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewPublisher_NoBrokersIsNoop(t *testing.T) {
	p := NewPublisher(common.EventsConfig{Topic: "folio.snapshots"}, common.NewSilentLogger())
	_, ok := p.(NoopPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.PublishSnapshot(context.Background(), "u1", "Main", &models.PortfolioSnapshot{}))
	assert.NoError(t, p.Close())
}

func TestNewPublisher_WithBrokers(t *testing.T) {
	p := NewPublisher(common.EventsConfig{Brokers: []string{"localhost:9092"}, Topic: "folio.snapshots"}, common.NewSilentLogger())
	kp, ok := p.(*KafkaPublisher)
	require.True(t, ok)
	assert.Equal(t, "folio.snapshots", kp.topic)
	assert.Equal(t, 2*time.Second, kp.timeout)

	w, ok := kp.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, 1, w.MaxAttempts)
	assert.Equal(t, 2*time.Second, w.WriteTimeout)

	cfg := common.NewDefaultConfig().Events
	cfg.Brokers = []string{"localhost:9092"}
	cfg.PublishTimeout = "500ms"
	kp = NewPublisher(cfg, common.NewSilentLogger()).(*KafkaPublisher)
	assert.Equal(t, 500*time.Millisecond, kp.timeout)
	assert.Equal(t, 2, kp.writer.(*kafka.Writer).MaxAttempts)
}

func TestPublishSnapshot(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "folio.snapshots", common.NewSilentLogger())
	p.now = func() time.Time { return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC) }

	snap := &models.PortfolioSnapshot{
		Currency:       "SGD",
		TotalValue:     1350,
		HealthScore:    72,
		IsCriticalRisk: false,
		HealthCriteria: []models.Criterion{{Name: "Portfolio Beta", Points: 15, MaxPoints: 15, Status: models.StatusPass}},
		Positions:      []models.Position{{Ticker: "AAPL"}, {Ticker: "KO"}},
	}

	require.NoError(t, p.PublishSnapshot(context.Background(), "u1", "Main", snap))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "u1/Main", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventSnapshotComputed, string(msg.Headers[0].Value))

	var event SnapshotEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventSnapshotComputed, event.Type)
	assert.Equal(t, "Main", event.Portfolio)
	assert.Equal(t, "SGD", event.Currency)
	assert.Equal(t, 72, event.HealthScore)
	assert.Equal(t, 2, event.Positions)
	assert.Len(t, event.HealthCriteria, 1)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishSnapshot_Errors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newKafkaPublisher(w, "t", common.NewSilentLogger())

	err := p.PublishSnapshot(context.Background(), "u1", "Main", &models.PortfolioSnapshot{})
	assert.ErrorContains(t, err, "leader not available")

	assert.NoError(t, p.PublishSnapshot(context.Background(), "u1", "Main", nil))
}

// blockingWriter waits for its context like a writer stuck on an
// unreachable broker.
type blockingWriter struct {
	fakeWriter
}

func (w *blockingWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestPublishSnapshot_BoundedByTimeout(t *testing.T) {
	p := newKafkaPublisher(&blockingWriter{}, "t", common.NewSilentLogger())
	p.timeout = 20 * time.Millisecond

	start := time.Now()
	err := p.PublishSnapshot(context.Background(), "u1", "Main", &models.PortfolioSnapshot{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPublishSnapshot_OutlivesCallerCancel(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "t", common.NewSilentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.PublishSnapshot(ctx, "u1", "Main", &models.PortfolioSnapshot{}))
	assert.Len(t, w.messages, 1)
}
