// Package kafkaconsumer applies dataset reload events from a Kafka topic.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/bkk-condo-map/internal/core/observability"
	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
	"github.com/mohammed-shakir/bkk-condo-map/internal/invalidation"
	mylog "github.com/mohammed-shakir/bkk-condo-map/internal/logger"
)

// Reloader refetches one dataset, bypassing any shared cache.
type Reloader interface {
	Reload(ctx context.Context, kind geo.Kind) (*dataset.Snapshot, error)
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	rl     Reloader
	ledger *reloadLedger
}

func New(cfg Config, logger *slog.Logger, rl Reloader) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger.With("component", "kafka_consumer"),
		rl:     rl,
		ledger: newReloadLedger(),
	}
}

// Start consumes reload events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.rl == nil {
		return errors.New("kafkaconsumer: missing reloader")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &claimHandler{c: c}
	backoff := c.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	c.logger.Info("dataset reload consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("dataset reload consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil && ctx.Err() == nil {
				c.logger.Error("consumer error", "err", err, "topic", c.cfg.Topic)
				select {
				case <-ctx.Done():
				case <-time.After(backoff):
				}
			}
		}
	}
}

type outcome string

const (
	outcomeReloaded  outcome = "reloaded"
	outcomeDuplicate outcome = "duplicate"
	outcomeRejected  outcome = "rejected"
)

// ProcessOne applies one message. Undecodable or invalid events are logged and skipped
// so they do not block the partition; a failed reload is returned and retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	_, err := c.apply(ctx, msg)
	return err
}

func (c *Consumer) apply(ctx context.Context, msg *sarama.ConsumerMessage) (outcome, error) {
	log := c.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.ObserveReload("unknown", err)
		log.Error("reload event decode failed", "err", err)
		return outcomeRejected, nil
	}
	if err := ev.Validate(); err != nil {
		observability.ObserveReload("unknown", err)
		log.Error("reload event rejected", "err", err, "dataset", ev.Dataset)
		return outcomeRejected, nil
	}

	kind := ev.Kind()
	if !c.ledger.isNewer(kind, ev.TS) {
		log.Debug("stale reload event skipped", "dataset", kind.String(), "ts", ev.TS)
		return outcomeDuplicate, nil
	}

	ctx = mylog.WithDataset(mylog.WithComponent(ctx, "kafka_consumer"), kind.String())
	log = log.With(mylog.Attrs(ctx)...)
	start := time.Now()
	snap, err := c.rl.Reload(ctx, kind)
	observability.ObserveReload(kind.String(), err)
	if err != nil {
		log.Error("dataset reload failed", "err", err, "source", ev.Source)
		return "", fmt.Errorf("reload %s: %w", kind, err)
	}
	c.ledger.record(kind, ev.TS)

	log.Info("dataset reloaded",
		"version", snap.Version, "features", snap.Len(), "source", ev.Source, "took", time.Since(start))
	return outcomeReloaded, nil
}
