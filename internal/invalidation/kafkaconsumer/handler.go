package kafkaconsumer

import (
	"fmt"

	"github.com/IBM/sarama"
)

// claimHandler applies one partition's reload events in offset order. A message is
// marked only once it was applied or deliberately skipped.
type claimHandler struct {
	c *Consumer
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	counts := make(map[outcome]int)
	defer func() {
		h.c.logger.Debug("reload claim released",
			"topic", claim.Topic(), "partition", claim.Partition(),
			"reloaded", counts[outcomeReloaded], "duplicate", counts[outcomeDuplicate], "rejected", counts[outcomeRejected])
	}()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("claim context done: %w", ctx.Err())
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			res, err := h.c.apply(ctx, msg)
			if err != nil {
				return fmt.Errorf("reload event at %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
			}
			counts[res]++
			sess.MarkMessage(msg, "")
		}
	}
}
