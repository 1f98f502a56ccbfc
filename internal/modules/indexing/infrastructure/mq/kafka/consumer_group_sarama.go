package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"SurfSense/internal/modules/indexing/infrastructure/mq"

	"github.com/IBM/sarama"
)

const retryBackoff = 2 * time.Second

type saramaConsumer struct {
	cg     sarama.ConsumerGroup
	topics []string
}

func NewConsumer(cfg Config, groupID string, topics ...string) (mq.Consumer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, errors.New("kafka consumer group id is empty")
	}
	if len(topics) == 0 {
		return nil, errors.New("kafka topics is empty")
	}
	cg, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, cfg.consumer())
	if err != nil {
		return nil, err
	}
	return &saramaConsumer{cg: cg, topics: topics}, nil
}

// Run 阻塞消费直到 ctx 取消；rebalance 后重新加入消费组
func (c *saramaConsumer) Run(ctx context.Context, handler mq.Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	h := &consumerGroupHandler{h: handler}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.cg.Consume(ctx, c.topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
	}
}

func (c *saramaConsumer) Close() error {
	if c == nil || c.cg == nil {
		return nil
	}
	return c.cg.Close()
}

type consumerGroupHandler struct {
	h mq.Handler
}

func (consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim 处理失败即结束本次 session，重新加入后从已提交 offset 重新投递
func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for m := range claim.Messages() {
		if err := h.h.Handle(sess.Context(), fromConsumerMessage(m)); err != nil {
			select {
			case <-sess.Context().Done():
			case <-time.After(retryBackoff):
			}
			return err
		}
		sess.MarkMessage(m, "")
	}
	return nil
}

func fromConsumerMessage(m *sarama.ConsumerMessage) mq.Message {
	msg := mq.Message{Topic: m.Topic, Key: m.Key, Value: m.Value}
	for _, hdr := range m.Headers {
		if hdr == nil || len(hdr.Key) == 0 {
			continue
		}
		if msg.Headers == nil {
			msg.Headers = make(map[string]string, len(m.Headers))
		}
		msg.Headers[string(hdr.Key)] = string(hdr.Value)
	}
	return msg
}
