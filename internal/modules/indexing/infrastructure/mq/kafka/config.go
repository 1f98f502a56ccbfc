package kafka

import (
	"errors"
	"strings"
	"time"

	"SurfSense/internal/config"

	"github.com/IBM/sarama"
)

// Config 连接参数，来自 kafkaConfig
type Config struct {
	Brokers  []string
	ClientID string
}

func FromConfig(kc config.KafkaConfig) Config {
	brokers := make([]string, 0, len(kc.Brokers))
	for _, b := range kc.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return Config{Brokers: brokers, ClientID: strings.TrimSpace(kc.ClientID)}
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka brokers is empty")
	}
	return nil
}

func (c Config) base() *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	if c.ClientID != "" {
		sc.ClientID = c.ClientID
	}
	return sc
}

func (c Config) producer() *sarama.Config {
	sc := c.base()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 10
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	// 同一 key 落到同一分区，保证单个连接器的批次顺序
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

func (c Config) consumer() *sarama.Config {
	sc := c.base()
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Group.Rebalance.Timeout = 30 * time.Second
	sc.Consumer.Group.Session.Timeout = 30 * time.Second
	sc.Consumer.Return.Errors = false
	return sc
}
