package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

// Publish sends ev keyed by dataset so events for one dataset stay ordered.
func Publish(p sarama.SyncProducer, topic string, ev ReloadEvent) (partition int32, offset int64, err error) {
	if err := ev.Validate(); err != nil {
		return 0, 0, fmt.Errorf("validate: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return 0, 0, fmt.Errorf("encode: %w", err)
	}
	partition, offset, err = p.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(ev.Dataset),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("send message: %w", err)
	}
	return partition, offset, nil
}
