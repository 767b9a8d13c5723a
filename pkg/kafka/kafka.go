// Package kafka mirrors stored call log entries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"greenscore/pkg/models"
)

type Config struct {
	Addr  string `toml:"addr"`
	Topic string `toml:"topic"`
	Batch int    `toml:"batch"`
}

func (c Config) Enabled() bool {
	return c.Addr != "" && c.Topic != ""
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	w messageWriter
}

func NewPublisher(conf Config) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(conf.Addr),
		Topic:                  conf.Topic,
		BatchSize:              conf.Batch,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes entry as JSON, keyed by its id so that one entry always lands on the same partition.
func (p *Publisher) Publish(ctx context.Context, entry models.LogEntry) error {
	msg, err := message(entry)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

func message(entry models.LogEntry) (kafka.Message, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(entry.ID, 10)),
		Value: b,
	}, nil
}

// CreateTopic creates a single-partition topic on broker.
func CreateTopic(ctx context.Context, broker, topic string) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
