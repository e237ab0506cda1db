package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"crashgraph/internal/crash"
	"crashgraph/internal/logging"
	"crashgraph/internal/transform"
	"crashgraph/sink"
)

// newProducer is swapped for a mock in tests.
var newProducer = func(brokers []string, sc *sarama.Config) (sarama.SyncProducer, error) {
	return sarama.NewSyncProducer(brokers, sc)
}

type driver struct {
	cfg Config
	p   sarama.SyncProducer
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka-sink: at least one broker is required")
	}
	applyDefaults(&cfg)
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return err
		}
		sc.Version = ver
	}
	var err error
	d.p, err = newProducer(cfg.Brokers, sc)
	return err
}

// Push publishes one message per row. The key is the row's first column
// (the entity key, or the source key of a relationship).
func (d *driver) Push(ctx context.Context, t *transform.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}
	topic := d.cfg.TopicPrefix + t.Name
	headers := []sarama.RecordHeader{
		{Key: []byte("table"), Value: []byte(t.Name)},
		{Key: []byte("kind"), Value: []byte(t.Kind.String())},
		{Key: []byte("label"), Value: []byte(t.Label)},
	}

	msgs := make([]*sarama.ProducerMessage, 0, t.Len())
	for i, row := range t.Rows {
		val, err := json.Marshal(t.Record(i))
		if err != nil {
			return err
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:   topic,
			Key:     sarama.StringEncoder(row[0]),
			Value:   sarama.ByteEncoder(val),
			Headers: headers,
		})
	}
	if err := d.p.SendMessages(msgs); err != nil {
		return &crash.OutputWriteError{Target: "kafka topic " + topic, Err: err}
	}
	logging.L().Info("published table", "table", t.Name, "topic", topic, "messages", len(msgs))
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	err := d.p.Close()
	d.p = nil
	return err
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
