package events

import (
	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// AsyncProducer is a Publisher implementation for Kafka queues.
type AsyncProducer struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger
}

// Opt sets an option on an AsyncProducer.
type Opt func(*AsyncProducer)

// WithLogger sets a custom logger on an AsyncProducer.
func WithLogger(logger *zap.Logger) Opt {
	return func(ap *AsyncProducer) {
		ap.logger = logger
	}
}

// NewAsyncProducer constructs an AsyncProducer publishing to the given topic.
func NewAsyncProducer(brokerList []string, topic string, opts ...Opt) (*AsyncProducer, error) {
	producer, err := sarama.NewAsyncProducer(brokerList, nil)
	if err != nil {
		return nil, err
	}
	ap := AsyncProducer{producer: producer, topic: topic, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&ap)
	}
	ap.start()
	return &ap, nil
}

// Publish implements the Publisher interface. Delivery is fire and forget;
// failures surface on the error channel drained by start.
func (ap *AsyncProducer) Publish(e Event) {
	ap.producer.Input() <- &sarama.ProducerMessage{
		Topic: ap.topic,
		Value: sarama.ByteEncoder(e.Yield()),
	}
}

// Close shuts the producer down, flushing buffered messages.
func (ap *AsyncProducer) Close() error {
	return ap.producer.Close()
}

func (ap *AsyncProducer) start() {
	go func() {
		for err := range ap.producer.Errors() {
			ap.logger.Error("kafka publish error", zap.Error(err))
		}
	}()
}
