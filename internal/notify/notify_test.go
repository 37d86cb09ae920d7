package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKafkaPublisherSendsEnvelope(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	orderID := uuid.New()
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "eventhub.order.confirmed" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != orderID.String() {
			return errors.New("unexpected key")
		}

		raw, _ := msg.Value.Encode()
		var env struct {
			Type    string     `json:"type"`
			Payload OrderEvent `json:"payload"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		if env.Type != TopicOrderConfirmed || env.Payload.OrderID != orderID {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "eventhub", discardLogger())
	err := p.Publish(context.Background(), TopicOrderConfirmed, orderID.String(), OrderEvent{OrderID: orderID, EventID: 1})
	require.NoError(t, err)
}

func TestKafkaPublisherReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "", discardLogger())
	err := p.Publish(context.Background(), TopicTicketCheckedIn, "k", CheckInEvent{})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(discardLogger())
	assert.NoError(t, p.Publish(context.Background(), TopicOrderCancelled, "k", OrderEvent{}))
	assert.NoError(t, p.Close())
}
