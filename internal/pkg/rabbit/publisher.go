package rabbit

import (
	"encoding/json"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/messages"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// Publisher publishes events to a fanout exchange
type Publisher struct {
	ChannelProvider *ChannelProvider
}

// NewPublisher initializes rabbit publisher
func NewPublisher(provider *ChannelProvider) *Publisher {
	return &Publisher{ChannelProvider: provider}
}

// Publish publishes the message to the exchange
func (sender *Publisher) Publish(message *messages.QueueMessage, exchange string) error {
	cmdapp.Log.Debugf("Publishing event %s(%s)", exchange, message.ID)

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "Can't marshal message")
	}
	err = sender.ChannelProvider.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		return ch.Publish(
			sender.ChannelProvider.QueueName(exchange),
			"",
			false, // mandatory
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msgBytes,
			})
	})
	if err != nil {
		return errors.Wrap(err, "Can't publish event")
	}
	return nil
}
