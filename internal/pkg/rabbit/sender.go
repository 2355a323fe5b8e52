package rabbit

import (
	"encoding/json"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/messages"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// Sender sends messages using the rabbit mq broker
type Sender struct {
	ChannelProvider *ChannelProvider
}

// NewSender initializes rabbit sender
func NewSender(provider *ChannelProvider) *Sender {
	return &Sender{ChannelProvider: provider}
}

// Send sends the message to a queue
func (sender *Sender) Send(message *messages.QueueMessage, queue string, replyQueue string) error {
	cmdapp.Log.Infof("Sending message %s(%s)", queue, message.ID)

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "Can't marshal message")
	}
	return sender.ChannelProvider.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		return ch.Publish(
			"", // exchange
			sender.ChannelProvider.QueueName(queue),
			false, // mandatory
			false,
			amqp.Publishing{
				DeliveryMode: amqp.Persistent,
				ContentType:  "application/json",
				Body:         msgBytes,
				ReplyTo:      sender.ChannelProvider.QueueName(replyQueue),
			})
	})
}
