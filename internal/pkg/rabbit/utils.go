package rabbit

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/streadway/amqp"
)

// DeclareQueue declares a durable queue
func DeclareQueue(ch *amqp.Channel, qName string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		qName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

// DeclareExchange declares a fanout exchange
func DeclareExchange(ch *amqp.Channel, exName string) error {
	return ch.ExchangeDeclare(
		exName,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
}

// NewChannel declares an exclusive queue bound to a fanout exchange
// and returns its name
func NewChannel(ch *amqp.Channel, exName string) (string, error) {
	q, err := ch.QueueDeclare(
		"",    // name - generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", err
	}
	return q.Name, ch.QueueBind(q.Name, "", exName, false, nil)
}

// InitWithRetry runs broker initialization with exponential backoff.
// The broker may still be starting up when a service boots
func InitWithRetry(prv *ChannelProvider, f runOnChannelFunc) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Minute
	op := func() error {
		err := prv.RunOnChannelWithRetry(f)
		if err != nil {
			cmdapp.Log.Warn("Can't init rabbit, retrying: ", err)
		}
		return err
	}
	return backoff.Retry(op, bo)
}
