package rabbit

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// ChannelProvider provides an amqp channel
type ChannelProvider struct {
	url     string
	qPrefix string
	conn    *amqp.Connection
	ch      *amqp.Channel
	m       sync.Mutex // struct field mutex
}

type runOnChannelFunc func(*amqp.Channel) error

// NewChannelProvider initializes channel provider.
// user and pass may be empty for an unauthenticated broker
func NewChannelProvider(url, user, pass, qPrefix string) (*ChannelProvider, error) {
	if url == "" {
		return nil, errors.New("No broker url provided")
	}
	if user != "" && pass == "" {
		return nil, errors.New("No broker pass provided")
	}
	finalURL := "amqp://"
	if user != "" {
		finalURL = finalURL + user + ":" + pass + "@"
	}
	finalURL = finalURL + url
	return &ChannelProvider{url: finalURL, qPrefix: qPrefix}, nil
}

// QueueName makes a broker queue name from a base name
func (pr *ChannelProvider) QueueName(name string) string {
	if pr.qPrefix != "" && name != "" {
		return pr.qPrefix + "_" + name
	}
	return name
}

// Channel returns a cached channel or tries to connect to the broker
func (pr *ChannelProvider) Channel() (*amqp.Channel, error) {
	pr.m.Lock()
	defer pr.m.Unlock()

	if pr.ch != nil {
		return pr.ch, nil
	}
	conn, err := amqp.Dial(pr.url)
	if err != nil {
		return nil, errors.Wrap(err, "Can't connect to rabbit broker")
	}
	ch, err := conn.Channel()
	if err != nil {
		defer conn.Close()
		return nil, errors.Wrap(err, "Can't create channel")
	}
	pr.conn = conn
	pr.ch = ch
	return pr.ch, nil
}

// RunOnChannelWithRetry invokes method on channel, reopening the channel once on failure
func (pr *ChannelProvider) RunOnChannelWithRetry(f runOnChannelFunc) error {
	ch, err := pr.Channel()
	if err != nil {
		return errors.Wrap(err, "Can't init channel")
	}
	err = f(ch)
	if err != nil {
		pr.Close()
		ch, err = pr.Channel()
		if err != nil {
			return errors.Wrap(err, "Can't init channel")
		}
		err = f(ch)
	}
	return err
}

// Healthy checks the broker connection for healthcheck endpoints
func (pr *ChannelProvider) Healthy() error {
	_, err := pr.Channel()
	return err
}

// Close finalizes ChannelProvider
func (pr *ChannelProvider) Close() {
	pr.m.Lock()
	defer pr.m.Unlock()

	if pr.ch != nil {
		defer pr.ch.Close()
	}
	if pr.conn != nil {
		defer pr.conn.Close()
	}
	pr.ch = nil
	pr.conn = nil
}
