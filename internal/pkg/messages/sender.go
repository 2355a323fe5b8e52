package messages

// Sender sends a message to the broker queue
type Sender interface {
	Send(message *QueueMessage, queue string, replyQueue string) error
}

// Publisher publishes a message to a fanout exchange
type Publisher interface {
	Publish(message *QueueMessage, exchange string) error
}
