package messages

// QueueMessage is a message going through the broker
type QueueMessage struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
	Tags  []Tag  `json:"tags,omitempty"`
}

// Tag keeps additional message values
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewQueueMessage creates the message with id
func NewQueueMessage(id string, tags ...Tag) *QueueMessage {
	return &QueueMessage{ID: id, Tags: tags}
}

// NewQueueMsgWithError creates the message with id and error
func NewQueueMsgWithError(id string, errMsg string) *QueueMessage {
	return &QueueMessage{ID: id, Error: errMsg}
}

// NewTag creates a tag
func NewTag(key string, value string) Tag {
	return Tag{Key: key, Value: value}
}

// TagValue finds a tag value by key
func TagValue(tags []Tag, key string) (string, bool) {
	for _, t := range tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}
