package inform

import (
	"encoding/json"
	"testing"

	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

type testSender struct {
	sent []*email.Email
	err  error
}

func (s *testSender) Send(m *email.Email) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

type testMaker struct {
	err error
}

func (m *testMaker) Make(data *Data) (*email.Email, error) {
	if m.err != nil {
		return nil, m.err
	}
	r := email.NewEmail()
	r.To = []string{data.Email}
	return r, nil
}

type testRetriever struct {
	email string
	err   error
}

func (r *testRetriever) Get(ID string) (string, error) {
	return r.email, r.err
}

type testLocker struct {
	lockErr     error
	unlockValue int
}

func (l *testLocker) Lock(id string, lockKey string) error {
	return l.lockErr
}

func (l *testLocker) UnLock(id string, lockKey string, value *int) error {
	l.unlockValue = *value
	return nil
}

func newTestData(s *testSender, l *testLocker) *ServiceData {
	return &ServiceData{emailSender: s, emailMaker: &testMaker{},
		emailRetriever: &testRetriever{email: "anna@example.se"}, locker: l}
}

func TestWork(t *testing.T) {
	s := &testSender{}
	l := &testLocker{}
	err := work(newTestData(s, l), &Data{ID: "j1", MsgType: "completed"})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(s.sent))
	assert.Equal(t, []string{"anna@example.se"}, s.sent[0].To)
	assert.Equal(t, 2, l.unlockValue)
}

func TestWork_Locked(t *testing.T) {
	s := &testSender{}
	l := &testLocker{lockErr: errors.New("already locked")}
	err := work(newTestData(s, l), &Data{ID: "j1", MsgType: "completed"})
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(s.sent))
}

func TestWork_SendFails(t *testing.T) {
	s := &testSender{err: errors.New("smtp down")}
	l := &testLocker{}
	err := work(newTestData(s, l), &Data{ID: "j1", MsgType: "completed"})
	assert.NotNil(t, err)
	assert.Equal(t, 0, l.unlockValue)
}

func TestWork_NoEmail(t *testing.T) {
	s := &testSender{}
	data := newTestData(s, &testLocker{})
	data.emailRetriever = &testRetriever{err: errors.New("no email")}
	err := work(data, &Data{ID: "j1", MsgType: "completed"})
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(s.sent))
}

func TestProcessMsg(t *testing.T) {
	s := &testSender{}
	msg := messages.NewQueueMessage("j1", messages.NewTag(messages.TagStatus, "completed"),
		messages.NewTag(messages.TagTimestamp, "1680690600"))
	body, _ := json.Marshal(msg)
	redeliver, err := processMsg(&amqp.Delivery{Body: body}, newTestData(s, &testLocker{}))
	assert.Nil(t, err)
	assert.True(t, redeliver)
	assert.Equal(t, 1, len(s.sent))
}

func TestProcessMsg_BadBody(t *testing.T) {
	redeliver, err := processMsg(&amqp.Delivery{Body: []byte("olia")},
		newTestData(&testSender{}, &testLocker{}))
	assert.NotNil(t, err)
	assert.False(t, redeliver)
}

func TestProcessMsg_NoStatus(t *testing.T) {
	body, _ := json.Marshal(messages.NewQueueMessage("j1"))
	redeliver, err := processMsg(&amqp.Delivery{Body: body},
		newTestData(&testSender{}, &testLocker{}))
	assert.NotNil(t, err)
	assert.False(t, redeliver)
}

func TestStartWorkerService_Validates(t *testing.T) {
	err := StartWorkerService(&ServiceData{})
	assert.NotNil(t, err)
}
