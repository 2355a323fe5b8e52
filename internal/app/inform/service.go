package inform

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/intervju/skriba/internal/pkg/utils"
	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// Data keeps one notification to be mailed
type Data struct {
	ID      string
	Email   string
	MsgType string
	MsgTime time.Time
}

// Sender sends emails
type Sender interface {
	Send(email *email.Email) error
}

// EmailMaker prepares the email
type EmailMaker interface {
	Make(data *Data) (*email.Email, error)
}

// EmailRetriever returns the email by job ID
type EmailRetriever interface {
	Get(ID string) (string, error)
}

// Locker tracks the email sending process.
// It guarantees an email is not sent twice
type Locker interface {
	Lock(id string, lockKey string) error
	UnLock(id string, lockKey string, value *int) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	workCh         <-chan amqp.Delivery
	emailSender    Sender
	emailMaker     EmailMaker
	emailRetriever EmailRetriever
	locker         Locker
	location       *time.Location

	fc *utils.MultiCloseChannel
}

// StartWorkerService starts the message queue listener
func StartWorkerService(data *ServiceData) error {
	cmdapp.Log.Infof("Starting listen for messages")
	if data.emailMaker == nil {
		return errors.New("no email maker")
	}
	if data.emailRetriever == nil {
		return errors.New("no email retriever")
	}
	if data.emailSender == nil {
		return errors.New("no sender")
	}
	if data.locker == nil {
		return errors.New("no locker")
	}
	if data.workCh == nil {
		return errors.New("no work channel")
	}
	if data.fc == nil {
		return errors.New("no close channel")
	}

	go listenQueue(data)
	return nil
}

func work(data *ServiceData, nd *Data) error {
	cmdapp.Log.Infof("Got inform task %s for ID: %s", nd.MsgType, nd.ID)

	var err error
	nd.Email, err = data.emailRetriever.Get(nd.ID)
	if err != nil {
		return errors.Wrap(err, "can't retrieve email")
	}

	mail, err := data.emailMaker.Make(nd)
	if err != nil {
		return errors.Wrap(err, "can't prepare email")
	}

	err = data.locker.Lock(nd.ID, nd.MsgType)
	if err != nil {
		return errors.Wrap(err, "can't lock mail table")
	}
	var unlockValue = 0
	defer data.locker.UnLock(nd.ID, nd.MsgType, &unlockValue)

	err = data.emailSender.Send(mail)
	if err != nil {
		return errors.Wrap(err, "can't send email")
	}
	unlockValue = 2
	return nil
}

func listenQueue(data *ServiceData) {
	for d := range data.workCh {
		redeliver, err := processMsg(&d, data)
		if err != nil {
			cmdapp.Log.Error("Message error. ", err)
			d.Nack(false, redeliver && !d.Redelivered) // try redeliver for the first time
			continue
		}
		d.Ack(false)
	}
	cmdapp.Log.Infof("Stopped listening queue")
	data.fc.Close()
}

// processMsg returns true if it needs to retry on error again
func processMsg(d *amqp.Delivery, data *ServiceData) (bool, error) {
	var message messages.QueueMessage
	if err := json.Unmarshal(d.Body, &message); err != nil {
		return false, errors.Wrap(err, "can't unmarshal message "+string(d.Body))
	}
	nd := Data{ID: message.ID}
	var ok bool
	nd.MsgType, ok = messages.TagValue(message.Tags, messages.TagStatus)
	if !ok {
		return false, errors.New("no status tag in message")
	}
	nd.MsgTime = msgTime(data, message.Tags)
	err := work(data, &nd)
	cmdapp.Log.Infof("Msg processed")
	return true, err
}

func msgTime(data *ServiceData, tags []messages.Tag) time.Time {
	res := time.Now()
	if v, ok := messages.TagValue(tags, messages.TagTimestamp); ok {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			res = time.Unix(ts, 0)
		}
	}
	if data.location != nil {
		return res.In(data.location)
	}
	return res
}
