package pipeline

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/intervju/skriba/internal/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"
)

// ServiceData keeps data required for service work
type ServiceData struct {
	Bridge   *Bridge
	Workers  int
	WorkCh   <-chan amqp.Delivery
	CancelCh <-chan amqp.Delivery
}

var jobDurationMetric = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "skriba",
	Subsystem: "pipeline",
	Name:      "job_duration_seconds",
	Help:      "Job pipeline duration",
	Buckets:   prometheus.ExponentialBuckets(1, 3, 10),
})

// StartWorkerService starts the job consumers.
// Returns channel to track the finish event
func StartWorkerService(data *ServiceData) (<-chan bool, error) {
	if data.Bridge == nil {
		return nil, errors.New("No bridge")
	}
	if data.WorkCh == nil {
		return nil, errors.New("No work channel")
	}
	if data.Workers < 1 {
		data.Workers = 2
	}
	if err := metrics.Register(jobDurationMetric); err != nil {
		return nil, err
	}
	cmdapp.Log.Infof("Starting %d pipeline workers", data.Workers)

	fc := make(chan bool)
	var wg sync.WaitGroup
	for i := 0; i < data.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			listenQueue(data)
		}()
	}
	if data.CancelCh != nil {
		go listenCancel(data)
	}
	go func() {
		wg.Wait()
		cmdapp.Log.Infof("Stopped listening queue")
		fc <- true
	}()
	return fc, nil
}

func listenQueue(data *ServiceData) {
	for d := range data.WorkCh {
		if err := processMsg(&d, data); err != nil {
			cmdapp.Log.Error("Message error ", err)
			d.Nack(false, !d.Redelivered) // try redeliver once
			continue
		}
		d.Ack(false)
	}
}

func processMsg(d *amqp.Delivery, data *ServiceData) error {
	var message messages.QueueMessage
	if err := json.Unmarshal(d.Body, &message); err != nil {
		return errors.Wrap(err, "Can't unmarshal message "+string(d.Body))
	}
	cmdapp.Log.Infof("Got job %s", message.ID)
	start := time.Now()
	err := data.Bridge.Run(message.ID)
	jobDurationMetric.Observe(time.Since(start).Seconds())
	if err != nil {
		// job outcome is already persisted, do not redeliver
		cmdapp.Log.Error(err)
	}
	cmdapp.Log.Infof("Finished job %s", message.ID)
	return nil
}

func listenCancel(data *ServiceData) {
	for d := range data.CancelCh {
		var message messages.QueueMessage
		if err := json.Unmarshal(d.Body, &message); err != nil {
			cmdapp.Log.Error(errors.Wrap(err, "Can't unmarshal cancel message"))
			d.Ack(false)
			continue
		}
		data.Bridge.Cancel(message.ID)
		d.Ack(false)
	}
	cmdapp.Log.Infof("Stopped listening cancel channel")
}
