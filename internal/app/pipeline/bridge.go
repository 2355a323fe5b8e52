package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	errc "github.com/intervju/skriba/internal/pkg/err"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/intervju/skriba/internal/pkg/status"
	"go.mongodb.org/mongo-driver/bson"
)

// ProgressSink accepts stage progress callbacks
type ProgressSink func(percent int, label string)

// JobData flows through the stage sequence of one job
type JobData struct {
	Job      *persistence.Job
	FilePath string
	Segments []persistence.Segment
	Words    []persistence.Word
	Duration float64
	Speakers int
}

// Stage is one blocking pipeline step
type Stage interface {
	Name() string
	// Available tells whether the optional stage dependency is wired.
	// An unavailable stage is skipped, not failed
	Available() bool
	Run(ctx context.Context, data *JobData, sink ProgressSink) error
}

// StageProvider builds the stage sequence for a job
type StageProvider func(job *persistence.Job) []Stage

// Orchestrator is the job state machine surface the bridge drives
type Orchestrator interface {
	Get(id string) (*persistence.Job, error)
	MarkStarted(id string) error
	Complete(id string, fields bson.M) error
	Fail(id string, errMsg string, code errc.Code) error
	FinishCancel(id string) error
}

// Bridge executes stage sequences for jobs under a wall-clock deadline
// with cooperative cancellation
type Bridge struct {
	orchestrator Orchestrator
	stages       StageProvider
	coalescer    *Coalescer
	timeout      time.Duration

	m       sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewBridge creates Bridge instance
func NewBridge(orchestrator Orchestrator, stages StageProvider, coalescer *Coalescer,
	timeout time.Duration) (*Bridge, error) {
	if orchestrator == nil {
		return nil, errc.New(errc.DefaultCode, "no orchestrator provided")
	}
	if stages == nil {
		return nil, errc.New(errc.DefaultCode, "no stage provider")
	}
	if coalescer == nil {
		return nil, errc.New(errc.DefaultCode, "no coalescer provided")
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Bridge{orchestrator: orchestrator, stages: stages, coalescer: coalescer,
		timeout: timeout, cancels: make(map[string]context.CancelFunc)}, nil
}

// Cancel signals the running job context, if the job runs here
func (b *Bridge) Cancel(jobID string) {
	b.m.Lock()
	cancel, ok := b.cancels[jobID]
	b.m.Unlock()
	if ok {
		cmdapp.Log.Infof("Cancelling running job %s", jobID)
		cancel()
	}
}

// Run drives the whole stage sequence of one job and finalizes its
// status. The returned error is for logging, the job record already
// carries the outcome
func (b *Bridge) Run(jobID string) error {
	job, err := b.orchestrator.Get(jobID)
	if err != nil {
		return err
	}
	if job.CancelRequested && status.From(job.Status) == status.Pending {
		// finalize without running, keeping legal transitions
		if err := b.orchestrator.MarkStarted(jobID); err != nil {
			return err
		}
		return b.orchestrator.FinishCancel(jobID)
	}
	if err := b.orchestrator.MarkStarted(jobID); err != nil {
		if errc.Is(err, errc.ConflictCode) {
			cmdapp.Log.Infof("Skipping job %s: %v", jobID, err)
			return nil
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	b.m.Lock()
	b.cancels[jobID] = cancel
	b.m.Unlock()
	defer func() {
		cancel()
		b.m.Lock()
		delete(b.cancels, jobID)
		b.m.Unlock()
	}()

	data := &JobData{Job: job}
	err = b.awaitStages(ctx, data)
	b.coalescer.Finish(jobID)
	return b.finalize(ctx, jobID, data, err)
}

// awaitStages runs the stage sequence and abandons it when the job
// context expires, so a stuck stage cannot keep the job in processing
func (b *Bridge) awaitStages(ctx context.Context, data *JobData) error {
	done := make(chan error, 1)
	go func() {
		done <- b.runStages(ctx, data)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cmdapp.Log.Warnf("Abandoning stage run for %s: %v", data.Job.ID, ctx.Err())
		return ctx.Err()
	}
}

func (b *Bridge) runStages(ctx context.Context, data *JobData) error {
	sink := b.sink(data.Job.ID)
	for _, stage := range b.stages(data.Job) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !stage.Available() {
			cmdapp.Log.Infof("Skipping unavailable stage %s for %s", stage.Name(), data.Job.ID)
			sink(-1, stage.Name()+"_unavailable")
			continue
		}
		cmdapp.Log.Infof("Running stage %s for %s", stage.Name(), data.Job.ID)
		if err := stage.Run(ctx, data, sink); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errc.StageFailure(stage.Name(), err)
		}
	}
	return nil
}

// sink relays stage callbacks into the coalescer. Percent -1 keeps the
// previous value and only updates the label
func (b *Bridge) sink(jobID string) ProgressSink {
	lastPercent := int32(0)
	var m sync.Mutex
	return func(percent int, label string) {
		m.Lock()
		p := int32(percent)
		if p < lastPercent {
			p = lastPercent
		}
		lastPercent = p
		m.Unlock()
		b.coalescer.Send(jobID, p, label)
	}
}

func (b *Bridge) finalize(ctx context.Context, jobID string, data *JobData, runErr error) error {
	if runErr == nil {
		return b.orchestrator.Complete(jobID, bson.M{
			"durationSeconds": data.Duration,
			"speakerCount":    data.Speakers,
			"segmentCount":    len(data.Segments),
			"wordCount":       len(data.Words),
		})
	}
	if ctx.Err() == context.DeadlineExceeded {
		cmdapp.Log.Errorf("Job %s timed out", jobID)
		return b.orchestrator.Fail(jobID,
			"pipeline exceeded the configured deadline", errc.TimeoutCode)
	}
	if ctx.Err() == context.Canceled {
		return b.orchestrator.FinishCancel(jobID)
	}
	cmdapp.Log.Error(runErr)
	return b.orchestrator.Fail(jobID, runErr.Error(), errc.CodeOf(runErr))
}
