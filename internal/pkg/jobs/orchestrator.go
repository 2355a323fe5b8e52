package jobs

import (
	"strconv"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	errc "github.com/intervju/skriba/internal/pkg/err"
	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/intervju/skriba/internal/pkg/status"
	"go.mongodb.org/mongo-driver/bson"
)

// Store persists job records
type Store interface {
	Create(job *persistence.Job) error
	Get(id string) (*persistence.Job, error)
	List() ([]persistence.Job, error)
	ChangeStatus(id string, from, to status.Status, fields bson.M) (bool, error)
	UpdateProgress(id string, progress int32, step string) error
	SetCancelRequested(id string) (bool, error)
	Update(id string, fields bson.M) error
	Delete(id string) error
}

// SegmentReader loads job segments
type SegmentReader interface {
	List(jobID string) ([]persistence.Segment, error)
}

// Cleaner removes job related records or files
type Cleaner interface {
	Clean(ID string) error
}

// FileCleaner removes stored audio files
type FileCleaner interface {
	Delete(name string) error
}

// SubmitRequest carries job creation input
type SubmitRequest struct {
	Name              string
	FileID            string
	FileName          string
	FileSize          int64
	Model             string
	Language          string
	EnableDiarization bool
	EnableRedaction   bool
	EntityCategories  []string
	NotifyEmail       string
}

// Orchestrator drives the job state machine and owns all job writes
type Orchestrator struct {
	store     Store
	segments  SegmentReader
	cleaners  []Cleaner
	files     FileCleaner
	sender    messages.Sender
	publisher messages.Publisher
}

// NewOrchestrator creates Orchestrator instance
func NewOrchestrator(store Store, segments SegmentReader, cleaners []Cleaner,
	files FileCleaner, sender messages.Sender, publisher messages.Publisher) (*Orchestrator, error) {
	if store == nil {
		return nil, errc.New(errc.DefaultCode, "no store provided")
	}
	if sender == nil {
		return nil, errc.New(errc.DefaultCode, "no sender provided")
	}
	return &Orchestrator{store: store, segments: segments, cleaners: cleaners,
		files: files, sender: sender, publisher: publisher}, nil
}

var validCategories = map[string]bool{"person": true, "location": true,
	"organization": true, "date": true, "event": true}

// Submit creates a pending job and queues it for the pipeline.
// Returns immediately, the pipeline picks the job up from the queue
func (o *Orchestrator) Submit(req *SubmitRequest) (*persistence.Job, error) {
	if req.FileID == "" {
		return nil, errc.Validation("no file provided")
	}
	for _, c := range req.EntityCategories {
		if !validCategories[c] {
			return nil, errc.Validation("unknown entity category '%s'", c)
		}
	}
	if req.NotifyEmail != "" {
		if err := checkmail.ValidateFormat(req.NotifyEmail); err != nil {
			return nil, errc.Validation("wrong email '%s'", req.NotifyEmail)
		}
	}
	job := &persistence.Job{
		ID:                uuid.New().String(),
		Name:              req.Name,
		FileID:            req.FileID,
		FileName:          req.FileName,
		FileSize:          req.FileSize,
		Model:             req.Model,
		Language:          req.Language,
		EnableDiarization: req.EnableDiarization,
		EnableRedaction:   req.EnableRedaction,
		EntityCategories:  req.EntityCategories,
		NotifyEmail:       req.NotifyEmail,
		Status:            status.Name(status.Pending),
		CreatedAt:         time.Now(),
	}
	if err := o.store.Create(job); err != nil {
		return nil, err
	}
	if err := o.sender.Send(messages.NewQueueMessage(job.ID), messages.Transcribe, ""); err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns a job by ID
func (o *Orchestrator) Get(id string) (*persistence.Job, error) {
	job, err := o.store.Get(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errc.NotFound("no job '%s'", id)
	}
	return job, nil
}

// List returns all jobs
func (o *Orchestrator) List() ([]persistence.Job, error) {
	return o.store.List()
}

// Result returns segments of a completed job
func (o *Orchestrator) Result(id string) ([]persistence.Segment, error) {
	job, err := o.Get(id)
	if err != nil {
		return nil, err
	}
	if status.From(job.Status) != status.Completed {
		return nil, errc.Precondition("job '%s' is %s, not completed", id, job.Status)
	}
	return o.segments.List(id)
}

// Cancel requests job cancellation. A pending job is finalized by the
// worker when it picks the message up, a processing one is signaled
// through the cancel exchange
func (o *Orchestrator) Cancel(id string) error {
	job, err := o.Get(id)
	if err != nil {
		return err
	}
	if status.Terminal(status.From(job.Status)) {
		return errc.Conflict("job '%s' is already %s", id, job.Status)
	}
	ok, err := o.store.SetCancelRequested(id)
	if err != nil {
		return err
	}
	if !ok {
		return errc.Conflict("job '%s' is already finished", id)
	}
	if o.publisher != nil {
		cmdapp.LogIf(o.publisher.Publish(messages.NewQueueMessage(id), messages.JobCancel))
	}
	return nil
}

// Delete removes the job with its segments, words and audio
func (o *Orchestrator) Delete(id string) error {
	job, err := o.Get(id)
	if err != nil {
		return err
	}
	if status.From(job.Status) == status.Processing {
		return errc.Conflict("job '%s' is processing, cancel it first", id)
	}
	for _, c := range o.cleaners {
		if err := c.Clean(id); err != nil {
			return err
		}
	}
	if o.files != nil && job.FileID != "" {
		if err := o.files.Delete(job.FileID); err != nil {
			return err
		}
	}
	return nil
}

// changeStatus guards every status write with the transition table
func (o *Orchestrator) changeStatus(id string, from, to status.Status, fields bson.M) (bool, error) {
	if !status.CanTransition(from, to) {
		return false, errc.New(errc.DefaultCode, "illegal transition "+status.Name(from)+
			" -> "+status.Name(to))
	}
	return o.store.ChangeStatus(id, from, to, fields)
}

// MarkStarted moves the job from pending to processing
func (o *Orchestrator) MarkStarted(id string) error {
	now := time.Now()
	ok, err := o.changeStatus(id, status.Pending, status.Processing,
		bson.M{"startedAt": now})
	if err != nil {
		return err
	}
	if !ok {
		return errc.Conflict("job '%s' is not pending", id)
	}
	o.publishStatus(id, status.Processing, 0, "")
	return nil
}

// Complete finishes the job with post completion metadata
func (o *Orchestrator) Complete(id string, fields bson.M) error {
	set := bson.M{"completedAt": time.Now(), persistence.FldProgress: int32(100),
		persistence.FldCurrentStep: ""}
	for k, v := range fields {
		set[k] = v
	}
	ok, err := o.changeStatus(id, status.Processing, status.Completed, set)
	if err != nil {
		return err
	}
	if !ok {
		return errc.Conflict("job '%s' is not processing", id)
	}
	o.publishStatus(id, status.Completed, 100, "")
	o.inform(id, status.Completed)
	return nil
}

// Fail finishes the job with an error
func (o *Orchestrator) Fail(id string, errMsg string, code errc.Code) error {
	ok, err := o.changeStatus(id, status.Processing, status.Failed,
		bson.M{"completedAt": time.Now(), "error": errMsg, "errorCode": string(code)})
	if err != nil {
		return err
	}
	if !ok {
		return errc.Conflict("job '%s' is not processing", id)
	}
	o.publishStatusErr(id, status.Failed, errMsg)
	o.inform(id, status.Failed)
	return nil
}

// FinishCancel moves a processing job to cancelled after the worker
// noticed the cancellation request
func (o *Orchestrator) FinishCancel(id string) error {
	ok, err := o.changeStatus(id, status.Processing, status.Cancelled,
		bson.M{"completedAt": time.Now()})
	if err != nil {
		return err
	}
	if !ok {
		return errc.Conflict("job '%s' is not processing", id)
	}
	o.publishStatus(id, status.Cancelled, -1, "")
	return nil
}

// UpdateProgress persists job progress, best effort
func (o *Orchestrator) UpdateProgress(id string, percent int32, step string) error {
	if err := o.store.UpdateProgress(id, percent, step); err != nil {
		return err
	}
	o.publishStatus(id, status.Processing, percent, step)
	return nil
}

func (o *Orchestrator) publishStatus(id string, st status.Status, percent int32, step string) {
	if o.publisher == nil {
		return
	}
	cmdapp.LogIf(o.publisher.Publish(messages.NewQueueMessage(id, statusTags(st, percent, step)...),
		messages.StatusChange))
}

func (o *Orchestrator) publishStatusErr(id string, st status.Status, errMsg string) {
	if o.publisher == nil {
		return
	}
	msg := messages.NewQueueMsgWithError(id, errMsg)
	msg.Tags = statusTags(st, -1, "")
	cmdapp.LogIf(o.publisher.Publish(msg, messages.StatusChange))
}

func statusTags(st status.Status, percent int32, step string) []messages.Tag {
	tags := []messages.Tag{messages.NewTag(messages.TagStatus, status.Name(st)),
		messages.NewTag(messages.TagTimestamp, strconv.FormatInt(time.Now().Unix(), 10))}
	if percent >= 0 {
		tags = append(tags, messages.NewTag(messages.TagProgress, strconv.Itoa(int(percent))))
	}
	if step != "" {
		tags = append(tags, messages.NewTag(messages.TagStep, step))
	}
	return tags
}

func (o *Orchestrator) inform(id string, st status.Status) {
	job, err := o.store.Get(id)
	if err != nil || job == nil || job.NotifyEmail == "" {
		return
	}
	msg := messages.NewQueueMessage(id, messages.NewTag(messages.TagStatus, status.Name(st)))
	cmdapp.LogIf(o.sender.Send(msg, messages.Inform, ""))
}
