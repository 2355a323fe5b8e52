package jobs

import (
	"testing"

	errc "github.com/intervju/skriba/internal/pkg/err"
	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/intervju/skriba/internal/pkg/status"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

type fakeStore struct {
	jobs       map[string]*persistence.Job
	changeFrom status.Status
	changeTo   status.Status
	changeOK   bool
	progress   int32
	step       string
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*persistence.Job), changeOK: true}
}

func (f *fakeStore) Create(job *persistence.Job) error {
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeStore) Get(id string) (*persistence.Job, error) {
	return f.jobs[id], nil
}

func (f *fakeStore) List() ([]persistence.Job, error) {
	res := make([]persistence.Job, 0)
	for _, j := range f.jobs {
		res = append(res, *j)
	}
	return res, nil
}

func (f *fakeStore) ChangeStatus(id string, from, to status.Status, fields bson.M) (bool, error) {
	f.changeFrom, f.changeTo = from, to
	if f.changeOK {
		if j, ok := f.jobs[id]; ok {
			j.Status = status.Name(to)
		}
	}
	return f.changeOK, nil
}

func (f *fakeStore) UpdateProgress(id string, progress int32, step string) error {
	f.progress, f.step = progress, step
	return nil
}

func (f *fakeStore) SetCancelRequested(id string) (bool, error) {
	j, ok := f.jobs[id]
	if !ok || status.Terminal(status.From(j.Status)) {
		return false, nil
	}
	j.CancelRequested = true
	return true, nil
}

func (f *fakeStore) Update(id string, fields bson.M) error { return nil }

func (f *fakeStore) Delete(id string) error {
	delete(f.jobs, id)
	return nil
}

type fakeSender struct {
	msgs   []*messages.QueueMessage
	queues []string
}

func (f *fakeSender) Send(msg *messages.QueueMessage, queue string, replyQueue string) error {
	f.msgs = append(f.msgs, msg)
	f.queues = append(f.queues, queue)
	return nil
}

type fakePublisher struct {
	msgs      []*messages.QueueMessage
	exchanges []string
}

func (f *fakePublisher) Publish(msg *messages.QueueMessage, exchange string) error {
	f.msgs = append(f.msgs, msg)
	f.exchanges = append(f.exchanges, exchange)
	return nil
}

type fakeSegments struct {
	segments []persistence.Segment
}

func (f *fakeSegments) List(jobID string) ([]persistence.Segment, error) {
	return f.segments, nil
}

func initOrchestrator(t *testing.T) (*Orchestrator, *fakeStore, *fakeSender, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	sender := &fakeSender{}
	publisher := &fakePublisher{}
	o, err := NewOrchestrator(store, &fakeSegments{}, nil, nil, sender, publisher)
	assert.Nil(t, err)
	return o, store, sender, publisher
}

func TestSubmit(t *testing.T) {
	o, store, sender, _ := initOrchestrator(t)
	job, err := o.Submit(&SubmitRequest{FileID: "f1", Name: "test"})
	assert.Nil(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "pending", job.Status)
	assert.NotNil(t, store.jobs[job.ID])
	assert.Equal(t, 1, len(sender.msgs))
	assert.Equal(t, messages.Transcribe, sender.queues[0])
}

func TestSubmit_FailNoFile(t *testing.T) {
	o, _, _, _ := initOrchestrator(t)
	_, err := o.Submit(&SubmitRequest{})
	assert.True(t, errc.Is(err, errc.ValidationCode))
}

func TestSubmit_FailWrongCategory(t *testing.T) {
	o, _, _, _ := initOrchestrator(t)
	_, err := o.Submit(&SubmitRequest{FileID: "f1", EntityCategories: []string{"olia"}})
	assert.True(t, errc.Is(err, errc.ValidationCode))
}

func TestSubmit_FailWrongEmail(t *testing.T) {
	o, _, _, _ := initOrchestrator(t)
	_, err := o.Submit(&SubmitRequest{FileID: "f1", NotifyEmail: "olia"})
	assert.True(t, errc.Is(err, errc.ValidationCode))
}

func TestGet_NotFound(t *testing.T) {
	o, _, _, _ := initOrchestrator(t)
	_, err := o.Get("x")
	assert.True(t, errc.Is(err, errc.NotFoundCode))
}

func TestResult_Precondition(t *testing.T) {
	o, store, _, _ := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "processing"}
	_, err := o.Result("j1")
	assert.True(t, errc.Is(err, errc.PreconditionCode))
}

func TestResult(t *testing.T) {
	o, store, _, _ := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "completed"}
	_, err := o.Result("j1")
	assert.Nil(t, err)
}

func TestCancel(t *testing.T) {
	o, store, _, publisher := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "processing"}
	err := o.Cancel("j1")
	assert.Nil(t, err)
	assert.True(t, store.jobs["j1"].CancelRequested)
	assert.Equal(t, []string{messages.JobCancel}, publisher.exchanges)
}

func TestCancel_ConflictOnTerminal(t *testing.T) {
	o, store, _, _ := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "completed"}
	err := o.Cancel("j1")
	assert.True(t, errc.Is(err, errc.ConflictCode))
}

func TestDelete_ConflictOnProcessing(t *testing.T) {
	o, store, _, _ := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "processing"}
	err := o.Delete("j1")
	assert.True(t, errc.Is(err, errc.ConflictCode))
}

func TestMarkStarted(t *testing.T) {
	o, store, _, publisher := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "pending"}
	err := o.MarkStarted("j1")
	assert.Nil(t, err)
	assert.Equal(t, status.Pending, store.changeFrom)
	assert.Equal(t, status.Processing, store.changeTo)
	assert.Equal(t, []string{messages.StatusChange}, publisher.exchanges)
}

func TestMarkStarted_Conflict(t *testing.T) {
	o, store, _, _ := initOrchestrator(t)
	store.changeOK = false
	err := o.MarkStarted("j1")
	assert.True(t, errc.Is(err, errc.ConflictCode))
}

func TestComplete(t *testing.T) {
	o, store, _, _ := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "processing"}
	err := o.Complete("j1", bson.M{"wordCount": 10})
	assert.Nil(t, err)
	assert.Equal(t, status.Completed, store.changeTo)
}

func TestComplete_Informs(t *testing.T) {
	o, store, sender, _ := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "processing", NotifyEmail: "a@b.se"}
	err := o.Complete("j1", nil)
	assert.Nil(t, err)
	assert.Equal(t, []string{messages.Inform}, sender.queues)
}

func TestComplete_NoInformWithoutEmail(t *testing.T) {
	o, store, sender, _ := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "processing"}
	err := o.Complete("j1", nil)
	assert.Nil(t, err)
	assert.Empty(t, sender.queues)
}

func TestFail(t *testing.T) {
	o, store, _, publisher := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "processing"}
	err := o.Fail("j1", "olia", errc.TimeoutCode)
	assert.Nil(t, err)
	assert.Equal(t, status.Failed, store.changeTo)
	assert.Equal(t, 1, len(publisher.msgs))
	assert.Equal(t, "olia", publisher.msgs[0].Error)
	v, _ := messages.TagValue(publisher.msgs[0].Tags, messages.TagStatus)
	assert.Equal(t, "failed", v)
}

func TestChangeStatus_IllegalEdge(t *testing.T) {
	o, store, _, _ := initOrchestrator(t)
	ok, err := o.changeStatus("j1", status.Completed, status.Processing, nil)
	assert.False(t, ok)
	assert.NotNil(t, err)
	assert.Equal(t, status.Unknown, store.changeTo)
}

func TestFinishCancel(t *testing.T) {
	o, store, _, _ := initOrchestrator(t)
	store.jobs["j1"] = &persistence.Job{ID: "j1", Status: "processing"}
	err := o.FinishCancel("j1")
	assert.Nil(t, err)
	assert.Equal(t, status.Cancelled, store.changeTo)
}

func TestUpdateProgress(t *testing.T) {
	o, store, _, publisher := initOrchestrator(t)
	err := o.UpdateProgress("j1", 42, "transcribing")
	assert.Nil(t, err)
	assert.Equal(t, int32(42), store.progress)
	assert.Equal(t, "transcribing", store.step)
	assert.Equal(t, 1, len(publisher.msgs))
	v, _ := messages.TagValue(publisher.msgs[0].Tags, messages.TagProgress)
	assert.Equal(t, "42", v)
}
