package skriba

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/intervju/skriba/internal/app/skriba/api"
	errc "github.com/intervju/skriba/internal/pkg/err"
	"github.com/intervju/skriba/internal/pkg/jobs"
	"github.com/intervju/skriba/internal/pkg/keeprange"
	"github.com/intervju/skriba/internal/pkg/ner"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

type testSaver struct {
	saved map[string][]byte
	err   error
}

func (s *testSaver) Save(name string, reader io.Reader) error {
	if s.err != nil {
		return s.err
	}
	b, _ := io.ReadAll(reader)
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[name] = b
	return nil
}

type testResolver struct{}

func (r testResolver) Resolve(name string) string { return "/data/" + name }

type testJobManager struct {
	job       *persistence.Job
	jobs      []persistence.Job
	segments  []persistence.Segment
	submitReq *jobs.SubmitRequest
	err       error
	cancelled []string
	deleted   []string
}

func (m *testJobManager) Submit(req *jobs.SubmitRequest) (*persistence.Job, error) {
	m.submitReq = req
	return m.job, m.err
}

func (m *testJobManager) Get(id string) (*persistence.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.job, nil
}

func (m *testJobManager) List() ([]persistence.Job, error)                { return m.jobs, m.err }
func (m *testJobManager) Result(id string) ([]persistence.Segment, error) { return m.segments, m.err }

func (m *testJobManager) Cancel(id string) error {
	m.cancelled = append(m.cancelled, id)
	return m.err
}

func (m *testJobManager) Delete(id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

type testSegments struct {
	segments []persistence.Segment
	updates  map[string]bson.M
	err      error
}

func (s *testSegments) List(jobID string) ([]persistence.Segment, error) {
	return s.segments, s.err
}

func (s *testSegments) Update(jobID, segmentID string, fields bson.M) error {
	if s.updates == nil {
		s.updates = make(map[string]bson.M)
	}
	s.updates[segmentID] = fields
	return s.err
}

type testWords struct {
	words    []persistence.Word
	updated  int64
	setCalls int
	reset    bool
	err      error
}

func (s *testWords) List(jobID string) ([]persistence.Word, error) { return s.words, s.err }

func (s *testWords) SetIncluded(jobID string, wordIDs []string, included bool) (int64, error) {
	s.setCalls++
	return s.updated, s.err
}

func (s *testWords) ResetIncluded(jobID string) error {
	s.reset = true
	return s.err
}

type testEditor struct {
	ranges []keeprange.Range
	err    error
}

func (e *testEditor) Materialize(ctx context.Context, srcFile string, ranges []keeprange.Range,
	outFile string) error {
	e.ranges = ranges
	return e.err
}

func completedJob() *persistence.Job {
	return &persistence.Job{ID: "j1", FileID: "f1.wav", Status: "completed"}
}

func TestWrongPath(t *testing.T) {
	req := httptest.NewRequest("GET", "/invalid", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{}).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestUpload(t *testing.T) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "interview.wav")
	_, _ = io.Copy(part, strings.NewReader("audio body"))
	writer.Close()

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()

	fs := &testSaver{}
	NewRouter(&ServiceData{FileSaver: fs}).ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)
	var res api.UploadResult
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.True(t, strings.HasSuffix(res.FileID, ".wav"))
	assert.Equal(t, "interview.wav", res.FileName)
	assert.Equal(t, 1, len(fs.saved))
}

func TestUpload_NoFile(t *testing.T) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("name", "x")
	writer.Close()

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{FileSaver: &testSaver{}}).ServeHTTP(resp, req)
	assert.Equal(t, 400, resp.Code)
}

func TestUpload_WrongExtension(t *testing.T) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "notes.txt")
	_, _ = io.Copy(part, strings.NewReader("text"))
	writer.Close()

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{FileSaver: &testSaver{}}).ServeHTTP(resp, req)
	assert.Equal(t, 400, resp.Code)
}

func TestSubmit(t *testing.T) {
	m := &testJobManager{job: &persistence.Job{ID: "j1", Status: "pending"}}
	body, _ := json.Marshal(api.SubmitRequest{FileID: "f1.wav", FileSize: 2048,
		Model: "base",
		Language: "sv", EnableRedaction: true, EntityCategories: []string{"person"}})
	req := httptest.NewRequest("POST", "/jobs", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)

	assert.Equal(t, 201, resp.Code)
	assert.Equal(t, "f1.wav", m.submitReq.FileID)
	assert.Equal(t, int64(2048), m.submitReq.FileSize)
	assert.Equal(t, []string{"person"}, m.submitReq.EntityCategories)
	var res api.Job
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "j1", res.ID)
}

func TestSubmit_ValidationError(t *testing.T) {
	m := &testJobManager{err: errc.Validation("no file provided")}
	req := httptest.NewRequest("POST", "/jobs", strings.NewReader("{}"))
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)

	assert.Equal(t, 400, resp.Code)
	var res api.ErrorResponse
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "VALIDATION", res.Code)
}

func TestGet(t *testing.T) {
	m := &testJobManager{job: completedJob()}
	req := httptest.NewRequest("GET", "/jobs/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
}

func TestGet_NotFound(t *testing.T) {
	m := &testJobManager{err: errc.NotFound("no job")}
	req := httptest.NewRequest("GET", "/jobs/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestList(t *testing.T) {
	m := &testJobManager{jobs: []persistence.Job{{ID: "j1"}, {ID: "j2"}}}
	req := httptest.NewRequest("GET", "/jobs", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	var res []api.Job
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, 2, len(res))
}

func TestCancel(t *testing.T) {
	m := &testJobManager{}
	req := httptest.NewRequest("POST", "/jobs/j1/cancel", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)
	assert.Equal(t, 202, resp.Code)
	assert.Equal(t, []string{"j1"}, m.cancelled)
}

func TestCancel_Terminal(t *testing.T) {
	m := &testJobManager{err: errc.Conflict("already completed")}
	req := httptest.NewRequest("POST", "/jobs/j1/cancel", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)
	assert.Equal(t, 409, resp.Code)
}

func TestDelete(t *testing.T) {
	m := &testJobManager{}
	req := httptest.NewRequest("DELETE", "/jobs/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)
	assert.Equal(t, 204, resp.Code)
	assert.Equal(t, []string{"j1"}, m.deleted)
}

func TestResult(t *testing.T) {
	m := &testJobManager{segments: []persistence.Segment{{ID: "s1", Text: "hej"}}}
	req := httptest.NewRequest("GET", "/jobs/j1/result", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	var res []api.Segment
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "hej", res[0].Text)
}

func TestResult_NotCompleted(t *testing.T) {
	m := &testJobManager{err: errc.Precondition("job is processing")}
	req := httptest.NewRequest("GET", "/jobs/j1/result", nil)
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Jobs: m}).ServeHTTP(resp, req)
	assert.Equal(t, 412, resp.Code)
}

type testRecognizer struct {
	entities []ner.Entity
}

func (r *testRecognizer) Recognize(ctx context.Context, text string) ([]ner.Entity, error) {
	return r.entities, nil
}

func TestRedact(t *testing.T) {
	r := &testRecognizer{entities: []ner.Entity{
		{Word: "Anna", EntityGroup: "PRS", Score: 0.99, Start: 0, End: 4}}}
	body, _ := json.Marshal(api.RedactRequest{Text: "Anna ringer"})
	req := httptest.NewRequest("POST", "/redact", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Recognizer: r}).ServeHTTP(resp, req)

	assert.Equal(t, 200, resp.Code)
	var res api.RedactResult
	assert.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "[PERSON 1] ringer", res.RedactedText)
	assert.Equal(t, 1, res.EntitiesFound)
}

func TestRedact_EmptyText(t *testing.T) {
	body, _ := json.Marshal(api.RedactRequest{Text: "  "})
	req := httptest.NewRequest("POST", "/redact", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	NewRouter(&ServiceData{Recognizer: &testRecognizer{}}).ServeHTTP(resp, req)
	assert.Equal(t, 400, resp.Code)
}
