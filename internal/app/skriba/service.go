package skriba

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/intervju/skriba/internal/app/skriba/api"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	errc "github.com/intervju/skriba/internal/pkg/err"
	"github.com/intervju/skriba/internal/pkg/jobs"
	"github.com/intervju/skriba/internal/pkg/keeprange"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/intervju/skriba/internal/pkg/redactor"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/bson"
)

type serviceMetric struct {
	uploadResponseDur prometheus.ObserverVec
	uploadRequestSize prometheus.ObserverVec
	jobsResponseDur   prometheus.ObserverVec
}

// FileSaver saves uploaded audio
type FileSaver interface {
	Save(name string, reader io.Reader) error
}

// FileResolver maps stored file IDs to paths on disk
type FileResolver interface {
	Resolve(name string) string
}

// JobManager is the job operation surface exposed over HTTP
type JobManager interface {
	Submit(req *jobs.SubmitRequest) (*persistence.Job, error)
	Get(id string) (*persistence.Job, error)
	List() ([]persistence.Job, error)
	Result(id string) ([]persistence.Segment, error)
	Cancel(id string) error
	Delete(id string) error
}

// SegmentProvider reads and corrects stored segments
type SegmentProvider interface {
	List(jobID string) ([]persistence.Segment, error)
	Update(jobID, segmentID string, fields bson.M) error
}

// WordProvider reads and edits stored word selections
type WordProvider interface {
	List(jobID string) ([]persistence.Word, error)
	SetIncluded(jobID string, wordIDs []string, included bool) (int64, error)
	ResetIncluded(jobID string) error
}

// AudioEditor cuts the kept ranges into a new audio file
type AudioEditor interface {
	Materialize(ctx context.Context, srcFile string, ranges []keeprange.Range, outFile string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	FileSaver    FileSaver
	FileResolver FileResolver
	Jobs         JobManager
	Segments     SegmentProvider
	Words        WordProvider
	Editor       AudioEditor

	Recognizer redactor.EntityRecognizer
	Patterns   *redactor.PatternDetector

	EventChannelFunc eventChannelFunc

	Port    int
	health  healthcheck.Handler
	metrics serviceMetric
}

// StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	if data.EventChannelFunc != nil {
		quit := make(chan bool)
		defer close(quit)
		go registerQueue(data, quit, time.Second)
	}

	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       180 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

// NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	uh := http.Handler(uploadHandler{data: data})
	jh := http.Handler(submitHandler{data: data})
	if data.metrics.uploadResponseDur != nil {
		uh = promhttp.InstrumentHandlerDuration(data.metrics.uploadResponseDur,
			promhttp.InstrumentHandlerRequestSize(data.metrics.uploadRequestSize, uh))
		jh = promhttp.InstrumentHandlerDuration(data.metrics.jobsResponseDur, jh)
	}
	router.Methods("POST").Path("/upload").Handler(uh)
	router.Methods("POST").Path("/jobs").Handler(jh)
	router.Methods("GET").Path("/jobs").Handler(listHandler{data: data})
	router.Methods("GET").Path("/jobs/{id}").Handler(getHandler{data: data})
	router.Methods("POST").Path("/jobs/{id}/cancel").Handler(cancelHandler{data: data})
	router.Methods("DELETE").Path("/jobs/{id}").Handler(deleteHandler{data: data})
	router.Methods("GET").Path("/jobs/{id}/result").Handler(resultHandler{data: data})
	router.Methods("POST").Path("/jobs/{id}/redaction").Handler(redactionRerunHandler{data: data})
	router.Methods("POST").Path("/redact").Handler(redactHandler{data: data})
	router.Methods("GET").Path("/jobs/{id}/editable").Handler(editableHandler{data: data})
	router.Methods("POST").Path("/jobs/{id}/words").Handler(wordsHandler{data: data})
	router.Methods("POST").Path("/jobs/{id}/words/reset").Handler(wordsResetHandler{data: data})
	router.Methods("GET").Path("/jobs/{id}/edited-audio").Handler(editedAudioHandler{data: data})
	router.Methods("POST").Path("/jobs/{id}/speaker").Handler(speakerHandler{data: data})
	router.Methods("PATCH").Path("/jobs/{id}/segments/{segmentID}").Handler(segmentPatchHandler{data: data})
	router.Handle("/status/ws", websocketHandler{data: data})
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if data.health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	}
	return router
}

func codeToHTTPStatus(code errc.Code) int {
	switch code {
	case errc.ValidationCode:
		return http.StatusBadRequest
	case errc.NotFoundCode:
		return http.StatusNotFound
	case errc.ConflictCode:
		return http.StatusConflict
	case errc.PreconditionCode:
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	cmdapp.Log.Error(err)
	code := errc.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(codeToHTTPStatus(code))
	encErr := json.NewEncoder(w).Encode(api.ErrorResponse{Code: string(code), Message: err.Error()})
	cmdapp.LogIf(encErr)
}

func writeJSON(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(result)
	cmdapp.LogIf(err)
}

type uploadHandler struct {
	data *ServiceData
}

func checkFileExtension(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".mp4" || ext == ".m4a" || ext == ".ogg"
}

func (h uploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Saving file from %s", r.Host)

	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		writeError(w, errc.Validation("can't parse multipart form"))
		return
	}
	defer cleanFiles(r.MultipartForm)

	file, handler, err := r.FormFile("file")
	if err != nil {
		writeError(w, errc.Validation("no file"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(handler.Filename))
	if !checkFileExtension(ext) {
		writeError(w, errc.Validation("wrong file extension: %s", ext))
		return
	}

	fileID := uuid.New().String() + ext
	if err := h.data.FileSaver.Save(fileID, file); err != nil {
		writeError(w, errors.Wrap(err, "can't save file"))
		return
	}

	writeJSON(w, api.UploadResult{FileID: fileID, FileName: handler.Filename,
		Size: handler.Size})
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		f.RemoveAll()
	}
}

type submitHandler struct {
	data *ServiceData
}

func (h submitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errc.Validation("can't decode request"))
		return
	}

	job, err := h.data.Jobs.Submit(&jobs.SubmitRequest{Name: req.Name,
		FileID: req.FileID, FileName: req.FileName, FileSize: req.FileSize,
		Model: req.Model,
		Language: req.Language, EnableDiarization: req.EnableDiarization,
		EnableRedaction: req.EnableRedaction, EntityCategories: req.EntityCategories,
		NotifyEmail: req.NotifyEmail})
	if err != nil {
		writeError(w, err)
		return
	}
	cmdapp.Log.Infof("Created job %s", job.ID)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, api.JobFromRecord(job))
}

type listHandler struct {
	data *ServiceData
}

func (h listHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.data.Jobs.List()
	if err != nil {
		writeError(w, err)
		return
	}
	res := make([]api.Job, 0, len(list))
	for i := range list {
		res = append(res, api.JobFromRecord(&list[i]))
	}
	writeJSON(w, res)
}

type getHandler struct {
	data *ServiceData
}

func (h getHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	job, err := h.data.Jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, api.JobFromRecord(job))
}

type cancelHandler struct {
	data *ServiceData
}

func (h cancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.data.Jobs.Cancel(id); err != nil {
		writeError(w, err)
		return
	}
	cmdapp.Log.Infof("Requested cancel for job %s", id)
	w.WriteHeader(http.StatusAccepted)
}

type deleteHandler struct {
	data *ServiceData
}

func (h deleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.data.Jobs.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	cmdapp.Log.Infof("Deleted job %s", id)
	w.WriteHeader(http.StatusNoContent)
}

type resultHandler struct {
	data *ServiceData
}

func (h resultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments, err := h.data.Jobs.Result(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	res := make([]api.Segment, 0, len(segments))
	for i := range segments {
		res = append(res, api.SegmentFromRecord(&segments[i]))
	}
	writeJSON(w, res)
}

type redactHandler struct {
	data *ServiceData
}

func (h redactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req api.RedactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errc.Validation("can't decode request"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, errc.Validation("no text"))
		return
	}

	var detectors []redactor.Detector
	entityCount := 0
	if h.data.Recognizer != nil {
		detectors = append(detectors, countingDetector{
			detector: redactor.NewStatisticalDetector(h.data.Recognizer, req.Categories,
				redactor.NewPersonIndex()),
			count: &entityCount})
	}
	patternCount := 0
	if h.data.Patterns != nil {
		detectors = append(detectors, countingDetector{detector: h.data.Patterns,
			count: &patternCount})
	}
	red, err := redactor.NewRedactor(detectors...)
	if err != nil {
		writeError(w, err)
		return
	}
	redacted, _, err := red.Redact(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, api.RedactResult{Text: req.Text, RedactedText: redacted,
		EntitiesFound: entityCount, PatternsMatched: patternCount})
}

// countingDetector counts raised spans before the overlap merge
type countingDetector struct {
	detector redactor.Detector
	count    *int
}

func (d countingDetector) Name() string {
	return d.detector.Name()
}

func (d countingDetector) Detect(ctx context.Context, text string) ([]redactor.Span, error) {
	spans, err := d.detector.Detect(ctx, text)
	if err == nil {
		*d.count += len(spans)
	}
	return spans, err
}

type redactionRerunHandler struct {
	data *ServiceData
}

func (h redactionRerunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req api.RedactionRerunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errc.Validation("can't decode request"))
		return
	}
	if req.Source == "" {
		req.Source = "original"
	}
	if req.Source != "original" && req.Source != "redacted" {
		writeError(w, errc.Validation("unknown source '%s'", req.Source))
		return
	}
	if h.data.Patterns == nil {
		writeError(w, errc.New(errc.DefaultCode, "no pattern detector configured"))
		return
	}
	if _, err := h.data.Jobs.Get(id); err != nil {
		writeError(w, err)
		return
	}
	segments, err := h.data.Segments.List(id)
	if err != nil {
		writeError(w, err)
		return
	}

	red, err := redactor.NewRedactor(h.data.Patterns)
	if err != nil {
		writeError(w, err)
		return
	}
	changed := 0
	for i := range segments {
		text := segments[i].Text
		if req.Source == "redacted" && segments[i].RedactedText != "" {
			text = segments[i].RedactedText
		}
		redacted, _, err := red.Redact(r.Context(), text)
		if err != nil {
			writeError(w, err)
			return
		}
		if redacted == text && segments[i].PatternRedactedText == "" {
			continue
		}
		if redacted == segments[i].PatternRedactedText {
			continue
		}
		err = h.data.Segments.Update(id, segments[i].ID,
			bson.M{"patternRedactedText": redacted})
		if err != nil {
			writeError(w, err)
			return
		}
		changed++
	}
	cmdapp.Log.Infof("Re-ran pattern redaction for job %s, changed %d segments", id, changed)
	writeJSON(w, api.RedactionRerunResult{ChangedSegments: changed})
}
