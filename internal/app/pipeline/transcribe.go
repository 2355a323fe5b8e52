package pipeline

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/intervju/skriba/internal/pkg/asr"
	"github.com/intervju/skriba/internal/pkg/audio"
	"github.com/intervju/skriba/internal/pkg/loader"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/intervju/skriba/internal/pkg/registry"
	"github.com/pkg/errors"
)

// Transcriber runs speech recognition on an audio stream
type Transcriber interface {
	Transcribe(ctx context.Context, name string, file io.Reader, opt asr.Options) (*asr.Result, error)
}

// FileStore loads stored audio files
type FileStore interface {
	Load(name string) (loader.File, error)
	Resolve(name string) string
}

// TranscribeStage turns the job audio into segments with word level
// timestamps. It is required, its absence is a failure
type TranscribeStage struct {
	clients *registry.Registry
	files   FileStore
	prober  *audio.Prober
}

// NewTranscribeStage creates TranscribeStage instance
func NewTranscribeStage(clients *registry.Registry, files FileStore, prober *audio.Prober) (*TranscribeStage, error) {
	if clients == nil {
		return nil, errors.New("no client registry provided")
	}
	if files == nil {
		return nil, errors.New("no file store provided")
	}
	return &TranscribeStage{clients: clients, files: files, prober: prober}, nil
}

// Name returns stage name
func (s *TranscribeStage) Name() string {
	return "transcription"
}

// Available is always true, transcription is the required stage
func (s *TranscribeStage) Available() bool {
	return true
}

// Run recognizes the audio and fills segments and words
func (s *TranscribeStage) Run(ctx context.Context, data *JobData, sink ProgressSink) error {
	sink(5, "transcribing")
	job := data.Job
	data.FilePath = s.files.Resolve(job.FileID)

	h, err := s.clients.Get(job.Model)
	if err != nil {
		return err
	}
	client, ok := h.(Transcriber)
	if !ok {
		return errors.New("wrong model handle for " + job.Model)
	}

	f, err := s.files.Load(job.FileID)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := client.Transcribe(ctx, job.FileName, f, asr.Options{Model: job.Model, Language: job.Language})
	if err != nil {
		return err
	}

	total := len(res.Segments)
	for i, rs := range res.Segments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		seg := persistence.Segment{ID: uuid.New().String(), JobID: job.ID, Index: i,
			Start: rs.Start, End: rs.End, Text: rs.Text, Confidence: rs.Confidence}
		for wi, rw := range rs.Words {
			data.Words = append(data.Words, persistence.Word{ID: uuid.New().String(),
				JobID: job.ID, SegmentID: seg.ID, Index: wi, Start: rw.Start,
				End: rw.End, Text: rw.Word, Confidence: rw.Probability, Included: true})
		}
		data.Segments = append(data.Segments, seg)
		if total > 0 {
			sink(5+(i+1)*65/total, "transcribing")
		}
	}

	data.Duration = res.Duration
	if data.Duration == 0 && s.prober != nil {
		if d, err := s.prober.Duration(ctx, data.FilePath); err == nil {
			data.Duration = d.Seconds()
		}
	}
	sink(70, "transcription_complete")
	return nil
}
