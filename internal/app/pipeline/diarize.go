package pipeline

import (
	"context"
	"io"

	"github.com/intervju/skriba/internal/pkg/asr"
)

// SpeakerDetector returns speaker turns of an audio stream
type SpeakerDetector interface {
	Diarize(ctx context.Context, name string, file io.Reader) ([]asr.Turn, error)
}

// DiarizeStage assigns a speaker to every segment. Optional, skipped
// when the diarization sidecar is not wired
type DiarizeStage struct {
	detector SpeakerDetector
	files    FileStore
}

// NewDiarizeStage creates DiarizeStage instance. detector may be nil
func NewDiarizeStage(detector SpeakerDetector, files FileStore) *DiarizeStage {
	return &DiarizeStage{detector: detector, files: files}
}

// Name returns stage name
func (s *DiarizeStage) Name() string {
	return "diarization"
}

// Available tells whether the diarization sidecar is wired
func (s *DiarizeStage) Available() bool {
	return s.detector != nil
}

// Run fetches speaker turns and assigns segment speakers by largest
// time overlap
func (s *DiarizeStage) Run(ctx context.Context, data *JobData, sink ProgressSink) error {
	sink(70, "diarizing")
	f, err := s.files.Load(data.Job.FileID)
	if err != nil {
		return err
	}
	defer f.Close()

	turns, err := s.detector.Diarize(ctx, data.Job.FileName, f)
	if err != nil {
		return err
	}

	speakers := make(map[string]bool)
	total := len(data.Segments)
	for i := range data.Segments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		label := bestTurn(turns, data.Segments[i].Start, data.Segments[i].End)
		if label != "" {
			data.Segments[i].Speaker = asr.SpeakerName(label)
			speakers[label] = true
		}
		if total > 0 {
			sink(70+(i+1)*20/total, "diarizing")
		}
	}
	data.Speakers = len(speakers)
	sink(90, "diarization_complete")
	return nil
}

// bestTurn picks the turn with the largest overlap with the segment
func bestTurn(turns []asr.Turn, start, end float64) string {
	best := ""
	bestOverlap := 0.0
	for _, t := range turns {
		o := overlap(t.Start, t.End, start, end)
		if o > bestOverlap {
			bestOverlap = o
			best = t.Speaker
		}
	}
	return best
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	s := aStart
	if bStart > s {
		s = bStart
	}
	e := aEnd
	if bEnd < e {
		e = bEnd
	}
	return e - s
}
