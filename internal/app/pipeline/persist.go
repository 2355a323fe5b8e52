package pipeline

import (
	"context"

	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/pkg/errors"
)

// SegmentWriter stores job segments
type SegmentWriter interface {
	Save(segments []persistence.Segment) error
}

// WordWriter stores job words
type WordWriter interface {
	Save(words []persistence.Word) error
}

// PersistStage writes the pipeline output to storage. Required
type PersistStage struct {
	segments SegmentWriter
	words    WordWriter
}

// NewPersistStage creates PersistStage instance
func NewPersistStage(segments SegmentWriter, words WordWriter) (*PersistStage, error) {
	if segments == nil {
		return nil, errors.New("no segment writer provided")
	}
	if words == nil {
		return nil, errors.New("no word writer provided")
	}
	return &PersistStage{segments: segments, words: words}, nil
}

// Name returns stage name
func (s *PersistStage) Name() string {
	return "persistence"
}

// Available is always true, persistence is a required stage
func (s *PersistStage) Available() bool {
	return true
}

// Run bulk inserts segments and words
func (s *PersistStage) Run(ctx context.Context, data *JobData, sink ProgressSink) error {
	sink(95, "persisting")
	if err := s.segments.Save(data.Segments); err != nil {
		return err
	}
	if err := s.words.Save(data.Words); err != nil {
		return err
	}
	sink(100, "finalizing")
	return nil
}
