package pipeline

import (
	"context"

	"github.com/intervju/skriba/internal/pkg/redactor"
)

// RedactStage de-identifies segment texts. Optional, skipped when the
// entity recognition sidecar is not wired
type RedactStage struct {
	recognizer redactor.EntityRecognizer
	patterns   *redactor.PatternDetector
}

// NewRedactStage creates RedactStage instance. recognizer may be nil
func NewRedactStage(recognizer redactor.EntityRecognizer, patterns *redactor.PatternDetector) *RedactStage {
	return &RedactStage{recognizer: recognizer, patterns: patterns}
}

// Name returns stage name
func (s *RedactStage) Name() string {
	return "redaction"
}

// Available tells whether the entity recognition sidecar is wired
func (s *RedactStage) Available() bool {
	return s.recognizer != nil
}

// Run redacts every segment text. Person numbering is consistent
// across all segments of the job
func (s *RedactStage) Run(ctx context.Context, data *JobData, sink ProgressSink) error {
	sink(90, "redacting")
	persons := redactor.NewPersonIndex()
	detectors := []redactor.Detector{
		redactor.NewStatisticalDetector(s.recognizer, data.Job.EntityCategories, persons)}
	if s.patterns != nil {
		detectors = append(detectors, s.patterns)
	}
	r, err := redactor.NewRedactor(detectors...)
	if err != nil {
		return err
	}

	total := len(data.Segments)
	for i := range data.Segments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		redacted, _, err := r.Redact(ctx, data.Segments[i].Text)
		if err != nil {
			return err
		}
		data.Segments[i].RedactedText = redacted
		if total > 0 {
			sink(90+(i+1)*5/total, "redacting")
		}
	}
	sink(95, "redaction_complete")
	return nil
}
