package redactor

import (
	"context"
	"fmt"

	"github.com/intervju/skriba/internal/pkg/ner"
)

const defaultThreshold = 0.7

// entity group per selectable category
var categoryLabels = map[string]string{
	"person":       "PRS",
	"location":     "LOC",
	"organization": "ORG",
	"date":         "TME",
	"event":        "EVN",
}

// replacement per entity group, persons are numbered separately
var entityReplacements = map[string]string{
	"LOC": "[PLATS]",
	"ORG": "[ORGANISATION]",
	"TME": "[DATUM]",
	"EVN": "[HÄNDELSE]",
}

// EntityRecognizer returns named entities of a text
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]ner.Entity, error)
}

// StatisticalDetector turns recognized entities into redaction spans
type StatisticalDetector struct {
	recognizer EntityRecognizer
	threshold  float64
	labels     map[string]bool
	persons    *PersonIndex
}

// NewStatisticalDetector creates StatisticalDetector instance.
// Empty categories means all categories. The persons index is job scoped,
// pass the same one for all texts of a job
func NewStatisticalDetector(recognizer EntityRecognizer, categories []string, persons *PersonIndex) *StatisticalDetector {
	labels := make(map[string]bool)
	if len(categories) == 0 {
		for _, l := range categoryLabels {
			labels[l] = true
		}
	} else {
		for _, c := range categories {
			if l, ok := categoryLabels[c]; ok {
				labels[l] = true
			}
		}
	}
	if persons == nil {
		persons = NewPersonIndex()
	}
	return &StatisticalDetector{recognizer: recognizer, threshold: defaultThreshold,
		labels: labels, persons: persons}
}

// Name returns detector name
func (d *StatisticalDetector) Name() string {
	return "statistical"
}

// Detect returns spans for entities above the confidence threshold
func (d *StatisticalDetector) Detect(ctx context.Context, text string) ([]Span, error) {
	entities, err := d.recognizer.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}
	res := make([]Span, 0, len(entities))
	for _, e := range entities {
		if e.Score < d.threshold {
			continue
		}
		if !d.labels[e.EntityGroup] {
			continue
		}
		var replacement string
		if e.EntityGroup == "PRS" {
			replacement = fmt.Sprintf("[PERSON %d]", d.persons.Ordinal(e.Word))
		} else {
			replacement = entityReplacements[e.EntityGroup]
		}
		res = append(res, Span{Start: e.Start, End: e.End, Replacement: replacement,
			Label: e.EntityGroup, Score: e.Score})
	}
	return res, nil
}
