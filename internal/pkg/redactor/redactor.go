package redactor

import (
	"context"
	"sort"
	"strings"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

// Span is one detected text range with its replacement.
// Offsets are rune positions in the original text, end is exclusive
type Span struct {
	Start       int
	End         int
	Replacement string
	Label       string
	Score       float64
}

// Detector finds text ranges to replace
type Detector interface {
	Name() string
	Detect(ctx context.Context, text string) ([]Span, error)
}

// Redactor replaces detected ranges in text.
// Detector order matters, the first detector wins on equal span starts
type Redactor struct {
	detectors []Detector
}

// NewRedactor creates Redactor instance
func NewRedactor(detectors ...Detector) (*Redactor, error) {
	ds := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		if d != nil {
			ds = append(ds, d)
		}
	}
	if len(ds) == 0 {
		return nil, errors.New("no detectors provided")
	}
	return &Redactor{detectors: ds}, nil
}

// Redact runs all detectors against the text and applies the merged spans.
// Returns the new text and the applied spans
func (r *Redactor) Redact(ctx context.Context, text string) (string, []Span, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil, nil
	}
	all := make([]Span, 0)
	for _, d := range r.detectors {
		spans, err := d.Detect(ctx, text)
		if err != nil {
			return "", nil, errors.Wrap(err, "detector "+d.Name()+" failed")
		}
		all = append(all, spans...)
	}
	applied := mergeSpans(all)
	return applySpans(text, applied), applied, nil
}

// mergeSpans orders spans by start descending keeping detector order on ties
// and drops spans overlapping an already kept one
func mergeSpans(spans []Span) []Span {
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})
	res := make([]Span, 0, len(sorted))
	for _, s := range sorted {
		if s.Start < 0 || s.End <= s.Start {
			cmdapp.Log.Warnf("Dropping invalid span [%d, %d)", s.Start, s.End)
			continue
		}
		if overlaps(res, s) {
			continue
		}
		res = append(res, s)
	}
	return res
}

func overlaps(kept []Span, s Span) bool {
	for _, k := range kept {
		if s.Start < k.End && k.Start < s.End {
			return true
		}
	}
	return false
}

// applySpans replaces spans in the text. Spans must be ordered by start
// descending so earlier replacements do not shift later offsets
func applySpans(text string, spans []Span) string {
	runes := []rune(text)
	for _, s := range spans {
		if s.End > len(runes) {
			continue
		}
		runes = append(runes[:s.Start], append([]rune(s.Replacement), runes[s.End:]...)...)
	}
	return string(runes)
}
