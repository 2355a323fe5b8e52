package redactor

import (
	"context"
	"errors"
	"testing"

	"github.com/intervju/skriba/internal/pkg/ner"
	"github.com/stretchr/testify/assert"
)

type fakeDetector struct {
	name  string
	spans []Span
	err   error
}

func (d *fakeDetector) Name() string { return d.name }

func (d *fakeDetector) Detect(ctx context.Context, text string) ([]Span, error) {
	return d.spans, d.err
}

func TestInitFails(t *testing.T) {
	_, err := NewRedactor()
	assert.NotNil(t, err)
	_, err = NewRedactor(nil)
	assert.NotNil(t, err)
}

func TestEmptyTextUnchanged(t *testing.T) {
	r, _ := NewRedactor(&fakeDetector{name: "d"})
	res, spans, err := r.Redact(context.Background(), "   ")
	assert.Nil(t, err)
	assert.Equal(t, "   ", res)
	assert.Empty(t, spans)
}

func TestNoSpansUnchanged(t *testing.T) {
	r, _ := NewRedactor(&fakeDetector{name: "d"})
	res, spans, err := r.Redact(context.Background(), "Hej på dig")
	assert.Nil(t, err)
	assert.Equal(t, "Hej på dig", res)
	assert.Empty(t, spans)
}

func TestReplaces(t *testing.T) {
	r, _ := NewRedactor(&fakeDetector{name: "d",
		spans: []Span{{Start: 0, End: 4, Replacement: "[PERSON 1]"}}})
	res, spans, err := r.Redact(context.Background(), "Anna bor här")
	assert.Nil(t, err)
	assert.Equal(t, "[PERSON 1] bor här", res)
	assert.Equal(t, 1, len(spans))
}

func TestReplacesSeveral_OffsetsSafe(t *testing.T) {
	r, _ := NewRedactor(&fakeDetector{name: "d",
		spans: []Span{
			{Start: 0, End: 4, Replacement: "[PERSON 1]"},
			{Start: 11, End: 20, Replacement: "[PLATS]"}}})
	res, _, err := r.Redact(context.Background(), "Anna bor i Stockholm")
	assert.Nil(t, err)
	assert.Equal(t, "[PERSON 1] bor i [PLATS]", res)
}

func TestOverlap_TieFirstDetectorWins(t *testing.T) {
	r, _ := NewRedactor(
		&fakeDetector{name: "first",
			spans: []Span{{Start: 0, End: 4, Replacement: "[A]"}}},
		&fakeDetector{name: "second",
			spans: []Span{{Start: 0, End: 4, Replacement: "[B]"}}})
	res, spans, err := r.Redact(context.Background(), "abcdefgh")
	assert.Nil(t, err)
	assert.Equal(t, "[A]efgh", res)
	assert.Equal(t, 1, len(spans))
	assert.Equal(t, "[A]", spans[0].Replacement)
}

func TestOverlap_DescendingStartWins(t *testing.T) {
	r, _ := NewRedactor(&fakeDetector{name: "d",
		spans: []Span{{Start: 0, End: 4, Replacement: "[A]"},
			{Start: 2, End: 6, Replacement: "[C]"}}})
	res, spans, err := r.Redact(context.Background(), "abcdefgh")
	assert.Nil(t, err)
	assert.Equal(t, "ab[C]gh", res)
	assert.Equal(t, 1, len(spans))
	assert.Equal(t, "[C]", spans[0].Replacement)
}

func TestDetectorFailure(t *testing.T) {
	r, _ := NewRedactor(&fakeDetector{name: "d", err: errors.New("olia")})
	_, _, err := r.Redact(context.Background(), "Anna")
	assert.NotNil(t, err)
}

func TestNonASCIIOffsets(t *testing.T) {
	// rune offsets, not byte offsets
	r, _ := NewRedactor(&fakeDetector{name: "d",
		spans: []Span{{Start: 9, End: 12, Replacement: "[PERSON 1]"}}})
	res, _, err := r.Redact(context.Background(), "Hör här, Åsa!")
	assert.Nil(t, err)
	assert.Equal(t, "Hör här, [PERSON 1]!", res)
}

func TestDropInvalidSpans(t *testing.T) {
	r, _ := NewRedactor(&fakeDetector{name: "d",
		spans: []Span{{Start: 4, End: 4, Replacement: "[A]"},
			{Start: -1, End: 2, Replacement: "[B]"}}})
	res, spans, err := r.Redact(context.Background(), "abcdefgh")
	assert.Nil(t, err)
	assert.Equal(t, "abcdefgh", res)
	assert.Empty(t, spans)
}

type fakeRecognizer struct {
	entities []ner.Entity
	err      error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, text string) ([]ner.Entity, error) {
	return f.entities, f.err
}

func TestEndToEnd(t *testing.T) {
	rec := &fakeRecognizer{entities: []ner.Entity{
		{Word: "Anna", EntityGroup: "PRS", Score: 0.99, Start: 0, End: 4},
		{Word: "Stockholm", EntityGroup: "LOC", Score: 0.95, Start: 11, End: 20},
	}}
	sd := NewStatisticalDetector(rec, nil, NewPersonIndex())
	pd := NewPatternDetector(nil)
	r, err := NewRedactor(sd, pd)
	assert.Nil(t, err)

	res, spans, err := r.Redact(context.Background(), "Anna bor i Stockholm")

	assert.Nil(t, err)
	assert.Equal(t, "[PERSON 1] bor i [PLATS]", res)
	assert.Equal(t, 2, len(spans))
}
