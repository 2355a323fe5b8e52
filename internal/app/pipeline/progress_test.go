package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type progressCall struct {
	id      string
	percent int32
	step    string
}

type testWriter struct {
	calls []progressCall
	err   error
}

func (w *testWriter) UpdateProgress(id string, percent int32, step string) error {
	w.calls = append(w.calls, progressCall{id: id, percent: percent, step: step})
	return w.err
}

func TestCoalescer_KeepsLatestPerJob(t *testing.T) {
	w := &testWriter{}
	c := NewCoalescer(w, time.Second)
	c.Send("j1", 10, "transcribing")
	c.Send("j1", 20, "transcribing")
	c.Send("j2", 5, "transcribing")
	c.flush()
	assert.Equal(t, 2, len(w.calls))
	m := make(map[string]int32)
	for _, call := range w.calls {
		m[call.id] = call.percent
	}
	assert.Equal(t, int32(20), m["j1"])
	assert.Equal(t, int32(5), m["j2"])
}

func TestCoalescer_DropsDecreasing(t *testing.T) {
	w := &testWriter{}
	c := NewCoalescer(w, time.Second)
	c.Send("j1", 50, "diarizing")
	c.flush()
	c.Send("j1", 20, "transcribing")
	c.flush()
	assert.Equal(t, 1, len(w.calls))
	assert.Equal(t, int32(50), w.calls[0].percent)
}

func TestCoalescer_EqualPercentUpdatesLabel(t *testing.T) {
	w := &testWriter{}
	c := NewCoalescer(w, time.Second)
	c.Send("j1", 70, "transcription_complete")
	c.flush()
	c.Send("j1", 70, "diarization_unavailable")
	c.flush()
	assert.Equal(t, 2, len(w.calls))
	assert.Equal(t, "diarization_unavailable", w.calls[1].step)
}

func TestCoalescer_FinishStopsRelaying(t *testing.T) {
	w := &testWriter{}
	c := NewCoalescer(w, time.Second)
	c.Send("j1", 50, "diarizing")
	c.Finish("j1")
	c.Send("j1", 60, "redacting")
	c.flush()
	assert.Equal(t, 1, len(w.calls))
	assert.Equal(t, int32(50), w.calls[0].percent)
}

func TestCoalescer_FlushOnClose(t *testing.T) {
	w := &testWriter{}
	c := NewCoalescer(w, time.Hour)
	c.Start()
	c.Send("j1", 30, "transcribing")
	c.Close()
	assert.Equal(t, 1, len(w.calls))
}
