package pipeline

import (
	"sync"
	"time"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
)

type progressEvent struct {
	jobID   string
	percent int32
	label   string
}

// ProgressWriter persists one progress value
type ProgressWriter interface {
	UpdateProgress(id string, percent int32, step string) error
}

// Coalescer buffers progress events from the workers and persists only
// the latest value per job on a fixed cadence. Intermediate values may
// be dropped, the last one per job is not
type Coalescer struct {
	writer   ProgressWriter
	interval time.Duration
	events   chan progressEvent

	m      sync.Mutex
	last   map[string]int32
	closed map[string]time.Time

	quit chan struct{}
	done chan struct{}
}

// NewCoalescer creates Coalescer instance
func NewCoalescer(writer ProgressWriter, interval time.Duration) *Coalescer {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Coalescer{writer: writer, interval: interval,
		events: make(chan progressEvent, 1000),
		last:   make(map[string]int32), closed: make(map[string]time.Time),
		quit: make(chan struct{}), done: make(chan struct{})}
}

// Start runs the drain loop
func (c *Coalescer) Start() {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.flush()
			case <-c.quit:
				c.flush()
				return
			}
		}
	}()
}

// Send queues a progress event without blocking. A full buffer drops
// the event, coalescing makes that safe
func (c *Coalescer) Send(jobID string, percent int32, label string) {
	select {
	case c.events <- progressEvent{jobID: jobID, percent: percent, label: label}:
	default:
		cmdapp.Log.Debugf("Dropping progress event %s: %d", jobID, percent)
	}
}

// Finish flushes pending events of the job and stops relaying new ones.
// Call it before the terminal status write
func (c *Coalescer) Finish(jobID string) {
	c.flush()
	c.m.Lock()
	defer c.m.Unlock()
	c.closed[jobID] = time.Now()
	delete(c.last, jobID)
}

// Close stops the drain loop
func (c *Coalescer) Close() {
	close(c.quit)
	<-c.done
}

// flush drains the event buffer and persists the latest value per job.
// Decreasing values are clamped, not propagated
func (c *Coalescer) flush() {
	latest := make(map[string]progressEvent)
	for {
		select {
		case e := <-c.events:
			cur, ok := latest[e.jobID]
			if !ok || e.percent >= cur.percent {
				latest[e.jobID] = e
			}
		default:
			c.persist(latest)
			return
		}
	}
}

func (c *Coalescer) persist(latest map[string]progressEvent) {
	c.m.Lock()
	for id, at := range c.closed {
		if time.Since(at) > time.Minute {
			delete(c.closed, id)
		}
	}
	c.m.Unlock()
	for _, e := range latest {
		c.m.Lock()
		if _, fin := c.closed[e.jobID]; fin || e.percent < c.last[e.jobID] {
			c.m.Unlock()
			continue
		}
		c.last[e.jobID] = e.percent
		c.m.Unlock()
		if err := c.writer.UpdateProgress(e.jobID, e.percent, e.label); err != nil {
			cmdapp.Log.Error(err)
		}
	}
}
