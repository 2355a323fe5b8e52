package registry

import (
	"io"
	"sync"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

// LoadFunc creates a model handle by key
type LoadFunc func(key string) (interface{}, error)

// Registry keeps loaded model handles by key.
// A handle is loaded at most once per process
type Registry struct {
	load    LoadFunc
	handles map[string]interface{}
	m       sync.Mutex
}

// NewRegistry creates Registry instance
func NewRegistry(load LoadFunc) (*Registry, error) {
	if load == nil {
		return nil, errors.New("no load function provided")
	}
	return &Registry{load: load, handles: make(map[string]interface{})}, nil
}

// Get returns the handle for key, loading it on first use
func (r *Registry) Get(key string) (interface{}, error) {
	r.m.Lock()
	defer r.m.Unlock()

	if h, ok := r.handles[key]; ok {
		return h, nil
	}
	cmdapp.Log.Infof("Loading model %s", key)
	h, err := r.load(key)
	if err != nil {
		return nil, errors.Wrap(err, "can't load model "+key)
	}
	r.handles[key] = h
	return h, nil
}

// Clear drops all loaded handles without closing them
func (r *Registry) Clear() {
	r.m.Lock()
	defer r.m.Unlock()
	r.handles = make(map[string]interface{})
}

// Close closes closable handles and drops them
func (r *Registry) Close() {
	r.m.Lock()
	defer r.m.Unlock()
	for k, h := range r.handles {
		if c, ok := h.(io.Closer); ok {
			cmdapp.LogIf(c.Close())
		}
		delete(r.handles, k)
	}
}
