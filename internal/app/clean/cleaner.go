package clean

import (
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/pkg/errors"
)

// Cleaner deletes information by ID
type Cleaner interface {
	Clean(ID string) error
}

// JobGetter loads a job record
type JobGetter interface {
	Get(id string) (*persistence.Job, error)
}

// FileCleaner removes a stored audio file
type FileCleaner interface {
	Delete(name string) error
}

// cleanerImpl removes job records from all tables and the stored audio
type cleanerImpl struct {
	jobs    JobGetter
	records []Cleaner
	files   FileCleaner
}

func newCleanerImpl(jobs JobGetter, records []Cleaner, files FileCleaner) (*cleanerImpl, error) {
	if jobs == nil {
		return nil, errors.New("no job getter provided")
	}
	if len(records) == 0 {
		return nil, errors.New("no record cleaners provided")
	}
	if files == nil {
		return nil, errors.New("no file cleaner provided")
	}
	return &cleanerImpl{jobs: jobs, records: records, files: files}, nil
}

func (c *cleanerImpl) Clean(ID string) error {
	job, err := c.jobs.Get(ID)
	if err != nil {
		return err
	}
	if job != nil && job.FileID != "" {
		if err := c.files.Delete(job.FileID); err != nil {
			cmdapp.Log.Error(err)
		}
	}
	failed := 0
	for _, r := range c.records {
		if err := r.Clean(ID); err != nil {
			cmdapp.Log.Error(err)
			failed++
		}
	}
	if failed == len(c.records) {
		return errors.New("all delete tasks failed")
	}
	return nil
}
