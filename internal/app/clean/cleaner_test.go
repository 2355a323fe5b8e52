package clean

import (
	"testing"

	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type testJobGetter struct {
	job *persistence.Job
	err error
}

func (g *testJobGetter) Get(id string) (*persistence.Job, error) {
	return g.job, g.err
}

type testRecordCleaner struct {
	ids []string
	err error
}

func (c *testRecordCleaner) Clean(ID string) error {
	c.ids = append(c.ids, ID)
	return c.err
}

type testFileCleaner struct {
	deleted []string
	err     error
}

func (c *testFileCleaner) Delete(name string) error {
	c.deleted = append(c.deleted, name)
	return c.err
}

func TestNewCleaner_Validates(t *testing.T) {
	jg := &testJobGetter{}
	rc := &testRecordCleaner{}
	fc := &testFileCleaner{}
	_, err := newCleanerImpl(nil, []Cleaner{rc}, fc)
	assert.NotNil(t, err)
	_, err = newCleanerImpl(jg, nil, fc)
	assert.NotNil(t, err)
	_, err = newCleanerImpl(jg, []Cleaner{rc}, nil)
	assert.NotNil(t, err)
	_, err = newCleanerImpl(jg, []Cleaner{rc}, fc)
	assert.Nil(t, err)
}

func TestClean(t *testing.T) {
	jg := &testJobGetter{job: &persistence.Job{ID: "j1", FileID: "f1.wav"}}
	rc1 := &testRecordCleaner{}
	rc2 := &testRecordCleaner{}
	fc := &testFileCleaner{}
	c, _ := newCleanerImpl(jg, []Cleaner{rc1, rc2}, fc)

	err := c.Clean("j1")

	assert.Nil(t, err)
	assert.Equal(t, []string{"f1.wav"}, fc.deleted)
	assert.Equal(t, []string{"j1"}, rc1.ids)
	assert.Equal(t, []string{"j1"}, rc2.ids)
}

func TestClean_NoFile(t *testing.T) {
	jg := &testJobGetter{job: &persistence.Job{ID: "j1"}}
	rc := &testRecordCleaner{}
	fc := &testFileCleaner{}
	c, _ := newCleanerImpl(jg, []Cleaner{rc}, fc)

	err := c.Clean("j1")

	assert.Nil(t, err)
	assert.Empty(t, fc.deleted)
	assert.Equal(t, []string{"j1"}, rc.ids)
}

func TestClean_FileFailureIgnored(t *testing.T) {
	jg := &testJobGetter{job: &persistence.Job{ID: "j1", FileID: "f1.wav"}}
	rc := &testRecordCleaner{}
	fc := &testFileCleaner{err: errors.New("olia")}
	c, _ := newCleanerImpl(jg, []Cleaner{rc}, fc)

	err := c.Clean("j1")

	assert.Nil(t, err)
	assert.Equal(t, []string{"j1"}, rc.ids)
}

func TestClean_PartialFailure(t *testing.T) {
	jg := &testJobGetter{job: &persistence.Job{ID: "j1"}}
	rc1 := &testRecordCleaner{err: errors.New("olia")}
	rc2 := &testRecordCleaner{}
	c, _ := newCleanerImpl(jg, []Cleaner{rc1, rc2}, &testFileCleaner{})

	err := c.Clean("j1")

	assert.Nil(t, err)
}

func TestClean_AllFail(t *testing.T) {
	jg := &testJobGetter{job: &persistence.Job{ID: "j1"}}
	rc1 := &testRecordCleaner{err: errors.New("olia")}
	rc2 := &testRecordCleaner{err: errors.New("olia")}
	c, _ := newCleanerImpl(jg, []Cleaner{rc1, rc2}, &testFileCleaner{})

	err := c.Clean("j1")

	assert.NotNil(t, err)
}

func TestClean_JobGetFails(t *testing.T) {
	jg := &testJobGetter{err: errors.New("olia")}
	rc := &testRecordCleaner{}
	c, _ := newCleanerImpl(jg, []Cleaner{rc}, &testFileCleaner{})

	err := c.Clean("j1")

	assert.NotNil(t, err)
	assert.Empty(t, rc.ids)
}
