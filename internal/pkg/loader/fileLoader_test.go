package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailsOnInit(t *testing.T) {
	_, err := NewLocalFileLoader("")
	assert.NotNil(t, err)
}

func TestInit(t *testing.T) {
	l, err := NewLocalFileLoader("/data")
	assert.Nil(t, err)
	assert.NotNil(t, l)
}

func TestResolve(t *testing.T) {
	l, _ := NewLocalFileLoader("/data")
	assert.Equal(t, "/data/file.wav", l.Resolve("file.wav"))
}

func TestLoadFails(t *testing.T) {
	l, _ := NewLocalFileLoader("/data")
	l.OpenFileFunc = func(fileName string) (File, error) {
		return nil, errors.New("olia")
	}
	_, err := l.Load("file.wav")
	assert.NotNil(t, err)
}

func TestDeleteMissing(t *testing.T) {
	l, _ := NewLocalFileLoader(t.TempDir())
	assert.Nil(t, l.Delete("no-such-file.wav"))
}
