package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	p, err := NewProber("")
	assert.Nil(t, err)
	assert.Equal(t, "ffprobe", p.cmd)
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration([]byte(`{"format": {"duration": "10.500000"}}`))
	assert.Nil(t, err)
	assert.Equal(t, time.Millisecond*10500, d)
}

func TestParseDuration_Fail(t *testing.T) {
	_, err := parseDuration([]byte(`{"format": {}}`))
	assert.NotNil(t, err)
	_, err = parseDuration([]byte(`olia`))
	assert.NotNil(t, err)
}

func TestDuration(t *testing.T) {
	p, _ := NewProber("ffprobe")
	p.runCmd = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "ffprobe", name)
		assert.Contains(t, args, "1.wav")
		return []byte(`{"format": {"duration": "2.000000"}}`), nil
	}
	d, err := p.Duration(context.Background(), "1.wav")
	assert.Nil(t, err)
	assert.Equal(t, time.Second*2, d)
}

func TestDuration_Fail(t *testing.T) {
	p, _ := NewProber("ffprobe")
	p.runCmd = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("olia")
	}
	_, err := p.Duration(context.Background(), "1.wav")
	assert.NotNil(t, err)
}
