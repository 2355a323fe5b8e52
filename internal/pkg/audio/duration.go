package audio

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

type runCmdFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober extracts audio info using ffprobe
type Prober struct {
	cmd    string
	runCmd runCmdFunc
}

// NewProber creates a Prober instance
func NewProber(ffprobeCmd string) (*Prober, error) {
	if ffprobeCmd == "" {
		ffprobeCmd = "ffprobe"
	}
	res := Prober{cmd: ffprobeCmd, runCmd: runCmd}
	return &res, nil
}

// Duration returns audio length of the file
func (p *Prober) Duration(ctx context.Context, file string) (time.Duration, error) {
	cmdapp.Log.Debugf("Probing audio: %s", file)
	out, err := p.runCmd(ctx, p.cmd, "-v", "error", "-show_entries", "format=duration",
		"-of", "json", file)
	if err != nil {
		return 0, errors.Wrap(err, "can't probe "+file)
	}
	return parseDuration(out)
}

func parseDuration(data []byte) (time.Duration, error) {
	var res probeResponse
	err := json.Unmarshal(data, &res)
	if err != nil {
		return 0, errors.Wrap(err, "can't decode ffprobe output")
	}
	dur, err := strconv.ParseFloat(res.Format.Duration, 64)
	if err != nil {
		return 0, errors.Wrap(err, "can't parse duration "+res.Format.Duration)
	}
	return time.Millisecond * time.Duration(int64(dur*1000)), nil
}

func runCmd(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type probeResponse struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}
