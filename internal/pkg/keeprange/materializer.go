package keeprange

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	errc "github.com/intervju/skriba/internal/pkg/err"
)

type runCmdFunc func(ctx context.Context, name string, args ...string) error

// Materializer cuts kept ranges from the source audio and concatenates
// them into one file using ffmpeg
type Materializer struct {
	cmd    string
	runCmd runCmdFunc
}

// NewMaterializer creates Materializer instance
func NewMaterializer(ffmpegCmd string) (*Materializer, error) {
	if ffmpegCmd == "" {
		ffmpegCmd = "ffmpeg"
	}
	res := Materializer{cmd: ffmpegCmd, runCmd: runCmd}
	return &res, nil
}

// Materialize writes the edited audio to outFile.
// Temp artifacts and a partial output are removed on every failure
func (m *Materializer) Materialize(ctx context.Context, srcFile string, ranges []Range, outFile string) error {
	if len(ranges) == 0 {
		return errc.Validation("no ranges to keep")
	}
	tmpDir, err := ioutil.TempDir("", "skriba-edit-")
	if err != nil {
		return errc.Materialization(err, "can't create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	ext := filepath.Ext(srcFile)
	clips := make([]string, 0, len(ranges))
	for i, r := range ranges {
		clip := filepath.Join(tmpDir, fmt.Sprintf("clip_%04d%s", i, ext))
		err = m.runCmd(ctx, m.cmd, "-y", "-i", srcFile,
			"-ss", formatSeconds(r.Start), "-to", formatSeconds(r.End),
			"-c", "copy", clip)
		if err != nil {
			return errc.Materialization(err, "can't extract range %s-%s",
				formatSeconds(r.Start), formatSeconds(r.End))
		}
		clips = append(clips, clip)
	}

	listFile := filepath.Join(tmpDir, "concat.txt")
	var sb strings.Builder
	for _, c := range clips {
		sb.WriteString("file '" + c + "'\n")
	}
	if err = ioutil.WriteFile(listFile, []byte(sb.String()), 0644); err != nil {
		return errc.Materialization(err, "can't write concat list")
	}

	err = m.runCmd(ctx, m.cmd, "-y", "-f", "concat", "-safe", "0",
		"-i", listFile, "-c", "copy", outFile)
	if err != nil {
		if rmErr := os.Remove(outFile); rmErr != nil && !os.IsNotExist(rmErr) {
			cmdapp.LogIf(rmErr)
		}
		return errc.Materialization(err, "can't concatenate %d clips", len(clips))
	}
	cmdapp.Log.Infof("Materialized %d ranges to %s", len(ranges), outFile)
	return nil
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func runCmd(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if len(out) > 500 {
			out = out[len(out)-500:]
		}
		return fmt.Errorf("%s failed: %v\n%s", name, err, string(out))
	}
	return nil
}
