package procengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/alnah/go-assimp/internal/process"
)

// killGrace is how long Wait keeps collecting output after the process
// group was killed.
const killGrace = 2 * time.Second

// maxOutput caps captured combined output.
const maxOutput = 64 << 10

// Runner executes a command and reports its exit status and combined output.
// A non-nil error means the command could not be run or was interrupted;
// a non-zero exit code is not an error.
type Runner interface {
	Run(ctx context.Context, bin string, args []string, dir string) (code int, output []byte, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, bin string, args []string, dir string) (int, []byte, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, bin string, args []string, dir string) (int, []byte, error) {
	return f(ctx, bin, args, dir)
}

// osRunner runs real subprocesses in their own process group so that
// helper processes assimp might spawn are killed with it.
type osRunner struct{}

func (osRunner) Run(ctx context.Context, bin string, args []string, dir string) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204 -- bin comes from the engine locator
	cmd.Dir = dir
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			process.KillProcessGroup(cmd.Process.Pid)
		}
		return nil
	}
	cmd.WaitDelay = killGrace

	out := &cappedBuffer{max: maxOutput}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, out.Bytes(), ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), out.Bytes(), nil
	}
	if err != nil {
		return -1, out.Bytes(), fmt.Errorf("running %s: %w", bin, err)
	}
	return 0, out.Bytes(), nil
}

// cappedBuffer keeps the first max bytes written and discards the rest.
type cappedBuffer struct {
	bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
		} else {
			b.Buffer.Write(p)
		}
	}
	return len(p), nil
}
