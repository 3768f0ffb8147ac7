package process

// Notes:
// - KillProcessGroup is only exercised with PIDs that cannot match a live
//   process group; real termination is covered by the procengine
//   cancellation test.
// - PID 0 would target the current process group and is rejected early.

import (
	"os/exec"
	"testing"
)

func TestKillProcessGroup_InvalidPID(t *testing.T) {
	t.Parallel()

	KillProcessGroup(999999999)
}

func TestKillProcessGroup_NonPositivePIDIsIgnored(t *testing.T) {
	t.Parallel()

	KillProcessGroup(0)
	KillProcessGroup(-1)
}

func TestIsolate_SetsProcAttr(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("true")
	Isolate(cmd)
	if cmd.SysProcAttr == nil {
		t.Fatal("Isolate() left SysProcAttr nil")
	}
}
