//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals cancel a running batch; in-flight conversions see the
// canceled context and their subprocesses are killed.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
