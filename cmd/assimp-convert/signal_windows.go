//go:build windows

package main

import "os"

// shutdownSignals cancel a running batch. SIGTERM is never delivered on
// Windows.
var shutdownSignals = []os.Signal{os.Interrupt}
