//go:build !windows

package cli

import (
	"os"
	"syscall"
)

var restartSignals = []os.Signal{syscall.SIGHUP}

func isRestartSignal(sig os.Signal) bool {
	return sig == syscall.SIGHUP
}
