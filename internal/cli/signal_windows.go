//go:build windows

package cli

import "os"

var restartSignals []os.Signal

func isRestartSignal(os.Signal) bool {
	return false
}
