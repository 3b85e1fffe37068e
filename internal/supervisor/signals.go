package supervisor

import (
	"os"
	"syscall"
)

// Signal definitions for cross-platform compatibility
var (
	sigterm os.Signal = syscall.SIGTERM
	sigkill os.Signal = syscall.SIGKILL
	sigint  os.Signal = syscall.SIGINT
)

// forwardedSignals are relayed to the child when the supervisor receives them
var forwardedSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGQUIT,
}
