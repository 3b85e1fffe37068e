package supervisor

import (
	"context"
	"os"
	"os/signal"
)

// ForwardSignals relays SIGINT, SIGTERM, SIGHUP and SIGQUIT received by this
// process to the supervised child, then cancels supervision so Run returns
// once the child has exited. A repeated signal is forwarded again.
//
// onSignal, if non-nil, is called before each forward. The returned function
// stops forwarding.
func ForwardSignals(sup *Supervisor, cancel context.CancelFunc, onSignal func(os.Signal)) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, forwardedSignals...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				if onSignal != nil {
					onSignal(sig)
				}
				// ErrNoChild during the restart delay is fine: cancel stops the next spawn
				_ = sup.Forward(sig)
				cancel()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
