package team

import "sync/atomic"

// quitFlag is a one-shot, monotonic "has Quit been requested" marker. It is
// checked synchronously by the calling goroutine, outside of coordinator
// context, which is why it is a plain atomic rather than state owned by the
// coordinator: the flag only ever moves false -> true, so a caller reading a
// slightly stale value can at worst let one more operation slip in after
// Quit, and that operation still observes quitRequested once it reaches the
// coordinator (see Team.quitIdlers).
type quitFlag struct {
	set atomic.Bool
}

func (q *quitFlag) markSet() {
	q.set.Store(true)
}

func (q *quitFlag) isSet() bool {
	return q.set.Load()
}

// check returns ErrTeamQuitting once markSet has been called.
func (q *quitFlag) check() error {
	if q.isSet() {
		return ErrTeamQuitting
	}
	return nil
}
