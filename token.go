package ssbspoof

import "sync/atomic"

// CancelToken is a set-once cancellation flag shared by reference with every
// loop in the pipeline. It is set by an external event (typically a
// termination signal) and polled, never cleared.
type CancelToken struct {
	flag atomic.Bool
}

func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

func (t *CancelToken) Cancel() {
	t.flag.Store(true)
}

func (t *CancelToken) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.flag.Load()
}
