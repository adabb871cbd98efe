package delegation

import (
	"sync"

	"github.com/dreamteam-ai/dispatch/pkg/logger"
)

// ResponseWaiter correlates posted channel requests with their eventual
// responses. Each request registers a buffered channel under its request id;
// the responder's delivery resolves it. A delivery for an id nobody is
// waiting on (a late response after timeout) is dropped.
type ResponseWaiter struct {
	pending map[string]chan string
	mu      sync.Mutex
}

func NewResponseWaiter() *ResponseWaiter {
	return &ResponseWaiter{pending: make(map[string]chan string)}
}

// Register creates the waiting channel for a request id. The caller selects
// on it with a deadline.
func (w *ResponseWaiter) Register(requestID string) chan string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan string, 1)
	w.pending[requestID] = ch
	return ch
}

// Deliver hands the response to the registered waiter. Returns false when
// no waiter exists for the id, which happens when the requester has already
// timed out.
func (w *ResponseWaiter) Deliver(requestID, content string) bool {
	w.mu.Lock()
	ch, ok := w.pending[requestID]
	if ok {
		delete(w.pending, requestID)
	}
	w.mu.Unlock()
	if !ok {
		logger.DebugCF("delegation", "Dropping response with no waiter",
			map[string]any{"request_id": requestID})
		return false
	}
	ch <- content
	return true
}

// Cleanup removes a pending waiter without delivering. Called on timeout so
// abandoned entries do not accumulate.
func (w *ResponseWaiter) Cleanup(requestID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, requestID)
}
