package fetch

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Token is the cancellation handle of one in-flight fetch.
//
// Cancellation is cooperative: Cancel flips the flag, cancels Context and runs
// the registered callbacks, but it never interrupts the fetch itself. The
// coordinator compares token pointers to recognize results that arrive after
// their token was superseded.
type Token struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	canceled  bool
	callbacks []func()
}

// NewToken creates a token whose Context derives from parent.
func NewToken(parent context.Context) *Token {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Token{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the token's unique identifier.
func (t *Token) ID() string {
	return t.id
}

// Context returns a context that is done once the token is cancelled or the
// parent context ends. Fetchers pass it to their I/O calls.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Cancel triggers the token. Callbacks run once, on the first call, in
// registration order. Safe to call concurrently and repeatedly.
func (t *Token) Cancel() {
	t.mu.Lock()
	if t.canceled {
		t.mu.Unlock()
		return
	}
	t.canceled = true
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	t.cancel()
	for _, fn := range callbacks {
		fn()
	}
}

// IsCanceled reports whether Cancel has been called.
func (t *Token) IsCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// OnCancel registers fn to run when the token is cancelled. If the token is
// already cancelled, fn runs immediately on the calling goroutine.
func (t *Token) OnCancel(fn func()) {
	t.mu.Lock()
	if t.canceled {
		t.mu.Unlock()
		fn()
		return
	}
	t.callbacks = append(t.callbacks, fn)
	t.mu.Unlock()
}

// release frees the context resources of a token that finished normally.
func (t *Token) release() {
	t.cancel()
}
