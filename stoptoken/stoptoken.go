// Package stoptoken implements the cooperative cancellation primitive used
// throughout the async composition core: an in-place stop source, the
// lightweight tokens handed out by it, and RAII-style callback registration.
//
// A Source owns a flag and a list of registered callbacks. Requesting a
// stop flips the flag and invokes every registered callback exactly once,
// synchronously, on the requesting goroutine. Registering a callback after
// the source has already been stopped runs the callback synchronously on
// the registering goroutine instead of queuing it — there is no "missed
// wakeup" window.
package stoptoken

import "sync"

// Source owns the cancellation flag and the callback list for one
// cancellation domain. The zero value is a ready-to-use, not-yet-stopped
// source. A Source must not be copied after first use.
type Source struct {
	mu        sync.Mutex
	stopped   bool
	callbacks []*Callback
	nextID    uint64
}

// New returns a freshly allocated, not-yet-stopped Source.
func New() *Source {
	return &Source{}
}

// Token returns a lightweight handle referring to this source. Tokens are
// values and may be copied and compared freely.
func (s *Source) Token() Token {
	return Token{source: s}
}

// IsStopped reports whether RequestStop has ever been called.
func (s *Source) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// RequestStop atomically marks the source stopped and invokes every
// registered callback exactly once, synchronously, on the calling
// goroutine. A callback that races with RequestStop either runs inline
// here or has already finished running via Unregister — callback bodies
// never execute concurrently with their own deregistration.
//
// Calling RequestStop more than once is a no-op after the first call,
// satisfying the stop-idempotence invariant: every registered callback
// observes at most one invocation.
func (s *Source) RequestStop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	pending := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()

	for _, cb := range pending {
		cb.invoke()
	}
}

// Token is a copyable, comparable handle onto a Source. The zero Token
// refers to no source and behaves as an always-not-stopped, registration-is-noop
// token — convenient as the "no cancellation available" default.
type Token struct {
	source *Source
}

// IsStopped reports whether the underlying source has been stopped. A zero
// Token always reports false.
func (t Token) IsStopped() bool {
	if t.source == nil {
		return false
	}
	return t.source.IsStopped()
}

// StopPossible reports whether this token can ever transition to stopped,
// i.e. whether it refers to a real Source.
func (t Token) StopPossible() bool {
	return t.source != nil
}

// Register attaches fn to the token's source. If the source is already
// stopped, fn runs synchronously before Register returns. Otherwise fn
// runs synchronously, on whichever goroutine calls RequestStop, the first
// (and only) time the source is stopped.
//
// Register returns a Callback; the caller must call Callback.Unregister
// when it no longer needs the registration — typically in the downstream
// operation state's cleanup path — to avoid holding the callback alive for
// the lifetime of the source.
func (t Token) Register(fn func()) *Callback {
	cb := &Callback{fn: fn}
	if t.source == nil {
		return cb
	}
	cb.source = t.source

	t.source.mu.Lock()
	if t.source.stopped {
		t.source.mu.Unlock()
		cb.invoke()
		return cb
	}
	t.source.nextID++
	cb.id = t.source.nextID
	t.source.callbacks = append(t.source.callbacks, cb)
	t.source.mu.Unlock()

	return cb
}

// Callback is the handle returned by Token.Register. It serializes its own
// invocation against concurrent RequestStop/Unregister calls so that a
// callback body never runs after Unregister has returned, and never runs
// more than once.
type Callback struct {
	mu      sync.Mutex
	fn      func()
	invoked bool
	source  *Source
	id      uint64
}

func (cb *Callback) invoke() {
	cb.mu.Lock()
	if cb.invoked {
		cb.mu.Unlock()
		return
	}
	cb.invoked = true
	fn := cb.fn
	cb.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Unregister removes the callback from its source's pending list. If the
// callback has already started running (because the source was stopped
// concurrently), Unregister blocks until that invocation has finished —
// this is what prevents a callback body from racing its own destruction.
func (cb *Callback) Unregister() {
	if cb.source == nil {
		return
	}

	cb.source.mu.Lock()
	for i, existing := range cb.source.callbacks {
		if existing == cb {
			cb.source.callbacks = append(cb.source.callbacks[:i], cb.source.callbacks[i+1:]...)
			cb.source.mu.Unlock()
			// Removed before it could ever run; nothing more to do.
			cb.mu.Lock()
			cb.invoked = true
			cb.mu.Unlock()
			return
		}
	}
	cb.source.mu.Unlock()

	// Not found: either never registered (stopped at Register time, ran
	// inline) or already fired by RequestStop. Either way, wait for any
	// in-flight invocation to finish before returning.
	cb.mu.Lock()
	cb.mu.Unlock()
}
