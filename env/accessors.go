package env

import "github.com/tailored-agentic-units/async/stoptoken"

var (
	stopTokenKey = NewKey("stop_token")
	domainKey    = NewKey("domain")
	allocatorKey = NewKey("allocator")
	schedulerKey = NewKey("scheduler")

	completionSchedulerKeys = [...]Key{
		ChannelValue:   NewKey("completion_scheduler.value"),
		ChannelError:   NewKey("completion_scheduler.error"),
		ChannelStopped: NewKey("completion_scheduler.stopped"),
	}
)

// CompletionSchedulerKey returns the stable Key used to store the
// completion scheduler advertised for channel c.
func CompletionSchedulerKey(c Channel) Key {
	return completionSchedulerKeys[c]
}

// Allocator is the optional L0 allocator query. Most environments never
// set one; callers that want allocation-aware operation states (e.g. a
// heap-pooled start_detached) can attach one with WithAllocator.
type Allocator interface {
	Alloc(size int) []byte
}

// WithStopToken attaches tok as the environment's get_stop_token query.
func WithStopToken(e Env, tok stoptoken.Token) Env {
	return e.With(stopTokenKey, tok)
}

// StopToken returns the environment's stop token, or the zero Token (which
// never reports stopped) if none was attached.
func (e Env) StopToken() stoptoken.Token {
	if v, ok := e.Get(stopTokenKey); ok {
		if tok, ok := v.(stoptoken.Token); ok {
			return tok
		}
	}
	return stoptoken.Token{}
}

// WithAllocator attaches an optional allocator to the environment.
func WithAllocator(e Env, a Allocator) Env {
	return e.With(allocatorKey, a)
}

// GetAllocator returns the environment's allocator, if any was attached.
func (e Env) GetAllocator() (Allocator, bool) {
	v, ok := e.Get(allocatorKey)
	if !ok || v == nil {
		return nil, false
	}
	a, ok := v.(Allocator)
	return a, ok
}

// WithDomain attaches a customization-dispatch domain tag to the
// environment. The core treats domains as an opaque query; it performs no
// dispatch based on them.
func WithDomain(e Env, domain string) Env {
	return e.With(domainKey, domain)
}

// WithoutDomain removes any domain tag reachable from e, so that whatever
// is built on top of the returned Env must re-derive its domain. let_value
// uses this when the child does not advertise a completion scheduler.
func WithoutDomain(e Env) Env {
	return e.With(domainKey, nil)
}

// GetDomain returns the environment's domain tag, if one is set and has
// not been cleared by WithoutDomain.
func (e Env) GetDomain() (string, bool) {
	v, ok := e.Get(domainKey)
	if !ok || v == nil {
		return "", false
	}
	d, ok := v.(string)
	return d, ok
}

// WithSchedulerValue attaches an opaque scheduler value as the
// get_scheduler query. The async package wraps this with a typed
// Scheduler accessor; env itself stays agnostic of the Scheduler shape to
// avoid an import cycle (Scheduler's Schedule method returns a Sender,
// which is defined in terms of this package).
func WithSchedulerValue(e Env, scheduler any) Env {
	return e.With(schedulerKey, scheduler)
}

// WithoutScheduler clears any scheduler reachable from e, making
// get_scheduler report "unknown" for everything built on top of the
// returned Env.
func WithoutScheduler(e Env) Env {
	return e.With(schedulerKey, nil)
}

// SchedulerValue returns the opaque value stored by WithSchedulerValue.
func (e Env) SchedulerValue() (any, bool) {
	v, ok := e.Get(schedulerKey)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// WithCompletionSchedulerValue attaches an opaque completion-scheduler
// value for channel c.
func WithCompletionSchedulerValue(e Env, c Channel, scheduler any) Env {
	return e.With(CompletionSchedulerKey(c), scheduler)
}

// CompletionSchedulerValue returns the opaque value stored by
// WithCompletionSchedulerValue for channel c.
func (e Env) CompletionSchedulerValue(c Channel) (any, bool) {
	v, ok := e.Get(CompletionSchedulerKey(c))
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
