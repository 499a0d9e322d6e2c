package async

// RoutePredicate evaluates a value and returns the name of the route that
// should handle it.
type RoutePredicate[T any] func(value T) (route string, err error)

// Routes maps route names to the sender-producing handler that should run
// for that route, with an optional Default used when the predicate's
// route name has no matching handler.
type Routes[T, U any] struct {
	Handlers map[string]func(T) Sender[U]
	Default  func(T) Sender[U]
}

// Route returns a sender that runs source, evaluates predicate against its
// value to select a route name, looks up the corresponding handler in
// routes, and runs the sender that handler produces. If predicate fails,
// or no handler matches and routes.Default is nil, the result completes
// with an error (ErrRouteNotFound in the no-match case). Error and
// cancellation from source pass through unchanged.
func Route[T, U any](source Sender[T], predicate RoutePredicate[T], routes Routes[T, U]) Sender[U] {
	return LetValue(source, func(value T) Sender[U] {
		name, err := predicate(value)
		if err != nil {
			return JustError[U](err)
		}
		handler, ok := routes.Handlers[name]
		if !ok {
			handler = routes.Default
		}
		if handler == nil {
			return JustError[U](ErrRouteNotFound)
		}
		return handler(value)
	})
}
