// Package observable provides wrappers that instrument command and query handlers with
// metrics, tracing and logging while the handlers themselves keep only business logic.
//
// The wrappers are applied at wiring time, not hidden inside handler constructors:
//
//	coreHandler, err := postmovement.NewCommandHandler(store)
//
//	observableHandler, err := observable.NewCommandWrapper[postmovement.Command](
//		coreHandler,
//		observable.WithCommandMetrics[postmovement.Command](metricsCollector),
//		observable.WithCommandTracing[postmovement.Command](tracingCollector),
//		observable.WithCommandContextualLogging[postmovement.Command](contextualLogger),
//	)
//
//	result, err := observableHandler.Handle(ctx, command)
//
// Every option is optional. Tests focused on business logic use the core handlers directly.
package observable
