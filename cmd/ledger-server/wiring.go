package main

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/contacorrente/ledger/app/features/command/postmovement"
	"github.com/contacorrente/ledger/app/features/query/accountbalance"
	"github.com/contacorrente/ledger/app/publisher/kafkapublisher"
	"github.com/contacorrente/ledger/app/shared/shell"
	"github.com/contacorrente/ledger/app/shared/shell/config"
	"github.com/contacorrente/ledger/app/shared/shell/observable"
	"github.com/contacorrente/ledger/ledger/oteladapters"
	"github.com/contacorrente/ledger/ledger/sqlengine"
)

// observability bundles the collectors handed to the store and the handler wrappers.
// Without an OTLP endpoint only the stdout logger is set.
type observability struct {
	providers        *config.ObservabilityProviders
	logger           *slog.Logger
	contextualLogger shell.ContextualLogger
	metrics          shell.MetricsCollector
	tracing          shell.TracingCollector
}

func newObservability(ctx context.Context, cfg Config, logger *slog.Logger) (observability, error) {
	obs := observability{logger: logger}

	if !cfg.ObservabilityEnabled() {
		return obs, nil
	}

	providers, err := config.NewObservabilityProviders(ctx, cfg.OTelEndpoint, serviceName, serviceVersion)
	if err != nil {
		return observability{}, err
	}

	obs.providers = providers
	obs.contextualLogger = oteladapters.NewSlogBridgeLogger(serviceName)
	obs.metrics = oteladapters.NewMetricsCollector(otel.Meter(serviceName))
	obs.tracing = oteladapters.NewTracingCollector(otel.Tracer(serviceName))

	return obs, nil
}

func (o observability) shutdown(ctx context.Context) error {
	if o.providers == nil {
		return nil
	}

	return o.providers.Shutdown(ctx)
}

func (o observability) storeOptions() []sqlengine.Option {
	options := []sqlengine.Option{sqlengine.WithLogger(o.logger)}

	if o.contextualLogger != nil {
		options = append(options, sqlengine.WithContextualLogger(o.contextualLogger))
	}

	if o.metrics != nil {
		options = append(options, sqlengine.WithMetrics(o.metrics))
	}

	if o.tracing != nil {
		options = append(options, sqlengine.WithTracing(o.tracing))
	}

	return options
}

func (o observability) commandOptions() []observable.CommandOption[postmovement.Command] {
	options := []observable.CommandOption[postmovement.Command]{
		observable.WithCommandLogging[postmovement.Command](o.logger),
	}

	if o.contextualLogger != nil {
		options = append(options, observable.WithCommandContextualLogging[postmovement.Command](o.contextualLogger))
	}

	if o.metrics != nil {
		options = append(options, observable.WithCommandMetrics[postmovement.Command](o.metrics))
	}

	if o.tracing != nil {
		options = append(options, observable.WithCommandTracing[postmovement.Command](o.tracing))
	}

	return options
}

func (o observability) queryOptions() []observable.QueryOption[accountbalance.Query, accountbalance.AccountBalance] {
	options := []observable.QueryOption[accountbalance.Query, accountbalance.AccountBalance]{
		observable.WithQueryLogging[accountbalance.Query, accountbalance.AccountBalance](o.logger),
	}

	if o.contextualLogger != nil {
		options = append(options, observable.WithQueryContextualLogging[accountbalance.Query, accountbalance.AccountBalance](o.contextualLogger))
	}

	if o.metrics != nil {
		options = append(options, observable.WithQueryMetrics[accountbalance.Query, accountbalance.AccountBalance](o.metrics))
	}

	if o.tracing != nil {
		options = append(options, observable.WithQueryTracing[accountbalance.Query, accountbalance.AccountBalance](o.tracing))
	}

	return options
}

// handlers holds the wrapped feature handlers and what must be closed on shutdown.
type handlers struct {
	postMovement   *observable.CommandWrapper[postmovement.Command]
	accountBalance *observable.QueryWrapper[accountbalance.Query, accountbalance.AccountBalance]
	publisher      *kafkapublisher.Publisher
}

func buildHandlers(cfg Config, store ledgerStore, obs observability) (handlers, error) {
	var built handlers

	commandOptions := []postmovement.Option{postmovement.WithLogger(obs.logger)}

	if obs.contextualLogger != nil {
		commandOptions = append(commandOptions, postmovement.WithContextualLogger(obs.contextualLogger))
	}

	if obs.metrics != nil {
		commandOptions = append(commandOptions,
			postmovement.WithRetryOptions(shell.WithMetrics(obs.metrics, postmovement.CommandType)))
	}

	if cfg.PublishingEnabled() {
		publisher, err := kafkapublisher.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return handlers{}, err
		}

		built.publisher = publisher
		commandOptions = append(commandOptions, postmovement.WithPublisher(publisher))
	}

	postMovement, err := observable.NewCommandWrapper[postmovement.Command](
		postmovement.NewCommandHandler(store, commandOptions...),
		obs.commandOptions()...,
	)
	if err != nil {
		return handlers{}, errors.Join(err, built.close())
	}

	var queryOptions []accountbalance.Option
	if cfg.BalanceFromReplica {
		queryOptions = append(queryOptions, accountbalance.WithReplicaReads())
	}

	accountBalance, err := observable.NewQueryWrapper[accountbalance.Query, accountbalance.AccountBalance](
		accountbalance.NewQueryHandler(store, queryOptions...),
		obs.queryOptions()...,
	)
	if err != nil {
		return handlers{}, errors.Join(err, built.close())
	}

	built.postMovement = postMovement
	built.accountBalance = accountBalance

	return built, nil
}

func (h handlers) close() error {
	if h.publisher == nil {
		return nil
	}

	return h.publisher.Close()
}
