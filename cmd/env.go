package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/provider"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

// env bundles the wired runtime dependencies of a command.
type env struct {
	Store  store.Store
	Broker queue.Broker
	Engine *pipeline.Engine
}

func (e *env) Close() {
	if err := e.Broker.Close(); err != nil {
		zap.L().Error("close broker", zap.Error(err))
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Error("close store", zap.Error(err))
	}
}

// initEnv opens the store, builds the broker and providers, and wires the
// engine. Handlers are registered but the broker is not started; commands
// that process jobs call Broker.Start themselves.
func initEnv(ctx context.Context) (*env, error) {
	return initEnvWithCallDelay(ctx, 0)
}

// initEnvWithCallDelay is initEnv with the email-to-call spacing overridden.
// The in-process campaign run drains every queue before exiting and cannot
// sit on a delay timer for half an hour.
func initEnvWithCallDelay(ctx context.Context, callDelay time.Duration) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	broker, err := newBroker(cfg.Queue)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engine := pipeline.New(st, broker, provider.FromConfig(*cfg), pipeline.Options{
		Pipeline:  cfg.Pipeline,
		Enrich:    cfg.Enrich,
		Site:      cfg.Site,
		Images:    cfg.Images,
		CallDelay: callDelay,
	})
	engine.Register()

	return &env{Store: st, Broker: broker, Engine: engine}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func newBroker(qc config.QueueConfig) (queue.Broker, error) {
	concurrency := func(stage queue.Stage) int {
		return qc.ConcurrencyFor(string(stage))
	}
	backoff := time.Duration(qc.InitialBackoffMs) * time.Millisecond

	switch qc.Broker {
	case "memory", "":
		return queue.NewMemory(queue.MemoryOptions{
			Concurrency:    concurrency,
			MaxAttempts:    qc.MaxAttempts,
			InitialBackoff: backoff,
		}), nil
	case "amqp":
		return queue.NewAMQP(queue.AMQPOptions{
			URL:            qc.URL,
			Concurrency:    concurrency,
			MaxAttempts:    qc.MaxAttempts,
			InitialBackoff: backoff,
		})
	default:
		return nil, eris.Errorf("unknown queue broker %q", qc.Broker)
	}
}
