package backend

import (
	"context"
	"errors"
	"fmt"

	"bizledger/internal/amqp"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/store"
	"bizledger/internal/store/jsonfile"
	"bizledger/internal/store/memory"
	"bizledger/internal/store/postgres"
	"bizledger/internal/store/sqlite"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured store and, when AMQP is configured,
// a calendar sync publisher. A broker that cannot be reached is logged and
// the ledger runs without publishing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, checks, err := f.createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []ledger.Option{ledger.WithLogger(f.logger)}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without calendar sync",
				log.FieldError, err)
		} else {
			opts = append(opts, ledger.WithPublisher(client))
			checks["amqp"] = client.Ping
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := ledger.New(st, opts...)
	f.logger.Info("Initialized record store", log.FieldBackend, cfg.Type.String())

	return &BackendResult{
		Ledger:  svc,
		Store:   st,
		Checks:  checks,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, cfg Config) (store.Store, map[string]ReadinessCheck, error) {
	checks := map[string]ReadinessCheck{}

	switch cfg.Type {
	case JSONBackend:
		st := jsonfile.New(cfg.JSONStorePath)
		checks["store"] = func(ctx context.Context) error {
			_, err := st.Load(ctx)
			if errors.Is(err, store.ErrCorrupt) {
				return err
			}
			return nil
		}
		f.logger.Info("Using JSON document store", "path", st.Path())
		return st, checks, nil

	case SQLiteBackend:
		st, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		checks["store"] = st.Ping
		f.logger.Info("Using SQLite store", "db_path", cfg.SQLiteDBPath)
		return st, checks, nil

	case PostgresBackend:
		st, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		checks["store"] = st.Ping
		f.logger.Info("Using Postgres store")
		return st, checks, nil

	case MemoryBackend:
		f.logger.Warn("Using in-memory store, records are lost on exit")
		return memory.New(), checks, nil

	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
