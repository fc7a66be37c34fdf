package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/stacktester"
	"github.com/aretw0/stacktester/internal/config"
	"github.com/aretw0/stacktester/internal/logging"
	httpAdapter "github.com/aretw0/stacktester/pkg/adapters/http"
	"github.com/aretw0/stacktester/pkg/adapters/memory"
	"github.com/aretw0/stacktester/pkg/adapters/redis"
	"github.com/aretw0/stacktester/pkg/adapters/script"
	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/registry"
)

// RunOptions contains all the configuration for the run command.
// Non-zero fields override the configuration file.
type RunOptions struct {
	ConfigPath  string
	ScriptPath  string
	Store       string
	RedisAddr   string
	Prefix      string
	LogLevel    string
	MetricsAddr string
	BatchSize   int

	// Out receives the final stack. Defaults to os.Stdout.
	Out io.Writer
	// Logs receives log output. Defaults to os.Stderr.
	Logs io.Writer
}

func (o RunOptions) apply(cfg *config.Config) {
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.RedisAddr != "" {
		cfg.Redis.Addr = o.RedisAddr
	}
	if o.Prefix != "" {
		cfg.Prefix = o.Prefix
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.MetricsAddr != "" {
		cfg.MetricsAddr = o.MetricsAddr
	}
}

// Execute loads the script, seeds the store, runs the root session and
// prints its final stack.
func Execute(ctx context.Context, opts RunOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logs == nil {
		opts.Logs = os.Stderr
	}

	cfg, logger, err := prepare(opts.ConfigPath, opts.apply, opts.Logs)
	if err != nil {
		return err
	}

	s, err := script.Load(opts.ScriptPath)
	if err != nil {
		return err
	}
	if cfg.Prefix != "" {
		s.Root = cfg.Prefix
	}

	db, closeDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)
	reg := registry.NewRegistry()

	if cfg.MetricsAddr != "" {
		serveCtx, stop := context.WithCancel(ctx)
		defer stop()
		handler := httpAdapter.NewHandler(&httpAdapter.Server{
			Gatherer: promReg,
			Database: db,
			Registry: reg,
			Logger:   logger,
		})
		go func() {
			if err := httpAdapter.Serve(serveCtx, cfg.MetricsAddr, handler, logger); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	opt := []stacktester.Option{
		stacktester.WithRegistry(reg),
		stacktester.WithLogger(logger),
		stacktester.WithMetrics(metrics),
	}
	if opts.BatchSize > 0 {
		opt = append(opt, stacktester.WithBatchSize(opts.BatchSize))
	}
	t := stacktester.New(db, opt...)

	if err := t.Seed(ctx, s); err != nil {
		return err
	}
	root, err := t.Run(ctx, []byte(s.Root))
	if err != nil {
		return err
	}
	logger.Info("session finished",
		"session", root.Label(),
		"instructions", root.InstructionIndex,
		"transactions", reg.Len(),
	)
	return PrintStack(ctx, opts.Out, root.Stack().Items(), logger)
}

// prepare loads the configuration file, applies the command line overrides
// and builds the logger.
func prepare(path string, apply func(*config.Config), logs io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.NewWithWriter(logs, level), nil
}

func openDatabase(cfg config.Config) (ports.Database, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewDatabase(), func() {}, nil
	case config.StoreRedis:
		db := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		if err := db.Ping(context.Background()); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return db, func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}
