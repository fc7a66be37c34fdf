package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/stacktester/internal/config"
	"github.com/aretw0/stacktester/pkg/adapters/mcp"
	"github.com/aretw0/stacktester/pkg/observability"
)

// Supported MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// MCPOptions configures the mcp command.
type MCPOptions struct {
	ConfigPath string
	Store      string
	RedisAddr  string
	LogLevel   string
	Transport  string
	Port       int

	// Logs receives log output. Defaults to os.Stderr so stdio stays clean.
	Logs io.Writer
}

func (o MCPOptions) apply(cfg *config.Config) {
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.RedisAddr != "" {
		cfg.Redis.Addr = o.RedisAddr
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
}

// ServeMCP runs the MCP server until the transport closes or ctx is done.
// With the memory store every call runs against a fresh database.
func ServeMCP(ctx context.Context, opts MCPOptions) error {
	if opts.Logs == nil {
		opts.Logs = os.Stderr
	}
	if opts.Transport == "" {
		opts.Transport = TransportStdio
	}
	if opts.Transport != TransportStdio && opts.Transport != TransportSSE {
		return fmt.Errorf("unknown transport %q, supported: %s, %s", opts.Transport, TransportStdio, TransportSSE)
	}

	cfg, logger, err := prepare(opts.ConfigPath, opts.apply, opts.Logs)
	if err != nil {
		return err
	}

	srvOpts := []mcp.Option{
		mcp.WithLogger(logger),
		mcp.WithMetrics(observability.NewMetrics(prometheus.NewRegistry())),
	}
	if cfg.Store != config.StoreMemory {
		db, closeDB, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer closeDB()
		srvOpts = append(srvOpts, mcp.WithDatabase(db))
	}
	srv := mcp.NewServer(srvOpts...)

	switch opts.Transport {
	case TransportSSE:
		return srv.ServeSSE(ctx, opts.Port)
	default:
		logger.Info("starting MCP server (stdio)")
		return srv.ServeStdio()
	}
}
