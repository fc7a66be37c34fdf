// Package mcp exposes the tester as a Model Context Protocol server, so agents
// can run instruction scripts and read the instruction reference.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/stacktester"
	"github.com/aretw0/stacktester/internal/logging"
	httpAdapter "github.com/aretw0/stacktester/pkg/adapters/http"
	"github.com/aretw0/stacktester/pkg/adapters/memory"
	"github.com/aretw0/stacktester/pkg/adapters/script"
	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/registry"
	"github.com/aretw0/stacktester/pkg/tester"
)

// InstructionsURI is the resource holding the instruction reference.
const InstructionsURI = "stacktester://instructions"

// StackEntry is one resolved stack item.
type StackEntry struct {
	Index int    `json:"index" jsonschema_description:"Index of the instruction that pushed the item"`
	Value string `json:"value" jsonschema_description:"Printable rendering of the value"`
	Kind  string `json:"kind" jsonschema_description:"value, error or sentinel"`
}

// RunResult is the outcome of a run_script call.
type RunResult struct {
	Root         string       `json:"root" jsonschema_description:"Prefix of the root session"`
	Instructions int          `json:"instructions" jsonschema_description:"Instructions executed by the root session"`
	Transactions []string     `json:"transactions" jsonschema_description:"Named transactions left in the registry"`
	Stack        []StackEntry `json:"stack" jsonschema_description:"Final stack of the root session, bottom first"`
}

// Server wraps a database and exposes script runs as MCP tools.
type Server struct {
	db        ports.Database
	logger    *slog.Logger
	metrics   *observability.Metrics
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithDatabase runs every script against db. Without it each call gets a fresh in-memory database.
func WithDatabase(db ports.Database) Option {
	return func(s *Server) {
		s.db = db
	}
}

// WithLogger sets the logger used by the server and its sessions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records the activity of every run.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(opts ...Option) *Server {
	s := &Server{
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("stacktester-mcp", stacktester.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	s.logger.Info("MCP server listening (SSE)", "addr", addr)
	return httpAdapter.Serve(ctx, addr, mux, s.logger)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	runTool := mcp.NewTool("run_script",
		mcp.WithDescription("Seed a YAML instruction script, run its root session to completion and return the final stack."),
		mcp.WithString("script", mcp.Required(), mcp.Description("Script document with 'root' and 'threads' keys")),
		mcp.WithString("root", mcp.Description("Overrides the root session prefix named by the script")),
		mcp.WithOutputSchema[RunResult](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunScript))

	s.mcpServer.AddTool(mcp.NewTool("describe_instructions",
		mcp.WithDescription("List the supported instructions with their stack effects."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(tester.ReferenceMarkdown()), nil
	})
}

func (s *Server) handleRunScript(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResult, error) {
	doc, _ := args["script"].(string)
	if doc == "" {
		return RunResult{}, errors.New("script is required")
	}
	sc, err := script.Parse([]byte(doc))
	if err != nil {
		return RunResult{}, err
	}
	if root, ok := args["root"].(string); ok && root != "" {
		sc.Root = root
	}

	db := s.db
	if db == nil {
		db = memory.NewDatabase()
	}
	reg := registry.NewRegistry()
	t := stacktester.New(db,
		stacktester.WithRegistry(reg),
		stacktester.WithLogger(s.logger),
		stacktester.WithMetrics(s.metrics),
	)
	if err := t.Seed(ctx, sc); err != nil {
		return RunResult{}, err
	}
	root, err := t.Run(ctx, []byte(sc.Root))
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		Root:         root.Label(),
		Instructions: root.InstructionIndex,
		Transactions: reg.Names(),
		Stack:        []StackEntry{},
	}
	for _, item := range root.Stack().Items() {
		v, err := tester.Resolve(ctx, item.Value)
		if err != nil {
			return RunResult{}, fmt.Errorf("failed to resolve item pushed by instruction %d: %w", item.Index, err)
		}
		result.Stack = append(result.Stack, StackEntry{Index: item.Index, Value: tester.FormatValue(v), Kind: kindOf(v)})
	}
	s.logger.Info("MCP run finished", "session", result.Root, "items", len(result.Stack))
	return result, nil
}

func kindOf(v any) string {
	switch {
	case tester.IsSentinel(v):
		return "sentinel"
	case tester.IsEncodedError(v):
		return "error"
	}
	return "value"
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(InstructionsURI, "Instruction Reference",
		mcp.WithMIMEType("text/markdown"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      InstructionsURI,
				MIMEType: "text/markdown",
				Text:     tester.ReferenceMarkdown(),
			},
		}, nil
	})
}
