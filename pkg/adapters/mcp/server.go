// Package mcp exposes chain execution as an MCP (Model Context Protocol)
// server, so agent hosts can drive chains as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/promptloom/promptloom"
	"github.com/promptloom/promptloom/pkg/loader"
	"github.com/promptloom/promptloom/pkg/chain"
	"github.com/promptloom/promptloom/pkg/domain"
	"github.com/promptloom/promptloom/pkg/session"
)

// ChainSummary is the structured result shared by every chain tool.
type ChainSummary struct {
	SessionID string         `json:"session_id" jsonschema_description:"Session holding the chain progress"`
	Status    string         `json:"status" jsonschema_description:"Chain lifecycle status"`
	Cursor    int            `json:"cursor" jsonschema_description:"Index of the next step to execute"`
	Steps     int            `json:"steps" jsonschema_description:"Total number of executable steps"`
	Done      bool           `json:"done" jsonschema_description:"True when every step has executed"`
	Context   map[string]any `json:"context,omitempty" jsonschema_description:"Accumulated execution context"`
}

// Server wraps a chain definition and exposes it as an MCP server.
type Server struct {
	definition *loader.ChainFile
	sessions   *session.Manager
	opts       []chain.MatrixOption
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance for one chain definition.
func NewServer(definition *loader.ChainFile, sessions *session.Manager, opts ...chain.MatrixOption) *Server {
	s := &Server{
		definition: definition,
		sessions:   sessions,
		opts:       opts,
		mcpServer:  server.NewMCPServer("promptloom-mcp", strings.TrimSpace(promptloom.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: run_chain
	runTool := mcp.NewTool("run_chain",
		mcp.WithDescription("Execute every remaining step of the chain for a session. Creates the session if it does not exist."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("context", mcp.Description("JSON object merged into the chain context before running (optional)")),
		mcp.WithOutputSchema[ChainSummary](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRun))

	// TOOL: step_chain
	stepTool := mcp.NewTool("step_chain",
		mcp.WithDescription("Execute exactly one step of the chain for a session. Creates the session if it does not exist."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("context", mcp.Description("JSON object merged into the chain context before stepping (optional)")),
		mcp.WithOutputSchema[ChainSummary](),
	)
	s.mcpServer.AddTool(stepTool, mcp.NewStructuredToolHandler(s.handleStep))

	// TOOL: chain_status
	statusTool := mcp.NewTool("chain_status",
		mcp.WithDescription("Report the cursor, status and context of an existing session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[ChainSummary](),
	)
	s.mcpServer.AddTool(statusTool, mcp.NewStructuredToolHandler(s.handleStatus))

	// TOOL: reset_chain
	s.mcpServer.AddTool(mcp.NewTool("reset_chain",
		mcp.WithDescription("Delete a session so the next run starts from a fresh chain."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.sessions.Delete(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("session %s reset", id)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ChainSummary, error) {
	mc, id, err := s.materialize(ctx, args)
	if err != nil {
		return ChainSummary{}, err
	}

	if err := mc.Execute(ctx, false); err != nil {
		// Persist so a retry resumes at the failed step.
		if saveErr := s.sessions.Save(ctx, id, mc.Snapshot()); saveErr != nil {
			slog.Error("MCP run: save after failure", "session_id", id, "error", saveErr)
		}
		return ChainSummary{}, fmt.Errorf("run failed at step %d: %w", mc.Cursor(), err)
	}

	if err := s.sessions.Save(ctx, id, mc.Snapshot()); err != nil {
		return ChainSummary{}, fmt.Errorf("save failed: %w", err)
	}
	return s.summarize(id, mc, true), nil
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ChainSummary, error) {
	mc, id, err := s.materialize(ctx, args)
	if err != nil {
		return ChainSummary{}, err
	}

	done, err := mc.ExecuteNextStep(ctx)
	if err != nil {
		if saveErr := s.sessions.Save(ctx, id, mc.Snapshot()); saveErr != nil {
			slog.Error("MCP step: save after failure", "session_id", id, "error", saveErr)
		}
		return ChainSummary{}, fmt.Errorf("step %d failed: %w", mc.Cursor(), err)
	}

	if err := s.sessions.Save(ctx, id, mc.Snapshot()); err != nil {
		return ChainSummary{}, fmt.Errorf("save failed: %w", err)
	}
	return s.summarize(id, mc, done), nil
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ChainSummary, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return ChainSummary{}, fmt.Errorf("session_id is required")
	}

	state, err := s.sessions.Load(ctx, id)
	if err != nil {
		return ChainSummary{}, fmt.Errorf("status failed: %w", err)
	}

	mc, _, err := s.definition.Build(s.opts...)
	if err != nil {
		return ChainSummary{}, fmt.Errorf("chain build failed: %w", err)
	}
	if err := mc.Restore(state); err != nil {
		return ChainSummary{}, fmt.Errorf("restore failed: %w", err)
	}
	return s.summarize(id, mc, mc.Status() == domain.StatusComplete), nil
}

// materialize builds the chain, restores the session snapshot if one exists
// and merges any context override from the tool arguments.
func (s *Server) materialize(ctx context.Context, args map[string]any) (*chain.MatrixChain, string, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return nil, "", fmt.Errorf("session_id is required")
	}

	mc, _, err := s.definition.Build(s.opts...)
	if err != nil {
		return nil, "", fmt.Errorf("chain build failed: %w", err)
	}

	state, err := s.sessions.Load(ctx, id)
	switch {
	case err == nil:
		if err := mc.Restore(state); err != nil {
			return nil, "", fmt.Errorf("restore failed: %w", err)
		}
	case errors.Is(err, domain.ErrSessionNotFound):
		mc.BuildDependencies()
	default:
		return nil, "", fmt.Errorf("load failed: %w", err)
	}

	if ctxStr, ok := args["context"].(string); ok && ctxStr != "" {
		overrides := map[string]any{}
		if err := json.Unmarshal([]byte(ctxStr), &overrides); err != nil {
			return nil, "", fmt.Errorf("invalid context JSON: %w", err)
		}
		mc.Context().Update(overrides)
	}

	return mc, id, nil
}

func (s *Server) summarize(id string, mc *chain.MatrixChain, done bool) ChainSummary {
	return ChainSummary{
		SessionID: id,
		Status:    string(mc.Status()),
		Cursor:    mc.Cursor(),
		Steps:     mc.StepCount(),
		Done:      done,
		Context:   mc.Context().Snapshot(),
	}
}

func (s *Server) registerResources() {
	// EXPOSE: promptloom://definition
	s.mcpServer.AddResource(mcp.NewResource("promptloom://definition", "Chain Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.definition)
		if err != nil {
			return nil, fmt.Errorf("failed to encode chain definition: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "promptloom://definition",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
