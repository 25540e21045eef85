package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/formkey/internal/config"
	"github.com/a3tai/formkey/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *service.Service
	mcpServer *server.MCPServer
}

// toolInfo describes one registered tool for formkey_server_info
type toolInfo struct {
	name        string
	description string
	parameters  string
}

var tools = []toolInfo{
	{"formkey_build_inventory", "Build the field inventory from a PDF or widget extraction file",
		"source (required), index, output, version, reconcile"},
	{"formkey_reconcile", "Correct section assignments of an inventory against the page-range table",
		"inventory, ranges, dryRun"},
	{"formkey_validate", "List fields whose page lies outside their section's page range",
		"inventory, ranges"},
	{"formkey_detect_drift", "Compare an inventory with a fresh extraction of the document",
		"source (required), inventory"},
	{"formkey_fill", "Write a value store into a copy of the PDF",
		"pdf (required), values (required), output, inventory, keyMode, metadata"},
	{"formkey_entries", "Inspect or change the active entries of multi-entry sections",
		"action (list|show|add|remove|toggle), section, entry, stateFile, values, keyMode, inventory"},
	{"formkey_propose_ranges", "Propose a page-range table from the section headings of a PDF",
		"pdf (required), ranges, output"},
	{"formkey_server_info", "Show the workspace, configured artifacts and available tools", "none"},
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if svc == nil {
		return nil, errors.New("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		service:   svc,
		mcpServer: mcpServer,
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"formkey_build_inventory",
		mcp.WithDescription(tools[0].description),
		mcp.WithString("source", mcp.Required(),
			mcp.Description("PDF or widget extraction JSON, relative to the workspace")),
		mcp.WithString("index", mcp.Description("Structural index (defaults to the configured one)")),
		mcp.WithString("output", mcp.Description("Inventory path (defaults to the configured one)")),
		mcp.WithString("version", mcp.Description("Document version tag")),
		mcp.WithBoolean("reconcile", mcp.Description("Reconcile sections before saving")),
	), s.handleBuildInventory)

	s.mcpServer.AddTool(mcp.NewTool(
		"formkey_reconcile",
		mcp.WithDescription(tools[1].description),
		mcp.WithString("inventory", mcp.Description("Inventory path")),
		mcp.WithString("ranges", mcp.Description("Page-range table")),
		mcp.WithBoolean("dryRun", mcp.Description("Report corrections without saving")),
	), s.handleReconcile)

	s.mcpServer.AddTool(mcp.NewTool(
		"formkey_validate",
		mcp.WithDescription(tools[2].description),
		mcp.WithString("inventory", mcp.Description("Inventory path")),
		mcp.WithString("ranges", mcp.Description("Page-range table")),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool(
		"formkey_detect_drift",
		mcp.WithDescription(tools[3].description),
		mcp.WithString("source", mcp.Required(), mcp.Description("Current PDF or widget extraction JSON")),
		mcp.WithString("inventory", mcp.Description("Inventory path")),
	), s.handleDetectDrift)

	s.mcpServer.AddTool(mcp.NewTool(
		"formkey_fill",
		mcp.WithDescription(tools[4].description),
		mcp.WithString("pdf", mcp.Required(), mcp.Description("Source PDF")),
		mcp.WithString("values", mcp.Required(), mcp.Description("Value store JSON")),
		mcp.WithString("output", mcp.Description("Output PDF (defaults to <pdf>.filled.pdf)")),
		mcp.WithString("inventory", mcp.Description("Inventory path")),
		mcp.WithString("keyMode", mcp.Description("Value-store key mode: uiPath or fingerprint")),
		mcp.WithString("metadata", mcp.Description("Selection option metadata")),
	), s.handleFill)

	s.mcpServer.AddTool(mcp.NewTool(
		"formkey_entries",
		mcp.WithDescription(tools[5].description),
		mcp.WithString("action", mcp.Description("list, show, add, remove or toggle")),
		mcp.WithString("section", mcp.Description("Section id (required except for list)")),
		mcp.WithNumber("entry", mcp.Description("Entry number for remove and toggle")),
		mcp.WithString("stateFile", mcp.Description("JSON file holding entry state between calls")),
		mcp.WithString("values", mcp.Description("Value store to clear removed entries in")),
		mcp.WithString("keyMode", mcp.Description("Value-store key mode: uiPath or fingerprint")),
		mcp.WithString("inventory", mcp.Description("Inventory path")),
	), s.handleEntries)

	s.mcpServer.AddTool(mcp.NewTool(
		"formkey_propose_ranges",
		mcp.WithDescription(tools[6].description),
		mcp.WithString("pdf", mcp.Required(), mcp.Description("PDF to scan for headings")),
		mcp.WithString("ranges", mcp.Description("Configured page-range table to compare with")),
		mcp.WithString("output", mcp.Description("Write the proposed table here")),
	), s.handleProposeRanges)

	s.mcpServer.AddTool(mcp.NewTool(
		"formkey_server_info",
		mcp.WithDescription(tools[7].description),
	), s.handleServerInfo)
}

// argument helpers; JSON numbers arrive as float64

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Handler functions
func (s *Server) handleBuildInventory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	result, err := s.service.BuildInventory(service.BuildRequest{
		Source:    source,
		Index:     stringArg(args, "index"),
		Output:    stringArg(args, "output"),
		Version:   stringArg(args, "version"),
		Reconcile: boolArg(args, "reconcile"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBuildResult(result)), nil
}

func (s *Server) handleReconcile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	result, err := s.service.Reconcile(service.ReconcileRequest{
		Inventory: stringArg(args, "inventory"),
		Ranges:    stringArg(args, "ranges"),
		DryRun:    boolArg(args, "dryRun"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatReconcileResult(result)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	result, err := s.service.Validate(service.ValidateRequest{
		Inventory: stringArg(args, "inventory"),
		Ranges:    stringArg(args, "ranges"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatValidateResult(result)), nil
}

func (s *Server) handleDetectDrift(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.service.DetectDrift(service.DriftRequest{
		Inventory: stringArg(request.GetArguments(), "inventory"),
		Source:    source,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatDriftResult(result)), nil
}

func (s *Server) handleFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pdfPath, err := request.RequireString("pdf")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	values, err := request.RequireString("values")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	result, err := s.service.Fill(service.FillRequest{
		Inventory: stringArg(args, "inventory"),
		PDF:       pdfPath,
		Values:    values,
		Output:    stringArg(args, "output"),
		KeyMode:   stringArg(args, "keyMode"),
		Metadata:  stringArg(args, "metadata"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatFillResult(result)), nil
}

func (s *Server) handleEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	result, err := s.service.Entries(service.EntriesRequest{
		Inventory: stringArg(args, "inventory"),
		StateFile: stringArg(args, "stateFile"),
		Values:    stringArg(args, "values"),
		KeyMode:   stringArg(args, "keyMode"),
		Section:   stringArg(args, "section"),
		Action:    stringArg(args, "action"),
		Entry:     intArg(args, "entry"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatEntriesResult(result)), nil
}

func (s *Server) handleProposeRanges(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	pdfPath, err := request.RequireString("pdf")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	result, err := s.service.ProposeRanges(service.RangesRequest{
		PDF:    pdfPath,
		Ranges: stringArg(args, "ranges"),
		Output: stringArg(args, "output"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRangesResult(result)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

func (s *Server) formatServerInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&b, "Workspace: %s\n", s.service.Workspace().Dir())
	fmt.Fprintf(&b, "Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	fmt.Fprintf(&b, "Inventory: %s\n", s.config.Inventory)
	fmt.Fprintf(&b, "Index: %s\n", orBuiltin(s.config.Index, "none"))
	fmt.Fprintf(&b, "Ranges: %s\n", orBuiltin(s.config.Ranges, "built-in"))
	fmt.Fprintf(&b, "Aliases: %s\n", orBuiltin(s.config.Aliases, "built-in"))
	stats := s.service.LabelCacheStats()
	fmt.Fprintf(&b, "Label cache: %d entries, %d hits, %d misses\n", stats.Size, stats.Hits, stats.Misses)

	b.WriteString("\nAvailable Tools:\n")
	for _, tool := range tools {
		fmt.Fprintf(&b, "\n• %s\n", tool.name)
		fmt.Fprintf(&b, "  Description: %s\n", tool.description)
		fmt.Fprintf(&b, "  Parameters: %s\n", tool.parameters)
	}
	b.WriteString("\nPaths are relative to the workspace; paths outside it are rejected.\n")
	return b.String()
}

func orBuiltin(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting formkey MCP server in stdio mode")
		log.Printf("Workspace: %s", s.config.Dir)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP/SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	sse := server.NewSSEServer(s.mcpServer)
	addr := s.config.Address()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting formkey MCP server on %s (SSE)", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
