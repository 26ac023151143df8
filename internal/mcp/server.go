package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/saeedalam/mergestat-mcp/pkg/types"
)

const serverName = "mergestat-mcp"

// ErrToolNotFound is returned when calling a tool that isn't registered
var ErrToolNotFound = errors.New("tool not found")

// ErrResourceNotFound is returned when reading an unknown resource URI
var ErrResourceNotFound = errors.New("resource not found")

// ErrPromptNotFound is returned when getting an unknown prompt
var ErrPromptNotFound = errors.New("prompt not found")

// QueryRunner executes mergestat queries
type QueryRunner interface {
	Query(ctx context.Context, req types.QueryRequest) (*types.QueryResult, error)
}

// SchemaSource returns the schema DDL. It never fails.
type SchemaSource interface {
	Describe(ctx context.Context) string
}

type Config struct {
	Logger  *slog.Logger
	Version string
	Queries QueryRunner
	Schema  SchemaSource
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Queries == nil {
		return fmt.Errorf("query runner is required")
	}
	if cfg.Schema == nil {
		return fmt.Errorf("schema source is required")
	}
	return nil
}

// toolEntry keeps a tool's descriptor next to a transport-free way to call it
type toolEntry struct {
	tool *mcpsdk.Tool
	call func(ctx context.Context, args json.RawMessage) (*mcpsdk.CallToolResult, error)
}

// Server is the MCP server exposing MergeStat. Tools, the schema resource and
// the default prompt are fixed at construction.
type Server struct {
	log       *slog.Logger
	cfg       Config
	mcpServer *mcpsdk.Server

	tools     []toolEntry
	resources map[string]*mcpsdk.Resource
	prompts   map[string]*mcpsdk.Prompt
}

// NewServer creates the server and registers everything it exposes
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate server config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: cfg.Version,
	}, &mcpsdk.ServerOptions{
		Instructions: "Query git repositories with SQL through MergeStat. " +
			"Read the mergestat://schema resource or call describe_schema before writing queries.",
	})

	s := &Server{
		log:       cfg.Logger,
		cfg:       cfg,
		mcpServer: mcpServer,
		resources: make(map[string]*mcpsdk.Resource),
		prompts:   make(map[string]*mcpsdk.Prompt),
	}

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.registerResources()
	s.registerPrompts()

	return s, nil
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.mcpServer
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx ends
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcpsdk.StdioTransport{})
}

// Serve runs the server on the given transport. Context cancellation and a
// closed input stream both count as a normal shutdown.
func (s *Server) Serve(ctx context.Context, transport mcpsdk.Transport) error {
	s.log.Info("MergeStat MCP server running", "version", s.cfg.Version)

	err := s.mcpServer.Run(ctx, transport)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
		s.log.Info("MergeStat MCP server stopped")
		return nil
	}
	return fmt.Errorf("serve MCP: %w", err)
}

// InMemorySession connects an in-process client to the server
func (s *Server) InMemorySession(ctx context.Context) (*mcpsdk.ServerSession, *mcpsdk.ClientSession, error) {
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()

	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connect server: %w", err)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: serverName + "-client", Version: s.cfg.Version}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		serverSession.Close()
		return nil, nil, fmt.Errorf("connect client: %w", err)
	}

	return serverSession, clientSession, nil
}

// --- Library mode ---

// ListTools returns the registered tool descriptors in registration order
func (s *Server) ListTools() []*mcpsdk.Tool {
	tools := make([]*mcpsdk.Tool, 0, len(s.tools))
	for _, entry := range s.tools {
		tools = append(tools, entry.tool)
	}
	return tools
}

// ListResources returns the registered resources
func (s *Server) ListResources() []*mcpsdk.Resource {
	resources := make([]*mcpsdk.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		resources = append(resources, r)
	}
	return resources
}

// ListPrompts returns the registered prompts
func (s *Server) ListPrompts() []*mcpsdk.Prompt {
	prompts := make([]*mcpsdk.Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		prompts = append(prompts, p)
	}
	return prompts
}

// CallTool invokes a tool by name without going through a transport.
// args may be nil, a map or a struct matching the tool's input schema.
func (s *Server) CallTool(ctx context.Context, name string, args any) (*mcpsdk.CallToolResult, error) {
	var entry *toolEntry
	for i := range s.tools {
		if s.tools[i].tool.Name == name {
			entry = &s.tools[i]
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	var rawArgs json.RawMessage
	if args != nil {
		var err error
		rawArgs, err = json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshaling tool arguments: %w", err)
		}
	}

	return entry.call(ctx, rawArgs)
}

// ReadResource reads a resource by URI without going through a transport
func (s *Server) ReadResource(ctx context.Context, uri string) (*mcpsdk.ReadResourceResult, error) {
	return s.readResource(ctx, &mcpsdk.ReadResourceRequest{
		Params: &mcpsdk.ReadResourceParams{URI: uri},
	})
}

// GetPrompt gets a prompt by name without going through a transport
func (s *Server) GetPrompt(ctx context.Context, name string) (*mcpsdk.GetPromptResult, error) {
	return s.getPrompt(ctx, &mcpsdk.GetPromptRequest{
		Params: &mcpsdk.GetPromptParams{Name: name},
	})
}

// addTool registers a typed handler with the SDK and keeps a library-mode
// entry for it. t.InputSchema must already be set.
func addTool[In any](s *Server, t *mcpsdk.Tool, h mcpsdk.ToolHandlerFor[In, any]) {
	mcpsdk.AddTool(s.mcpServer, t, h)

	s.tools = append(s.tools, toolEntry{
		tool: t,
		call: func(ctx context.Context, args json.RawMessage) (*mcpsdk.CallToolResult, error) {
			var input In
			if len(args) > 0 {
				if err := json.Unmarshal(args, &input); err != nil {
					return nil, fmt.Errorf("unmarshaling tool arguments: %w", err)
				}
			}

			req := &mcpsdk.CallToolRequest{
				Params: &mcpsdk.CallToolParamsRaw{Name: t.Name, Arguments: args},
			}
			result, _, err := h(ctx, req, input)
			if err != nil {
				return errorResult(err.Error()), nil
			}
			if result == nil {
				result = &mcpsdk.CallToolResult{}
			}
			return result, nil
		},
	})
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}
