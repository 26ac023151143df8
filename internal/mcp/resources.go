package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	SchemaURI      = "mergestat://schema"
	SchemaMIMEType = "application/sql"
	DefaultPrompt  = "mergestat-default"

	defaultPromptDescription = "Default prompt for MergeStat that provides schema context"
	defaultPromptText        = "I want to query the git repository. Use the provided schema to help write correct SQL queries."
)

func (s *Server) registerResources() {
	res := &mcpsdk.Resource{
		URI:         SchemaURI,
		Name:        "MergeStat SQL Schema",
		Description: "DDL for MergeStat tables",
		MIMEType:    SchemaMIMEType,
	}
	s.mcpServer.AddResource(res, s.readResource)
	s.resources[res.URI] = res
}

func (s *Server) registerPrompts() {
	prompt := &mcpsdk.Prompt{
		Name:        DefaultPrompt,
		Description: defaultPromptDescription,
	}
	s.mcpServer.AddPrompt(prompt, s.getPrompt)
	s.prompts[prompt.Name] = prompt
}

func (s *Server) readResource(ctx context.Context, req *mcpsdk.ReadResourceRequest) (*mcpsdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if _, ok := s.resources[uri]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}

	return &mcpsdk.ReadResourceResult{
		Contents: []*mcpsdk.ResourceContents{s.schemaContents(ctx)},
	}, nil
}

func (s *Server) getPrompt(ctx context.Context, req *mcpsdk.GetPromptRequest) (*mcpsdk.GetPromptResult, error) {
	name := req.Params.Name
	if _, ok := s.prompts[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}

	return &mcpsdk.GetPromptResult{
		Description: defaultPromptDescription,
		Messages: []*mcpsdk.PromptMessage{
			{
				Role:    "user",
				Content: &mcpsdk.EmbeddedResource{Resource: s.schemaContents(ctx)},
			},
			{
				Role:    "user",
				Content: &mcpsdk.TextContent{Text: defaultPromptText},
			},
		},
	}, nil
}

func (s *Server) schemaContents(ctx context.Context) *mcpsdk.ResourceContents {
	return &mcpsdk.ResourceContents{
		URI:      SchemaURI,
		MIMEType: SchemaMIMEType,
		Text:     s.cfg.Schema.Describe(ctx),
	}
}
