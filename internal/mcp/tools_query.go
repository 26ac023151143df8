package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/saeedalam/mergestat-mcp/internal/mergestat"
	"github.com/saeedalam/mergestat-mcp/pkg/types"
)

// handleQuery runs mergestat_sql. Execution failures are reported inside the
// result with IsError set so the agent can read and react to them.
func (s *Server) handleQuery(ctx context.Context, _ *mcpsdk.CallToolRequest, in types.QueryRequest) (*mcpsdk.CallToolResult, any, error) {
	result, err := s.cfg.Queries.Query(ctx, in)
	if err != nil {
		return errorResult(queryErrorText(err)), nil, nil
	}
	return textResult(result.Text()), nil, nil
}

func (s *Server) handleDescribeSchema(ctx context.Context, _ *mcpsdk.CallToolRequest, _ describeSchemaInput) (*mcpsdk.CallToolResult, any, error) {
	return textResult(s.cfg.Schema.Describe(ctx)), nil, nil
}

func queryErrorText(err error) string {
	var qerr *mergestat.Error
	if errors.As(err, &qerr) {
		return qerr.Text()
	}
	return "Error executing mergestat: " + err.Error()
}
