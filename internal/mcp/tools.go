package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/saeedalam/mergestat-mcp/pkg/types"
)

const (
	ToolQuery          = "mergestat_sql"
	ToolDescribeSchema = "describe_schema"
)

// describeSchemaInput takes no arguments
type describeSchemaInput struct{}

// registerTools registers the two tools exposed to agents
func (s *Server) registerTools() error {
	queryTool, err := queryToolDescriptor()
	if err != nil {
		return err
	}
	addTool(s, queryTool, s.handleQuery)

	schemaInput, err := jsonschema.For[describeSchemaInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create describe_schema input schema: %w", err)
	}
	addTool(s, &mcpsdk.Tool{
		Name:        ToolDescribeSchema,
		Description: "Returns the SQL schema (DDL) for the available MergeStat tables.",
		InputSchema: schemaInput,
	}, s.handleDescribeSchema)

	return nil
}

func queryToolDescriptor() (*mcpsdk.Tool, error) {
	in, err := jsonschema.For[types.QueryRequest](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mergestat_sql input schema: %w", err)
	}

	sql, ok := in.Properties["sql"]
	if !ok {
		return nil, fmt.Errorf("mergestat_sql input schema has no sql property")
	}
	minLen := 1
	sql.MinLength = &minLen

	if chat, ok := in.Properties["outputToChat"]; ok {
		chat.Default = json.RawMessage("false")
	}

	return &mcpsdk.Tool{
		Name: ToolQuery,
		Description: "Execute a SQL query against a git repository using MergeStat. " +
			"By default the JSON result is written to a temporary file and the file path is returned; " +
			"set outputToChat to true to get the JSON directly in the response.",
		InputSchema: in,
	}, nil
}
