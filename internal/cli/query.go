package cli

import (
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/saeedalam/mergestat-mcp/internal/mcp"
	"github.com/saeedalam/mergestat-mcp/pkg/types"
)

var (
	queryRepo string
	queryChat bool
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run one query the way an agent would",
	Long: `Run a single SQL query through the mergestat_sql tool without an MCP client.

By default the result is written to the output directory and the file path
is printed. With --chat the pretty-printed JSON is printed instead.

Examples:
  mergestat-mcp query "SELECT author_name, count(*) FROM commits GROUP BY 1" --repo ~/src/project
  mergestat-mcp query "SELECT * FROM refs" --chat`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryRepo, "repo", "r", "", "Git repository to query (default: current directory)")
	queryCmd.Flags().BoolVar(&queryChat, "chat", false, "Print the JSON instead of writing a result file")
}

func runQuery(cmd *cobra.Command, args []string) error {
	rt, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	server, err := rt.newServer()
	if err != nil {
		return err
	}

	result, err := server.CallTool(commandContext(cmd), mcp.ToolQuery, types.QueryRequest{
		SQL:          args[0],
		RepoPath:     queryRepo,
		OutputToChat: queryChat,
	})
	if err != nil {
		return err
	}

	text := resultText(result)
	if result.IsError {
		return errors.New(text)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func resultText(result *mcpsdk.CallToolResult) string {
	for _, c := range result.Content {
		if t, ok := c.(*mcpsdk.TextContent); ok {
			return t.Text
		}
	}
	return ""
}
