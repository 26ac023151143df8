package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saeedalam/mergestat-mcp/internal/mcp"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema served to agents",
	Long: `Print the DDL served as the mergestat://schema resource.

If the schema file cannot be read this prints the same placeholder agents see.
Use 'mergestat-mcp status' to find out why.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	rt, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	server, err := rt.newServer()
	if err != nil {
		return err
	}

	res, err := server.ReadResource(commandContext(cmd), mcp.SchemaURI)
	if err != nil {
		return err
	}
	for _, c := range res.Contents {
		fmt.Fprint(cmd.OutOrStdout(), c.Text)
	}
	return nil
}
