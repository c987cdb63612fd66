package cli

import (
	"github.com/spf13/cobra"

	"github.com/mnemo-oss/mnemo/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory tools over the Model Context Protocol on stdio",
	Long: `Runs an MCP server on stdin/stdout so agents can query and write
project memory through tool calls (memory_search, memory_remember,
memory_context, and friends). Register it as an MCP server in the
agent's configuration, pointing at this binary with the same --project
flag the chat session uses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		agentID, _ := cmd.Flags().GetString("agent")
		return mcp.NewServer(eng, agentID).Run(cmd.Context())
	},
}

func init() {
	mcpCmd.Flags().String("agent", "mcp-client", "agent id recorded on memories written through this server")
	rootCmd.AddCommand(mcpCmd)
}
