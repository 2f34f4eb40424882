package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dpopsuev/tribunal/internal/logging"
	mcpserver "github.com/dpopsuev/tribunal/internal/mcp"
	"github.com/dpopsuev/tribunal/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveFlags struct {
	dbPath string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing start_audit,
get_audit_status, get_report and list_runs. Agent hosts connect via
their MCP configuration and drive audits directly.

The server monitors for parent process death. When the host
disconnects or restarts, the server self-terminates to prevent
zombie processes.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.dbPath, "db", store.DefaultDBPath, "Run store DB path (empty disables persistence)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	st, err := openStore(serveFlags.dbPath)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	srv := mcpserver.NewServer(st)
	defer srv.Shutdown()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting tribunal MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
