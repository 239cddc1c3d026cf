package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	projektserver "github.com/HendryAvila/projektbot/internal/server"
)

// mcpCmd serves the admin tools over stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the project admin tools over MCP (stdio)",
	Long: `Serve project, membership and repository link operations as MCP tools on
stdin/stdout. Logs go to stderr so they never interfere with the transport.

Without a Discord token the role changes are kept in memory (offline mode);
the record store is still updated.

Examples:
  # Register with an MCP host
  projektbot mcp --config ~/.projektbot/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tagger, err := projektserver.NewTagger(cfg, log)
	if err != nil {
		return err
	}
	core, cleanup, err := projektserver.NewCore(cfg, tagger, nil, log)
	if err != nil {
		return fmt.Errorf("creating services: %w", err)
	}
	defer cleanup()

	// stdio server manages its own lifecycle and signal handling.
	return server.ServeStdio(projektserver.New(core))
}
