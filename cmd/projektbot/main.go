// projektbot keeps a chat community's projects, their members and their
// repository links, and mirrors assignments as chat roles.
//
// Usage:
//
//	projektbot serve     # Connect to the chat gateway and answer commands
//	projektbot mcp       # Serve the admin tools over MCP (stdio transport)
//	projektbot version   # Print the version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/projektbot/internal/config"
	"github.com/HendryAvila/projektbot/internal/logging"
	projektserver "github.com/HendryAvila/projektbot/internal/server"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	// logLevel overrides log.level when set.
	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "projektbot",
	Short: "Project directory bot for chat communities",
	Long: `projektbot keeps track of a community's projects: who is in which project,
who leads it, and which repositories belong to it. Every assignment is mirrored
as a member or leader role in the chat service.`,
	Version:       projektserver.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML, optional)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (trace, debug, info, warn, error)")
}

// setup loads the configuration and builds the logger every command shares.
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return nil, nil, fmt.Errorf("--log-level: %w", err)
		}
		cfg.Log.Level = logLevel
	}
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, log, nil
}
