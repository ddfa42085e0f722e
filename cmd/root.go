package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calsheet application
var rootCmd = &cobra.Command{
	Use:   "calsheet",
	Short: "Weekly timesheets from Google Calendar",
	Long: `calsheet summarizes the time you spent per client from the events in your
primary Google Calendar. Events are grouped by title, bucketed by workday and
split by color, so coloring an event marks it as complete or incomplete.

It can run as:
  - A standalone CLI tool (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	account    string
	timezone   string
	debug      bool
}

var globals globalOptions

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calsheet version %s\n" .Version}}`)

	// If no subcommand is provided, run the summary command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "summary")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.configPath, "config", "", "Path to the configuration file (default: $XDG_CONFIG_HOME/calsheet/config.yaml)")
	flags.StringVar(&globals.account, "account", "", "Google account whose stored token is used. Can also use CALSHEET_ACCOUNT env var.")
	flags.StringVar(&globals.timezone, "timezone", "", "IANA timezone for week boundaries, e.g. Europe/Berlin. Can also use CALSHEET_TIMEZONE env var.")
	flags.BoolVar(&globals.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newSummaryCmd())
	rootCmd.AddCommand(newMarkCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
