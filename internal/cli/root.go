package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/five82/roster/internal/app"
)

// Version is injected during build.
var Version = "dev"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	apiURL     string
	logLevel   string
}

func (g *globalFlags) options() app.Options {
	return app.Options{
		ConfigPath: g.configPath,
		APIURL:     g.apiURL,
		LogLevel:   g.logLevel,
	}
}

// NewRootCommand builds the roster command tree. Without a subcommand it
// starts the console.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "roster",
		Short: "roster is a terminal console for a users REST API",
		Long: `roster browses, searches and deletes users of a reqres-compatible API.

Run "roster login" once, then "roster" to open the console. Configuration is
read from ~/.config/roster/config.toml; --api and --log-level override it.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error once
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), flags.options())
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/roster/config.toml)")
	root.PersistentFlags().StringVar(&flags.apiURL, "api", "", "API base URL, overrides api_url")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error; overrides log_level")

	root.AddCommand(
		newLoginCommand(flags),
		newLogoutCommand(flags),
		newUsersCommand(flags),
		newSandboxCommand(flags),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
