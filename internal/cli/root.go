package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nuspect/nuspect/pkg/buildinfo"
)

// rootOpts holds the persistent flags shared by every command.
type rootOpts struct {
	verbose    bool
	configPath string
	refresh    bool
}

// Execute runs the nuspect CLI. It sets up the root command with all
// subcommands, configures logging based on --verbose, and executes the
// command tree against ctx.
func Execute(ctx context.Context) error {
	var opts rootOpts

	root := &cobra.Command{
		Use:          "nuspect",
		Short:        "nuspect resolves NuGet packages and inspects their public types",
		Long: `nuspect resolves packages across multiple configured feeds (NuGet v3 and
Azure DevOps Artifacts), downloads archives, and reads the public type
surface out of the embedded .NET assemblies without executing them.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: user config dir)")
	root.PersistentFlags().BoolVar(&opts.refresh, "refresh", false, "bypass the response cache")

	root.AddCommand(newVersionsCmd(&opts))
	root.AddCommand(newInspectCmd(&opts))
	root.AddCommand(newSearchCmd(&opts))
	root.AddCommand(newSummaryCmd(&opts))
	root.AddCommand(newSourcesCmd(&opts))
	root.AddCommand(newCacheCmd(&opts))

	return root.ExecuteContext(ctx)
}
