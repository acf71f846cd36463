package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionsCmd creates the versions command, which lists every published
// version of a package from the first source that answers.
func newVersionsCmd(root *rootOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "versions <package>",
		Short: "List all published versions of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			a, err := newApp(ctx, root.configPath, root.refresh)
			if err != nil {
				return err
			}
			defer a.close()

			prog := newProgress(logger)
			versions, err := a.resolver.ListVersions(ctx, args[0])
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Found %d versions of %s", len(versions), args[0]))

			if asJSON {
				return writeJSON(versions, "")
			}
			for _, v := range versions {
				fmt.Println(v)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
