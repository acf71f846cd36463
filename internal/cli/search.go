package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newSearchCmd creates the search command, which queries the sources in
// priority order and shows the first non-empty result set.
func newSearchCmd(root *rootOpts) *cobra.Command {
	var take int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the configured sources for packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, root.configPath, root.refresh)
			if err != nil {
				return err
			}
			defer a.close()

			results, err := a.resolver.Search(ctx, args[0], take)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(results, "")
			}
			if len(results) == 0 {
				printInfo("No packages found for %q", args[0])
				return nil
			}

			for _, r := range results {
				fmt.Println(StyleHighlight.Render(r.ID) + " " + StyleDim.Render(r.Version) +
					"  " + StyleDim.Render(fmt.Sprintf("%d downloads", r.TotalDownloads)))
				if r.Description != "" {
					printDetail("%s", truncate(r.Description, 120))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&take, "take", 20, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
