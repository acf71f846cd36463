package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nuspect/nuspect/pkg/summary"
)

// newSummaryCmd creates the summary command, which shows a package's
// manifest metadata and meta-package classification.
func newSummaryCmd(root *rootOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary <package> [version]",
		Short: "Show a package's manifest metadata and dependencies",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			a, err := newApp(ctx, root.configPath, root.refresh)
			if err != nil {
				return err
			}
			defer a.close()

			id := args[0]
			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			if version, err = a.resolveVersion(ctx, id, version); err != nil {
				return err
			}

			spin := newSpinner(ctx, fmt.Sprintf("Downloading %s %s", id, version))
			spin.start()
			archive, err := a.resolver.Download(ctx, id, version)
			spin.stop()
			if err != nil {
				return err
			}

			s := summary.Build(ctx, archive, id, version, nil, logger)
			if asJSON {
				return writeJSON(s, "")
			}
			printSummary(s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printSummary(s summary.PackageSummary) {
	fmt.Println(StyleTitle.Render(s.ID) + " " + StyleHighlight.Render(s.Version))
	if s.IsMetaPackage {
		printInfo("meta-package (no assemblies of its own)")
	}
	if s.Description != "" {
		printKeyValue("description", s.Description)
	}
	if len(s.Authors) > 0 {
		printKeyValue("authors", strings.Join(s.Authors, ", "))
	}
	if len(s.Tags) > 0 {
		printKeyValue("tags", strings.Join(s.Tags, " "))
	}
	if s.ProjectURL != "" {
		printKeyValue("project", StyleLink.Render(s.ProjectURL))
	}
	if s.LicenseURL != "" {
		printKeyValue("license", StyleLink.Render(s.LicenseURL))
	}
	if len(s.Dependencies) > 0 {
		printKeyValue("dependencies", fmt.Sprintf("%d", len(s.Dependencies)))
		for _, d := range s.Dependencies {
			printDetail("%s %s", d.ID, d.VersionRange)
		}
	}
}
