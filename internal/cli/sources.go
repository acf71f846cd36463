package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nuspect/nuspect/pkg/sources"
)

// newSourcesCmd creates the sources command, which shows the configured
// sources in resolution order with their validation status.
func newSourcesCmd(root *rootOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured package sources in resolution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, root.configPath, root.refresh)
			if err != nil {
				return err
			}
			defer a.close()

			if asJSON {
				return writeJSON(sourceRows(a.registry), "")
			}
			for _, row := range sourceRows(a.registry) {
				printSource(row)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// sourceRow is the displayed view of one configured source. Credentials are
// reduced to their scheme; secrets never reach the output.
type sourceRow struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Kind     string `json:"kind"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
	Auth     string `json:"auth"`
	Status   string `json:"status"`
}

func sourceRows(registry *sources.Registry) []sourceRow {
	// Enabled sources first in resolution order, then the disabled ones.
	ordered := registry.EnabledSources()
	for _, c := range registry.All() {
		if !c.Enabled {
			ordered = append(ordered, c)
		}
	}

	rows := make([]sourceRow, 0, len(ordered))
	for _, c := range ordered {
		status := "ok"
		if err := c.Validate(); err != nil {
			status = err.Error()
		}
		rows = append(rows, sourceRow{
			Name:     c.Name,
			URL:      c.URL,
			Kind:     string(c.Kind),
			Enabled:  c.Enabled,
			Priority: c.Priority,
			Auth:     authScheme(c),
			Status:   status,
		})
	}
	return rows
}

func authScheme(c sources.Config) string {
	switch {
	case c.HasAPIKey() && c.Kind == sources.KindAzureDevOps:
		return "pat"
	case c.HasAPIKey():
		return "api-key"
	case c.HasBasicAuth():
		return "basic"
	}
	return "anonymous"
}

func printSource(row sourceRow) {
	name := StyleHighlight.Render(row.Name)
	if !row.Enabled {
		name = StyleDim.Render(row.Name + " (disabled)")
	}
	fmt.Println(name + " " + StyleDim.Render(fmt.Sprintf("priority %d", row.Priority)))
	printDetail("%s %s auth=%s", row.Kind, row.URL, row.Auth)
	if row.Status != "ok" {
		printWarning("%s", row.Status)
	}
}
