package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nuspect/nuspect/pkg/dotnet"
)

// inspectOpts holds the flags for the inspect command.
type inspectOpts struct {
	docs   bool   // merge XML documentation summaries
	deep   bool   // verify base type chains and report unresolvable types
	asJSON bool
	output string
}

// newInspectCmd creates the inspect command, which downloads a package and
// reads the public types out of its embedded assemblies.
func newInspectCmd(root *rootOpts) *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect <package> [version]",
		Short: "Extract the public types from a package's assemblies",
		Long: `Inspect downloads a package archive and reads the public classes and
interfaces from its managed assemblies by parsing their metadata tables.
No assembly code is executed. Without a version argument the latest
published version is inspected.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, root, &opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.docs, "docs", false, "include documentation summaries from XML sidecars")
	cmd.Flags().BoolVar(&opts.deep, "deep", false, "verify base type chains; report types that cannot resolve")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "output as JSON")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

func runInspect(cmd *cobra.Command, root *rootOpts, opts *inspectOpts, args []string) error {
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

	prog := newProgress(logger)
	extractor := dotnet.NewExtractor(logger)

	if opts.deep {
		result := extractor.LoadTypes(ctx, archive, id, opts.docs)
		prog.done(fmt.Sprintf("Extracted %d types from %s %s", len(result.Types), id, version))
		for _, f := range result.Failed {
			printWarning("%s: %s", f.FullName, f.Reason)
		}
		if opts.asJSON {
			return writeJSON(result, opts.output)
		}
		printTypes(result.Types)
		return nil
	}

	types := extractor.ExtractTypes(ctx, archive, id, opts.docs)
	prog.done(fmt.Sprintf("Extracted %d types from %s %s", len(types), id, version))
	if opts.asJSON {
		return writeJSON(types, opts.output)
	}
	printTypes(types)
	return nil
}

func printTypes(types []dotnet.TypeDescriptor) {
	for _, t := range types {
		kind := styleKind.Render(t.Kind.String())
		if t.Kind == dotnet.KindInterface {
			kind = styleInterface.Render(t.Kind.String())
		}
		line := kind + " " + StyleValue.Render(t.FullName)
		switch {
		case t.Static:
			line += " " + StyleDim.Render("(static)")
		case t.Abstract:
			line += " " + StyleDim.Render("(abstract)")
		case t.Sealed:
			line += " " + StyleDim.Render("(sealed)")
		}
		fmt.Println(line)
		if t.Doc != "" {
			printDetail("%s", t.Doc)
		}
	}
}
