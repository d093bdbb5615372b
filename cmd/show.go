package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/resgraph/internal/importer"
	"github.com/papapumpkin/resgraph/internal/resources"
	"github.com/papapumpkin/resgraph/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the resource modules and libraries of a recorded run",
	Long: `Prints a recorded run. The run may be named by its full ID or a unique
prefix; without an argument the most recent run is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().Bool("json", false, "print the stored results as JSON")
	showCmd.Flags().String("module", "", "only show the module with this label")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	only, _ := cmd.Flags().GetString("module")

	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	var run store.Run
	if len(args) == 0 {
		if run, err = s.store.LatestRun(cmd.Context()); err != nil {
			return err
		}
	} else if run, err = s.store.FindRun(cmd.Context(), args[0]); err != nil {
		return err
	}
	run, results, err := s.store.LoadRun(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	if only != "" {
		for _, res := range results {
			res.ResourceModules = filterModules(res.ResourceModules, only)
		}
	}
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run     store.Run          `json:"run"`
			Results []*importer.Result `json:"results"`
		}{run, results})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s)\n", run.ID, run.GraphPath)
	for _, res := range results {
		printResult(out, res, only == "")
	}
	return nil
}

func filterModules(modules []resources.Module, label string) []resources.Module {
	var out []resources.Module
	for _, m := range modules {
		if m.Label.String() == label {
			out = append(out, m)
		}
	}
	return out
}

func printResult(w io.Writer, res *importer.Result, withLibraries bool) {
	fmt.Fprintf(w, "\npass %s\n", res.Pass)
	for _, m := range res.ResourceModules {
		fmt.Fprintf(w, "  module %s (%s)\n", m.Label, m.Namespace)
		for _, r := range m.Resources {
			fmt.Fprintf(w, "    resource %s\n", r)
		}
		if len(m.TransitiveResources) > len(m.Resources) {
			fmt.Fprintf(w, "    %d transitive resource(s)\n", len(m.TransitiveResources))
		}
		if len(m.TransitiveResourceDeps) > 0 {
			deps := make([]string, len(m.TransitiveResourceDeps))
			for i, l := range m.TransitiveResourceDeps {
				deps[i] = l.String()
			}
			fmt.Fprintf(w, "    depends on %s\n", strings.Join(deps, ", "))
		}
		for _, k := range m.ResourceLibraryKeys {
			fmt.Fprintf(w, "    library %s\n", k)
		}
	}
	if !withLibraries {
		return
	}
	for _, lib := range sortedLibraries(res.ArchiveLibraries) {
		fmt.Fprintf(w, "  archive %s %s\n", lib.Key, lib.Aar)
	}
	for _, lib := range sortedLibraries(res.ResourceLibraries) {
		fmt.Fprintf(w, "  resource library %s %s\n", lib.Key, lib.Root)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning [%s] %s\n", warn.Kind, strings.ReplaceAll(warn.Message, "\n", " "))
	}
}

func sortedLibraries[L any](libs map[resources.LibraryKey]L) []L {
	out := make([]L, 0, len(libs))
	for _, k := range slices.Sorted(maps.Keys(libs)) {
		out = append(out, libs[k])
	}
	return out
}
