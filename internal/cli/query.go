package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mvp-joe/codebrain/internal/graph"
	"github.com/mvp-joe/codebrain/internal/knowledge"
	"github.com/spf13/cobra"
)

var (
	artifactFlag string
	depthFlag    int
)

// unitsCmd renders the artifact as embedding text units.
var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Print the knowledge base as text units for an embedding stage",
	Long: `Units renders every function, class, syntax error and defect of the
artifact as an independent block of text, in the layout the embedding
stage consumes. Blocks are separated by a line containing "---".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := loadArtifact(cmd)
		if err != nil {
			return err
		}

		units, err := knowledge.Units(kb)
		if err != nil {
			return err
		}
		writeUnits(cmd.OutOrStdout(), units)
		return nil
	},
}

// callersCmd lists the callers of a function.
var callersCmd = &cobra.Command{
	Use:   "callers <function>",
	Short: "List the functions that call <function>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cg, err := loadCallGraph(cmd)
		if err != nil {
			return err
		}

		results, err := cg.Callers(args[0], depthFlag)
		if err != nil {
			return err
		}
		writeResults(cmd.OutOrStdout(), results, fmt.Sprintf("No known callers of %s", args[0]))
		return nil
	},
}

// calleesCmd lists the functions a function calls.
var calleesCmd = &cobra.Command{
	Use:   "callees <function>",
	Short: "List the known functions that <function> calls",
	Long: `Callees lists the functions called by <function>, one per line, indented
by call depth. Calls to names with no definition in the knowledge base
(built-ins, imported functions) are not listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cg, err := loadCallGraph(cmd)
		if err != nil {
			return err
		}

		results, err := cg.Callees(args[0], depthFlag)
		if err != nil {
			return err
		}
		writeResults(cmd.OutOrStdout(), results, fmt.Sprintf("%s calls no known functions", args[0]))
		return nil
	},
}

// pathCmd prints the shortest call chain between two functions.
var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Print the shortest call chain from one function to another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cg, err := loadCallGraph(cmd)
		if err != nil {
			return err
		}

		path, err := cg.ShortestPath(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(path, " -> "))
		return nil
	},
}

// cyclesCmd lists groups of mutually recursive functions.
var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "List recursive and mutually recursive functions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cg, err := loadCallGraph(cmd)
		if err != nil {
			return err
		}

		cycles, err := cg.Cycles()
		if err != nil {
			return err
		}
		writeCycles(cmd.OutOrStdout(), cycles)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{unitsCmd, callersCmd, calleesCmd, pathCmd, cyclesCmd} {
		c.Flags().StringVarP(&artifactFlag, "artifact", "a", "", "Artifact to read; defaults to output.path")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{callersCmd, calleesCmd} {
		c.Flags().IntVarP(&depthFlag, "depth", "d", graph.DefaultDepth, fmt.Sprintf("Transitive depth (max %d)", graph.MaxDepth))
	}
}

// loadArtifact reads the artifact named by --artifact, or the configured output path.
func loadArtifact(cmd *cobra.Command) (*knowledge.KnowledgeBase, error) {
	path := artifactFlag
	if path == "" {
		cfg, rootDir, _, err := loadEnvironment(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.ToIndexerConfig(rootDir).OutputPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no knowledge base at %s; run 'codebrain index' first", path)
	}
	return knowledge.ReadFile(path)
}

func loadCallGraph(cmd *cobra.Command) (*graph.CallGraph, error) {
	kb, err := loadArtifact(cmd)
	if err != nil {
		return nil, err
	}
	return graph.New(kb)
}

func writeUnits(out io.Writer, units []knowledge.Unit) {
	for i, u := range units {
		if i > 0 {
			fmt.Fprintln(out, "---")
		}
		fmt.Fprint(out, u.Text)
	}
}

// writeResults prints one function per line, indented by depth, or empty when
// there are none.
func writeResults(out io.Writer, results []graph.Result, empty string) {
	if len(results) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s%s  %s:%d\n", strings.Repeat("  ", r.Depth-1), r.Function.Name, r.Function.File, r.Function.Start)
	}
}

func writeCycles(out io.Writer, cycles [][]string) {
	if len(cycles) == 0 {
		fmt.Fprintln(out, "No recursive calls found")
		return
	}
	for _, cycle := range cycles {
		fmt.Fprintln(out, strings.Join(cycle, ", "))
	}
}
