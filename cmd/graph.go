package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/animesh/viral-ngs/internal/pipeline"
)

// graphCmd validates the stage dependency graph and prints it,
// without executing anything
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Validate and print the stage dependency graph",
	Long: `Build the full stage dependency graph for the configured sample list and
print it in topological order, one instance per line with its dependencies.
With --dot, emit Graphviz DOT instead.

Graph construction fails on any configuration problem: a missing required
key, an unknown assembler, or a stage wired to an artifact nothing produces.`,
	Run: printGraph,
}

func init() {
	RootCmd.AddCommand(graphCmd)

	graphCmd.Flags().Bool("dot", false, "Emit Graphviz DOT")
}

func printGraph(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	dot, err := cmd.Flags().GetBool("dot")
	if err != nil {
		log.Fatal(err)
	}

	samples, err := pipeline.ReadSampleFile(cfg.Samples.Assembly)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	graph, err := pipeline.BuildGraph(cfg, samples)
	if err != nil {
		log.Fatalf("failed to build stage graph: %v", err)
	}

	if dot {
		printDot(graph)
		return
	}

	for _, inst := range graph.Order() {
		deps, err := graph.Dependencies(inst.ID())
		if err != nil {
			log.Fatal(err)
		}
		if len(deps) == 0 {
			fmt.Println(inst.ID())
			continue
		}
		fmt.Printf("%s <- %s\n", inst.ID(), strings.Join(deps, ", "))
	}
}

func printDot(graph *pipeline.Graph) {
	fmt.Println("digraph pipeline {")
	fmt.Println("  rankdir=LR;")
	for _, inst := range graph.Order() {
		deps, _ := graph.Dependencies(inst.ID())
		for _, dep := range deps {
			fmt.Printf("  %q -> %q;\n", dep, inst.ID())
		}
	}
	fmt.Println("}")
}
