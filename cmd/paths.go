package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/animesh/viral-ngs/internal/pipeline"
)

// pathsCmd resolves and prints every artifact path for one sample,
// which is the quickest way to check a directory layout change
var pathsCmd = &cobra.Command{
	Use:   "paths <sample>",
	Short: "Print every resolved artifact path for a sample",
	Args:  cobra.ExactArgs(1),
	Run:   printPaths,
}

func init() {
	RootCmd.AddCommand(pathsCmd)
}

func printPaths(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	sample := args[0]

	stages, err := pipeline.Stages(cfg)
	if err != nil {
		log.Fatalf("failed to build stage chain: %v", err)
	}
	resolver := pipeline.NewResolver(cfg)

	seen := make(map[pipeline.Role]bool)
	for _, st := range stages {
		for _, input := range st.Inputs {
			if input.Stage != "" || seen[input.Role] {
				continue
			}
			seen[input.Role] = true
			p, err := resolver.SourcePath(sample, input.Role)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%-20s %-18s %s\n", "(source)", input.Role, p)
		}
	}

	for _, st := range stages {
		for _, role := range st.Outputs {
			p, err := resolver.Path(sample, st.Name, role)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%-20s %-18s %s\n", st.Name, role, p)
		}
	}
}
