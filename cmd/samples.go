package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/animesh/viral-ngs/internal/pipeline"
)

// samplesCmd lists the parsed sample identifiers, so a malformed
// sample list surfaces before a run is submitted
var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List the samples parsed from the configured sample lists",
	Run:   listSamples,
}

func init() {
	RootCmd.AddCommand(samplesCmd)

	samplesCmd.Flags().Bool("failures", false, "List the known-failure regression samples instead")
}

func listSamples(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	failures, err := cmd.Flags().GetBool("failures")
	if err != nil {
		log.Fatal(err)
	}

	listFile := cfg.Samples.Assembly
	if failures {
		if cfg.Samples.Failures == "" {
			log.Fatal("configuration error: samples.failures is not set")
		}
		listFile = cfg.Samples.Failures
	}

	samples, err := pipeline.ReadSampleFile(listFile)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	for _, s := range samples {
		fmt.Println(s)
	}
}
