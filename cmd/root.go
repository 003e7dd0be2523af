// Package cmd is for command line interactions with the assembly
// pipeline
package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/animesh/viral-ngs/config"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use: "viral-ngs",
	Short: `Assemble viral genomes from sequencing reads.
Defines the per-sample stage graph (de novo assembly, reference scaffolding,
gap-filling, imputation, two refinement passes, self-alignment) and hands it
to an execution engine`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "pipeline.yaml", "Path to the pipeline config file <YAML>")
}

// loadConfig reads and validates the pipeline config. Any missing
// required key is fatal here, before a single stage is scheduled
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	return cfg
}
