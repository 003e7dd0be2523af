package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/animesh/viral-ngs/config"
	"github.com/animesh/viral-ngs/internal/engine"
	"github.com/animesh/viral-ngs/internal/pipeline"
)

// runCmd drives the graph to the all_assemble target: every final
// assembly fasta and self-alignment BAM for the configured samples
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the assembly pipeline for the configured sample list",
	Long: `Build and validate the stage dependency graph for every sample in the
configured sample list, then execute it.

With --engine local (the default), stages run in this process: sample chains
in parallel, stages within a chain in dependency order, each stage gated on
its inputs existing. With --engine scipipe the graph is handed to the scipipe
workflow engine, which owns scheduling, parallelism and retries.

Samples whose finished assembly falls below the configured length or
unambiguous-base thresholds are excluded from the final output set; they do
not fail the run and do not affect sibling samples.`,
	Run: runPipeline,
}

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("engine", "e", "local", "Execution engine: local or scipipe")
	runCmd.Flags().BoolP("dry-run", "n", false, "Print every stage command without executing anything")
	runCmd.Flags().Bool("failures-only", false, "Target only the known-failure regression samples")
	runCmd.Flags().Int("max-samples", 0, "Cap on concurrently running sample chains (0 = no cap, local engine)")
	runCmd.Flags().BoolP("verbose", "v", false, "Log every tool invocation")
}

func runPipeline(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	engineName, err := cmd.Flags().GetString("engine")
	if err != nil {
		log.Fatal(err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		log.Fatal(err)
	}
	failuresOnly, err := cmd.Flags().GetBool("failures-only")
	if err != nil {
		log.Fatal(err)
	}
	maxSamples, err := cmd.Flags().GetInt("max-samples")
	if err != nil {
		log.Fatal(err)
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		log.Fatal(err)
	}

	samples := readSamples(cfg, failuresOnly)

	graph, err := pipeline.BuildGraph(cfg, samples)
	if err != nil {
		log.Fatalf("failed to build stage graph: %v", err)
	}

	resolver := pipeline.NewResolver(cfg)

	switch engineName {
	case "local":
		runLocal(cfg, graph, resolver, samples, failuresOnly, maxSamples, dryRun, verbose)
	case "scipipe":
		runSciPipe(cfg, graph, resolver, samples, failuresOnly, maxSamples, dryRun, verbose)
	default:
		log.Fatalf("unknown engine %q: must be local or scipipe", engineName)
	}
}

func newRunLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// reportRun enumerates the target artifacts for a finished run, logs
// the outcome counts and exits non-zero when any sample chain failed.
// Both engines converge here so rejection and failure mean the same
// thing regardless of what executed the stages
func reportRun(logger *logrus.Logger, resolver *pipeline.Resolver, samples []string, failuresOnly bool, summary *engine.Summary) {
	var artifacts []pipeline.Artifact
	var err error
	if failuresOnly {
		artifacts, err = pipeline.KnownFailures(resolver, samples)
	} else {
		artifacts, err = pipeline.AllAssemble(resolver, samples, summary.RejectedSet())
	}
	if err != nil {
		log.Fatalf("failed to enumerate target artifacts: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"completed": len(summary.Completed),
		"failed":    len(summary.Failed),
		"rejected":  len(summary.Rejected),
		"artifacts": len(artifacts),
	}).Info("pipeline run finished")

	for sample, err := range summary.Failed {
		logger.WithField("sample", sample).WithError(err).Error("sample chain failed")
	}
	if len(summary.Failed) > 0 {
		os.Exit(1)
	}
}

func readSamples(cfg *config.Config, failuresOnly bool) []string {
	listFile := cfg.Samples.Assembly
	if failuresOnly {
		if cfg.Samples.Failures == "" {
			log.Fatal("configuration error: samples.failures is not set")
		}
		listFile = cfg.Samples.Failures
	}

	samples, err := pipeline.ReadSampleFile(listFile)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	return samples
}

func runLocal(cfg *config.Config, graph *pipeline.Graph, resolver *pipeline.Resolver, samples []string, failuresOnly bool, maxSamples int, dryRun, verbose bool) {
	logger := newRunLogger(verbose)

	exec := &engine.Local{
		Graph:      graph,
		Resolver:   resolver,
		Cfg:        cfg,
		Log:        logger,
		MaxSamples: maxSamples,
		DryRun:     dryRun,
	}

	summary, err := exec.Run(context.Background(), samples)
	if err != nil {
		log.Fatalf("pipeline run failed: %v", err)
	}
	if dryRun {
		return
	}

	reportRun(logger, resolver, samples, failuresOnly, summary)
}

func runSciPipe(cfg *config.Config, graph *pipeline.Graph, resolver *pipeline.Resolver, samples []string, failuresOnly bool, maxSamples int, dryRun, verbose bool) {
	logger := newRunLogger(verbose)

	if dryRun {
		patterns, err := engine.SciPipePatterns(graph)
		if err != nil {
			log.Fatalf("failed to render stage commands: %v", err)
		}
		for _, p := range patterns {
			fmt.Println(p)
		}
		return
	}

	if err := resolver.EnsureDirs(); err != nil {
		log.Fatalf("failed to prepare output directories: %v", err)
	}

	maxTasks := cfg.Threads
	if maxSamples > 0 {
		maxTasks = maxSamples
	}
	wf, err := engine.SciPipeWorkflow("viral_assembly", graph, resolver, maxTasks)
	if err != nil {
		log.Fatalf("failed to build scipipe workflow: %v", err)
	}
	wf.Run()

	// scipipe owns execution, but the quality filter and target
	// enumeration apply to its output the same as the local runner's
	summary := engine.FilterAssemblies(resolver, cfg, logger, samples)
	reportRun(logger, resolver, samples, failuresOnly, summary)
}
