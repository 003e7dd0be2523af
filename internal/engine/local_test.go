package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/animesh/viral-ngs/config"
	"github.com/animesh/viral-ngs/internal/pipeline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		DataDir: filepath.Join(root, "data"),
		TmpDir:  filepath.Join(root, "tmp"),
		Threads: 2,
		Subdirs: config.Subdirs{
			Source:    "00_raw",
			Assembly:  "02_assembly",
			AlignSelf: "02_align_to_self",
		},
		Samples: config.SampleFiles{Assembly: "samples.txt"},
		Assembly: config.AssemblyConfig{
			Assembler:      config.AssemblerTrinity,
			TrinityNReads:  1000,
			MemGB:          2,
			TrimClipDB:     filepath.Join(root, "trim_clip.fasta"),
			RefGenome:      filepath.Join(root, "reference.fasta"),
			MinLength:      10,
			MinUnambiguous: 0.5,
		},
		Scaffold: config.ScaffoldConfig{
			MaxGap: 200, MinMatch: 10, MinCluster: 65, NSegments: 1,
			ReplaceLength: 55, MinLengthFraction: 0.5, MinUnambiguous: 0.5,
			RandomSeed: 42,
		},
		Refine1: config.RefineConfig{MinCoverage: 2, MajorCutoff: 0.5, NovoalignOptions: "-r Random -l 30"},
		Refine2: config.RefineConfig{MinCoverage: 3, MajorCutoff: 0.5, NovoalignOptions: "-r Random -l 40"},
		Mapping: config.MappingConfig{Aligner: "novoalign", AlignerOptions: "-r Random -l 40 -k"},
		Queues:  config.QueueConfig{Short: "short", Long: "long"},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newLocal(t *testing.T, cfg *config.Config, samples []string) *Local {
	t.Helper()
	graph, err := pipeline.BuildGraph(cfg, samples)
	if err != nil {
		t.Fatal(err)
	}
	return &Local{
		Graph:    graph,
		Resolver: pipeline.NewResolver(cfg),
		Cfg:      cfg,
		Log:      quietLogger(),
	}
}

// missing inputs stop a sample's chain at its first stage, and one
// sample's failure never touches its sibling
func TestLocal_FailureIsolation(t *testing.T) {
	cfg := testConfig(t)
	exec := newLocal(t, cfg, []string{"S1", "S2"})

	summary, err := exec.Run(context.Background(), []string{"S1", "S2"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(summary.Completed) != 0 {
		t.Errorf("Completed = %v, want none", summary.Completed)
	}
	if len(summary.Failed) != 2 {
		t.Fatalf("Failed = %d samples, want 2 independent failures", len(summary.Failed))
	}
	for sample, sampleErr := range summary.Failed {
		if sampleErr == nil {
			t.Errorf("Failed[%s] = nil error", sample)
		}
	}
}

func TestLocal_DryRunHasNoSideEffects(t *testing.T) {
	cfg := testConfig(t)
	exec := newLocal(t, cfg, []string{"S1"})
	exec.DryRun = true

	summary, err := exec.Run(context.Background(), []string{"S1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summary.Failed) != 0 || len(summary.Rejected) != 0 {
		t.Errorf("dry run recorded outcomes: failed=%v rejected=%v", summary.Failed, summary.Rejected)
	}

	// no output directories were created
	if _, err := os.Stat(filepath.Join(cfg.TmpDir, "02_assembly")); !os.IsNotExist(err) {
		t.Error("dry run created output directories")
	}
}

func TestSummary_RejectedSet(t *testing.T) {
	s := newSummary()
	s.reject("S1", nil)
	s.complete("S2")

	set := s.RejectedSet()
	if !set["S1"] || set["S2"] {
		t.Errorf("RejectedSet() = %v, want S1 only", set)
	}
}

// the quality filter applies to a drained run no matter which engine
// executed it: below-threshold and missing assemblies are excluded or
// failed per sample, siblings untouched
func TestFilterAssemblies(t *testing.T) {
	cfg := testConfig(t)
	r := pipeline.NewResolver(cfg)
	if err := r.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	writeFinal := func(sample, contents string) {
		t.Helper()
		path, err := r.Path(sample, pipeline.StageRefine2, pipeline.RoleFinal)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFinal("S1", ">seg1\nACGTACGTACGT\n") // clears 10 bases at 0.5
	writeFinal("S2", ">seg1\nACGT\n")         // too short

	summary := FilterAssemblies(r, cfg, quietLogger(), []string{"S1", "S2", "S3"})

	rejected := summary.RejectedSet()
	if rejected["S1"] || !rejected["S2"] {
		t.Errorf("RejectedSet() = %v, want S2 only", rejected)
	}
	if _, ok := summary.Failed["S3"]; !ok {
		t.Error("missing assembly for S3 not recorded as a failure")
	}
	if len(summary.Completed) != 2 {
		t.Errorf("Completed = %v, want S1 and S2", summary.Completed)
	}
}

func TestSciPipePatterns(t *testing.T) {
	cfg := testConfig(t)
	graph, err := pipeline.BuildGraph(cfg, []string{"S1"})
	if err != nil {
		t.Fatal(err)
	}

	patterns, err := SciPipePatterns(graph)
	if err != nil {
		t.Fatalf("SciPipePatterns() error = %v", err)
	}
	if len(patterns) != 5 {
		t.Fatalf("SciPipePatterns() = %d patterns, want one per stage instance (5)", len(patterns))
	}
	for _, p := range patterns {
		if !strings.Contains(p, "{o:") {
			t.Errorf("pattern without an output placeholder: %s", p)
		}
	}
}

func TestSciPipeWorkflow_Builds(t *testing.T) {
	cfg := testConfig(t)
	graph, err := pipeline.BuildGraph(cfg, []string{"S1", "S2"})
	if err != nil {
		t.Fatal(err)
	}

	wf, err := SciPipeWorkflow("test_assembly", graph, pipeline.NewResolver(cfg), 2)
	if err != nil {
		t.Fatalf("SciPipeWorkflow() error = %v", err)
	}
	if wf == nil {
		t.Fatal("SciPipeWorkflow() returned nil workflow")
	}
}
