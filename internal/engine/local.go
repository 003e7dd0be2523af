// Package engine executes a built stage graph. The local executor
// shells out to the external tools directly; the scipipe adapter
// hands the same graph to the scipipe workflow engine, which then
// owns scheduling, parallelism and retry policy.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/animesh/viral-ngs/config"
	"github.com/animesh/viral-ngs/internal/pipeline"
	"github.com/animesh/viral-ngs/internal/qc"
)

// Summary collects per-sample outcomes of one run. Failure of one
// sample's chain never aborts another's; everything lands here and is
// reported once the run drains
type Summary struct {
	mu sync.Mutex

	// samples whose full chain completed
	Completed []string

	// samples whose chain stopped on a stage failure
	Failed map[string]error

	// samples that finished but did not clear the quality filter.
	// Not failures: they are excluded from aggregation only
	Rejected map[string]*qc.Result
}

func newSummary() *Summary {
	return &Summary{
		Failed:   make(map[string]error),
		Rejected: make(map[string]*qc.Result),
	}
}

func (s *Summary) complete(sample string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Completed = append(s.Completed, sample)
}

func (s *Summary) fail(sample string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed[sample] = err
}

func (s *Summary) reject(sample string, res *qc.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rejected[sample] = res
}

// RejectedSet returns the rejected samples as a set, in the shape the
// aggregation targets consume
func (s *Summary) RejectedSet() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool, len(s.Rejected))
	for sample := range s.Rejected {
		set[sample] = true
	}
	return set
}

// Local runs a stage graph in-process. Sample chains execute in
// parallel; stages within one chain run strictly in order, each
// gated on its input artifacts existing and being non-empty
type Local struct {
	Graph    *pipeline.Graph
	Resolver *pipeline.Resolver
	Cfg      *config.Config
	Log      *logrus.Logger

	// MaxSamples caps how many sample chains run at once;
	// 0 means no cap
	MaxSamples int

	// DryRun prints the rendered commands without touching the
	// filesystem or invoking anything
	DryRun bool
}

// Run executes every sample chain and returns the collected outcomes.
// The returned error covers executor-level problems only; per-sample
// stage failures are in the Summary
func (e *Local) Run(ctx context.Context, samples []string) (*Summary, error) {
	summary := newSummary()

	if !e.DryRun {
		if err := e.Resolver.EnsureDirs(); err != nil {
			return nil, err
		}
	}

	var eg errgroup.Group
	if e.MaxSamples > 0 {
		eg.SetLimit(e.MaxSamples)
	}
	for _, s := range samples {
		s := s
		eg.Go(func() error {
			e.runChain(ctx, s, summary)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// runChain walks one sample's stages in dependency order, stopping
// the chain at the first failed stage
func (e *Local) runChain(ctx context.Context, sample string, summary *Summary) {
	for _, inst := range e.Graph.Chain(sample) {
		if err := e.runInstance(ctx, inst, summary); err != nil {
			e.Log.WithFields(logrus.Fields{
				"sample": inst.Sample,
				"stage":  inst.Stage.Name,
			}).WithError(err).Error("stage failed; abandoning downstream chain")
			summary.fail(sample, fmt.Errorf("stage %s: %w", inst.Stage.Name, err))
			return
		}
	}
	summary.complete(sample)
}

func (e *Local) runInstance(ctx context.Context, inst *pipeline.Instance, summary *Summary) error {
	log := e.Log.WithFields(logrus.Fields{
		"sample": inst.Sample,
		"stage":  inst.Stage.Name,
		"queue":  inst.Stage.Resources.Queue,
		"mem_gb": inst.Stage.Resources.MemGB,
	})

	commands, err := inst.Stage.Argv(e.Resolver, inst.Sample)
	if err != nil {
		return err
	}

	if e.DryRun {
		for _, argv := range commands {
			fmt.Println(strings.Join(argv, " "))
		}
		return nil
	}

	if err := e.checkInputs(inst); err != nil {
		return err
	}

	log.Info("running stage")
	for _, argv := range commands {
		if err := e.runCommand(ctx, log, argv); err != nil {
			return err
		}
	}

	// the accepted assembly exists once pass 2 finishes; measure it
	// against the quality thresholds before anything aggregates it
	if inst.Stage.Name == pipeline.StageRefine2 {
		if err := e.applyQualityFilter(inst.Sample, log, summary); err != nil {
			return err
		}
	}
	return nil
}

// checkInputs gates the stage on every declared input existing and
// being non-empty. A stage never consumes an artifact that is still
// being produced: upstream stages in the same chain have already
// returned by the time this runs
func (e *Local) checkInputs(inst *pipeline.Instance) error {
	for _, input := range inst.Stage.Inputs {
		path, err := e.Resolver.InputPath(inst.Sample, input)
		if err != nil {
			return err
		}
		fi, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("input %s not present: %w", input.As, err)
		}
		if fi.Size() == 0 {
			return fmt.Errorf("input %s is empty: %s", input.As, path)
		}
	}
	return nil
}

func (e *Local) runCommand(ctx context.Context, log *logrus.Entry, argv []string) error {
	log.WithField("command", strings.Join(argv, " ")).Debug("invoking tool")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w\n%s", argv[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}

// applyQualityFilter measures the finished assembly. Rejection is a
// normal outcome: record it and keep the chain running so the
// self-alignment BAMs still exist for QC
func (e *Local) applyQualityFilter(sample string, log *logrus.Entry, summary *Summary) error {
	res, err := evaluateFinal(e.Resolver, e.Cfg, sample)
	if err != nil {
		return err
	}
	if !res.Pass() {
		log.WithField("stats", res.String()).Info("assembly below quality thresholds; excluding from aggregation")
		summary.reject(sample, res)
	}
	return nil
}
