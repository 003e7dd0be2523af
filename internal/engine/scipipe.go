package engine

import (
	"fmt"

	"github.com/scipipe/scipipe"
	"github.com/scipipe/scipipe/components"

	"github.com/animesh/viral-ngs/internal/pipeline"
)

// SciPipeWorkflow translates the stage graph into a scipipe workflow.
// scipipe is the execution engine proper: it schedules instances,
// decides the parallel degree up to maxTasks, re-runs nothing that is
// already on disk, and guarantees a process fires only after every
// upstream output exists. The graph contributes dependency edges,
// resolved paths and the shell command per instance; nothing else
func SciPipeWorkflow(name string, g *pipeline.Graph, r *pipeline.Resolver, maxTasks int) (*scipipe.Workflow, error) {
	wf := scipipe.NewWorkflow(name, maxTasks)

	procs := make(map[string]*scipipe.Process)
	sources := make(map[string]*components.FileSource)

	for _, inst := range g.Order() {
		pattern, err := inst.Stage.Pattern(inst.Sample)
		if err != nil {
			return nil, err
		}

		proc := wf.NewProc(procName(inst), pattern)

		for _, role := range inst.Stage.Outputs {
			path, err := r.Path(inst.Sample, inst.Stage.Name, role)
			if err != nil {
				return nil, err
			}
			proc.SetOut(string(role), path)
		}

		for _, input := range inst.Stage.Inputs {
			if input.Stage != "" {
				upstream, ok := procs[inst.Sample+"/"+string(input.Stage)]
				if !ok {
					return nil, fmt.Errorf("no process built for %s/%s", inst.Sample, input.Stage)
				}
				proc.In(string(input.As)).From(upstream.Out(string(input.Role)))
				continue
			}

			// raw inputs enter the workflow through file sources,
			// one per distinct path, fanned out to every consumer
			path, err := r.SourcePath(inst.Sample, input.Role)
			if err != nil {
				return nil, err
			}
			src, ok := sources[path]
			if !ok {
				src = components.NewFileSource(wf, sourceName(inst.Sample, input.Role), path)
				sources[path] = src
			}
			proc.In(string(input.As)).From(src.Out())
		}

		procs[inst.ID()] = proc
	}

	return wf, nil
}

// SciPipePatterns renders every instance's shell pattern in execution
// order without building a workflow, for dry runs
func SciPipePatterns(g *pipeline.Graph) ([]string, error) {
	var patterns []string
	for _, inst := range g.Order() {
		p, err := inst.Stage.Pattern(inst.Sample)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, procName(inst)+": "+p)
	}
	return patterns, nil
}

func procName(inst *pipeline.Instance) string {
	return inst.Sample + "_" + string(inst.Stage.Name)
}

func sourceName(sample string, role pipeline.Role) string {
	switch role {
	case pipeline.RoleTrimClipDB, pipeline.RoleRefGenome:
		// shared across samples
		return string(role) + "_source"
	}
	return sample + "_" + string(role) + "_source"
}
