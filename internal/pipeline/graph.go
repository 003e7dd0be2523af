package pipeline

import (
	"fmt"
	"sort"

	"github.com/animesh/viral-ngs/config"
)

// Instance is one stage applied to one sample: the unit of scheduling.
// Instances for different samples share no state and may run in
// parallel; instances within one sample's chain are strictly ordered
// by their artifact dependencies
type Instance struct {
	Sample string
	Stage  *Stage
}

// ID is the unique node key: sample/stage
func (i *Instance) ID() string {
	return i.Sample + "/" + string(i.Stage.Name)
}

type node struct {
	inst       *Instance
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is the explicit DAG over stage instances: nodes are
// (sample, stage) pairs, edges are artifact dependencies. It is built
// once per run, validated acyclic before anything executes, and
// discarded when the run completes
type Graph struct {
	nodes map[string]*node

	// insertion order: samples as given, stages in chain order.
	// Doubles as a deterministic topological order once validated
	order []*Instance
}

// BuildGraph constructs and validates the full dependency graph for
// the sample set. Configuration problems (unknown assembler, missing
// artifact mappings) surface here, before any external tool runs
func BuildGraph(cfg *config.Config, samples []string) (*Graph, error) {
	stages, err := Stages(cfg)
	if err != nil {
		return nil, err
	}

	g := &Graph{nodes: make(map[string]*node)}

	byName := make(map[StageName]*Stage, len(stages))
	for _, st := range stages {
		byName[st.Name] = st
	}

	for _, s := range samples {
		for _, st := range stages {
			inst := &Instance{Sample: s, Stage: st}
			g.nodes[inst.ID()] = &node{
				inst:       inst,
				deps:       make(map[string]*node),
				dependents: make(map[string]*node),
			}
			g.order = append(g.order, inst)
		}
	}

	for _, s := range samples {
		for _, st := range stages {
			for _, input := range st.Inputs {
				if input.Stage == "" {
					continue // raw source input, no producing node
				}
				up, ok := byName[input.Stage]
				if !ok {
					return nil, fmt.Errorf(
						"stage %s depends on %s, which is not in the configured chain",
						st.Name, input.Stage,
					)
				}
				if !up.hasOutput(input.Role) {
					return nil, fmt.Errorf(
						"stage %s consumes %s/%s, but %s does not produce it",
						st.Name, input.Stage, input.Role, input.Stage,
					)
				}
				if err := g.addEdge(s+"/"+string(input.Stage), s+"/"+string(st.Name)); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	if err := g.checkOrder(); err != nil {
		return nil, err
	}
	return g, nil
}

// addEdge records that toID depends on fromID
func (g *Graph) addEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential dependency: %s", fromID)
	}
	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("dependency source not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("dependency target not found: %s", toID)
	}
	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Order returns the instances in a deterministic topological order:
// samples in list order, each sample's stages in dependency order
func (g *Graph) Order() []*Instance {
	return g.order
}

// Chain returns one sample's instances in dependency order
func (g *Graph) Chain(sample string) []*Instance {
	var chain []*Instance
	for _, inst := range g.order {
		if inst.Sample == sample {
			chain = append(chain, inst)
		}
	}
	return chain
}

// Dependencies returns the IDs of the instances id depends on, sorted
func (g *Graph) Dependencies(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("instance not found: %s", id)
	}
	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	sort.Strings(deps)
	return deps, nil
}

// detectCycles runs a depth-first search with the classic three node
// sets: permanently visited, on the current stack, and unvisited
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		id := n.inst.ID()
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("dependency cycle through %s", id)
		}
		temporary[id] = true
		for _, dep := range n.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, inst := range g.order {
		if err := visit(g.nodes[inst.ID()]); err != nil {
			return err
		}
	}
	return nil
}

// checkOrder verifies the insertion order really is topological, so
// callers can iterate Order() and trust every dependency precedes its
// dependents
func (g *Graph) checkOrder() error {
	pos := make(map[string]int, len(g.order))
	for i, inst := range g.order {
		pos[inst.ID()] = i
	}
	for _, inst := range g.order {
		for depID := range g.nodes[inst.ID()].deps {
			if pos[depID] > pos[inst.ID()] {
				return fmt.Errorf("stage chain out of order: %s precedes its dependency %s", inst.ID(), depID)
			}
		}
	}
	return nil
}
