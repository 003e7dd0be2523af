// Package pipeline is the declarative model of the viral assembly
// workflow: the per-sample stage chain, the artifact path resolver,
// the dependency graph built from both, and the aggregation targets
// that drive a run to completion. Execution belongs to /internal/engine.
package pipeline

import (
	"fmt"
	"strings"
)

// StageName identifies one unit of work in the per-sample chain
type StageName string

const (
	StageAssembleTrinity StageName = "assemble_trinity"
	StageAssembleSpades  StageName = "assemble_spades"
	StageOrientAndImpute StageName = "orient_and_impute"
	StageRefine1         StageName = "refine_assembly_1"
	StageRefine2         StageName = "refine_assembly_2"
	StageMapToSelf       StageName = "map_reads_to_self"
	StageReport          StageName = "assembly_report"
)

// Role names one artifact a stage produces or consumes
type Role string

const (
	// raw inputs, present before the pipeline starts
	RoleTaxfiltReads Role = "taxfilt_reads"
	RoleCleanedReads Role = "cleaned_reads"
	RoleTrimClipDB   Role = "trim_clip_db"
	RoleRefGenome    Role = "ref_genome"

	// RoleAssembly is the local name refine passes use for whichever
	// upstream assembly fasta they correct
	RoleAssembly Role = "assembly"

	// stage outputs
	RoleContigs          Role = "contigs"
	RoleUntrustedContigs Role = "untrusted_contigs"
	RoleSubsampBam       Role = "subsamp_bam"
	RoleScaffold         Role = "scaffold"
	RoleGapfilled        Role = "gapfilled"
	RoleImputed          Role = "imputed"
	RoleRefined          Role = "refined"
	RoleVariants         Role = "variants"
	RoleFinal            Role = "final"
	RoleSelfBamAll       Role = "self_bam_all"
	RoleSelfBamMapped    Role = "self_bam_mapped"
	RoleReport           Role = "report"
)

// Input declares one upstream artifact a stage consumes. Stage names
// the producing stage; an empty Stage marks a raw source input that
// exists before the pipeline runs. As is the local name the stage's
// command template refers to, so the same upstream role can feed two
// different stages without colliding
type Input struct {
	As    Role
	Stage StageName
	Role  Role
}

// Resources are the advisory scheduling hints published per stage
// instance. Nothing in this repository enforces them; the execution
// engine uses them for admission control
type Resources struct {
	MemGB   int
	Threads int
	Queue   string
}

// TokenKind says how one command token is rendered
type TokenKind int

const (
	// TokenLit is literal text passed through unchanged
	TokenLit TokenKind = iota

	// TokenIn resolves to an input artifact path
	TokenIn

	// TokenOut resolves to an output artifact path
	TokenOut

	// TokenSample resolves to the sample identifier
	TokenSample
)

// Token is one argument of a stage's command template. Templates are
// built once at graph-build time with every numeric parameter already
// baked in as a literal; only artifact paths and the sample id vary
// per instance
type Token struct {
	Kind TokenKind
	Text string
	Role Role
}

func lit(s string) Token { return Token{Kind: TokenLit, Text: s} }

func litf(format string, args ...interface{}) Token {
	return Token{Kind: TokenLit, Text: fmt.Sprintf(format, args...)}
}

func in(r Role) Token { return Token{Kind: TokenIn, Role: r} }

func out(r Role) Token { return Token{Kind: TokenOut, Role: r} }

func sample() Token { return Token{Kind: TokenSample} }

// Stage is one named unit of work: its upstream artifact dependencies,
// the artifacts it produces, advisory resource hints and the external
// tool commands it runs. A stage fans out over the sample list, one
// instance per sample, with no shared state between instances
type Stage struct {
	Name      StageName
	Inputs    []Input
	Outputs   []Role
	Resources Resources

	// Commands run in order within the stage; most stages have one,
	// orient_and_impute chains three
	Commands [][]Token
}

// input returns the declared input whose local name is role
func (s *Stage) input(role Role) (Input, error) {
	for _, i := range s.Inputs {
		if i.As == role {
			return i, nil
		}
	}
	return Input{}, fmt.Errorf("stage %s: no input with role %q", s.Name, role)
}

// hasOutput reports whether the stage declares role as an output
func (s *Stage) hasOutput(role Role) bool {
	for _, o := range s.Outputs {
		if o == role {
			return true
		}
	}
	return false
}

// Argv renders the stage's commands for one sample as concrete
// argument vectors, resolving every artifact token to its path.
// Rendering is pure: same sample, same resolver, same argv
func (s *Stage) Argv(r *Resolver, smpl string) ([][]string, error) {
	rendered := make([][]string, 0, len(s.Commands))
	for _, command := range s.Commands {
		argv := make([]string, 0, len(command))
		for _, t := range command {
			switch t.Kind {
			case TokenLit:
				argv = append(argv, t.Text)
			case TokenSample:
				argv = append(argv, smpl)
			case TokenIn:
				inp, err := s.input(t.Role)
				if err != nil {
					return nil, err
				}
				p, err := r.InputPath(smpl, inp)
				if err != nil {
					return nil, err
				}
				argv = append(argv, p)
			case TokenOut:
				if !s.hasOutput(t.Role) {
					return nil, fmt.Errorf("stage %s: command writes undeclared output %q", s.Name, t.Role)
				}
				p, err := r.Path(smpl, s.Name, t.Role)
				if err != nil {
					return nil, err
				}
				argv = append(argv, p)
			}
		}
		rendered = append(rendered, argv)
	}
	return rendered, nil
}

// Pattern renders the stage's commands for one sample as a single
// shell string with scipipe {i:role}/{o:role} placeholders in place
// of artifact paths, for handoff to the workflow engine
func (s *Stage) Pattern(smpl string) (string, error) {
	var cmds []string
	for _, command := range s.Commands {
		var parts []string
		for _, t := range command {
			switch t.Kind {
			case TokenLit:
				parts = append(parts, shellQuote(t.Text))
			case TokenSample:
				parts = append(parts, shellQuote(smpl))
			case TokenIn:
				if _, err := s.input(t.Role); err != nil {
					return "", err
				}
				parts = append(parts, fmt.Sprintf("{i:%s}", t.Role))
			case TokenOut:
				if !s.hasOutput(t.Role) {
					return "", fmt.Errorf("stage %s: command writes undeclared output %q", s.Name, t.Role)
				}
				parts = append(parts, fmt.Sprintf("{o:%s}", t.Role))
			}
		}
		cmds = append(cmds, strings.Join(parts, " "))
	}
	return strings.Join(cmds, " && "), nil
}

// shellQuote single-quotes a literal when it contains characters the
// shell would otherwise split or interpret
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t'\"$&|;<>()*?`\\") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
