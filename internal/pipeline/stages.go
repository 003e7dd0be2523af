package pipeline

import (
	"fmt"

	"github.com/animesh/viral-ngs/config"
)

// Stages builds the per-sample stage chain from the validated config.
// Every threshold and tool flag is baked into the command templates
// here, at graph-build time; nothing is looked up during execution.
//
// The chain is linear: assemble (one or two stages depending on the
// configured assembler), orient_and_impute, two refinement passes,
// reads-to-self mapping and, when enabled, a terminal report stage.
func Stages(cfg *config.Config) ([]*Stage, error) {
	var stages []*Stage

	assembler, err := assembleStages(cfg)
	if err != nil {
		return nil, err
	}
	stages = append(stages, assembler...)

	// downstream consumes contigs from the last assembler stage
	contigsFrom := stages[len(stages)-1].Name

	stages = append(stages,
		orientAndImputeStage(cfg, contigsFrom),
		refineStage(StageRefine1, cfg, cfg.Refine1, StageOrientAndImpute, RoleImputed, RoleRefined),
		refineStage(StageRefine2, cfg, cfg.Refine2, StageRefine1, RoleRefined, RoleFinal),
		mapToSelfStage(cfg),
	)

	if cfg.Reports.Assembly {
		stages = append(stages, reportStage(cfg))
	}

	return stages, nil
}

// assembleStages returns the de novo assembly stage(s) for the
// configured assembler. trinity-spades chains two stages, feeding
// trinity's contigs into spades as an untrusted-contigs hint
func assembleStages(cfg *config.Config) ([]*Stage, error) {
	switch cfg.Assembly.Assembler {
	case config.AssemblerTrinity:
		return []*Stage{trinityStage(cfg)}, nil
	case config.AssemblerSpades:
		return []*Stage{spadesStage(cfg, false)}, nil
	case config.AssemblerTrinitySpades:
		return []*Stage{trinityStage(cfg), spadesStage(cfg, true)}, nil
	default:
		return nil, fmt.Errorf("unknown assembler %q", cfg.Assembly.Assembler)
	}
}

func trinityStage(cfg *config.Config) *Stage {
	return &Stage{
		Name: StageAssembleTrinity,
		Inputs: []Input{
			{As: RoleTaxfiltReads, Role: RoleTaxfiltReads},
			{As: RoleTrimClipDB, Role: RoleTrimClipDB},
		},
		Outputs: []Role{RoleContigs, RoleSubsampBam},
		Resources: Resources{
			MemGB:   cfg.Assembly.MemGB,
			Threads: cfg.Threads,
			Queue:   cfg.Queues.Long,
		},
		Commands: [][]Token{{
			lit("assembly.py"), lit("assemble_trinity"),
			in(RoleTaxfiltReads), in(RoleTrimClipDB), out(RoleContigs),
			lit("--n_reads"), litf("%d", cfg.Assembly.TrinityNReads),
			lit("--outReads"), out(RoleSubsampBam),
			lit("--threads"), litf("%d", cfg.Threads),
		}},
	}
}

// spadesStage builds the spades assembly stage. spades tends to
// over-allocate against its --memLimitGb, so the stage requests 90%
// of the nominal ceiling to stay clear of scheduler kill decisions
// while still publishing the full ceiling as its resource hint
func spadesStage(cfg *config.Config, withTrinityHint bool) *Stage {
	inputs := []Input{
		{As: RoleTaxfiltReads, Role: RoleTaxfiltReads},
		{As: RoleTrimClipDB, Role: RoleTrimClipDB},
	}

	command := []Token{
		lit("assembly.py"), lit("assemble_spades"),
		in(RoleTaxfiltReads), in(RoleTrimClipDB), out(RoleContigs),
	}
	if withTrinityHint {
		inputs = append(inputs, Input{
			As:    RoleUntrustedContigs,
			Stage: StageAssembleTrinity,
			Role:  RoleContigs,
		})
		command = append(command, lit("--contigsUntrusted"), in(RoleUntrustedContigs))
	}
	command = append(command,
		lit("--nReads"), litf("%d", cfg.Assembly.SpadesNReads),
		lit("--memLimitGb"), litf("%d", spadesMemLimitGB(cfg.Assembly.MemGB)),
		lit("--threads"), litf("%d", cfg.Threads),
	)

	return &Stage{
		Name:    StageAssembleSpades,
		Inputs:  inputs,
		Outputs: []Role{RoleContigs},
		Resources: Resources{
			MemGB:   cfg.Assembly.MemGB,
			Threads: cfg.Threads,
			Queue:   cfg.Queues.Long,
		},
		Commands: [][]Token{command},
	}
}

// spadesMemLimitGB is the 90%-of-ceiling under-allocation passed to
// spades itself
func spadesMemLimitGB(memGB int) int {
	limit := memGB * 9 / 10
	if limit < 1 {
		limit = 1
	}
	return limit
}

// orientAndImputeStage runs three sequential sub-steps against the
// raw contigs: order/orient against the reference into a gapped
// scaffold, fill the gaps from the cleaned reads, then impute
// low-confidence bases near sequence ends from the reference and trim
// anything past the reference length. Interior bases that were called
// with confidence are never replaced, even where they disagree with
// the reference
func orientAndImputeStage(cfg *config.Config, contigsFrom StageName) *Stage {
	return &Stage{
		Name: StageOrientAndImpute,
		Inputs: []Input{
			{As: RoleContigs, Stage: contigsFrom, Role: RoleContigs},
			{As: RoleCleanedReads, Role: RoleCleanedReads},
			{As: RoleRefGenome, Role: RoleRefGenome},
		},
		Outputs: []Role{RoleScaffold, RoleGapfilled, RoleImputed},
		Resources: Resources{
			MemGB:   4,
			Threads: cfg.Threads,
			Queue:   cfg.Queues.Short,
		},
		Commands: [][]Token{
			{
				lit("assembly.py"), lit("order_and_orient"),
				in(RoleContigs), in(RoleRefGenome), out(RoleScaffold),
				lit("--maxgap"), litf("%d", cfg.Scaffold.MaxGap),
				lit("--minmatch"), litf("%d", cfg.Scaffold.MinMatch),
				lit("--mincluster"), litf("%d", cfg.Scaffold.MinCluster),
				lit("--nGenomeSegments"), litf("%d", cfg.Scaffold.NSegments),
			},
			{
				lit("assembly.py"), lit("gapfill_gap2seq"),
				out(RoleScaffold), in(RoleCleanedReads), out(RoleGapfilled),
				lit("--randomSeed"), litf("%d", cfg.Scaffold.RandomSeed),
				lit("--memLimitGb"), lit("4"),
				lit("--threads"), litf("%d", cfg.Threads),
			},
			{
				lit("assembly.py"), lit("impute_from_reference"),
				out(RoleGapfilled), in(RoleRefGenome), out(RoleImputed),
				lit("--newName"), sample(),
				lit("--replaceLength"), litf("%d", cfg.Scaffold.ReplaceLength),
				lit("--minLengthFraction"), litf("%g", cfg.Scaffold.MinLengthFraction),
				lit("--minUnambiguous"), litf("%g", cfg.Scaffold.MinUnambiguous),
				lit("--index"),
			},
		},
	}
}

// refineStage builds one pileup-based majority-consensus refinement
// pass. The two passes share this command shape but are deliberately
// distinct configurations: pass 2 requires deeper coverage and maps
// more conservatively than pass 1. Reads are realigned before calling
// so indel placement does not masquerade as substitutions
func refineStage(name StageName, cfg *config.Config, rc config.RefineConfig, upstream StageName, upstreamRole, output Role) *Stage {
	queue := cfg.Queues.Short
	outputs := []Role{output, RoleVariants}

	return &Stage{
		Name: name,
		Inputs: []Input{
			{As: RoleAssembly, Stage: upstream, Role: upstreamRole},
			{As: RoleCleanedReads, Role: RoleCleanedReads},
		},
		Outputs: outputs,
		Resources: Resources{
			MemGB:   4,
			Threads: cfg.Threads,
			Queue:   queue,
		},
		Commands: [][]Token{{
			lit("assembly.py"), lit("refine_assembly"),
			in(RoleAssembly), in(RoleCleanedReads), out(output),
			lit("--outVcf"), out(RoleVariants),
			lit("--min_coverage"), litf("%d", rc.MinCoverage),
			lit("--major_cutoff"), litf("%g", rc.MajorCutoff),
			lit("--novo_params"), lit(rc.NovoalignOptions),
			lit("--threads"), litf("%d", cfg.Threads),
		}},
	}
}

// mapToSelfStage aligns the cleaned reads back against the finished
// assembly, producing one BAM with every read and one restricted to
// mapped, deduplicated reads. Downstream assembly stages never consume
// these; they exist for QC and reporting
func mapToSelfStage(cfg *config.Config) *Stage {
	return &Stage{
		Name: StageMapToSelf,
		Inputs: []Input{
			{As: RoleCleanedReads, Role: RoleCleanedReads},
			{As: RoleFinal, Stage: StageRefine2, Role: RoleFinal},
		},
		Outputs: []Role{RoleSelfBamAll, RoleSelfBamMapped},
		Resources: Resources{
			MemGB:   4,
			Threads: cfg.Threads,
			Queue:   cfg.Queues.Short,
		},
		Commands: [][]Token{{
			lit("read_utils.py"), lit("align_and_fix"),
			in(RoleCleanedReads), in(RoleFinal),
			lit("--outBamAll"), out(RoleSelfBamAll),
			lit("--outBamFiltered"), out(RoleSelfBamMapped),
			lit("--aligner"), lit(cfg.Mapping.Aligner),
			lit("--aligner_options"), lit(cfg.Mapping.AlignerOptions),
			lit("--threads"), litf("%d", cfg.Threads),
		}},
	}
}

// reportStage is the optional terminal stage summarizing one sample's
// finished assembly and self-alignment
func reportStage(cfg *config.Config) *Stage {
	return &Stage{
		Name: StageReport,
		Inputs: []Input{
			{As: RoleFinal, Stage: StageRefine2, Role: RoleFinal},
			{As: RoleSelfBamMapped, Stage: StageMapToSelf, Role: RoleSelfBamMapped},
		},
		Outputs: []Role{RoleReport},
		Resources: Resources{
			MemGB:   2,
			Threads: 1,
			Queue:   cfg.Queues.Short,
		},
		Commands: [][]Token{{
			lit("reports.py"), lit("assembly_stats"),
			sample(), out(RoleReport),
			lit("--assembly"), in(RoleFinal),
			lit("--reads_bam"), in(RoleSelfBamMapped),
		}},
	}
}
