package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/animesh/viral-ngs/config"
)

// Resolver turns (sample, stage, role) triples into concrete artifact
// paths. Resolution is pure: the same triple against the same config
// always yields the same path. Directory roots and per-category
// subdirectories come from the config; the filename suffix per stage
// is a fixed convention
type Resolver struct {
	cfg *config.Config
}

// NewResolver returns a Resolver over the validated config
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// directory roots per artifact category

func (r *Resolver) tmpAssemblyDir() string {
	return filepath.Join(r.cfg.TmpDir, r.cfg.Subdirs.Assembly)
}

func (r *Resolver) dataAssemblyDir() string {
	return filepath.Join(r.cfg.DataDir, r.cfg.Subdirs.Assembly)
}

func (r *Resolver) sourceDir() string {
	return filepath.Join(r.cfg.DataDir, r.cfg.Subdirs.Source)
}

func (r *Resolver) alignSelfDir() string {
	return filepath.Join(r.cfg.DataDir, r.cfg.Subdirs.AlignSelf)
}

func (r *Resolver) reportsDir() string {
	return filepath.Join(r.cfg.DataDir, r.cfg.Subdirs.Reports)
}

// SourcePath resolves a raw input artifact: reads from the source
// subdirectory, databases and references from their configured paths
func (r *Resolver) SourcePath(sample string, role Role) (string, error) {
	switch role {
	case RoleTaxfiltReads:
		return filepath.Join(r.sourceDir(), sample+".taxfilt.bam"), nil
	case RoleCleanedReads:
		return filepath.Join(r.sourceDir(), sample+".cleaned.bam"), nil
	case RoleTrimClipDB:
		return r.cfg.Assembly.TrimClipDB, nil
	case RoleRefGenome:
		return r.cfg.Assembly.RefGenome, nil
	}
	return "", fmt.Errorf("unknown raw input role %q", role)
}

// Path resolves a stage output artifact for one sample
func (r *Resolver) Path(sample string, stage StageName, role Role) (string, error) {
	switch stage {
	case StageAssembleTrinity:
		switch role {
		case RoleContigs:
			return filepath.Join(r.tmpAssemblyDir(), sample+".assembly1-trinity.fasta"), nil
		case RoleSubsampBam:
			return filepath.Join(r.tmpAssemblyDir(), sample+".subsamp.bam"), nil
		}

	case StageAssembleSpades:
		if role == RoleContigs {
			name := fmt.Sprintf("%s.assembly1-%s.fasta", sample, r.cfg.Assembly.Assembler)
			return filepath.Join(r.tmpAssemblyDir(), name), nil
		}

	case StageOrientAndImpute:
		switch role {
		case RoleScaffold:
			return filepath.Join(r.tmpAssemblyDir(), sample+".assembly2-scaffolded.fasta"), nil
		case RoleGapfilled:
			return filepath.Join(r.tmpAssemblyDir(), sample+".assembly2-gapfilled.fasta"), nil
		case RoleImputed:
			return filepath.Join(r.tmpAssemblyDir(), sample+".assembly3-modify.fasta"), nil
		}

	case StageRefine1:
		switch role {
		case RoleRefined:
			return filepath.Join(r.tmpAssemblyDir(), sample+".assembly4-refined.fasta"), nil
		case RoleVariants:
			return filepath.Join(r.tmpAssemblyDir(), sample+".assembly3.vcf.gz"), nil
		}

	case StageRefine2:
		switch role {
		case RoleFinal:
			return filepath.Join(r.dataAssemblyDir(), sample+".fasta"), nil
		case RoleVariants:
			return filepath.Join(r.tmpAssemblyDir(), sample+".assembly4.vcf.gz"), nil
		}

	case StageMapToSelf:
		switch role {
		case RoleSelfBamAll:
			return filepath.Join(r.alignSelfDir(), sample+".bam"), nil
		case RoleSelfBamMapped:
			return filepath.Join(r.alignSelfDir(), sample+".mapped.bam"), nil
		}

	case StageReport:
		if role == RoleReport {
			return filepath.Join(r.reportsDir(), sample+".txt"), nil
		}
	}

	return "", fmt.Errorf("no artifact for stage %q role %q", stage, role)
}

// InputPath resolves a declared stage input: either an upstream
// stage's output or a raw source artifact
func (r *Resolver) InputPath(sample string, input Input) (string, error) {
	if input.Stage == "" {
		return r.SourcePath(sample, input.Role)
	}
	return r.Path(sample, input.Stage, input.Role)
}

// EnsureDirs creates every destination directory the pipeline writes
// into. Creation is idempotent; it never touches source directories
func (r *Resolver) EnsureDirs() error {
	dirs := []string{
		r.tmpAssemblyDir(),
		r.dataAssemblyDir(),
		r.alignSelfDir(),
	}
	if r.cfg.Reports.Assembly {
		dirs = append(dirs, r.reportsDir())
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
