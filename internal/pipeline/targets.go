package pipeline

// Artifact is one concrete pipeline output an aggregation target
// requires: where it lives and which (sample, stage, role) produced it
type Artifact struct {
	Sample string
	Stage  StageName
	Role   Role
	Path   string
}

// AllAssemble enumerates the final artifacts the "all" target drives
// the graph toward: the finished fasta and the mapped self-alignment
// BAM for every sample. Samples in rejected failed the assembly
// quality filter; they drop out of the required set without affecting
// any sibling sample
func AllAssemble(r *Resolver, samples []string, rejected map[string]bool) ([]Artifact, error) {
	var artifacts []Artifact
	for _, s := range samples {
		if rejected[s] {
			continue
		}
		fasta, err := r.Path(s, StageRefine2, RoleFinal)
		if err != nil {
			return nil, err
		}
		bam, err := r.Path(s, StageMapToSelf, RoleSelfBamMapped)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts,
			Artifact{Sample: s, Stage: StageRefine2, Role: RoleFinal, Path: fasta},
			Artifact{Sample: s, Stage: StageMapToSelf, Role: RoleSelfBamMapped, Path: bam},
		)
	}
	return artifacts, nil
}

// KnownFailures enumerates final fastas for the designated
// failure-tracking samples only, used to watch for regressions in
// samples that historically would not assemble
func KnownFailures(r *Resolver, samples []string) ([]Artifact, error) {
	var artifacts []Artifact
	for _, s := range samples {
		fasta, err := r.Path(s, StageRefine2, RoleFinal)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, Artifact{
			Sample: s, Stage: StageRefine2, Role: RoleFinal, Path: fasta,
		})
	}
	return artifacts, nil
}
