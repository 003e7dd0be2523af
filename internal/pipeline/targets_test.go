package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/animesh/viral-ngs/config"
)

func TestAllAssemble(t *testing.T) {
	r := NewResolver(testConfig(config.AssemblerTrinity))

	artifacts, err := AllAssemble(r, []string{"S1", "S2"}, nil)
	if err != nil {
		t.Fatalf("AllAssemble() error = %v", err)
	}

	// one final fasta and one self-alignment bam per sample
	want := []Artifact{
		{Sample: "S1", Stage: StageRefine2, Role: RoleFinal, Path: "/data/02_assembly/S1.fasta"},
		{Sample: "S1", Stage: StageMapToSelf, Role: RoleSelfBamMapped, Path: "/data/02_align_to_self/S1.mapped.bam"},
		{Sample: "S2", Stage: StageRefine2, Role: RoleFinal, Path: "/data/02_assembly/S2.fasta"},
		{Sample: "S2", Stage: StageMapToSelf, Role: RoleSelfBamMapped, Path: "/data/02_align_to_self/S2.mapped.bam"},
	}
	if diff := cmp.Diff(want, artifacts); diff != "" {
		t.Errorf("AllAssemble() mismatch (-want +got):\n%s", diff)
	}
}

// a quality-filter rejection removes that sample's artifacts from the
// required set without touching its siblings
func TestAllAssemble_RejectionIsolation(t *testing.T) {
	r := NewResolver(testConfig(config.AssemblerTrinity))

	artifacts, err := AllAssemble(r, []string{"S1", "S2"}, map[string]bool{"S1": true})
	if err != nil {
		t.Fatal(err)
	}

	if len(artifacts) != 2 {
		t.Fatalf("AllAssemble() returned %d artifacts, want 2", len(artifacts))
	}
	for _, a := range artifacts {
		if a.Sample != "S2" {
			t.Errorf("artifact for rejected sample %s still required: %s", a.Sample, a.Path)
		}
	}
}

func TestKnownFailures(t *testing.T) {
	r := NewResolver(testConfig(config.AssemblerTrinity))

	artifacts, err := KnownFailures(r, []string{"F1", "F2"})
	if err != nil {
		t.Fatal(err)
	}

	want := []Artifact{
		{Sample: "F1", Stage: StageRefine2, Role: RoleFinal, Path: "/data/02_assembly/F1.fasta"},
		{Sample: "F2", Stage: StageRefine2, Role: RoleFinal, Path: "/data/02_assembly/F2.fasta"},
	}
	if diff := cmp.Diff(want, artifacts); diff != "" {
		t.Errorf("KnownFailures() mismatch (-want +got):\n%s", diff)
	}
}
