package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validConfig returns a Config that clears validation, for tests to
// knock individual fields out of
func validConfig() Config {
	return Config{
		DataDir: "/data",
		TmpDir:  "/tmp/pipeline",
		Threads: 8,
		Subdirs: Subdirs{
			Source:    "00_raw",
			Assembly:  "02_assembly",
			AlignSelf: "02_align_to_self",
			Reports:   "09_reports",
		},
		Samples: SampleFiles{
			Assembly: "samples-assembly.txt",
			Failures: "samples-failures.txt",
		},
		Assembly: AssemblyConfig{
			Assembler:      AssemblerTrinity,
			TrinityNReads:  250000,
			SpadesNReads:   10000000,
			MemGB:          15,
			TrimClipDB:     "/refs/trim_clip.fasta",
			RefGenome:      "/refs/reference.fasta",
			MinLength:      7000,
			MinUnambiguous: 0.95,
		},
		Scaffold: ScaffoldConfig{
			MaxGap:            200,
			MinMatch:          10,
			MinCluster:        65,
			NSegments:         2,
			ReplaceLength:     55,
			MinLengthFraction: 0.5,
			MinUnambiguous:    0.5,
			RandomSeed:        42,
		},
		Refine1: RefineConfig{
			MinCoverage:      2,
			MajorCutoff:      0.5,
			NovoalignOptions: "-r Random -l 30 -g 40 -x 20 -t 502",
		},
		Refine2: RefineConfig{
			MinCoverage:      3,
			MajorCutoff:      0.5,
			NovoalignOptions: "-r Random -l 40 -g 40 -x 20 -t 100",
		},
		Mapping: MappingConfig{
			Aligner:        "novoalign",
			AlignerOptions: "-r Random -l 40 -g 40 -x 20 -t 100 -k",
		},
		Queues: QueueConfig{Short: "short", Long: "long"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantMissing []string
	}{
		{
			"valid config passes",
			func(c *Config) {},
			nil,
		},
		{
			"missing directory roots",
			func(c *Config) {
				c.DataDir = ""
				c.TmpDir = ""
			},
			[]string{"data_dir", "tmp_dir"},
		},
		{
			"missing sample list",
			func(c *Config) { c.Samples.Assembly = "" },
			[]string{"samples.assembly"},
		},
		{
			"missing refine coverage",
			func(c *Config) { c.Refine1.MinCoverage = 0 },
			[]string{"refine_1.min_coverage"},
		},
		{
			"unambiguous fraction out of range",
			func(c *Config) { c.Assembly.MinUnambiguous = 1.5 },
			[]string{"assembly.min_unambiguous"},
		},
		{
			"trinity requires read cap",
			func(c *Config) { c.Assembly.TrinityNReads = 0 },
			[]string{"assembly.trinity_n_reads"},
		},
		{
			"reports subdir required only when reports enabled",
			func(c *Config) {
				c.Reports.Assembly = true
				c.Subdirs.Reports = ""
			},
			[]string{"subdirs.reports"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)

			err := c.Validate()
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			var missing *MissingKeyError
			if !errors.As(err, &missing) {
				t.Fatalf("Validate() = %v, want MissingKeyError", err)
			}
			for _, key := range tt.wantMissing {
				found := false
				for _, k := range missing.Keys {
					if k == key {
						found = true
					}
				}
				if !found {
					t.Errorf("Validate() missing keys %v, want to include %q", missing.Keys, key)
				}
			}
		})
	}
}

func TestConfig_ValidateSpadesReadCap(t *testing.T) {
	c := validConfig()
	c.Assembly.Assembler = AssemblerSpades
	c.Assembly.SpadesNReads = 0

	err := c.Validate()
	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("Validate() = %v, want MissingKeyError", err)
	}
	if !strings.Contains(err.Error(), "assembly.spades_n_reads") {
		t.Errorf("Validate() = %v, want mention of assembly.spades_n_reads", err)
	}
}

func TestConfig_ValidateUnknownAssembler(t *testing.T) {
	c := validConfig()
	c.Assembly.Assembler = "velvet"

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "velvet") {
		t.Errorf("Validate() = %v, want unknown assembler error", err)
	}
}

const minimalYAML = `
data_dir: /data
tmp_dir: /tmp/pipeline
subdirs:
  source: "00_raw"
  assembly: "02_assembly"
  align_self: "02_align_to_self"
samples:
  assembly: samples-assembly.txt
assembly:
  assembler: trinity
  trinity_n_reads: 250000
  mem_gb: 15
  trim_clip_db: /refs/trim_clip.fasta
  ref_genome: /refs/reference.fasta
  min_length: 7000
  min_unambiguous: 0.95
scaffold:
  max_gap: 200
  min_match: 10
  min_cluster: 65
  n_segments: 2
  replace_length: 55
  min_length_fraction: 0.5
  min_unambiguous: 0.5
  random_seed: 42
refine_1:
  min_coverage: 2
  major_cutoff: 0.5
  novoalign_options: "-r Random -l 30 -g 40 -x 20 -t 502"
refine_2:
  min_coverage: 3
  major_cutoff: 0.5
  novoalign_options: "-r Random -l 40 -g 40 -x 20 -t 100"
mapping:
  aligner_options: "-r Random -l 40 -g 40 -x 20 -t 100 -k"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Threads != DefaultThreads {
		t.Errorf("Threads = %d, want default %d", cfg.Threads, DefaultThreads)
	}
	if cfg.Queues.Short != DefaultQueueShort {
		t.Errorf("Queues.Short = %q, want default %q", cfg.Queues.Short, DefaultQueueShort)
	}
	if cfg.Queues.Long != DefaultQueueLong {
		t.Errorf("Queues.Long = %q, want default %q", cfg.Queues.Long, DefaultQueueLong)
	}
	if cfg.Mapping.Aligner != "novoalign" {
		t.Errorf("Mapping.Aligner = %q, want default novoalign", cfg.Mapping.Aligner)
	}
}

func TestLoad_MissingRequiredKey(t *testing.T) {
	// drop the sample list from an otherwise complete config
	yaml := strings.Replace(minimalYAML, "  assembly: samples-assembly.txt\n", "", 1)

	_, err := Load(writeConfig(t, yaml))
	if err == nil || !strings.Contains(err.Error(), "samples.assembly") {
		t.Errorf("Load() = %v, want missing samples.assembly", err)
	}
}

// pass 2 must be strictly stricter than pass 1 in the reference
// parameterization shipped with the repository
func TestRefinePassesTighten(t *testing.T) {
	c := validConfig()
	if c.Refine2.MinCoverage <= c.Refine1.MinCoverage {
		t.Errorf(
			"refine pass 2 coverage %d is not stricter than pass 1 coverage %d",
			c.Refine2.MinCoverage, c.Refine1.MinCoverage,
		)
	}
}

// an inverted or flat refine pair is a configuration error, not a
// silently accepted parameterization
func TestConfig_ValidateRefineOrdering(t *testing.T) {
	c := validConfig()
	c.Refine1.MinCoverage = 3
	c.Refine2.MinCoverage = 3

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "refine_2.min_coverage") {
		t.Errorf("Validate() = %v, want refine coverage ordering error", err)
	}
}

// the example config shipped with the repository must itself load and
// validate, so its defaults can't drift out of the required ordering
func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load("pipeline.example.yaml")
	if err != nil {
		t.Fatalf("Load(pipeline.example.yaml) = %v, want nil", err)
	}
	if cfg.Refine2.MinCoverage <= cfg.Refine1.MinCoverage {
		t.Errorf(
			"example config refine pass 2 coverage %d is not stricter than pass 1 coverage %d",
			cfg.Refine2.MinCoverage, cfg.Refine1.MinCoverage,
		)
	}
}
