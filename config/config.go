// Package config is for pipeline-wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// default values for the optional settings. Everything else is
// required and missing keys fail validation before any stage runs
const (
	DefaultThreads    = 8
	DefaultQueueShort = "short"
	DefaultQueueLong  = "long"
)

// assemblers recognized by the assemble stage
const (
	AssemblerTrinity       = "trinity"
	AssemblerSpades        = "spades"
	AssemblerTrinitySpades = "trinity-spades"
)

// Subdirs are the per-category subdirectory names appended to the
// data/tmp directory roots when artifact paths are resolved
type Subdirs struct {
	// source holds the cleaned and taxon-filtered read inputs
	Source string `mapstructure:"source"`

	// assembly holds every intermediate and final assembly fasta
	Assembly string `mapstructure:"assembly"`

	// align_self holds the reads-to-own-assembly BAMs
	AlignSelf string `mapstructure:"align_self"`

	// reports holds the optional per-sample assembly reports
	Reports string `mapstructure:"reports"`
}

// SampleFiles are paths to the plain-text sample list files,
// one sample identifier per line
type SampleFiles struct {
	// the samples to assemble
	Assembly string `mapstructure:"assembly"`

	// samples known to fail assembly, tracked for regression
	Failures string `mapstructure:"failures"`
}

// AssemblyConfig is settings for the de novo assembly stage and the
// per-sample quality filter applied to the finished assembly
type AssemblyConfig struct {
	// which assembler to run: trinity, spades or trinity-spades
	Assembler string `mapstructure:"assembler"`

	// cap on the number of reads subsampled for trinity
	TrinityNReads int `mapstructure:"trinity_n_reads"`

	// cap on the number of reads given to spades
	SpadesNReads int `mapstructure:"spades_n_reads"`

	// nominal memory ceiling for the assembler, in GB
	MemGB int `mapstructure:"mem_gb"`

	// path to the adapter/primer fasta used for trimming and clipping
	TrimClipDB string `mapstructure:"trim_clip_db"`

	// path to the reference genome set used for contig ordering,
	// imputation and reference-length trimming
	RefGenome string `mapstructure:"ref_genome"`

	// assemblies shorter than this many bases are rejected
	MinLength int `mapstructure:"min_length"`

	// assemblies with a lower unambiguous-base fraction are rejected
	MinUnambiguous float64 `mapstructure:"min_unambiguous"`
}

// ScaffoldConfig is settings for contig ordering, gap-filling and
// reference imputation (the orient_and_impute stage)
type ScaffoldConfig struct {
	// nucmer alignment thresholds for ordering contigs
	MaxGap     int `mapstructure:"max_gap"`
	MinMatch   int `mapstructure:"min_match"`
	MinCluster int `mapstructure:"min_cluster"`

	// number of segments/chromosomes in the target genome
	NSegments int `mapstructure:"n_segments"`

	// how many bases at each scaffold end may be imputed from
	// the reference
	ReplaceLength int `mapstructure:"replace_length"`

	// scaffolds below this fraction of the reference length are
	// rejected before refinement
	MinLengthFraction float64 `mapstructure:"min_length_fraction"`

	// scaffolds below this unambiguous fraction are rejected
	// before refinement
	MinUnambiguous float64 `mapstructure:"min_unambiguous"`

	// seed for the gap-filler, pinned for reproducible runs
	RandomSeed int `mapstructure:"random_seed"`
}

// RefineConfig parameterizes one pileup-based refinement pass
type RefineConfig struct {
	// minimum read depth before a base may be corrected
	MinCoverage int `mapstructure:"min_coverage"`

	// fraction of reads that must agree for a major allele call
	MajorCutoff float64 `mapstructure:"major_cutoff"`

	// novoalign mapping options; pass 2 is stricter than pass 1
	NovoalignOptions string `mapstructure:"novoalign_options"`
}

// MappingConfig is settings for the final reads-to-self alignment
type MappingConfig struct {
	// aligner binary to use; novoalign unless overridden
	Aligner string `mapstructure:"aligner"`

	// options forwarded to the aligner
	AlignerOptions string `mapstructure:"aligner_options"`
}

// QueueConfig names the execution queues published as scheduling
// hints. Both fall back to defaults when unset
type QueueConfig struct {
	Short string `mapstructure:"short"`
	Long  string `mapstructure:"long"`
}

// ReportConfig toggles optional report generation
type ReportConfig struct {
	// generate a per-sample assembly report as a terminal stage
	Assembly bool `mapstructure:"assembly"`
}

// Config is the root-level settings struct, unmarshalled once at
// startup and passed by reference into the resolver and graph builder
type Config struct {
	// root for durable per-sample outputs
	DataDir string `mapstructure:"data_dir"`

	// root for intermediate artifacts
	TmpDir string `mapstructure:"tmp_dir"`

	// default thread count published per stage
	Threads int `mapstructure:"threads"`

	Subdirs  Subdirs        `mapstructure:"subdirs"`
	Samples  SampleFiles    `mapstructure:"samples"`
	Assembly AssemblyConfig `mapstructure:"assembly"`
	Scaffold ScaffoldConfig `mapstructure:"scaffold"`
	Refine1  RefineConfig   `mapstructure:"refine_1"`
	Refine2  RefineConfig   `mapstructure:"refine_2"`
	Mapping  MappingConfig  `mapstructure:"mapping"`
	Queues   QueueConfig    `mapstructure:"queues"`
	Reports  ReportConfig   `mapstructure:"reports"`
}

// MissingKeyError is a configuration error: one or more required
// settings were absent from the config file
type MissingKeyError struct {
	Keys []string
}

func (e *MissingKeyError) Error() string {
	sort.Strings(e.Keys)
	return fmt.Sprintf("missing required config keys: %s", strings.Join(e.Keys, ", "))
}

// Load reads the config file at path into a validated Config. It is
// the only place Viper is consulted; everything downstream works from
// the returned struct
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// setDefaults registers fallbacks for the documented optional
// settings only: thread count, queue names and the aligner choice
func setDefaults(v *viper.Viper) {
	v.SetDefault("threads", DefaultThreads)
	v.SetDefault("queues.short", DefaultQueueShort)
	v.SetDefault("queues.long", DefaultQueueLong)
	v.SetDefault("mapping.aligner", "novoalign")
}

// Validate fails fast on missing required keys so that no stage is
// ever scheduled against a partial configuration
func (c *Config) Validate() error {
	var missing []string

	requireString := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}
	requirePositive := func(key string, val int) {
		if val <= 0 {
			missing = append(missing, key)
		}
	}
	requireFraction := func(key string, val float64) {
		if val <= 0 || val > 1 {
			missing = append(missing, key)
		}
	}

	requireString("data_dir", c.DataDir)
	requireString("tmp_dir", c.TmpDir)
	requireString("subdirs.source", c.Subdirs.Source)
	requireString("subdirs.assembly", c.Subdirs.Assembly)
	requireString("subdirs.align_self", c.Subdirs.AlignSelf)
	requireString("samples.assembly", c.Samples.Assembly)

	requireString("assembly.assembler", c.Assembly.Assembler)
	requireString("assembly.trim_clip_db", c.Assembly.TrimClipDB)
	requireString("assembly.ref_genome", c.Assembly.RefGenome)
	requirePositive("assembly.mem_gb", c.Assembly.MemGB)
	requirePositive("assembly.min_length", c.Assembly.MinLength)
	requireFraction("assembly.min_unambiguous", c.Assembly.MinUnambiguous)

	requirePositive("scaffold.max_gap", c.Scaffold.MaxGap)
	requirePositive("scaffold.min_match", c.Scaffold.MinMatch)
	requirePositive("scaffold.min_cluster", c.Scaffold.MinCluster)
	requirePositive("scaffold.n_segments", c.Scaffold.NSegments)
	requirePositive("scaffold.replace_length", c.Scaffold.ReplaceLength)
	requireFraction("scaffold.min_length_fraction", c.Scaffold.MinLengthFraction)
	requireFraction("scaffold.min_unambiguous", c.Scaffold.MinUnambiguous)

	requirePositive("refine_1.min_coverage", c.Refine1.MinCoverage)
	requireFraction("refine_1.major_cutoff", c.Refine1.MajorCutoff)
	requireString("refine_1.novoalign_options", c.Refine1.NovoalignOptions)
	requirePositive("refine_2.min_coverage", c.Refine2.MinCoverage)
	requireFraction("refine_2.major_cutoff", c.Refine2.MajorCutoff)
	requireString("refine_2.novoalign_options", c.Refine2.NovoalignOptions)

	switch c.Assembly.Assembler {
	case AssemblerTrinity, AssemblerTrinitySpades:
		requirePositive("assembly.trinity_n_reads", c.Assembly.TrinityNReads)
	}
	switch c.Assembly.Assembler {
	case AssemblerSpades, AssemblerTrinitySpades:
		requirePositive("assembly.spades_n_reads", c.Assembly.SpadesNReads)
	}

	if c.Reports.Assembly {
		requireString("subdirs.reports", c.Subdirs.Reports)
	}

	if len(missing) > 0 {
		return &MissingKeyError{Keys: missing}
	}

	switch c.Assembly.Assembler {
	case AssemblerTrinity, AssemblerSpades, AssemblerTrinitySpades:
	default:
		return fmt.Errorf(
			"unknown assembler %q: must be one of %s, %s, %s",
			c.Assembly.Assembler, AssemblerTrinity, AssemblerSpades, AssemblerTrinitySpades,
		)
	}

	// pass 2 corrects against deeper pileups than pass 1
	if c.Refine2.MinCoverage <= c.Refine1.MinCoverage {
		return fmt.Errorf(
			"refine_2.min_coverage (%d) must exceed refine_1.min_coverage (%d)",
			c.Refine2.MinCoverage, c.Refine1.MinCoverage,
		)
	}

	return nil
}
