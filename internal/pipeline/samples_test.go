package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeSampleFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSampleFile(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     []string
		wantErr  bool
	}{
		{
			"plain list",
			"G1234\nG1235\nG1236\n",
			[]string{"G1234", "G1235", "G1236"},
			false,
		},
		{
			"comments and blank lines skipped",
			"# batch 7\nG1234\n\n  \nG1235\n# held out: G9999\n",
			[]string{"G1234", "G1235"},
			false,
		},
		{
			"surrounding whitespace trimmed",
			"  G1234  \nG1235\n",
			[]string{"G1234", "G1235"},
			false,
		},
		{
			"duplicate sample rejected",
			"G1234\nG1234\n",
			nil,
			true,
		},
		{
			"embedded whitespace rejected",
			"G1234 extra\n",
			nil,
			true,
		},
		{
			"shell metacharacter rejected",
			"G1234;id\n",
			nil,
			true,
		},
		{
			"variable expansion rejected",
			"G1234$HOME\n",
			nil,
			true,
		},
		{
			"dots underscores and dashes accepted",
			"G1234.v2_re-run\n",
			[]string{"G1234.v2_re-run"},
			false,
		},
		{
			"empty list rejected",
			"# nothing here\n",
			nil,
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSampleFile(writeSampleFile(t, tt.contents))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ReadSampleFile() = nil error, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadSampleFile() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ReadSampleFile() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadSampleFile_Missing(t *testing.T) {
	if _, err := ReadSampleFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("ReadSampleFile() on a missing file, want error")
	}
}
