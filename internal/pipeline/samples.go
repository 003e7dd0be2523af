package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadSampleFile parses a plain-text sample list: one identifier per
// line, blank lines and '#' comments skipped, duplicates rejected.
// The list is read once, at graph-construction time
func ReadSampleFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample list %s: %w", path, err)
	}
	defer f.Close()

	var samples []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if !validSampleID(s) {
			return nil, fmt.Errorf("malformed sample list %s: line %d: sample id %q has characters outside A-Za-z0-9._-", path, line, s)
		}
		if seen[s] {
			return nil, fmt.Errorf("malformed sample list %s: duplicate sample %q", path, s)
		}
		seen[s] = true
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sample list %s: %w", path, err)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("sample list %s names no samples", path)
	}
	return samples, nil
}

// validSampleID restricts identifiers to A-Za-z0-9 plus dot,
// underscore and dash. Sample ids end up in filenames and shell
// command lines, so anything the shell or filesystem could interpret
// is rejected at parse time
func validSampleID(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
