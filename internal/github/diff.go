package github

import (
	"strings"
)

// ExtractCode derives an approximate post-change view from a unified diff: added
// lines lose their marker, removed lines are dropped, everything else is kept.
// Text without diff markers comes back unchanged.
func ExtractCode(diff string) string {
	lines := strings.Split(diff, "\n")
	code := make([]string, 0, len(lines))

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			code = append(code, line[1:])
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			continue
		default:
			code = append(code, line)
		}
	}

	return strings.Join(code, "\n")
}

// ChangedFiles lists the paths touched by a unified diff, taken from the
// "diff --git a/x b/y" headers. Deleted files are reported by their old path.
func ChangedFiles(diff string) []string {
	var files []string

	for _, line := range strings.Split(diff, "\n") {
		rest, ok := strings.CutPrefix(line, "diff --git a/")
		if !ok {
			continue
		}

		idx := strings.LastIndex(rest, " b/")
		if idx < 0 {
			continue
		}

		if path := strings.TrimSpace(rest[idx+len(" b/"):]); path != "" {
			files = append(files, path)
		}
	}

	return files
}
