//go:build tools

// cover-merger combines the *.cover profiles written by the unit and
// integration test runs into coverage.out. A block reported by several runs is
// kept once, counted as covered if any run covered it.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const outFilename = "coverage.out"

func main() {
	files, err := filepath.Glob("*.cover")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to find .cover files: %v\n", err)
		os.Exit(1)
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "warning: no .cover files found")
		return
	}

	blocks := make(map[string]int)

	for _, file := range files {
		if err := readProfile(file, blocks); err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", file, err)
		}
	}

	if err := writeProfile(outFilename, blocks); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", outFilename, err)
		os.Exit(1)
	}

	fmt.Printf("merged %d profiles into %s (%d blocks)\n", len(files), outFilename, len(blocks))
}

// readProfile adds the blocks of one profile. Lines look like
// "path/file.go:12.34,15.2 3 1": the block, its statement count, its hit count.
func readProfile(path string, blocks map[string]int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "mode:") {
			continue
		}

		idx := strings.LastIndexByte(line, ' ')
		if idx < 0 {
			return fmt.Errorf("malformed line %q", line)
		}

		count, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			return fmt.Errorf("malformed count in %q: %w", line, err)
		}

		if count > 0 {
			count = 1
		}

		key := line[:idx]
		if count > blocks[key] {
			blocks[key] = count
		} else if _, ok := blocks[key]; !ok {
			blocks[key] = count
		}
	}

	return sc.Err()
}

func writeProfile(path string, blocks map[string]int) error {
	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)

	if _, err := w.WriteString("mode: set\n"); err != nil {
		return err
	}

	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s %d\n", k, blocks[k]); err != nil {
			return err
		}
	}

	return w.Flush()
}
