// Package painless loads script sources for script directives.
package painless

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadScript reads the script at path and flattens it with Parse.
func LoadScript(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("load script: %w", err)
	}
	defer f.Close()

	src, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read script %s: %w", path, err)
	}
	return Parse(string(src)), nil
}

// Parse flattens a multi-line script into one line. Everything from "//"
// to the end of a line is dropped, as are blank lines; the remaining lines
// are trimmed and joined with a single space.
//
// "//" inside a string literal is treated as a comment too.
func Parse(src string) string {
	var lines []string
	for line := range strings.Lines(src) {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}
