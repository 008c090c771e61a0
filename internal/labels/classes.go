package labels

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ReadClasses reads classes.lst, one class per line in order. Blank lines
// are ignored. A missing file yields an empty list.
func ReadClasses(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open classes: %w", err)
	}
	defer f.Close()

	var classes []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if c := strings.TrimSpace(sc.Text()); c != "" {
			classes = append(classes, c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	return classes, nil
}

// WriteClasses writes the class list, one per line.
func WriteClasses(path string, classes []string) error {
	var b strings.Builder
	for _, c := range classes {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write classes: %w", err)
	}
	return nil
}

// ClassIDs maps each class name to its line index. The first occurrence of
// a duplicate wins.
func ClassIDs(classes []string) map[string]int {
	ids := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, ok := ids[c]; !ok {
			ids[c] = i
		}
	}
	return ids
}
