package crawler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// HeaderExtensions are the suffixes treated as C++ headers.
var HeaderExtensions = []string{".h", ".hh", ".hpp", ".hxx"}

// Crawler scans directories for C++ headers.
type Crawler struct {
	ignored []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored: []string{".git", "build", "node_modules", "testdata"},
	}
}

func isHeader(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, h := range HeaderExtensions {
		if ext == h {
			return true
		}
	}
	return false
}

// ScanProject walks root in lexical order and reports every header found.
func (c *Crawler) ScanProject(root string, onHeader func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if isHeader(d.Name()) {
			onHeader(path)
		}
		return nil
	})
}

// Headers expands inputs into the list of headers to parse. Files are taken
// as given, whatever their extension; directories are scanned. The result
// keeps input order and lists every path once.
func (c *Crawler) Headers(inputs []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, path)
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input %s: %w", in, err)
		}
		if !info.IsDir() {
			add(in)
			continue
		}
		if err := c.ScanProject(in, add); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", in, err)
		}
	}
	return out, nil
}
