package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FileLoader reads the dataset from a file on every call. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON.
type FileLoader struct {
	path   string
	format Format
}

func NewFileLoader(path string) *FileLoader {
	format := JSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = YAML
	}

	return &FileLoader{path: path, format: format}
}

func (l *FileLoader) Load(ctx context.Context) ([]Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("reading %s: %v", l.path, err)
	}

	b, err := os.ReadFile(l.path)
	if err != nil {
		return nil, unavailable("reading %s: %v", l.path, err)
	}

	records, err := Decode(b, l.format)
	if err != nil {
		return nil, unavailable("%s: %v", l.path, err)
	}
	return records, nil
}
