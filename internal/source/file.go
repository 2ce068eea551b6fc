package source

import (
	"context"
	"fmt"
	"os"
	"time"
)

type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Location() string { return f.path }

func (f *File) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	b, err := os.ReadFile(f.path)
	observe("file", start, err)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return b, nil
}
