// Package output writes the finished bookmarks file to its destination.
package output

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Sink stores the exported file.
type Sink interface {
	Write(ctx context.Context, data []byte) error
	String() string
}

// Open picks a sink for dest: "s3://bucket/key" or a local path.
func Open(ctx context.Context, dest string, s3cfg S3Config) (Sink, error) {
	if bucket, key, ok := parseS3(dest); ok {
		return NewS3Sink(ctx, s3cfg, bucket, key)
	}
	if dest == "" {
		return nil, fmt.Errorf("output destination is required")
	}
	return &FileSink{Path: dest}, nil
}

// FileSink writes to a local file through a temporary file and rename, so
// readers never see a partial export.
type FileSink struct {
	Path string
}

func (s *FileSink) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bookmarks-*.html")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := bytes.NewReader(data).WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	slog.Info("wrote bookmarks file", "path", s.Path, "bytes", len(data))
	return nil
}

func (s *FileSink) String() string {
	return s.Path
}

func parseS3(dest string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(dest, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key, true
}
