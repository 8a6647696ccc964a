package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/voxscribe/internal/batch"
)

const (
	FileSuffix  = "_transcription.txt"
	ContentType = "text/plain; charset=utf-8"
)

var ErrNoTranscript = errors.New("item has no transcript to export")

// Artifact is a downloadable transcript.
type Artifact struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Transcript materializes the item's transcript verbatim.
func Transcript(item batch.Item) (Artifact, error) {
	if !item.HasTranscript {
		return Artifact{}, fmt.Errorf("%s: %w", item.DisplayName, ErrNoTranscript)
	}
	return Artifact{
		FileName:    FileName(item.DisplayName),
		ContentType: ContentType,
		Content:     []byte(item.Transcript),
	}, nil
}

// FileName replaces the extension of displayName with FileSuffix.
func FileName(displayName string) string {
	base := filepath.Base(strings.TrimSpace(displayName))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	if ext := filepath.Ext(base); len(ext) > 1 {
		base = strings.TrimSuffix(base, ext)
	}
	return base + FileSuffix
}

// Save writes the artifact into dir and returns its path. The file appears
// atomically under its final name.
func Save(dir string, a Artifact) (string, error) {
	if a.FileName == "" {
		return "", errors.New("artifact file name is required")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", dir, err)
	}

	dest := filepath.Join(dir, a.FileName)
	tempPath := dest + ".part"
	_ = os.Remove(tempPath)

	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		_ = out.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := out.Write(a.Content); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	if err := out.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, dest); err != nil {
		return "", fmt.Errorf("move temp file into destination: %w", err)
	}

	success = true
	return dest, nil
}
