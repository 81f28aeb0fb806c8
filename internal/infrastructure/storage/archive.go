// Package storage keeps generated export files under one base directory.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Archive writes export files below baseDir and refuses names that escape it
type Archive struct {
	baseDir string
	logger  *zap.Logger
}

// NewArchive creates an archive rooted at baseDir
func NewArchive(baseDir string, logger *zap.Logger) *Archive {
	return &Archive{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content to name, creating parent directories, and returns the full path
func (a *Archive) Save(ctx context.Context, name string, content []byte) (string, error) {
	fullPath, err := a.resolve(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		a.logger.Error("Failed to create export directory",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	// written beside the target and renamed into place
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		a.logger.Error("Failed to write export", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	a.logger.Debug("Export saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// Read returns the content stored under name
func (a *Archive) Read(ctx context.Context, name string) ([]byte, error) {
	fullPath, err := a.resolve(name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// Exists reports whether name has been saved
func (a *Archive) Exists(ctx context.Context, name string) bool {
	fullPath, err := a.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// resolve joins name to baseDir and checks the result stays inside it
func (a *Archive) resolve(name string) (string, error) {
	fullPath := filepath.Join(a.baseDir, name)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(a.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", name)
	}
	return absPath, nil
}
