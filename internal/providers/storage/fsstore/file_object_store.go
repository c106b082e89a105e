package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/internal/providers/shared/fsutil"
	"github.com/agentplane/agentplane/storage"
)

var _ storage.ObjectStore = (*FileObjectStore)(nil)

// FileObjectStore persists objects as files under a base directory,
// one file per object path. Writes go through a temporary file and a
// rename so a crash never leaves a half-written object visible.
type FileObjectStore struct {
	baseDir string
}

func NewFileObjectStore(baseDir string) *FileObjectStore {
	return &FileObjectStore{baseDir: filepath.Clean(baseDir)}
}

// Init creates the base directory when absent.
func (s *FileObjectStore) Init(_ context.Context) error {
	if s.baseDir == "" {
		return validationError("store base directory must not be empty", nil)
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return internalError("failed to initialize store directory", err)
	}
	return nil
}

func (s *FileObjectStore) Read(_ context.Context, objectPath string) ([]byte, error) {
	filePath, err := s.objectFilePath(objectPath)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFoundError(fmt.Sprintf("object %q not found", objectPath))
		}
		return nil, internalError("failed to read object", err)
	}
	return content, nil
}

func (s *FileObjectStore) Write(_ context.Context, objectPath string, content []byte) error {
	filePath, err := s.objectFilePath(objectPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return internalError("failed to create object directory", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), ".agentplane-tmp-*")
	if err != nil {
		return internalError("failed to create temporary object file", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(content); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to write temporary object file", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to finalize temporary object file", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to replace object file", err)
	}
	return nil
}

func (s *FileObjectStore) Exists(_ context.Context, objectPath string) (bool, error) {
	filePath, err := s.objectFilePath(objectPath)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, internalError("failed to inspect object file", err)
	}
	return true, nil
}

func (s *FileObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	if s.baseDir == "" {
		return nil, validationError("store base directory must not be empty", nil)
	}

	var paths []string
	err := filepath.WalkDir(s.baseDir, func(filePath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, os.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".agentplane-tmp-") {
			return nil
		}

		relative, relErr := filepath.Rel(s.baseDir, filePath)
		if relErr != nil {
			return relErr
		}
		objectPath := "/" + filepath.ToSlash(relative)
		if strings.HasPrefix(objectPath, prefix) {
			paths = append(paths, objectPath)
		}
		return nil
	})
	if err != nil {
		return nil, internalError("failed to list objects", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *FileObjectStore) objectFilePath(objectPath string) (string, error) {
	if s.baseDir == "" {
		return "", validationError("store base directory must not be empty", nil)
	}
	trimmed := strings.TrimPrefix(strings.TrimSpace(objectPath), "/")
	if trimmed == "" {
		return "", validationError("object path must not be empty", nil)
	}

	filePath := filepath.Join(s.baseDir, filepath.FromSlash(trimmed))
	if !fsutil.IsPathUnderRoot(s.baseDir, filePath) {
		return "", validationError("object path escapes store base directory", nil)
	}
	return filePath, nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func notFoundError(message string) error {
	return faults.NewTypedError(faults.NotFoundError, message, nil)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
