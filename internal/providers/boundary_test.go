package providers

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
)

// Concrete providers plug into the root contract packages; they must
// not reach across concerns into each other. Imports are allowed only
// within the same concern directory, such as a git store layering on
// the file store.
func TestProvidersDoNotImportAcrossConcerns(t *testing.T) {
	t.Parallel()

	const (
		modulePrefix    = "github.com/agentplane/agentplane/"
		providersPrefix = modulePrefix + "internal/providers/"
	)

	fset := token.NewFileSet()
	err := filepath.WalkDir(".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalizedPath := filepath.ToSlash(path)
		concern := concernOf(normalizedPath)
		if concern == "" {
			return nil
		}

		parsedFile, parseErr := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if parseErr != nil {
			return parseErr
		}

		for _, imported := range parsedFile.Imports {
			importPath := strings.Trim(imported.Path.Value, "\"")
			if !strings.HasPrefix(importPath, providersPrefix) {
				continue
			}
			importedConcern, _, _ := strings.Cut(strings.TrimPrefix(importPath, providersPrefix), "/")
			if importedConcern == concern || importedConcern == "shared" {
				continue
			}
			t.Fatalf("forbidden cross-concern import %q in %s", importPath, normalizedPath)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("boundary scan failed: %v", err)
	}
}

func concernOf(normalizedPath string) string {
	relative, found := strings.CutPrefix(normalizedPath, "./")
	if !found {
		relative = normalizedPath
	}
	concern, _, found := strings.Cut(relative, "/")
	if !found {
		return ""
	}
	return concern
}
