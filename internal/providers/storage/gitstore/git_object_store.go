package gitstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/internal/providers/storage/fsstore"
	"github.com/agentplane/agentplane/storage"
)

var _ storage.ObjectStore = (*GitObjectStore)(nil)

// GitObjectStore layers a git history on top of a file-backed store:
// every write is committed, so the durable store doubles as an audit
// trail of resource mutations. Reads come straight from the worktree.
type GitObjectStore struct {
	local   *fsstore.FileObjectStore
	baseDir string

	mu   sync.Mutex
	repo *gogit.Repository
}

func NewGitObjectStore(baseDir string) *GitObjectStore {
	return &GitObjectStore{
		local:   fsstore.NewFileObjectStore(baseDir),
		baseDir: baseDir,
	}
}

// Init opens the repository at the base directory, creating it when
// absent.
func (s *GitObjectStore) Init(ctx context.Context) error {
	if err := s.local.Init(ctx); err != nil {
		return err
	}
	_, err := s.openRepository()
	return err
}

func (s *GitObjectStore) Read(ctx context.Context, objectPath string) ([]byte, error) {
	return s.local.Read(ctx, objectPath)
}

func (s *GitObjectStore) Write(ctx context.Context, objectPath string, content []byte) error {
	if err := s.local.Write(ctx, objectPath, content); err != nil {
		return err
	}
	return s.commit(fmt.Sprintf("update %s", objectPath))
}

func (s *GitObjectStore) Exists(ctx context.Context, objectPath string) (bool, error) {
	return s.local.Exists(ctx, objectPath)
}

func (s *GitObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	paths, err := s.local.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	filtered := paths[:0]
	for _, objectPath := range paths {
		if objectPath == "/.git" || strings.HasPrefix(objectPath, "/.git/") {
			continue
		}
		filtered = append(filtered, objectPath)
	}
	return filtered, nil
}

func (s *GitObjectStore) openRepository() (*gogit.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		return s.repo, nil
	}

	repo, err := gogit.PlainOpen(s.baseDir)
	if err != nil {
		if !errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, internalError("failed to open git store", err)
		}
		repo, err = gogit.PlainInit(s.baseDir, false)
		if err != nil {
			return nil, internalError("failed to initialize git store", err)
		}
	}
	s.repo = repo
	return repo, nil
}

func (s *GitObjectStore) commit(message string) error {
	repo, err := s.openRepository()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	worktree, err := repo.Worktree()
	if err != nil {
		return internalError("failed to open git worktree", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return internalError("failed to inspect git worktree status", err)
	}
	if status.IsClean() {
		return nil
	}

	if err := worktree.AddGlob("."); err != nil {
		return internalError("failed to stage git changes", err)
	}
	if _, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "agentplane",
			Email: "agentplane@local",
			When:  time.Now(),
		},
	}); err != nil {
		return internalError("failed to commit git changes", err)
	}
	return nil
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
