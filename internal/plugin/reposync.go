// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/retry"
)

// Syncer brings a repository into a local checkout and returns its path.
type Syncer interface {
	Sync(ctx context.Context, repo string) (string, error)
}

// RepoSync keeps shallow checkouts under cacheDir keyed by md5 of the URL.
type RepoSync struct {
	cacheDir string
	branch   string
	depth    int
	locker   *Locker
	attempts int
}

func NewRepoSync(cacheDir, branch string, depth int, locker *Locker) *RepoSync {
	if branch == "" {
		branch = "main"
	}
	if depth < 0 {
		depth = 0
	}
	return &RepoSync{
		cacheDir: cacheDir,
		branch:   branch,
		depth:    depth,
		locker:   locker,
		attempts: 3,
	}
}

// Dir is the checkout directory of repo.
func (s *RepoSync) Dir(repo string) string {
	sum := md5.Sum([]byte(repo))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:]))
}

// Sync clones repo on first use and hard-resets it to the remote branch
// afterwards. Calls for the same repo are serialized by <dir>.lock.
func (s *RepoSync) Sync(ctx context.Context, repo string) (string, error) {
	dir := s.Dir(repo)
	unlock, err := s.locker.Lock(ctx, dir+".lock")
	if err != nil {
		return "", err
	}
	defer unlock()

	logger := log.With("repo", repo, "dir", dir)
	err = retry.Do(ctx, func(ctx context.Context) error {
		if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
			return s.update(ctx, dir)
		}
		return s.clone(ctx, repo, dir)
	},
		retry.WithMaxAttempts(s.attempts),
		retry.WithBackoff(retry.Exponential(time.Second, 4*time.Second)),
		retry.WithRetryIf(func(err error) bool {
			return retry.IsRetryableError(err) && !errors.Is(err, plumbing.ErrReferenceNotFound)
		}),
		retry.WithNotify(func(attempt int, err error, wait time.Duration) {
			logger.Warnw("repository sync failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("sync %s: %w", repo, err)
	}
	logger.Debugw("repository synced")
	return dir, nil
}

func (s *RepoSync) clone(ctx context.Context, repo, dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           repo,
		ReferenceName: plumbing.NewBranchReferenceName(s.branch),
		SingleBranch:  true,
		Depth:         s.depth,
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return err
	}
	return nil
}

func (s *RepoSync) update(ctx context.Context, dir string) error {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return err
	}
	spec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", s.branch, s.branch))
	err = r.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{spec},
		Depth:      s.depth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}

	ref, err := r.Reference(plumbing.NewRemoteReferenceName("origin", s.branch), true)
	if err != nil {
		return err
	}
	wt, err := r.Worktree()
	if err != nil {
		return err
	}
	return wt.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset})
}
