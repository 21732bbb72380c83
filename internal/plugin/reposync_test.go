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
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-strange/strange/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "strange", Email: "dev@strange.local", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestRepoSync_CloneThenUpdate(t *testing.T) {
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack not available")
	}

	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))))
	commitFile(t, repo, upstream, "plugin.json", `{"name": "economy", "version": "1.0.0"}`)

	s := NewRepoSync(t.TempDir(), "main", 0, NewLocker(2, retry.Fixed(time.Millisecond)))
	dir, err := s.Sync(context.Background(), upstream)
	require.NoError(t, err)
	assert.Equal(t, s.Dir(upstream), dir)

	data, err := os.ReadFile(filepath.Join(dir, "plugin.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "1.0.0")

	commitFile(t, repo, upstream, "plugin.json", `{"name": "economy", "version": "1.1.0"}`)
	_, err = s.Sync(context.Background(), upstream)
	require.NoError(t, err)

	data, err = os.ReadFile(filepath.Join(dir, "plugin.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "1.1.0")
}

func TestRepoSync_DirIsStablePerURL(t *testing.T) {
	s := NewRepoSync("/cache", "", 1, NewLocker(1, nil))
	a := s.Dir("https://example.com/plugins.git")
	assert.Equal(t, a, s.Dir("https://example.com/plugins.git"))
	assert.NotEqual(t, a, s.Dir("https://example.com/other.git"))
	assert.Equal(t, "/cache", filepath.Dir(a))
	assert.Len(t, filepath.Base(a), 32)
}
