package mining

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
)

// fixtureRepo builds a small real repository in a temp dir so the miners can
// be exercised against actual git objects.
type fixtureRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	wt   *git.Worktree
	when time.Time
}

func newFixtureRepo(t *testing.T) *fixtureRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	return &fixtureRepo{
		t:    t,
		dir:  dir,
		repo: repo,
		wt:   wt,
		when: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fixtureRepo) commit(message string, files map[string]string) plumbing.Hash {
	f.t.Helper()

	for path, content := range files {
		full := filepath.Join(f.dir, path)
		require.NoError(f.t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(f.t, os.WriteFile(full, []byte(content), 0o644))

		_, err := f.wt.Add(path)
		require.NoError(f.t, err)
	}

	f.when = f.when.Add(time.Hour)
	sig := &object.Signature{Name: "dev", Email: "dev@example.com", When: f.when}

	hash, err := f.wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(f.t, err)

	return hash
}

// open returns a read handle over the fixture, mining-bound at cutoff.
func (f *fixtureRepo) open(cutoff plumbing.Hash) *mirror.Handle {
	f.t.Helper()

	mirrors := model.NewMirrors()
	m := mirrors.GetOrCreate("https://example.com/fixture.git")
	m.RootDir = f.dir
	m.CutoffHash = cutoff.String()

	handle, err := mirror.Open(m)
	require.NoError(f.t, err)

	return handle
}
