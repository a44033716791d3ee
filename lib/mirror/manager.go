package mirror

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/abiosoft/lineprefix"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/storages"
	"github.com/relman/regminer/lib/utils"
)

type Manager struct {
	console consoles.Console
	storage storages.Storage
}

type SyncOptions struct {
	Branch         string
	CutoffRevision string
	Retry          *RetryPolicy
}

func NewManager(console consoles.Console, storage storages.Storage) *Manager {
	return &Manager{
		console: console,
		storage: storage,
	}
}

// Sync brings the local mirror of remoteURL up to date: clone on first use,
// fetch afterwards. A fetch failure on an already-synced mirror marks it
// stale and keeps going with the old data instead of failing the pipeline.
func (m *Manager) Sync(ctx context.Context, mirrorsDB *model.Mirrors, remoteURL string, rootDir string, opts *SyncOptions) (*model.Mirror, error) {
	if opts == nil {
		opts = &SyncOptions{}
	}
	if opts.Retry == nil {
		opts.Retry = DefaultRetryPolicy()
	}

	mirror := mirrorsDB.GetOrCreate(remoteURL)

	if mirror.Name == "" {
		mirror.Name = nameFromRemote(remoteURL)
	}
	if opts.Branch != "" {
		mirror.Branch = opts.Branch
	}
	if opts.CutoffRevision != "" {
		mirror.CutoffRevision = opts.CutoffRevision
	}

	if mirror.RootDir == "" {
		dir, err := utils.PathAbs(rootDir, mirror.Name)
		if err != nil {
			return nil, err
		}
		mirror.RootDir = dir
	}

	unlock, err := m.lock(mirror)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cloned, err := m.cloneOrFetch(ctx, mirror, opts)
	if err != nil {
		return nil, err
	}

	err = m.resolveCutoff(mirror)
	if err != nil {
		return nil, err
	}

	if cloned || !mirror.Stale {
		mirror.LastSynced = time.Now()
	}

	err = m.storage.WriteMirror(mirror)
	if err != nil {
		return nil, err
	}

	return mirror, nil
}

func (m *Manager) cloneOrFetch(ctx context.Context, mirror *model.Mirror, opts *SyncOptions) (bool, error) {
	_, err := os.Stat(filepath.Join(mirror.RootDir, ".git"))
	missing := err != nil

	if missing {
		m.console.Printf("%v: Cloning %v\n", mirror.Name, mirror.RemoteURL)

		args := []string{"clone", mirror.RemoteURL, mirror.RootDir}
		if mirror.Branch != "" {
			args = append(args, "--branch", mirror.Branch)
		}

		err = opts.Retry.Run(ctx, m.console, "clone", func() error {
			return m.runGit(ctx, "", mirror.Name, args...)
		})
		if err != nil {
			return false, errors.Wrapf(err, "cloning %v", mirror.RemoteURL)
		}

		mirror.Stale = false
		return true, nil
	}

	m.console.Printf("%v: Fetching %v\n", mirror.Name, mirror.RemoteURL)

	err = opts.Retry.Run(ctx, m.console, "fetch", func() error {
		return m.runGit(ctx, mirror.RootDir, mirror.Name, "fetch", "--all", "--prune", "--tags")
	})
	if err != nil {
		if mirror.LastSynced.IsZero() {
			return false, errors.Wrapf(err, "fetching %v", mirror.RemoteURL)
		}

		m.console.Warnf("%v: fetch failed, using stale mirror from %v: %v\n",
			mirror.Name, mirror.LastSynced.Format("2006-01-02 15:04"), err)
		mirror.Stale = true
		return false, nil
	}

	mirror.Stale = false
	return false, nil
}

func (m *Manager) resolveCutoff(mirror *model.Mirror) error {
	gitRepo, err := git.PlainOpen(mirror.RootDir)
	if err != nil {
		return err
	}

	branch, hash, err := findBranchHash(gitRepo, mirror.Branch)
	if err != nil {
		return err
	}
	mirror.Branch = branch

	if mirror.CutoffRevision != "" {
		revision, err := gitRepo.ResolveRevision(plumbing.Revision(mirror.CutoffRevision))
		if err != nil {
			return errors.Wrapf(err, "%v: cutoff revision %v", mirror.Name, mirror.CutoffRevision)
		}
		hash = *revision
	}

	mirror.CutoffHash = hash.String()
	return nil
}

func (m *Manager) runGit(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	m.console.Printf("%v: Executing '%v'\n", name, strings.Join(cmd.Args, "' '"))
	m.console.PushPrefix("%v: ", name)
	defer m.console.PopPrefix()

	prefix := lineprefix.PrefixFunc(func() string {
		return m.console.Prepare("")
	})

	cmd.Stdout = lineprefix.New(lineprefix.Writer(os.Stdout), prefix)
	cmd.Stderr = lineprefix.New(lineprefix.Writer(os.Stderr), prefix)

	return cmd.Run()
}

func (m *Manager) lock(mirror *model.Mirror) (func(), error) {
	err := os.MkdirAll(filepath.Dir(mirror.RootDir), 0o755)
	if err != nil {
		return nil, err
	}

	path := mirror.RootDir + ".lock"

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Errorf("%v: mirror is locked by another process (%v)", mirror.Name, path)
		}
		return nil, err
	}

	_, _ = fmt.Fprintf(f, "%v\n", os.Getpid())
	_ = f.Close()

	return func() {
		_ = os.Remove(path)
	}, nil
}

func findBranchHash(gitRepo *git.Repository, branch string) (string, plumbing.Hash, error) {
	if branch == "" {
		gitHead, err := gitRepo.Head()
		if err != nil {
			return "", plumbing.ZeroHash, err
		}

		return "HEAD", gitHead.Hash(), nil
	}

	for _, candidate := range strings.Split(branch, ",") {
		revision, err := gitRepo.ResolveRevision(plumbing.Revision(candidate))
		if err == nil {
			return candidate, *revision, nil
		}
	}

	return "", plumbing.ZeroHash, errors.Errorf("no branch found with name: %v", branch)
}

func nameFromRemote(remoteURL string) string {
	name := strings.TrimSuffix(remoteURL, "/")
	name = strings.TrimSuffix(name, ".git")

	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}

	if name == "" {
		name = "mirror"
	}

	return name
}
