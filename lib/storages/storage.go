package storages

import (
	"github.com/relman/regminer/lib/model"
)

type Storage interface {
	LoadConfig() (*map[string]string, error)
	WriteConfig() error

	LoadMirrors() (*model.Mirrors, error)
	WriteMirrors() error
	WriteMirror(mirror *model.Mirror) error

	// WriteCommits snapshots only the given commits, for batched writes
	// while other commits are still being worked on.
	WriteCommits(mirror *model.Mirror, commits []*model.Commit) error

	// LoadCommitFiles fills commit.Files on demand; per-file data is too big
	// to keep for the whole history at once.
	LoadCommitFiles(mirror *model.Mirror, commit *model.Commit) error
	WriteCommitFiles(mirror *model.Mirror, commits []*model.Commit) error

	LoadRegressionLinks() ([]*model.RegressionLink, error)
	WriteRegressionLinks(links []*model.RegressionLink) error

	Close() error
}

type Factory = func(path string) (Storage, error)
