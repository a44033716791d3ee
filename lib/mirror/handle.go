package mirror

import (
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"v.io/x/lib/toposort"

	"github.com/relman/regminer/lib/model"
)

// Handle is an open read view over a synced mirror. All reads go through
// go-git against the local clone and never touch the network.
type Handle struct {
	Mirror  *model.Mirror
	GitRepo *git.Repository
}

func Open(mirror *model.Mirror) (*Handle, error) {
	gitRepo, err := git.PlainOpen(mirror.RootDir)
	if err != nil {
		return nil, err
	}

	return &Handle{
		Mirror:  mirror,
		GitRepo: gitRepo,
	}, nil
}

// Log iterates the history reachable from the cutoff, newest first.
func (h *Handle) Log() (object.CommitIter, error) {
	return h.GitRepo.Log(&git.LogOptions{
		From:  plumbing.NewHash(h.Mirror.CutoffHash),
		Order: git.LogOrderCommitterTime,
	})
}

// SortedCommits returns the mined commits parents-first. Commits sharing no
// ancestry order by committer date.
func (h *Handle) SortedCommits(since *time.Time) []*model.Commit {
	commits := h.Mirror.ListCommits()
	sort.Slice(commits, func(a, b int) bool {
		return commits[a].Date.Before(commits[b].Date)
	})

	graph := toposort.Sorter{}
	for _, c := range commits {
		graph.AddNode(c.Hash)
		for _, p := range c.Parents {
			graph.AddEdge(c.Hash, h.Mirror.GetCommitByID(p).Hash)
		}
	}

	sorted, _ := graph.Sort()

	result := make([]*model.Commit, 0, len(sorted))
	for _, s := range sorted {
		c := h.Mirror.GetCommit(s.(string))
		if since != nil && c.Date.Before(*since) {
			continue
		}
		result = append(result, c)
	}

	return result
}
