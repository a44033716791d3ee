package mining

import (
	"context"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/storages"
	"github.com/relman/regminer/lib/utils"
)

type HistoryMiner struct {
	console consoles.Console
	storage storages.Storage

	abort error
}

type HistoryOptions struct {
	Incremental bool
	MaxCommits  *int
	After       *time.Time
	Before      *time.Time
}

func NewHistoryMiner(console consoles.Console, storage storages.Storage) *HistoryMiner {
	return &HistoryMiner{
		console: console,
		storage: storage,
		abort:   errors.New("ABORT"),
	}
}

// Mine walks the history below the mirror's cutoff and records one Commit per
// revision: metadata, bug reference, parent links and backout links. File
// level data is left to the feature extractor.
func (m *HistoryMiner) Mine(handle *mirror.Handle, opts *HistoryOptions) (int, error) {
	if opts == nil {
		opts = &HistoryOptions{}
	}

	mined, err := m.countCommitsToMine(handle, opts)
	if err != nil {
		return 0, err
	}

	if mined == 0 {
		return 0, nil
	}

	m.console.Printf("%v: Mining %v commits...\n", handle.Mirror.Name, mined)

	err = m.mineCommits(handle, opts, mined)
	if err != nil {
		return 0, err
	}

	err = m.mineParents(handle, opts)
	if err != nil {
		return 0, err
	}

	m.resolveBackouts(handle)

	return mined, nil
}

func (m *HistoryMiner) shouldSkip(gitCommit *object.Commit, opts *HistoryOptions) bool {
	when := gitCommit.Committer.When

	if opts.After != nil && when.Before(*opts.After) {
		return true
	}
	if opts.Before != nil && !when.Before(*opts.Before) {
		return true
	}

	return false
}

func (m *HistoryMiner) countCommitsToMine(handle *mirror.Handle, opts *HistoryOptions) (int, error) {
	commitsIter, err := handle.Log()
	if err != nil {
		return 0, err
	}

	mined := 0
	err = commitsIter.ForEach(func(gitCommit *object.Commit) error {
		if m.shouldSkip(gitCommit, opts) {
			return nil
		}
		if opts.Incremental && handle.Mirror.ContainsCommit(gitCommit.Hash.String()) {
			return nil
		}

		mined++
		if opts.MaxCommits != nil && mined >= *opts.MaxCommits {
			return m.abort
		}

		return nil
	})
	if err != nil && err != m.abort {
		return 0, err
	}

	return mined, nil
}

func (m *HistoryMiner) mineCommits(handle *mirror.Handle, opts *HistoryOptions, total int) error {
	commitsIter, err := handle.Log()
	if err != nil {
		return err
	}

	imported := 0
	bar := utils.NewProgressBar(total)
	err = commitsIter.ForEach(func(gitCommit *object.Commit) error {
		if m.shouldSkip(gitCommit, opts) {
			return nil
		}
		if opts.Incremental && handle.Mirror.ContainsCommit(gitCommit.Hash.String()) {
			return nil
		}

		bar.Describe(gitCommit.Committer.When.Format("2006-01-02 15"))
		_ = bar.Add(1)

		commit := handle.Mirror.GetOrCreateCommit(gitCommit.Hash.String())
		commit.Message = strings.TrimSpace(gitCommit.Message)
		commit.Date = gitCommit.Committer.When
		commit.DateAuthored = gitCommit.Author.When
		commit.AuthorName = gitCommit.Author.Name
		commit.AuthorEmail = gitCommit.Author.Email
		commit.CommitterName = gitCommit.Committer.Name
		commit.CommitterEmail = gitCommit.Committer.Email
		commit.IsMerge = gitCommit.NumParents() > 1

		commit.BugID, commit.BugIDConfidence = ParseBugID(commit.Message)

		imported++
		if opts.MaxCommits != nil && imported >= *opts.MaxCommits {
			return m.abort
		}

		return nil
	})
	if err != nil && err != m.abort {
		return err
	}

	return nil
}

func (m *HistoryMiner) mineParents(handle *mirror.Handle, opts *HistoryOptions) error {
	commitsIter, err := handle.Log()
	if err != nil {
		return err
	}

	err = commitsIter.ForEach(func(gitCommit *object.Commit) error {
		commit := handle.Mirror.GetCommit(gitCommit.Hash.String())
		if commit == nil {
			return nil
		}

		if opts.Incremental && len(commit.Parents) > 0 {
			return nil
		}

		// Parent order matters: the first one is the mainline the blame
		// walker follows through merges.
		for _, parentHash := range gitCommit.ParentHashes {
			parent := handle.Mirror.GetCommit(parentHash.String())
			if parent == nil {
				continue
			}

			commit.Parents = append(commit.Parents, parent.ID)
			parent.Children = append(parent.Children, commit.ID)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// resolveBackouts links backout commits to their targets. Messages carry
// abbreviated hashes, so targets are matched by prefix against the mined
// history and then verified against the actual trees. Unresolvable or
// unverifiable references stay unlinked.
func (m *HistoryMiner) resolveBackouts(handle *mirror.Handle) {
	commits := handle.Mirror.ListCommits()

	for _, commit := range commits {
		if commit.BacksOut != "" {
			continue
		}

		for _, ref := range ParseBackouts(commit.Message) {
			target := findByHashPrefix(commits, ref)
			if target == nil || target == commit {
				continue
			}
			if !m.verifyBackout(handle, commit, target) {
				continue
			}

			commit.BacksOut = target.Hash
			target.BackedOutBy = commit.Hash
			break
		}
	}
}

// verifyBackout checks that the backout really inverts the target: every
// file the backout touches must end up with the contents it had in the
// target's first parent.
func (m *HistoryMiner) verifyBackout(handle *mirror.Handle, backout *model.Commit, target *model.Commit) bool {
	backoutCommit, err := handle.GitRepo.CommitObject(plumbing.NewHash(backout.Hash))
	if err != nil {
		return false
	}

	targetCommit, err := handle.GitRepo.CommitObject(plumbing.NewHash(target.Hash))
	if err != nil {
		return false
	}

	if backoutCommit.NumParents() == 0 || targetCommit.NumParents() == 0 {
		return false
	}

	backoutParent, err := backoutCommit.Parent(0)
	if err != nil {
		return false
	}

	targetParent, err := targetCommit.Parent(0)
	if err != nil {
		return false
	}

	beforeTree, err := backoutParent.Tree()
	if err != nil {
		return false
	}

	backoutTree, err := backoutCommit.Tree()
	if err != nil {
		return false
	}

	restoredTree, err := targetParent.Tree()
	if err != nil {
		return false
	}

	changes, err := beforeTree.DiffContext(context.Background(), backoutTree)
	if err != nil || len(changes) == 0 {
		return false
	}

	for _, change := range changes {
		if change.To.Name == "" {
			if _, err := restoredTree.FindEntry(change.From.Name); err == nil {
				return false
			}
			continue
		}

		entry, err := restoredTree.FindEntry(change.To.Name)
		if err != nil || entry.Hash != change.To.TreeEntry.Hash {
			return false
		}
	}

	return true
}

func findByHashPrefix(commits []*model.Commit, prefix string) *model.Commit {
	var found *model.Commit

	for _, c := range commits {
		if strings.HasPrefix(c.Hash, prefix) {
			if found != nil {
				return nil
			}
			found = c
		}
	}

	return found
}
