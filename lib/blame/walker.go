package blame

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/storages"
	"github.com/relman/regminer/lib/utils"
)

type Options struct {
	MaxDepth         int
	MaxModifiedFiles int
	Workers          int
}

func DefaultOptions() *Options {
	return &Options{
		MaxDepth:         50,
		MaxModifiedFiles: 50,
		Workers:          runtime.GOMAXPROCS(-1),
	}
}

// Walker relates fix commits to the commits that last touched the lines they
// fixed, walking the history backward past ignore-listed commits.
type Walker struct {
	console consoles.Console
	storage storages.Storage
}

func NewWalker(console consoles.Console, storage storages.Storage) *Walker {
	return &Walker{
		console: console,
		storage: storage,
	}
}

func (w *Walker) WalkFixCommits(ctx context.Context, handle *mirror.Handle, ignore *model.IgnoreList, fixCommits []*model.Commit, opts *Options) ([]*model.RegressionLink, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	cache := NewBlameCache(w.storage, handle)

	w.console.Printf("Walking %v fix commits over %v mined commits...\n", len(fixCommits), cache.CommitCount())

	links := make([]*model.RegressionLink, len(fixCommits))

	bar := utils.NewProgressBar(len(fixCommits))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(utils.Max(opts.Workers, 1))

	for idx, fix := range fixCommits {
		idx := idx
		fix := fix

		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			link, err := w.walkFix(handle, cache, ignore, fix, opts)
			if err != nil {
				return errors.Wrapf(err, "error walking fix commit %v", fix.Hash)
			}

			links[idx] = link

			_ = bar.Add(1)
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	_ = bar.Clear()

	return links, nil
}

func (w *Walker) walkFix(handle *mirror.Handle, cache BlameCache, ignore *model.IgnoreList, fix *model.Commit, opts *Options) (*model.RegressionLink, error) {
	link := model.NewRegressionLink(fix.Hash, fix.BugID)

	if ignore.Contains(fix.Hash) {
		link.Skipped = true
		link.SkipReason = fmt.Sprintf("noise: %v", ignore.Reason(fix.Hash))
		return link, nil
	}

	if len(fix.Parents) == 0 {
		link.Skipped = true
		link.SkipReason = "root commit"
		return link, nil
	}

	if len(fix.Files) == 0 {
		err := w.storage.LoadCommitFiles(handle.Mirror, fix)
		if err != nil {
			return nil, err
		}
	}

	if len(fix.Files) > opts.MaxModifiedFiles {
		link.Skipped = true
		link.SkipReason = fmt.Sprintf("too many modified files: %v", len(fix.Files))
		return link, nil
	}

	parent := handle.Mirror.GetCommitByID(fix.Parents[0])
	parentHash := plumbing.NewHash(parent.Hash)

	candidates := map[plumbing.Hash]int{}

	for _, file := range fix.Files {
		if file.IsBinary || file.Change == model.FileCreated || len(file.DeletedRanges) == 0 {
			continue
		}

		path := file.Path
		if old, ok := file.OldPaths[parent.ID]; ok {
			path = old
		}

		origins := blameLines(cache, ignore, parentHash, path, file.DeletedRanges, opts.MaxDepth)

		for _, o := range origins {
			link.SeededLines++
			link.Outcomes[o.Outcome]++

			if o.Outcome == model.LineCandidate {
				candidates[o.Hash]++
			}
		}
	}

	link.AttributedLines = link.Outcomes[model.LineCandidate]

	orders := make(map[string]int, len(candidates))
	for hash, lines := range candidates {
		link.Candidates = append(link.Candidates, &model.RegressorCandidate{
			Hash:       hash.String(),
			Lines:      lines,
			Confidence: float64(lines) / float64(link.SeededLines),
		})

		// Already memoized: every candidate was visited during the walk.
		if c, err := cache.GetCommit(hash); err == nil {
			orders[hash.String()] = c.Order
		}
	}

	// Equal line counts break toward the more recent commit.
	sort.Slice(link.Candidates, func(i, j int) bool {
		a, b := link.Candidates[i], link.Candidates[j]
		if a.Lines != b.Lines {
			return a.Lines > b.Lines
		}
		if orders[a.Hash] != orders[b.Hash] {
			return orders[a.Hash] > orders[b.Hash]
		}
		return a.Hash < b.Hash
	})

	link.NoRegressorFound = len(link.Candidates) == 0

	return link, nil
}
