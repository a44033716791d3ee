package dataset

import (
	"encoding/json"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/records"
	"github.com/relman/regminer/lib/storages"
	"github.com/relman/regminer/lib/utils"
)

const (
	LinksCollection   = "regression-links"
	RecordsCollection = "dataset-records"
)

// BugLabels maps bug ids to whether the bug is a genuine defect, as opposed
// to a feature request or a task. Produced by an external classifier.
type BugLabels map[int]bool

func LoadBugLabels(file string) (BugLabels, error) {
	contents, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading bug labels from %v", file)
	}

	var raw map[string]bool
	err = json.Unmarshal(contents, &raw)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing bug labels from %v", file)
	}

	result := BugLabels{}
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Errorf("invalid bug id in %v: %v", file, k)
		}

		result[id] = v
	}

	return result, nil
}

type Options struct {
	// negatives sampled per positive record
	NegativeRatio int
	// leakage window: a commit touching a file a positive touched within
	// this many days can not become a negative
	WindowDays int
	// keep multi-candidate links as weak-labeled positives
	KeepWeak bool
	Seed     int64
}

func DefaultOptions() *Options {
	return &Options{
		NegativeRatio: 1,
		WindowDays:    60,
		KeepWeak:      true,
		Seed:          42,
	}
}

type Stats struct {
	Positives          int
	Negatives          int
	WeakLabeled        int
	SkippedLinks       int
	DanglingCandidates int
}

// Assembler joins bug labels, fix commits and regression links into a
// labeled dataset written through the record store.
type Assembler struct {
	console consoles.Console
	storage storages.Storage
	store   *records.Store
}

func NewAssembler(console consoles.Console, storage storages.Storage, store *records.Store) *Assembler {
	return &Assembler{
		console: console,
		storage: storage,
		store:   store,
	}
}

type positive struct {
	commit *model.Commit
	weak   bool
	links  []model.UUID
}

func (a *Assembler) Assemble(mirror *model.Mirror, labels BugLabels, links []*model.RegressionLink, opts *Options) (*Stats, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	stats := &Stats{}

	positives, err := a.collectPositives(mirror, labels, links, opts, stats)
	if err != nil {
		return nil, err
	}

	if len(positives) == 0 {
		a.console.Warnf("No usable regression links: dataset is empty\n")
		return stats, nil
	}

	negatives, err := a.sampleNegatives(mirror, positives, opts)
	if err != nil {
		return nil, err
	}

	err = a.writeRecords(positives, negatives, stats)
	if err != nil {
		return nil, err
	}

	a.console.Printf("Assembled %v positive and %v negative records (%v weak-labeled)\n",
		stats.Positives, stats.Negatives, stats.WeakLabeled)

	return stats, nil
}

func (a *Assembler) collectPositives(mirror *model.Mirror, labels BugLabels, links []*model.RegressionLink, opts *Options, stats *Stats) (map[string]*positive, error) {
	result := map[string]*positive{}

	for _, link := range links {
		if link.Skipped || len(link.Candidates) == 0 {
			stats.SkippedLinks++
			continue
		}

		if isDefect, ok := labels[link.BugID]; !ok || !isDefect {
			stats.SkippedLinks++
			continue
		}

		err := a.store.Put(LinksCollection, string(link.ID), link)
		if err != nil {
			return nil, err
		}

		weak := len(link.Candidates) > 1
		if weak && !opts.KeepWeak {
			stats.SkippedLinks++
			continue
		}

		for _, c := range link.Candidates {
			commit := mirror.GetCommit(c.Hash)
			if commit == nil {
				stats.DanglingCandidates++
				continue
			}

			p, ok := result[c.Hash]
			if !ok {
				p = &positive{commit: commit, weak: weak}
				result[c.Hash] = p
			}

			// A commit that is the sole candidate of any link is not weak.
			p.weak = p.weak && weak
			p.links = append(p.links, link.ID)
		}
	}

	return result, nil
}

func (a *Assembler) sampleNegatives(mirror *model.Mirror, positives map[string]*positive, opts *Options) ([]*model.Commit, error) {
	window := time.Duration(opts.WindowDays) * 24 * time.Hour

	var minDate, maxDate time.Time
	touched := map[string][]time.Time{}

	for _, p := range positives {
		err := a.ensureFiles(mirror, p.commit)
		if err != nil {
			return nil, err
		}

		for path := range p.commit.Files {
			touched[path] = append(touched[path], p.commit.Date)
		}

		if minDate.IsZero() || p.commit.Date.Before(minDate) {
			minDate = p.commit.Date
		}
		if p.commit.Date.After(maxDate) {
			maxDate = p.commit.Date
		}
	}

	var pool []*model.Commit
	for _, c := range mirror.ListCommits() {
		if c.Date.Before(minDate.Add(-window)) || c.Date.After(maxDate.Add(window)) {
			continue
		}
		if _, isPositive := positives[c.Hash]; isPositive {
			continue
		}
		if c.Ignore || c.IsMerge {
			continue
		}

		overlaps, err := a.overlapsPositive(mirror, c, touched, window)
		if err != nil {
			return nil, err
		}
		if overlaps {
			continue
		}

		pool = append(pool, c)
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].Hash < pool[j].Hash })

	rnd := rand.New(rand.NewSource(opts.Seed))
	rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	wanted := utils.Min(len(pool), opts.NegativeRatio*len(positives))
	return pool[:wanted], nil
}

func (a *Assembler) overlapsPositive(mirror *model.Mirror, commit *model.Commit, touched map[string][]time.Time, window time.Duration) (bool, error) {
	err := a.ensureFiles(mirror, commit)
	if err != nil {
		return false, err
	}

	for path := range commit.Files {
		for _, date := range touched[path] {
			delta := commit.Date.Sub(date)
			if delta < 0 {
				delta = -delta
			}
			if delta <= window {
				return true, nil
			}
		}
	}

	return false, nil
}

func (a *Assembler) ensureFiles(mirror *model.Mirror, commit *model.Commit) error {
	if len(commit.Files) > 0 || commit.Features == nil {
		return nil
	}

	return a.storage.LoadCommitFiles(mirror, commit)
}

func (a *Assembler) writeRecords(positives map[string]*positive, negatives []*model.Commit, stats *Stats) error {
	hashes := make([]string, 0, len(positives))
	for hash := range positives {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	for _, hash := range hashes {
		p := positives[hash]

		sort.Slice(p.links, func(i, j int) bool { return p.links[i] < p.links[j] })

		err := a.store.Put(RecordsCollection, hash, &model.DatasetRecord{
			CommitHash: hash,
			Label:      model.LabelRegressor,
			WeakLabel:  p.weak,
			Links:      p.links,
		})
		if err != nil {
			return err
		}

		stats.Positives++
		if p.weak {
			stats.WeakLabeled++
		}
	}

	for _, c := range negatives {
		err := a.store.Put(RecordsCollection, c.Hash, &model.DatasetRecord{
			CommitHash: c.Hash,
			Label:      model.LabelNotRegressor,
		})
		if err != nil {
			return err
		}

		stats.Negatives++
	}

	return nil
}
