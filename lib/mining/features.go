package mining

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-enry/go-enry/v2"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/hhatto/gocloc"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/metrics/complexity"
	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/storages"
	"github.com/relman/regminer/lib/utils"
)

type FeatureExtractor struct {
	console consoles.Console
	storage storages.Storage
}

type FeatureOptions struct {
	Incremental bool
	SaveEvery   *time.Duration
}

func NewFeatureExtractor(console consoles.Console, storage storages.Storage) *FeatureExtractor {
	return &FeatureExtractor{
		console: console,
		storage: storage,
	}
}

// Extract computes per-file changes and the aggregated features for every
// mined commit that does not have them yet. Commits are processed in
// parallel; results are written in batches.
func (e *FeatureExtractor) Extract(handle *mirror.Handle, opts *FeatureOptions) error {
	if opts == nil {
		opts = &FeatureOptions{}
	}

	// Parents-first so the progress bar walks the history in causal order
	// and batched saves cover contiguous stretches of it.
	var toProcess []*model.Commit
	for _, c := range handle.SortedCommits(nil) {
		if opts.Incremental && c.Features != nil {
			continue
		}
		toProcess = append(toProcess, c)
	}

	if len(toProcess) == 0 {
		return nil
	}

	e.console.Printf("%v: Extracting features from %v commits...\n", handle.Mirror.Name, len(toProcess))

	group := utils.ParallelFor(toProcess, func(c *model.Commit) (*model.Commit, error) {
		err := e.extractCommit(handle, c)
		if err != nil {
			// A broken commit gets a partial record instead of stopping the
			// batch. The problem shows up in the end of run summary.
			f := model.NewCommitFeatures()
			f.AddProblem(errors.Wrapf(err, "extraction failed").Error())
			c.Features = f
		}
		return c, nil
	})

	writeResults := func(batch []*model.Commit) error {
		if len(batch) == 0 {
			return nil
		}

		err := e.storage.WriteCommitFiles(handle.Mirror, batch)
		if err != nil {
			return err
		}

		// Snapshot only the finished batch: workers are still filling in
		// Features on the rest.
		return e.storage.WriteCommits(handle.Mirror, batch)
	}

	bar := utils.NewProgressBar(len(toProcess))
	start := time.Now()
	var batch []*model.Commit

	for c := range group.Output {
		bar.Describe(c.Date.Format("2006-01-02 15"))
		_ = bar.Add(1)

		batch = append(batch, c)

		if opts.SaveEvery != nil && time.Since(start) >= *opts.SaveEvery {
			_ = bar.Clear()

			err := writeResults(batch)
			if err != nil {
				group.Abort(err)
				return err
			}

			batch = nil
			start = time.Now()
		}
	}

	if err, ok := <-group.Err; ok && err != nil {
		return err
	}

	err := writeResults(batch)
	if err != nil {
		return err
	}

	problems := 0
	for _, c := range toProcess {
		if c.Features != nil && len(c.Features.Problems) > 0 {
			problems++
		}
	}
	if problems > 0 {
		e.console.Warnf("%v: %v of %v commits had problems during extraction\n",
			handle.Mirror.Name, problems, len(toProcess))
	}

	return nil
}

func (e *FeatureExtractor) extractCommit(handle *mirror.Handle, commit *model.Commit) error {
	gitCommit, err := handle.GitRepo.CommitObject(plumbing.NewHash(commit.Hash))
	if err != nil {
		return err
	}

	switch {
	case len(commit.Parents) == 0:
		err = e.extractRootCommit(commit, gitCommit)
	case len(commit.Parents) == 1:
		err = e.extractSimpleCommit(handle, commit, gitCommit)
	default:
		err = e.extractMergeCommit(handle, commit, gitCommit)
	}
	if err != nil {
		return err
	}

	e.classifyFiles(commit, gitCommit)

	features := e.aggregate(commit)

	err = e.computeLOC(commit, gitCommit, features)
	if err != nil {
		return err
	}

	e.computeComplexityDelta(handle, commit, gitCommit, features)

	commit.Features = features
	return nil
}

func (e *FeatureExtractor) extractRootCommit(commit *model.Commit, gitCommit *object.Commit) error {
	gitTree, err := gitCommit.Tree()
	if err != nil {
		return err
	}

	return gitTree.Files().ForEach(func(gitFile *object.File) error {
		cf := commit.GetOrCreateFile(gitFile.Name)
		cf.Hash = gitFile.Hash.String()
		cf.Change = model.FileCreated

		content, isBinary, err := fileContent(gitFile)
		if err != nil {
			return err
		}

		if isBinary {
			cf.IsBinary = true
			return nil
		}

		lines := utils.CountLines(content)
		cf.LinesModified = 0
		cf.LinesAdded = lines
		cf.LinesDeleted = 0
		if lines > 0 {
			cf.AddedRanges = []model.LineRange{{Start: 0, End: lines - 1}}
		}

		return nil
	})
}

func (e *FeatureExtractor) extractSimpleCommit(handle *mirror.Handle, commit *model.Commit, gitCommit *object.Commit) error {
	parent := handle.Mirror.GetCommitByID(commit.Parents[0])

	gitParent, err := gitCommit.Parent(0)
	if err != nil {
		return err
	}

	gitChanges, err := computeChanges(gitCommit, gitParent)
	if err != nil {
		return err
	}

	for _, gitChange := range gitChanges {
		cf := commit.GetOrCreateFile(gitChange.File.Name)

		fillParentInfo(cf, gitChange, parent)

		cf.Change = gitChange.Type
		cf.IsBinary = gitChange.Modified == -1
		cf.LinesModified = utils.Max(cf.LinesModified, gitChange.Modified)
		cf.LinesAdded = utils.Max(cf.LinesAdded, gitChange.Added)
		cf.LinesDeleted = utils.Max(cf.LinesDeleted, gitChange.Deleted)
		cf.AddedRanges = gitChange.AddedRanges
		cf.DeletedRanges = gitChange.DeletedRanges
	}

	return nil
}

func (e *FeatureExtractor) extractMergeCommit(handle *mirror.Handle, commit *model.Commit, gitCommit *object.Commit) error {
	changesPerFile := make(map[string]map[int]*gitFileChange)
	parents := gitCommit.NumParents()

	for p := 0; p < parents; p++ {
		gitParent, err := gitCommit.Parent(p)
		if err != nil {
			return err
		}

		gitChanges, err := computeChangesNoLines(gitCommit, gitParent)
		if err != nil {
			return err
		}

		for _, gitChange := range gitChanges {
			cs, ok := changesPerFile[gitChange.File.Name]
			if !ok {
				cs = make(map[int]*gitFileChange)
				changesPerFile[gitChange.File.Name] = cs
			}

			cs[p] = gitChange
		}
	}

	for path, parentChanges := range changesPerFile {
		cf := commit.GetOrCreateFile(path)
		var minChange *gitFileChange

		for p, gitChange := range parentChanges {
			parent := handle.Mirror.GetCommitByID(commit.Parents[p])

			fillParentInfo(cf, gitChange, parent)

			// Only count files changed against every parent: those are the
			// changes this commit itself introduced, not ones brought in
			// from a branch.
			if len(parentChanges) != parents {
				cf.Change = model.FileNotChanged
				continue
			}

			if cf.Change == model.FileChangeUnknown {
				cf.Change = gitChange.Type
			} else if cf.Change != gitChange.Type {
				cf.Change = model.FileModified
			}

			err := computeLinesChanged(gitChange)
			if err != nil {
				return err
			}

			if p == 0 {
				cf.AddedRanges = gitChange.AddedRanges
				cf.DeletedRanges = gitChange.DeletedRanges
			}

			if minChange == nil || minChange.Total() > gitChange.Total() {
				minChange = gitChange
			}
		}

		if minChange != nil {
			if minChange.Modified == -1 {
				cf.IsBinary = true
			} else {
				cf.LinesModified = minChange.Modified
				cf.LinesAdded = minChange.Added
				cf.LinesDeleted = minChange.Deleted
			}
		}
	}

	return nil
}

func fillParentInfo(cf *model.CommitFile, gitChange *gitFileChange, parent *model.Commit) {
	cf.Hash = gitChange.File.Hash.String()

	if gitChange.Type == model.FileCreated {
		cf.OldHashes[parent.ID] = "-"
	} else if gitChange.File.Hash != gitChange.OldFile.Hash {
		cf.OldHashes[parent.ID] = gitChange.OldFile.Hash.String()
	}

	if gitChange.OldFile.Name != gitChange.File.Name {
		cf.OldPaths[parent.ID] = gitChange.OldFile.Name
	}
}

func (e *FeatureExtractor) classifyFiles(commit *model.Commit, gitCommit *object.Commit) {
	for path, cf := range commit.Files {
		cf.IsTest = IsTestFile(path)

		if cf.IsBinary || cf.Change == model.FileDeleted {
			continue
		}

		gitFile, err := gitCommit.File(path)
		if err != nil {
			continue
		}

		content, isBinary, err := fileContent(gitFile)
		if err != nil || isBinary {
			continue
		}

		cf.Language = enry.GetLanguage(filepath.Base(path), []byte(content))
	}
}

func (e *FeatureExtractor) aggregate(commit *model.Commit) *model.CommitFeatures {
	f := model.NewCommitFeatures()

	f.FilesModified = 0
	f.FilesCreated = 0
	f.FilesDeleted = 0

	anyLines := lo.SomeBy(lo.Values(commit.Files), func(cf *model.CommitFile) bool {
		return cf.LinesModified != -1
	})
	if anyLines {
		f.LinesModified = 0
		f.LinesAdded = 0
		f.LinesDeleted = 0
	}

	var languages []string

	for path, cf := range commit.Files {
		switch cf.Change {
		case model.FileNotChanged:
			continue
		case model.FileModified, model.FileRenamed:
			f.FilesModified++
		case model.FileCreated:
			f.FilesCreated++
		case model.FileDeleted:
			f.FilesDeleted++
		}

		if cf.IsBinary {
			f.AddProblem(fmt.Sprintf("binary file: %v", path))
		}

		if cf.LinesModified != -1 {
			f.LinesModified += cf.LinesModified
			f.LinesAdded += cf.LinesAdded
			f.LinesDeleted += cf.LinesDeleted
		}

		added := utils.Max(cf.LinesAdded, 0) + utils.Max(cf.LinesModified, 0)
		deleted := utils.Max(cf.LinesDeleted, 0) + utils.Max(cf.LinesModified, 0)

		switch {
		case cf.IsTest:
			f.TestFilesModified++
			f.TestAdded += added
			f.TestDeleted += deleted
		case isSourceLanguage(cf.Language):
			f.SourceFilesModified++
			f.SourceAdded += added
			f.SourceDeleted += deleted
		default:
			f.OtherFilesModified++
			f.OtherAdded += added
			f.OtherDeleted += deleted
		}

		if cf.Language != "" {
			languages = append(languages, cf.Language)
		}
	}

	languages = lo.Uniq(languages)
	sort.Strings(languages)
	f.Languages = languages

	return f
}

func isSourceLanguage(language string) bool {
	return language != "" && enry.GetLanguageType(language) == enry.Programming
}

// computeLOC runs gocloc over the post-image of the changed files. The blobs
// are materialized into a temp dir because gocloc only reads from disk.
func (e *FeatureExtractor) computeLOC(commit *model.Commit, gitCommit *object.Commit, features *model.CommitFeatures) error {
	dir, err := os.MkdirTemp("", "regminer-loc-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	var paths []string
	i := 0
	for path, cf := range commit.Files {
		if cf.IsBinary || cf.Change == model.FileDeleted || cf.Change == model.FileNotChanged {
			continue
		}

		gitFile, err := gitCommit.File(path)
		if err != nil {
			continue
		}

		content, isBinary, err := fileContent(gitFile)
		if err != nil || isBinary {
			continue
		}

		tmp := filepath.Join(dir, fmt.Sprintf("%04d_%v", i, utils.TruncateFilename(filepath.Base(path))))
		i++

		err = os.WriteFile(tmp, []byte(content), 0o644)
		if err != nil {
			return err
		}

		paths = append(paths, tmp)
	}

	if len(paths) == 0 {
		return nil
	}

	languages := gocloc.NewDefinedLanguages()
	options := gocloc.NewClocOptions()

	processor := gocloc.NewProcessor(languages, options)
	loc, err := processor.Analyze(paths)
	if err != nil {
		return errors.Wrapf(err, "error computing lines of code")
	}

	features.CodeLines = 0
	features.CommentLines = 0
	features.BlankLines = 0

	for _, file := range loc.Files {
		features.CodeLines += int(file.Code)
		features.CommentLines += int(file.Comments)
		features.BlankLines += int(file.Blanks)
	}

	return nil
}

// computeComplexityDelta compares cyclomatic complexity of each changed
// source file against the first parent. Languages outside the scanner's
// rules leave HasComplexity false.
func (e *FeatureExtractor) computeComplexityDelta(handle *mirror.Handle, commit *model.Commit, gitCommit *object.Commit, features *model.CommitFeatures) {
	if len(commit.Parents) == 0 {
		return
	}

	parent := handle.Mirror.GetCommitByID(commit.Parents[0])

	gitParent, err := gitCommit.Parent(0)
	if err != nil {
		return
	}

	for path, cf := range commit.Files {
		if cf.IsBinary || cf.IsTest || !complexity.Supports(cf.Language) {
			continue
		}

		after := 0
		if cf.Change != model.FileDeleted {
			gitFile, err := gitCommit.File(path)
			if err != nil {
				continue
			}

			content, isBinary, err := fileContent(gitFile)
			if err != nil || isBinary {
				continue
			}

			after, _ = complexity.Compute(cf.Language, content)
		}

		before := 0
		if cf.Change != model.FileCreated {
			oldPath, ok := cf.OldPaths[parent.ID]
			if !ok {
				oldPath = path
			}

			gitFile, err := gitParent.File(oldPath)
			if err == nil {
				content, isBinary, err := fileContent(gitFile)
				if err == nil && !isBinary {
					before, _ = complexity.Compute(cf.Language, content)
				}
			}
		}

		features.ComplexityDelta += after - before
		features.HasComplexity = true
	}
}
