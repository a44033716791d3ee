package ignorelist

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/samber/lo"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/storages"
	"github.com/relman/regminer/lib/utils"
)

type Builder struct {
	console consoles.Console
	storage storages.Storage
}

type Options struct {
	// Commits touching only paths matching these globs are generated-file noise.
	GeneratedGlobs []string
	// Lowercase substrings that mark a commit message as a formatting run.
	FormattingPatterns []string
	// Minimum renamed files for a pure-rename commit to count as a bulk rename.
	BulkRenameThreshold int
	// Upper bound of files for the whitespace-only content check.
	MaxWhitespaceCheckFiles int
}

func DefaultOptions() *Options {
	return &Options{
		GeneratedGlobs: []string{
			"**/*.min.js",
			"**/*.min.css",
			"**/*.pb.go",
			"**/*_pb2.py",
			"**/*.generated.*",
			"**/generated/**",
			"**/package-lock.json",
			"**/yarn.lock",
			"**/Cargo.lock",
			"**/go.sum",
		},
		FormattingPatterns: []string{
			"reformat",
			"clang-format",
			"prettier",
			"rustfmt",
			"gofmt",
			"black",
			"autopep8",
			"eslint --fix",
			"fix linting",
			"no functional change",
			"whitespace only",
		},
		BulkRenameThreshold:     10,
		MaxWhitespaceCheckFiles: 50,
	}
}

func NewBuilder(console consoles.Console, storage storages.Storage) *Builder {
	return &Builder{
		console: console,
		storage: storage,
	}
}

// Build classifies every mined commit as noise or substantive and returns
// the resulting skip-set. The classification is also recorded on the commits
// themselves so later runs can reuse it.
func (b *Builder) Build(handle *mirror.Handle, opts *Options) (*model.IgnoreList, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	commits := handle.Mirror.ListCommits()

	b.console.Printf("%v: Classifying %v commits...\n", handle.Mirror.Name, len(commits))

	result := model.NewIgnoreList()

	bar := utils.NewProgressBar(len(commits))
	for _, commit := range commits {
		cls, err := b.Classify(handle, commit, opts)
		if err != nil {
			return nil, err
		}

		commit.Ignore = cls.IsNoise()
		commit.IgnoreReason = cls.Reason()

		if cls.IsNoise() {
			result.Add(commit.Hash, cls.Reason())
		}

		_ = bar.Add(1)
	}

	err := b.storage.WriteMirror(handle.Mirror)
	if err != nil {
		return nil, err
	}

	b.console.Printf("%v: %v of %v commits classified as noise\n",
		handle.Mirror.Name, result.Len(), len(commits))

	return result, nil
}

func (b *Builder) Classify(handle *mirror.Handle, commit *model.Commit, opts *Options) (model.Classification, error) {
	if strings.Contains(strings.ToLower(commit.Message), "ignore-this-changeset") {
		return model.Noise(model.IgnoreConventionMarker), nil
	}

	if commit.IsBackout() {
		return model.Noise(model.IgnoreBackout), nil
	}

	if commit.WasBackedOut() {
		return model.Noise(model.IgnoreBackoutTarget), nil
	}

	err := b.ensureFiles(handle, commit)
	if err != nil {
		return model.Classification{}, err
	}

	changed := lo.PickBy(commit.Files, func(_ string, cf *model.CommitFile) bool {
		return cf.Change != model.FileNotChanged && cf.Change != model.FileChangeUnknown
	})

	if len(changed) > 0 && allMatchGlobs(changed, opts.GeneratedGlobs) {
		return model.Noise(model.IgnoreGeneratedFile), nil
	}

	if matchesFormattingMessage(commit.Message, opts.FormattingPatterns) {
		return model.Noise(model.IgnoreFormattingTool), nil
	}

	renames := lo.CountValuesBy(lo.Values(changed), func(cf *model.CommitFile) model.FileChangeType {
		return cf.Change
	})
	if renames[model.FileRenamed] >= opts.BulkRenameThreshold && renames[model.FileRenamed] == len(changed) {
		return model.Noise(model.IgnoreBulkRename), nil
	}

	whitespaceOnly, err := b.isWhitespaceOnly(handle, commit, changed, opts)
	if err != nil {
		return model.Classification{}, err
	}
	if whitespaceOnly {
		return model.Noise(model.IgnoreWhitespaceOnly), nil
	}

	return model.Substantive(), nil
}

func (b *Builder) ensureFiles(handle *mirror.Handle, commit *model.Commit) error {
	if len(commit.Files) > 0 || commit.Features == nil {
		return nil
	}

	return b.storage.LoadCommitFiles(handle.Mirror, commit)
}

func allMatchGlobs(files map[string]*model.CommitFile, globs []string) bool {
	for path := range files {
		matched := false
		for _, glob := range globs {
			if ok, err := doublestar.Match(glob, path); err == nil && ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

func matchesFormattingMessage(message string, patterns []string) bool {
	firstLine, _, _ := strings.Cut(message, "\n")
	firstLine = strings.ToLower(firstLine)

	for _, p := range patterns {
		if strings.Contains(firstLine, p) {
			return true
		}
	}

	return false
}

// isWhitespaceOnly re-reads the old and new contents of each modified file and
// compares them with all whitespace stripped. Only cheap, all-modified,
// single-parent commits are checked; everything else is assumed substantive.
func (b *Builder) isWhitespaceOnly(handle *mirror.Handle, commit *model.Commit, changed map[string]*model.CommitFile, opts *Options) (bool, error) {
	if len(changed) == 0 || len(changed) > opts.MaxWhitespaceCheckFiles {
		return false, nil
	}
	if len(commit.Parents) != 1 {
		return false, nil
	}

	for _, cf := range changed {
		if cf.Change != model.FileModified || cf.IsBinary {
			return false, nil
		}
		// Reformatting does not grow or shrink meaningfully different line
		// counts in only one direction; creations and pure additions are out.
		if cf.LinesModified == 0 && (cf.LinesAdded == 0) != (cf.LinesDeleted == 0) {
			return false, nil
		}
	}

	gitCommit, err := handle.GitRepo.CommitObject(plumbing.NewHash(commit.Hash))
	if err != nil {
		return false, err
	}

	gitParent, err := gitCommit.Parent(0)
	if err != nil {
		return false, err
	}

	parent := handle.Mirror.GetCommitByID(commit.Parents[0])

	for path, cf := range changed {
		newFile, err := gitCommit.File(path)
		if err != nil {
			return false, nil
		}

		oldPath, ok := cf.OldPaths[parent.ID]
		if !ok {
			oldPath = path
		}

		oldFile, err := gitParent.File(oldPath)
		if err != nil {
			return false, nil
		}

		newContent, err := newFile.Contents()
		if err != nil {
			return false, err
		}

		oldContent, err := oldFile.Contents()
		if err != nil {
			return false, err
		}

		if stripWhitespace(newContent) != stripWhitespace(oldContent) {
			return false, nil
		}
	}

	return true, nil
}

func stripWhitespace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n', '\v', '\f':
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
