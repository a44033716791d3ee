package blame

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
)

type fakeCache struct {
	commits map[plumbing.Hash]*BlameCommitCache
	files   map[plumbing.Hash]string
	trees   map[plumbing.Hash]map[string]plumbing.Hash
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		commits: map[plumbing.Hash]*BlameCommitCache{},
		files:   map[plumbing.Hash]string{},
		trees:   map[plumbing.Hash]map[string]plumbing.Hash{},
	}
}

func hashOf(name string) plumbing.Hash {
	return plumbing.ComputeHash(plumbing.BlobObject, []byte(name))
}

func (f *fakeCache) add(name, file, contents string, touched bool, parents ...string) plumbing.Hash {
	hash := hashOf(name)
	fileHash := hashOf("blob:" + contents)

	c := &BlameCommitCache{
		Hash:    hash,
		Order:   len(f.commits),
		Changes: map[string]*BlameFileCache{},
	}

	for _, p := range parents {
		ph := hashOf(p)
		c.Parents = append(c.Parents, &BlameParentCache{
			Hash:       ph,
			Renames:    map[string]string{},
			FileHashes: map[string]plumbing.Hash{file: f.trees[ph][file]},
		})
	}

	if touched {
		c.Changes[file] = &BlameFileCache{
			Hash:    fileHash,
			Created: len(parents) == 0,
		}
	}

	f.commits[hash] = c
	f.files[fileHash] = contents
	f.trees[hash] = map[string]plumbing.Hash{file: fileHash}
	return hash
}

func (f *fakeCache) GetCommit(hash plumbing.Hash) (*BlameCommitCache, error) {
	result, ok := f.commits[hash]
	if !ok {
		return nil, errors.Errorf("unknown commit: %v", hash)
	}
	return result, nil
}

func (f *fakeCache) GetFileContent(name string, hash plumbing.Hash) (string, bool, error) {
	result, ok := f.files[hash]
	if !ok {
		return "", false, errors.Errorf("unknown content of %v: %v", name, hash)
	}
	return result, false, nil
}

func (f *fakeCache) GetFileHash(commitHash plumbing.Hash, path string) (plumbing.Hash, error) {
	result, ok := f.trees[commitHash][path]
	if !ok {
		return plumbing.ZeroHash, errors.Errorf("no %v in commit %v", path, commitHash)
	}
	return result, nil
}

func (f *fakeCache) CommitCount() int {
	return len(f.commits)
}

func TestBlameSkipsReformattingCommit(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.add("A", "f.c", "a\nb\nc\n", true)
	culprit := cache.add("G", "f.c", "a\nB\nc\n", true, "A")
	reformat := cache.add("R", "f.c", "a ;\nB ;\nc ;\n", true, "G")

	ignore := model.NewIgnoreList()
	ignore.Add(reformat.String(), model.IgnoreFormattingTool)

	origins := blameLines(cache, ignore, reformat, "f.c", []model.LineRange{{Start: 1, End: 1}}, 50)

	require.Len(t, origins, 1)
	assert.Equal(t, model.LineCandidate, origins[1].Outcome)
	assert.Equal(t, culprit, origins[1].Hash)
}

func TestBlameFindsCreator(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	creator := cache.add("A", "f.c", "a\nb\n", true)
	head := cache.add("B", "f.c", "a\nb\n", false, "A")

	origins := blameLines(cache, model.NewIgnoreList(), head, "f.c", []model.LineRange{{Start: 0, End: 1}}, 50)

	require.Len(t, origins, 2)
	for line := 0; line <= 1; line++ {
		assert.Equal(t, model.LineCandidate, origins[line].Outcome)
		assert.Equal(t, creator, origins[line].Hash)
	}
}

func TestBlameIgnoredCreatorHasNoOrigin(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	creator := cache.add("A", "f.c", "a\nb\n", true)

	ignore := model.NewIgnoreList()
	ignore.Add(creator.String(), model.IgnoreGeneratedFile)

	origins := blameLines(cache, ignore, creator, "f.c", []model.LineRange{{Start: 0, End: 0}}, 50)

	require.Len(t, origins, 1)
	assert.Equal(t, model.LineNoOrigin, origins[0].Outcome)
}

func TestBlamePureInsertionByIgnoredCommitHasNoOrigin(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.add("A", "f.c", "a\nb\n", true)
	noise := cache.add("R", "f.c", "n\na\nb\n", true, "A")

	ignore := model.NewIgnoreList()
	ignore.Add(noise.String(), model.IgnoreFormattingTool)

	origins := blameLines(cache, ignore, noise, "f.c", []model.LineRange{{Start: 0, End: 0}}, 50)

	require.Len(t, origins, 1)
	assert.Equal(t, model.LineNoOrigin, origins[0].Outcome)
}

func TestBlameStopsAtMaxDepth(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.add("A", "f.c", "a\nb\n", true)
	head := cache.add("B", "f.c", "A\nb\n", true, "A")

	origins := blameLines(cache, model.NewIgnoreList(), head, "f.c", []model.LineRange{{Start: 1, End: 1}}, 0)

	require.Len(t, origins, 1)
	assert.Equal(t, model.LineDepthExceeded, origins[1].Outcome)
}

func TestBlameMissingFileIsUnattributable(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	head := cache.add("A", "f.c", "a\n", true)

	origins := blameLines(cache, model.NewIgnoreList(), head, "other.c", []model.LineRange{{Start: 0, End: 1}}, 50)

	require.Len(t, origins, 2)
	assert.Equal(t, model.LineUnattributable, origins[0].Outcome)
	assert.Equal(t, model.LineUnattributable, origins[1].Outcome)
}

func newTestMirror() (*mirror.Handle, *model.Mirror) {
	mirrors := model.NewMirrors()
	m := mirrors.GetOrCreate("https://example.com/repo.git")
	return &mirror.Handle{Mirror: m}, m
}

func TestWalkFixSplitsConfidenceOnTies(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.add("O", "f.c", "a\nb\nc\nd\n", true)
	first := cache.add("X", "f.c", "A\nB\nc\nd\n", true, "O")
	second := cache.add("Y", "f.c", "A\nB\nC\nD\n", true, "X")

	handle, m := newTestMirror()
	parent := m.GetOrCreateCommit(second.String())
	fix := m.GetOrCreateCommit(hashOf("F").String())
	fix.Parents = []model.ID{parent.ID}
	fix.BugID = 1234

	file := fix.GetOrCreateFile("f.c")
	file.Change = model.FileModified
	file.DeletedRanges = []model.LineRange{{Start: 0, End: 3}}

	w := NewWalker(nil, nil)
	link, err := w.walkFix(handle, cache, model.NewIgnoreList(), fix, DefaultOptions())
	require.NoError(t, err)

	assert.False(t, link.Skipped)
	assert.Equal(t, 1234, link.BugID)
	assert.Equal(t, 4, link.SeededLines)
	assert.Equal(t, 4, link.AttributedLines)
	assert.False(t, link.NoRegressorFound)

	require.Len(t, link.Candidates, 2)
	hashes := []string{link.Candidates[0].Hash, link.Candidates[1].Hash}
	assert.Contains(t, hashes, first.String())
	assert.Contains(t, hashes, second.String())

	for _, c := range link.Candidates {
		assert.Equal(t, 2, c.Lines)
		assert.InDelta(t, 0.5, c.Confidence, 0.0001)
	}

	assert.Len(t, link.TopCandidates(), 2)

	// Tied candidates order newest first.
	assert.Equal(t, second.String(), link.Candidates[0].Hash)
	assert.Equal(t, first.String(), link.Candidates[1].Hash)
}

func TestWalkFixOutcomesSumToSeededLines(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	cache.add("A", "f.c", "a\nb\nc\n", true)
	head := cache.add("B", "f.c", "A\nb\nc\n", true, "A")

	handle, m := newTestMirror()
	parent := m.GetOrCreateCommit(head.String())
	fix := m.GetOrCreateCommit(hashOf("F").String())
	fix.Parents = []model.ID{parent.ID}

	file := fix.GetOrCreateFile("f.c")
	file.Change = model.FileModified
	file.DeletedRanges = []model.LineRange{{Start: 0, End: 2}}

	w := NewWalker(nil, nil)
	link, err := w.walkFix(handle, cache, model.NewIgnoreList(), fix, DefaultOptions())
	require.NoError(t, err)

	total := 0
	for _, count := range link.Outcomes {
		total += count
	}
	assert.Equal(t, link.SeededLines, total)
	assert.Equal(t, 3, link.SeededLines)
}

func TestWalkFixSkipsIgnoredFix(t *testing.T) {
	t.Parallel()

	handle, m := newTestMirror()
	fix := m.GetOrCreateCommit(hashOf("F").String())

	ignore := model.NewIgnoreList()
	ignore.Add(fix.Hash, model.IgnoreFormattingTool)

	w := NewWalker(nil, nil)
	link, err := w.walkFix(handle, newFakeCache(), ignore, fix, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, link.Skipped)
	assert.Equal(t, "noise: formatting-tool", link.SkipReason)
}

func TestWalkFixSkipsRootCommit(t *testing.T) {
	t.Parallel()

	handle, m := newTestMirror()
	fix := m.GetOrCreateCommit(hashOf("F").String())

	w := NewWalker(nil, nil)
	link, err := w.walkFix(handle, newFakeCache(), model.NewIgnoreList(), fix, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, link.Skipped)
	assert.Equal(t, "root commit", link.SkipReason)
}

func TestWalkFixSkipsHugeCommits(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	head := cache.add("A", "f.c", "a\n", true)

	handle, m := newTestMirror()
	parent := m.GetOrCreateCommit(head.String())
	fix := m.GetOrCreateCommit(hashOf("F").String())
	fix.Parents = []model.ID{parent.ID}
	fix.GetOrCreateFile("a.c")
	fix.GetOrCreateFile("b.c")

	opts := DefaultOptions()
	opts.MaxModifiedFiles = 1

	w := NewWalker(nil, nil)
	link, err := w.walkFix(handle, cache, model.NewIgnoreList(), fix, opts)
	require.NoError(t, err)

	assert.True(t, link.Skipped)
	assert.Equal(t, "too many modified files: 2", link.SkipReason)
}
