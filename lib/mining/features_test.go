package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/storages/orm"
)

func TestExtractTwiceYieldsIdenticalFeatures(t *testing.T) {
	t.Parallel()

	f := newFixtureRepo(t)
	_ = f.commit("first", map[string]string{
		"main.go": "package main\n\nfunc main() {\n}\n",
	})
	head := f.commit("Bug 123 - add verbose flag", map[string]string{
		"main.go":        "package main\n\nvar verbose = false\n\nfunc main() {\n\tif verbose {\n\t\treturn\n\t}\n}\n",
		"docs/readme.md": "usage notes\n",
	})

	storage, err := orm.NewGormStorage(orm.WithSqliteInMemory(), consoles.NewStdOutConsole())
	require.NoError(t, err)
	defer func() { _ = storage.Close() }()

	mirrors, err := storage.LoadMirrors()
	require.NoError(t, err)

	m := mirrors.GetOrCreate("https://example.com/fixture.git")
	m.RootDir = f.dir
	m.CutoffHash = head.String()

	handle, err := mirror.Open(m)
	require.NoError(t, err)

	miner := NewHistoryMiner(consoles.NewStdOutConsole(), storage)
	_, err = miner.Mine(handle, &HistoryOptions{Incremental: true})
	require.NoError(t, err)

	extractor := NewFeatureExtractor(consoles.NewStdOutConsole(), storage)
	require.NoError(t, extractor.Extract(handle, &FeatureOptions{}))

	first := make(map[string]*model.CommitFeatures)
	for _, c := range handle.Mirror.ListCommits() {
		require.NotNil(t, c.Features, c.Hash)
		require.Empty(t, c.Features.Problems, c.Hash)
		first[c.Hash] = c.Features
	}

	require.NoError(t, extractor.Extract(handle, &FeatureOptions{}))

	for _, c := range handle.Mirror.ListCommits() {
		assert.Equal(t, first[c.Hash], c.Features, c.Hash)
	}
}

func TestExtractIncrementalSkipsExtractedCommits(t *testing.T) {
	t.Parallel()

	f := newFixtureRepo(t)
	head := f.commit("first", map[string]string{"a.go": "package a\n"})

	storage, err := orm.NewGormStorage(orm.WithSqliteInMemory(), consoles.NewStdOutConsole())
	require.NoError(t, err)
	defer func() { _ = storage.Close() }()

	mirrors, err := storage.LoadMirrors()
	require.NoError(t, err)

	m := mirrors.GetOrCreate("https://example.com/fixture.git")
	m.RootDir = f.dir
	m.CutoffHash = head.String()

	handle, err := mirror.Open(m)
	require.NoError(t, err)

	miner := NewHistoryMiner(consoles.NewStdOutConsole(), storage)
	_, err = miner.Mine(handle, &HistoryOptions{Incremental: true})
	require.NoError(t, err)

	extractor := NewFeatureExtractor(consoles.NewStdOutConsole(), storage)
	require.NoError(t, extractor.Extract(handle, &FeatureOptions{Incremental: true}))

	extracted := handle.Mirror.GetCommit(head.String()).Features
	require.NotNil(t, extracted)

	require.NoError(t, extractor.Extract(handle, &FeatureOptions{Incremental: true}))

	assert.Same(t, extracted, handle.Mirror.GetCommit(head.String()).Features)
}
