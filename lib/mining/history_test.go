package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relman/regminer/lib/consoles"
)

func TestMineNeverGoesPastCutoff(t *testing.T) {
	t.Parallel()

	f := newFixtureRepo(t)
	c1 := f.commit("first", map[string]string{"a.go": "package a\n"})
	c2 := f.commit("second", map[string]string{"a.go": "package a\n\nvar X = 1\n"})
	c3 := f.commit("third", map[string]string{"a.go": "package a\n\nvar X = 2\n"})

	handle := f.open(c2)

	miner := NewHistoryMiner(consoles.NewStdOutConsole(), nil)
	mined, err := miner.Mine(handle, &HistoryOptions{Incremental: true})
	require.NoError(t, err)

	assert.Equal(t, 2, mined)
	assert.True(t, handle.Mirror.ContainsCommit(c1.String()))
	assert.True(t, handle.Mirror.ContainsCommit(c2.String()))
	assert.False(t, handle.Mirror.ContainsCommit(c3.String()))
}

func TestMineIncrementalMinesOnlyNewCommits(t *testing.T) {
	t.Parallel()

	f := newFixtureRepo(t)
	_ = f.commit("first", map[string]string{"a.go": "package a\n"})
	c2 := f.commit("second", map[string]string{"a.go": "package a\n\nvar X = 1\n"})

	handle := f.open(c2)
	miner := NewHistoryMiner(consoles.NewStdOutConsole(), nil)

	mined, err := miner.Mine(handle, &HistoryOptions{Incremental: true})
	require.NoError(t, err)
	assert.Equal(t, 2, mined)

	mined, err = miner.Mine(handle, &HistoryOptions{Incremental: true})
	require.NoError(t, err)
	assert.Equal(t, 0, mined)
}

func TestMineLinksVerifiedBackout(t *testing.T) {
	t.Parallel()

	before := "package a\n\nvar X = 1\n"
	broken := "package a\n\nvar X = 2\n"

	f := newFixtureRepo(t)
	_ = f.commit("first", map[string]string{"a.go": before})
	target := f.commit("Bug 123 - bump X", map[string]string{"a.go": broken})
	backout := f.commit("Backed out changeset "+target.String()[:12],
		map[string]string{"a.go": before})

	handle := f.open(backout)

	miner := NewHistoryMiner(consoles.NewStdOutConsole(), nil)
	_, err := miner.Mine(handle, &HistoryOptions{Incremental: true})
	require.NoError(t, err)

	assert.Equal(t, target.String(), handle.Mirror.GetCommit(backout.String()).BacksOut)
	assert.Equal(t, backout.String(), handle.Mirror.GetCommit(target.String()).BackedOutBy)
}

func TestMineRejectsBackoutThatDoesNotRestore(t *testing.T) {
	t.Parallel()

	f := newFixtureRepo(t)
	_ = f.commit("first", map[string]string{"a.go": "package a\n\nvar X = 1\n"})
	target := f.commit("Bug 123 - bump X", map[string]string{"a.go": "package a\n\nvar X = 2\n"})
	backout := f.commit("Backed out changeset "+target.String()[:12],
		map[string]string{"a.go": "package a\n\nvar X = 3\n"})

	handle := f.open(backout)

	miner := NewHistoryMiner(consoles.NewStdOutConsole(), nil)
	_, err := miner.Mine(handle, &HistoryOptions{Incremental: true})
	require.NoError(t, err)

	assert.Empty(t, handle.Mirror.GetCommit(backout.String()).BacksOut)
	assert.Empty(t, handle.Mirror.GetCommit(target.String()).BackedOutBy)
}
