package orm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/model"
)

func TestWriteCommitsSnapshotsOnlyBatch(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "test.sqlite")

	s, err := NewGormStorage(WithSqlite(file), consoles.NewStdOutConsole())
	require.NoError(t, err)

	mirrors, err := s.LoadMirrors()
	require.NoError(t, err)

	m := mirrors.GetOrCreate("https://example.com/repo.git")
	done := m.GetOrCreateCommit("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	done.Message = "finished"
	pending := m.GetOrCreateCommit("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pending.Message = "still being extracted"

	require.NoError(t, s.WriteCommits(m, []*model.Commit{done}))
	require.NoError(t, s.Close())

	s2, err := NewGormStorage(WithSqlite(file), consoles.NewStdOutConsole())
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	mirrors2, err := s2.LoadMirrors()
	require.NoError(t, err)

	m2 := mirrors2.Get("https://example.com/repo.git")
	require.NotNil(t, m2)
	assert.True(t, m2.ContainsCommit(done.Hash))
	assert.False(t, m2.ContainsCommit(pending.Hash))
}

func TestWriteMirrorSnapshotsAllCommits(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "test.sqlite")

	s, err := NewGormStorage(WithSqlite(file), consoles.NewStdOutConsole())
	require.NoError(t, err)

	mirrors, err := s.LoadMirrors()
	require.NoError(t, err)

	m := mirrors.GetOrCreate("https://example.com/repo.git")
	m.GetOrCreateCommit("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	m.GetOrCreateCommit("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	require.NoError(t, s.WriteMirror(m))
	require.NoError(t, s.Close())

	s2, err := NewGormStorage(WithSqlite(file), consoles.NewStdOutConsole())
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	mirrors2, err := s2.LoadMirrors()
	require.NoError(t, err)

	m2 := mirrors2.Get("https://example.com/repo.git")
	require.NotNil(t, m2)
	assert.Equal(t, 2, m2.CountCommits())
}
