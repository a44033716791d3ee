package ignorelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/model"
)

func classify(t *testing.T, commit *model.Commit) model.Classification {
	t.Helper()

	b := NewBuilder(consoles.NewStdOutConsole(), nil)

	cls, err := b.Classify(nil, commit, DefaultOptions())
	require.NoError(t, err)

	return cls
}

func TestClassifyConventionMarker(t *testing.T) {
	t.Parallel()

	c := model.NewCommit(1, "a")
	c.Message = "Bug 1234 - Mass rename, ignore-this-changeset"

	cls := classify(t, c)
	assert.True(t, cls.IsNoise())
	assert.Equal(t, model.IgnoreConventionMarker, cls.Reason())
}

func TestClassifyBackoutAndTarget(t *testing.T) {
	t.Parallel()

	backout := model.NewCommit(1, "a")
	backout.Message = "Backed out changeset deadbeef123"
	backout.BacksOut = "deadbeef1234567"

	cls := classify(t, backout)
	assert.Equal(t, model.IgnoreBackout, cls.Reason())

	target := model.NewCommit(2, "deadbeef1234567")
	target.Message = "Bug 1 - A change that broke things"
	target.BackedOutBy = "a"

	cls = classify(t, target)
	assert.Equal(t, model.IgnoreBackoutTarget, cls.Reason())
}

func TestClassifyGeneratedFiles(t *testing.T) {
	t.Parallel()

	c := model.NewCommit(1, "a")
	c.Message = "Update dependencies"
	c.Parents = []model.ID{2, 3}

	f := c.GetOrCreateFile("web/package-lock.json")
	f.Change = model.FileModified
	f = c.GetOrCreateFile("vendor/lib.min.js")
	f.Change = model.FileModified

	cls := classify(t, c)
	assert.Equal(t, model.IgnoreGeneratedFile, cls.Reason())
}

func TestClassifyGeneratedNeedsAllFiles(t *testing.T) {
	t.Parallel()

	c := model.NewCommit(1, "a")
	c.Message = "Update dependencies"
	c.Parents = []model.ID{2, 3}

	f := c.GetOrCreateFile("web/package-lock.json")
	f.Change = model.FileModified
	f = c.GetOrCreateFile("web/server.js")
	f.Change = model.FileModified

	cls := classify(t, c)
	assert.False(t, cls.IsNoise())
}

func TestClassifyFormattingMessage(t *testing.T) {
	t.Parallel()

	c := model.NewCommit(1, "a")
	c.Message = "Bug 1234 - Reformat the tree with clang-format r=sylvestre"
	c.Parents = []model.ID{2, 3}

	cls := classify(t, c)
	assert.Equal(t, model.IgnoreFormattingTool, cls.Reason())
}

func TestClassifyBulkRename(t *testing.T) {
	t.Parallel()

	c := model.NewCommit(1, "a")
	c.Message = "Move everything under src/"
	c.Parents = []model.ID{2, 3}

	for i := 0; i < 12; i++ {
		f := c.GetOrCreateFile(string(rune('a'+i)) + ".cpp")
		f.Change = model.FileRenamed
	}

	cls := classify(t, c)
	assert.Equal(t, model.IgnoreBulkRename, cls.Reason())
}

func TestClassifySubstantive(t *testing.T) {
	t.Parallel()

	c := model.NewCommit(1, "a")
	c.Message = "Bug 1234 - Fix null deref in parser"
	c.Parents = []model.ID{2, 3}

	f := c.GetOrCreateFile("parser/parse.cpp")
	f.Change = model.FileModified

	cls := classify(t, c)
	assert.False(t, cls.IsNoise())
	assert.Equal(t, model.IgnoreReasonNone, cls.Reason())
}

func TestStripWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, stripWhitespace("a = b + 1;\n"), stripWhitespace("a=b+1;"))
	assert.NotEqual(t, stripWhitespace("a = b + 1;"), stripWhitespace("a = b + 2;"))
}
