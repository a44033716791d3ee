package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relman/regminer/lib/linediff"
	"github.com/relman/regminer/lib/model"
)

func TestDiffsToRangesPositions(t *testing.T) {
	t.Parallel()

	src := "a\nb\nc\nd\n"
	dst := "a\nx\ny\nc\nd\nz\n"

	added, deleted := diffsToRanges(linediff.Do(src, dst))

	// b (line 1 in src) was replaced by x,y (lines 1-2 in dst), z appended.
	assert.Equal(t, []model.LineRange{{Start: 1, End: 2}, {Start: 5, End: 5}}, added)
	assert.Equal(t, []model.LineRange{{Start: 1, End: 1}}, deleted)
}

func TestDiffsToRangesNoChanges(t *testing.T) {
	t.Parallel()

	added, deleted := diffsToRanges(linediff.Do("a\nb\n", "a\nb\n"))

	assert.Empty(t, added)
	assert.Empty(t, deleted)
}

func TestDiffsToRangesRangeSizes(t *testing.T) {
	t.Parallel()

	src := "keep\nold1\nold2\nold3\nkeep\n"
	dst := "keep\nnew1\nkeep\n"

	added, deleted := diffsToRanges(linediff.Do(src, dst))

	addedLines := 0
	for _, r := range added {
		addedLines += r.Lines()
	}
	deletedLines := 0
	for _, r := range deleted {
		deletedLines += r.Lines()
	}

	assert.Equal(t, 1, addedLines)
	assert.Equal(t, 3, deletedLines)
}

func TestIsTestFile(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTestFile("dom/base/test/test_anchor.html"))
	assert.True(t, IsTestFile("testing/web-platform/meta/tools.ini"))
	assert.True(t, IsTestFile("layout/reftests/border.list"))
	assert.True(t, IsTestFile("lib/miner/history_test.go"))
	assert.True(t, IsTestFile("src/app.spec.ts"))

	assert.False(t, IsTestFile("dom/base/nsDocument.cpp"))
	assert.False(t, IsTestFile("docs/contest-rules.md"))
	assert.False(t, IsTestFile("lib/latest/runner.go"))
}
