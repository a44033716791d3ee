package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relman/regminer/lib/model"
)

func TestParseBugIDExplicit(t *testing.T) {
	t.Parallel()

	id, conf := ParseBugID("Bug 1234567 - Fix the crash on startup. r=jlebar")
	assert.Equal(t, 1234567, id)
	assert.Equal(t, model.BugIDHigh, conf)

	id, conf = ParseBugID("fix for bug #4567")
	assert.Equal(t, 4567, id)
	assert.Equal(t, model.BugIDHigh, conf)

	id, conf = ParseBugID("BUG: 888999 do the thing")
	assert.Equal(t, 888999, id)
	assert.Equal(t, model.BugIDHigh, conf)
}

func TestParseBugIDLeadingNumber(t *testing.T) {
	t.Parallel()

	id, conf := ParseBugID("123456 - land the new parser")
	assert.Equal(t, 123456, id)
	assert.Equal(t, model.BugIDLow, conf)

	id, conf = ParseBugID("(#4242) tweak padding")
	assert.Equal(t, 4242, id)
	assert.Equal(t, model.BugIDLow, conf)
}

func TestParseBugIDNone(t *testing.T) {
	t.Parallel()

	id, conf := ParseBugID("Merge branch 'main' into release")
	assert.Equal(t, 0, id)
	assert.Equal(t, model.BugIDNone, conf)

	// A number further down the line is not a bug reference.
	id, conf = ParseBugID("update to version 123456")
	assert.Equal(t, 0, id)
	assert.Equal(t, model.BugIDNone, conf)
}

func TestParseBugIDOnlyFirstLine(t *testing.T) {
	t.Parallel()

	id, conf := ParseBugID("cleanup\n\nFollowup to bug 999888")
	assert.Equal(t, 0, id)
	assert.Equal(t, model.BugIDNone, conf)
}
