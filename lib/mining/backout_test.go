package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBackoutsGitRevert(t *testing.T) {
	t.Parallel()

	msg := "Revert \"Add the new cache\"\n\nThis reverts commit 1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b.\n"
	assert.Equal(t, []string{"1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b"}, ParseBackouts(msg))
}

func TestParseBackoutsChangesets(t *testing.T) {
	t.Parallel()

	msg := "Backed out changeset deadbeef123 (bug 1234) for causing crashes"
	assert.Equal(t, []string{"deadbeef123"}, ParseBackouts(msg))

	msg = "Backed out changeset aaa111bbb222 and changeset ccc333ddd444"
	assert.Equal(t, []string{"aaa111bbb222", "ccc333ddd444"}, ParseBackouts(msg))
}

func TestParseBackoutsNotABackout(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ParseBackouts("Bug 1234 - Fix backing store invalidation"))
	assert.Nil(t, ParseBackouts("Add tests for the revert logic"))
}

func TestParseBackoutsNoHash(t *testing.T) {
	t.Parallel()

	// Clearly a backout, but there is nothing to link against.
	assert.Empty(t, ParseBackouts("Backed out previous commit for build failures"))
}
