package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/model"
)

func TestRetryStopsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	p := &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
	}

	calls := 0
	err := p.Run(context.Background(), consoles.NewStdOutConsole(), "fetch", func() error {
		calls++
		return errors.New("remote hung up")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryReturnsFirstSuccess(t *testing.T) {
	t.Parallel()

	p := &RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
	}

	calls := 0
	err := p.Run(context.Background(), consoles.NewStdOutConsole(), "fetch", func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	t.Parallel()

	p := &RetryPolicy{
		MaxAttempts:  10,
		InitialDelay: time.Hour,
		Multiplier:   2,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := p.Run(ctx, consoles.NewStdOutConsole(), "clone", func() error {
		calls++
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryDelayIsBounded(t *testing.T) {
	t.Parallel()

	p := &RetryPolicy{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
		Multiplier:   1000,
		MaxDelay:     5 * time.Millisecond,
	}

	start := time.Now()
	_ = p.Run(context.Background(), consoles.NewStdOutConsole(), "fetch", func() error {
		return errors.New("transient")
	})

	assert.Less(t, time.Since(start), time.Second)
}

func TestSortedCommitsParentsFirst(t *testing.T) {
	t.Parallel()

	mirrors := model.NewMirrors()
	m := mirrors.GetOrCreate("https://example.com/repo.git")

	parent := m.GetOrCreateCommit("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	child := m.GetOrCreateCommit("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	child.Parents = []model.ID{parent.ID}
	parent.Children = []model.ID{child.ID}

	// Rebase-style skew: the child carries an earlier committer date.
	child.Date = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	parent.Date = child.Date.Add(time.Hour)

	h := &Handle{Mirror: m}
	sorted := h.SortedCommits(nil)

	assert.Equal(t, []string{parent.Hash, child.Hash},
		[]string{sorted[0].Hash, sorted[1].Hash})
}

func TestNameFromRemote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gecko-dev", nameFromRemote("https://github.com/mozilla/gecko-dev.git"))
	assert.Equal(t, "gecko-dev", nameFromRemote("https://github.com/mozilla/gecko-dev"))
	assert.Equal(t, "repo", nameFromRemote("git@example.com:repo.git"))
	assert.Equal(t, "local", nameFromRemote("/srv/git/local/"))
}
