package records

import (
	"encoding/json"
	"testing"

	"github.com/bloomberg/go-testgroup"
)

func TestStore(t *testing.T) {
	testgroup.RunInParallel(t, &StoreTests{})
}

type StoreTests struct {
}

type testRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (g *StoreTests) PutThenIterKeepsOrder(t *testgroup.T) {
	store, err := NewStore(t.T.TempDir())
	t.NoError(err)

	t.NoError(store.Put("commits", "a", testRecord{Name: "first", Count: 1}))
	t.NoError(store.Put("commits", "b", testRecord{Name: "second", Count: 2}))
	t.NoError(store.Put("commits", "c", testRecord{Name: "third", Count: 3}))

	var keys []string
	var counts []int
	err = store.Iter("commits", func(key string, data json.RawMessage) error {
		var r testRecord
		t.NoError(json.Unmarshal(data, &r))
		keys = append(keys, key)
		counts = append(counts, r.Count)
		return nil
	})
	t.NoError(err)

	t.Equal([]string{"a", "b", "c"}, keys)
	t.Equal([]int{1, 2, 3}, counts)
}

func (g *StoreTests) ExistsSeesAppendedKeys(t *testgroup.T) {
	store, err := NewStore(t.T.TempDir())
	t.NoError(err)

	ok, err := store.Exists("links", "x")
	t.NoError(err)
	t.False(ok)

	t.NoError(store.Put("links", "x", testRecord{Name: "x"}))

	ok, err = store.Exists("links", "x")
	t.NoError(err)
	t.True(ok)
}

func (g *StoreTests) ReopenedStoreReadsOldRecords(t *testgroup.T) {
	dir := t.T.TempDir()

	store, err := NewStore(dir)
	t.NoError(err)
	t.NoError(store.Put("ds", "k1", testRecord{Count: 7}))

	reopened, err := NewStore(dir)
	t.NoError(err)

	ok, err := reopened.Exists("ds", "k1")
	t.NoError(err)
	t.True(ok)

	count, err := reopened.Count("ds")
	t.NoError(err)
	t.Equal(1, count)
}

func (g *StoreTests) EmptyCollectionIterIsNoop(t *testgroup.T) {
	store, err := NewStore(t.T.TempDir())
	t.NoError(err)

	err = store.Iter("missing", func(key string, data json.RawMessage) error {
		t.FailNow("should not be called")
		return nil
	})
	t.NoError(err)
}
