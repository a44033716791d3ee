package model

import (
	"time"

	"github.com/samber/lo"
)

// Mirror is the local clone of one remote repository, plus the commits mined
// from it. Mining is always bounded by the cutoff revision so that reruns see
// the same history.
type Mirror struct {
	ID        ID
	Name      string
	RemoteURL string
	RootDir   string
	Branch    string

	CutoffRevision string
	CutoffHash     string

	LastSynced time.Time
	Stale      bool

	Data map[string]string

	commitsByHash map[string]*Commit
	commitsByID   map[ID]*Commit

	mirrors *Mirrors
}

func NewMirror(id ID, remoteURL string, mirrors *Mirrors) *Mirror {
	return &Mirror{
		ID:            id,
		RemoteURL:     remoteURL,
		Data:          map[string]string{},
		commitsByHash: map[string]*Commit{},
		commitsByID:   map[ID]*Commit{},
		mirrors:       mirrors,
	}
}

func (m *Mirror) GetOrCreateCommit(hash string) *Commit {
	return m.GetOrCreateCommitEx(hash, nil)
}

func (m *Mirror) GetOrCreateCommitEx(hash string, id *ID) *Commit {
	result, ok := m.commitsByHash[hash]

	if !ok {
		result = NewCommit(createID(&m.mirrors.commitMaxID, id), hash)
		m.commitsByHash[hash] = result
		m.commitsByID[result.ID] = result
	}

	return result
}

func (m *Mirror) GetCommit(hash string) *Commit {
	return m.commitsByHash[hash]
}

func (m *Mirror) GetCommitByID(id ID) *Commit {
	return m.commitsByID[id]
}

func (m *Mirror) ContainsCommit(hash string) bool {
	_, ok := m.commitsByHash[hash]
	return ok
}

func (m *Mirror) ListCommits() []*Commit {
	return lo.Values(m.commitsByHash)
}

func (m *Mirror) CountCommits() int {
	return len(m.commitsByHash)
}

type Mirrors struct {
	mirrorsByRemote map[string]*Mirror
	mirrorsByID     map[ID]*Mirror

	mirrorMaxID ID
	commitMaxID ID
}

func NewMirrors() *Mirrors {
	return &Mirrors{
		mirrorsByRemote: map[string]*Mirror{},
		mirrorsByID:     map[ID]*Mirror{},
	}
}

func (ms *Mirrors) GetOrCreate(remoteURL string) *Mirror {
	return ms.GetOrCreateEx(remoteURL, nil)
}

func (ms *Mirrors) GetOrCreateEx(remoteURL string, id *ID) *Mirror {
	result, ok := ms.mirrorsByRemote[remoteURL]

	if !ok {
		result = NewMirror(createID(&ms.mirrorMaxID, id), remoteURL, ms)
		ms.mirrorsByRemote[remoteURL] = result
		ms.mirrorsByID[result.ID] = result
	}

	return result
}

func (ms *Mirrors) Get(remoteURL string) *Mirror {
	return ms.mirrorsByRemote[remoteURL]
}

func (ms *Mirrors) GetByID(id ID) *Mirror {
	return ms.mirrorsByID[id]
}

func (ms *Mirrors) List() []*Mirror {
	return lo.Values(ms.mirrorsByRemote)
}
