package blame

import (
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"v.io/x/lib/toposort"

	"github.com/relman/regminer/lib/caches"
	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/storages"
)

type BlameCache interface {
	GetCommit(hash plumbing.Hash) (*BlameCommitCache, error)
	GetFileContent(name string, hash plumbing.Hash) (string, bool, error)
	GetFileHash(commitHash plumbing.Hash, path string) (plumbing.Hash, error)
	CommitCount() int
}

type BlameCommitCache struct {
	Hash    plumbing.Hash
	Order   int
	Parents []*BlameParentCache
	Changes map[string]*BlameFileCache
}

func (c *BlameCommitCache) Touched(file string) bool {
	_, ok := c.Changes[file]
	return ok
}

type BlameFileCache struct {
	Hash    plumbing.Hash
	Created bool
}

// BlameParentCache describes how one parent revision sees the child's files.
// Parents keep commit order: the first one is the mainline.
type BlameParentCache struct {
	Hash       plumbing.Hash
	Renames    map[string]string
	FileHashes map[string]plumbing.Hash
}

func (c *BlameParentCache) FileName(childFileName string) string {
	result, ok := c.Renames[childFileName]
	if !ok {
		result = childFileName
	}
	return result
}

func (c *BlameParentCache) FileHash(parentFileName string, childHash plumbing.Hash) plumbing.Hash {
	result, ok := c.FileHashes[parentFileName]
	if !ok {
		result = childHash
	}
	return result
}

type blameCacheImpl struct {
	storage storages.Storage
	handle  *mirror.Handle
	commits *caches.Cache[plumbing.Hash, *BlameCommitCache]
	indexes map[model.ID]int
}

func NewBlameCache(storage storages.Storage, handle *mirror.Handle) BlameCache {
	graph := toposort.Sorter{}
	for _, c := range handle.Mirror.ListCommits() {
		graph.AddNode(c.Hash)
		for _, p := range c.Parents {
			graph.AddEdge(c.Hash, handle.Mirror.GetCommitByID(p).Hash)
		}
	}

	sorted, _ := graph.Sort()
	indexes := make(map[model.ID]int, len(sorted))
	for i, s := range sorted {
		indexes[handle.Mirror.GetCommit(s.(string)).ID] = i
	}

	return &blameCacheImpl{
		storage: storage,
		handle:  handle,
		commits: caches.NewCache[plumbing.Hash, *BlameCommitCache](),
		indexes: indexes,
	}
}

func (c *blameCacheImpl) CommitCount() int {
	return c.handle.Mirror.CountCommits()
}

func (c *blameCacheImpl) GetFileHash(commitHash plumbing.Hash, path string) (plumbing.Hash, error) {
	gitCommit, err := c.handle.GitRepo.CommitObject(commitHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	tree, err := object.GetTree(c.handle.GitRepo.Storer, gitCommit.TreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	e, err := tree.FindEntry(path)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return e.Hash, nil
}

func (c *blameCacheImpl) GetCommit(hash plumbing.Hash) (*BlameCommitCache, error) {
	return c.commits.Get(hash, func(hash plumbing.Hash) (*BlameCommitCache, error) {
		return c.loadCommit(hash)
	})
}

func (c *blameCacheImpl) loadCommit(hash plumbing.Hash) (*BlameCommitCache, error) {
	commit := c.handle.Mirror.GetCommit(hash.String())

	result := &BlameCommitCache{
		Hash:    hash,
		Changes: make(map[string]*BlameFileCache),
	}

	result.Order = c.indexes[commit.ID]

	if len(commit.Files) == 0 && commit.Features != nil {
		err := c.storage.LoadCommitFiles(c.handle.Mirror, commit)
		if err != nil {
			return nil, err
		}
	}

	parentsByID := make(map[model.ID]*BlameParentCache, len(commit.Parents))
	for _, parentID := range commit.Parents {
		parent := c.handle.Mirror.GetCommitByID(parentID)

		parentCache := &BlameParentCache{
			Hash:       plumbing.NewHash(parent.Hash),
			Renames:    make(map[string]string, len(commit.Files)),
			FileHashes: make(map[string]plumbing.Hash, len(commit.Files)),
		}

		result.Parents = append(result.Parents, parentCache)
		parentsByID[parentID] = parentCache
	}

	for filename, commitFile := range commit.Files {
		if commitFile.Change == model.FileNotChanged || commitFile.Change == model.FileChangeUnknown {
			continue
		}

		result.Changes[filename] = &BlameFileCache{
			Hash:    plumbing.NewHash(commitFile.Hash),
			Created: commitFile.Change == model.FileCreated,
		}

		for parentID, oldPath := range commitFile.OldPaths {
			parentsByID[parentID].Renames[filename] = oldPath
		}

		for parentID, oldFileHash := range commitFile.OldHashes {
			parentCache := parentsByID[parentID]
			parentFileName := parentCache.FileName(filename)

			if oldFileHash == "-" {
				parentCache.FileHashes[parentFileName] = plumbing.ZeroHash
			} else {
				parentCache.FileHashes[parentFileName] = plumbing.NewHash(oldFileHash)
			}
		}
	}

	return result, nil
}

func (c *blameCacheImpl) GetFileContent(name string, hash plumbing.Hash) (string, bool, error) {
	blob, err := object.GetBlob(c.handle.GitRepo.Storer, hash)
	if err != nil {
		return "", false, err
	}

	file := object.NewFile(name, filemode.Regular, blob)

	isBinary, err := file.IsBinary()
	if err != nil {
		return "", false, err
	}
	if isBinary {
		return "", true, nil
	}

	contents, err := file.Contents()
	if err != nil && err != io.EOF {
		return "", false, err
	}

	return contents, false, nil
}
