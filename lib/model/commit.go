package model

import (
	"time"
)

type BugIDConfidence int

const (
	BugIDNone BugIDConfidence = iota
	BugIDLow
	BugIDHigh
)

func (c BugIDConfidence) String() string {
	switch c {
	case BugIDNone:
		return "none"
	case BugIDLow:
		return "low"
	case BugIDHigh:
		return "high"
	default:
		panic("unknown bug id confidence")
	}
}

// Commit is one mined revision. The fields up to Files are filled once by the
// history miner and never change afterwards. Features, Ignore and IgnoreReason
// are additive annotations written by later pipeline stages.
type Commit struct {
	ID       ID
	Hash     string
	Message  string
	Parents  []ID
	Children []ID

	Date           time.Time
	DateAuthored   time.Time
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommitterEmail string

	BugID           int
	BugIDConfidence BugIDConfidence
	IsMerge         bool
	BacksOut        string
	BackedOutBy     string

	Files map[string]*CommitFile

	Features *CommitFeatures

	Ignore       bool
	IgnoreReason IgnoreReason
}

func NewCommit(id ID, hash string) *Commit {
	return &Commit{
		ID:    id,
		Hash:  hash,
		Files: map[string]*CommitFile{},
	}
}

func (c *Commit) GetOrCreateFile(path string) *CommitFile {
	file, ok := c.Files[path]

	if !ok {
		file = NewCommitFile(path)
		c.Files[path] = file
	}

	return file
}

func (c *Commit) Touched(path string) bool {
	_, ok := c.Files[path]
	return ok
}

func (c *Commit) IsBackout() bool {
	return c.BacksOut != ""
}

func (c *Commit) WasBackedOut() bool {
	return c.BackedOutBy != ""
}
