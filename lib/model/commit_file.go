package model

type FileChangeType int

const (
	FileChangeUnknown FileChangeType = iota
	FileNotChanged
	FileModified
	FileRenamed
	FileCreated
	FileDeleted
)

func (t FileChangeType) String() string {
	switch t {
	case FileChangeUnknown:
		return "unknown"
	case FileNotChanged:
		return "not changed"
	case FileModified:
		return "modified"
	case FileRenamed:
		return "renamed"
	case FileCreated:
		return "created"
	case FileDeleted:
		return "deleted"
	default:
		panic("unknown file change type")
	}
}

// LineRange is a 0-based inclusive range of lines.
type LineRange struct {
	Start int
	End   int
}

func (r LineRange) Lines() int {
	return r.End - r.Start + 1
}

// CommitFile is one file touched by a commit. Line counts are -1 when the
// file is binary on either side of the diff. DeletedRanges are positions in
// the first parent revision; AddedRanges are positions in the commit itself.
type CommitFile struct {
	Path string
	Hash string

	Change   FileChangeType
	Language string
	IsTest   bool
	IsBinary bool

	LinesModified int
	LinesAdded    int
	LinesDeleted  int

	AddedRanges   []LineRange
	DeletedRanges []LineRange

	// per parent commit ID, filled only when the file was renamed or changed
	OldPaths  map[ID]string
	OldHashes map[ID]string
}

func NewCommitFile(path string) *CommitFile {
	return &CommitFile{
		Path:          path,
		Change:        FileChangeUnknown,
		LinesModified: -1,
		LinesAdded:    -1,
		LinesDeleted:  -1,
		OldPaths:      map[ID]string{},
		OldHashes:     map[ID]string{},
	}
}
