package model

// CommitFeatures holds the structural metrics extracted for one commit.
// Complexity fields are only meaningful when HasComplexity is true: an
// unsupported language is "unavailable", which is different from a zero delta.
type CommitFeatures struct {
	FilesModified int
	FilesCreated  int
	FilesDeleted  int

	LinesModified int
	LinesAdded    int
	LinesDeleted  int

	SourceFilesModified int
	TestFilesModified   int
	OtherFilesModified  int

	SourceAdded   int
	SourceDeleted int
	TestAdded     int
	TestDeleted   int
	OtherAdded    int
	OtherDeleted  int

	Languages []string

	CodeLines    int
	CommentLines int
	BlankLines   int

	ComplexityDelta int
	HasComplexity   bool

	Problems []string
}

func NewCommitFeatures() *CommitFeatures {
	return &CommitFeatures{
		FilesModified: -1,
		FilesCreated:  -1,
		FilesDeleted:  -1,
		LinesModified: -1,
		LinesAdded:    -1,
		LinesDeleted:  -1,
		CodeLines:     -1,
		CommentLines:  -1,
		BlankLines:    -1,
	}
}

func (f *CommitFeatures) AddProblem(msg string) {
	f.Problems = append(f.Problems, msg)
}
