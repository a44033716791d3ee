package orm

import (
	"time"

	"github.com/samber/lo"

	"github.com/relman/regminer/lib/model"
)

type sqlTable interface {
	CacheKey() string
}

type sqlConfig struct {
	Key   string `gorm:"primaryKey"`
	Value string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *sqlConfig) CacheKey() string {
	return s.Key
}

type sqlMirror struct {
	ID        model.ID
	Name      string
	RemoteURL string `gorm:"uniqueIndex"`
	RootDir   string
	Branch    string

	CutoffRevision string
	CutoffHash     string

	LastSynced time.Time
	Stale      bool

	Data map[string]string `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Commits []sqlCommit `gorm:"foreignKey:MirrorID"`
}

func (s *sqlMirror) CacheKey() string {
	return s.ID.String()
}

type sqlCommit struct {
	ID       model.ID
	MirrorID model.ID `gorm:"index"`
	Hash     string   `gorm:"index"`
	Message  string
	Parents  []model.ID `gorm:"serializer:json"`
	Children []model.ID `gorm:"serializer:json"`

	Date           time.Time `gorm:"index"`
	DateAuthored   time.Time
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommitterEmail string

	BugID           int
	BugIDConfidence model.BugIDConfidence
	IsMerge         bool
	BacksOut        string
	BackedOutBy     string

	Ignore       bool
	IgnoreReason model.IgnoreReason

	Features *sqlCommitFeatures `gorm:"embedded;embeddedPrefix:feat_"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Files []sqlCommitFile `gorm:"foreignKey:CommitID"`
}

func (s *sqlCommit) CacheKey() string {
	return s.ID.String()
}

type sqlCommitFeatures struct {
	FilesModified *int
	FilesCreated  *int
	FilesDeleted  *int

	LinesModified *int
	LinesAdded    *int
	LinesDeleted  *int

	SourceFilesModified int
	TestFilesModified   int
	OtherFilesModified  int

	SourceAdded   int
	SourceDeleted int
	TestAdded     int
	TestDeleted   int
	OtherAdded    int
	OtherDeleted  int

	Languages []string `gorm:"serializer:json"`

	CodeLines    *int
	CommentLines *int
	BlankLines   *int

	ComplexityDelta int
	HasComplexity   bool

	Problems []string `gorm:"serializer:json"`
}

type sqlCommitFile struct {
	CommitID model.ID `gorm:"primaryKey"`
	Path     string   `gorm:"primaryKey"`
	Hash     string

	Change   model.FileChangeType
	Language string
	IsTest   bool
	IsBinary bool

	LinesModified *int
	LinesAdded    *int
	LinesDeleted  *int

	AddedRanges   string
	DeletedRanges string

	OldPaths  string
	OldHashes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *sqlCommitFile) CacheKey() string {
	return compositeKey(s.CommitID.String(), s.Path)
}

type sqlRegressionLink struct {
	ID      model.UUID
	FixHash string `gorm:"index"`
	BugID   int

	Candidates []*model.RegressorCandidate `gorm:"serializer:json"`

	SeededLines     int
	AttributedLines int
	Outcomes        map[model.LineOutcome]int `gorm:"serializer:json"`

	NoRegressorFound bool
	Skipped          bool
	SkipReason       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *sqlRegressionLink) CacheKey() string {
	return string(s.ID)
}

func newSqlMirror(m *model.Mirror) *sqlMirror {
	return &sqlMirror{
		ID:             m.ID,
		Name:           m.Name,
		RemoteURL:      m.RemoteURL,
		RootDir:        m.RootDir,
		Branch:         m.Branch,
		CutoffRevision: m.CutoffRevision,
		CutoffHash:     m.CutoffHash,
		LastSynced:     m.LastSynced,
		Stale:          m.Stale,
		Data:           encodeMap(m.Data),
	}
}

func newSqlCommit(mirror *model.Mirror, c *model.Commit) *sqlCommit {
	result := &sqlCommit{
		ID:              c.ID,
		MirrorID:        mirror.ID,
		Hash:            c.Hash,
		Message:         c.Message,
		Parents:         c.Parents,
		Children:        c.Children,
		Date:            c.Date,
		DateAuthored:    c.DateAuthored,
		AuthorName:      c.AuthorName,
		AuthorEmail:     c.AuthorEmail,
		CommitterName:   c.CommitterName,
		CommitterEmail:  c.CommitterEmail,
		BugID:           c.BugID,
		BugIDConfidence: c.BugIDConfidence,
		IsMerge:         c.IsMerge,
		BacksOut:        c.BacksOut,
		BackedOutBy:     c.BackedOutBy,
		Ignore:          c.Ignore,
		IgnoreReason:    c.IgnoreReason,
	}

	if c.Features != nil {
		result.Features = newSqlCommitFeatures(c.Features)
	}

	return result
}

func newSqlCommitFeatures(f *model.CommitFeatures) *sqlCommitFeatures {
	return &sqlCommitFeatures{
		FilesModified:       encodeMetric(f.FilesModified),
		FilesCreated:        encodeMetric(f.FilesCreated),
		FilesDeleted:        encodeMetric(f.FilesDeleted),
		LinesModified:       encodeMetric(f.LinesModified),
		LinesAdded:          encodeMetric(f.LinesAdded),
		LinesDeleted:        encodeMetric(f.LinesDeleted),
		SourceFilesModified: f.SourceFilesModified,
		TestFilesModified:   f.TestFilesModified,
		OtherFilesModified:  f.OtherFilesModified,
		SourceAdded:         f.SourceAdded,
		SourceDeleted:       f.SourceDeleted,
		TestAdded:           f.TestAdded,
		TestDeleted:         f.TestDeleted,
		OtherAdded:          f.OtherAdded,
		OtherDeleted:        f.OtherDeleted,
		Languages:           f.Languages,
		CodeLines:           encodeMetric(f.CodeLines),
		CommentLines:        encodeMetric(f.CommentLines),
		BlankLines:          encodeMetric(f.BlankLines),
		ComplexityDelta:     f.ComplexityDelta,
		HasComplexity:       f.HasComplexity,
		Problems:            f.Problems,
	}
}

func (s *sqlCommitFeatures) ToModel() *model.CommitFeatures {
	return &model.CommitFeatures{
		FilesModified:       decodeMetric(s.FilesModified),
		FilesCreated:        decodeMetric(s.FilesCreated),
		FilesDeleted:        decodeMetric(s.FilesDeleted),
		LinesModified:       decodeMetric(s.LinesModified),
		LinesAdded:          decodeMetric(s.LinesAdded),
		LinesDeleted:        decodeMetric(s.LinesDeleted),
		SourceFilesModified: s.SourceFilesModified,
		TestFilesModified:   s.TestFilesModified,
		OtherFilesModified:  s.OtherFilesModified,
		SourceAdded:         s.SourceAdded,
		SourceDeleted:       s.SourceDeleted,
		TestAdded:           s.TestAdded,
		TestDeleted:         s.TestDeleted,
		OtherAdded:          s.OtherAdded,
		OtherDeleted:        s.OtherDeleted,
		Languages:           s.Languages,
		CodeLines:           decodeMetric(s.CodeLines),
		CommentLines:        decodeMetric(s.CommentLines),
		BlankLines:          decodeMetric(s.BlankLines),
		ComplexityDelta:     s.ComplexityDelta,
		HasComplexity:       s.HasComplexity,
		Problems:            s.Problems,
	}
}

func newSqlCommitFile(c *model.Commit, f *model.CommitFile) *sqlCommitFile {
	return &sqlCommitFile{
		CommitID:      c.ID,
		Path:          f.Path,
		Hash:          f.Hash,
		Change:        f.Change,
		Language:      f.Language,
		IsTest:        f.IsTest,
		IsBinary:      f.IsBinary,
		LinesModified: encodeMetric(f.LinesModified),
		LinesAdded:    encodeMetric(f.LinesAdded),
		LinesDeleted:  encodeMetric(f.LinesDeleted),
		AddedRanges:   encodeRanges(f.AddedRanges),
		DeletedRanges: encodeRanges(f.DeletedRanges),
		OldPaths:      encodeIDMap(f.OldPaths),
		OldHashes:     encodeIDMap(f.OldHashes),
	}
}

func (s *sqlCommitFile) ToModel() *model.CommitFile {
	return &model.CommitFile{
		Path:          s.Path,
		Hash:          s.Hash,
		Change:        s.Change,
		Language:      s.Language,
		IsTest:        s.IsTest,
		IsBinary:      s.IsBinary,
		LinesModified: decodeMetric(s.LinesModified),
		LinesAdded:    decodeMetric(s.LinesAdded),
		LinesDeleted:  decodeMetric(s.LinesDeleted),
		AddedRanges:   decodeRanges(s.AddedRanges),
		DeletedRanges: decodeRanges(s.DeletedRanges),
		OldPaths:      decodeIDMap(s.OldPaths),
		OldHashes:     decodeIDMap(s.OldHashes),
	}
}

func newSqlRegressionLink(l *model.RegressionLink) *sqlRegressionLink {
	return &sqlRegressionLink{
		ID:               l.ID,
		FixHash:          l.FixHash,
		BugID:            l.BugID,
		Candidates:       l.Candidates,
		SeededLines:      l.SeededLines,
		AttributedLines:  l.AttributedLines,
		Outcomes:         encodeMap(l.Outcomes),
		NoRegressorFound: l.NoRegressorFound,
		Skipped:          l.Skipped,
		SkipReason:       l.SkipReason,
	}
}

func (s *sqlRegressionLink) ToModel() *model.RegressionLink {
	result := &model.RegressionLink{
		ID:               s.ID,
		FixHash:          s.FixHash,
		BugID:            s.BugID,
		Candidates:       s.Candidates,
		SeededLines:      s.SeededLines,
		AttributedLines:  s.AttributedLines,
		Outcomes:         decodeMap(s.Outcomes),
		NoRegressorFound: s.NoRegressorFound,
		Skipped:          s.Skipped,
		SkipReason:       s.SkipReason,
	}

	if result.Outcomes == nil {
		result.Outcomes = map[model.LineOutcome]int{}
	}

	return result
}

func createCache[T sqlTable](rows []T) map[string]T {
	return lo.Associate(rows, func(i T) (string, T) {
		return i.CacheKey(), i
	})
}
