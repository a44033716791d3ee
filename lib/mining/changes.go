package mining

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/relman/regminer/lib/linediff"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/utils"
)

type gitFileChange struct {
	Type    model.FileChangeType
	File    *object.File
	OldFile *object.File

	Modified int
	Added    int
	Deleted  int

	AddedRanges   []model.LineRange
	DeletedRanges []model.LineRange
}

func (c *gitFileChange) Total() int {
	return c.Modified + c.Added + c.Deleted
}

func computeChangesNoLines(commit *object.Commit, parent *object.Commit) ([]*gitFileChange, error) {
	commitTree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := parentTree.DiffContext(context.Background(), commitTree)
	if err != nil {
		return nil, err
	}

	var result []*gitFileChange
	for _, change := range changes {
		parentFile, commitFile, err := change.Files()
		if err != nil {
			return nil, err
		}

		if parentFile == nil && commitFile == nil {
			// Submodule change
			continue
		}

		// Names are wrong for unknown reason
		if parentFile != nil {
			parentFile.Name = change.From.Name
		}
		if commitFile != nil {
			commitFile.Name = change.To.Name
		}

		gitChange := gitFileChange{}

		if commitFile != nil && parentFile != nil && commitFile.Name != parentFile.Name {
			gitChange.Type = model.FileRenamed
		} else if commitFile != nil && parentFile != nil {
			gitChange.Type = model.FileModified
		} else if commitFile == nil {
			gitChange.Type = model.FileDeleted
		} else {
			gitChange.Type = model.FileCreated
		}

		if commitFile != nil {
			gitChange.File = commitFile
		} else {
			gitChange.File = parentFile
		}

		if parentFile != nil {
			gitChange.OldFile = parentFile
		} else {
			gitChange.OldFile = commitFile
		}

		result = append(result, &gitChange)
	}

	return result, nil
}

func computeChanges(commit *object.Commit, parent *object.Commit) ([]*gitFileChange, error) {
	result, err := computeChangesNoLines(commit, parent)
	if err != nil {
		return nil, err
	}

	for _, gitChange := range result {
		err = computeLinesChanged(gitChange)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func computeLinesChanged(gitChange *gitFileChange) error {
	commitContent, commitIsBinary, err := fileContent(gitChange.File)
	if err != nil {
		return err
	}

	var parentContent string
	var parentIsBinary bool

	if gitChange.OldFile.Hash == gitChange.File.Hash {
		parentContent = commitContent
		parentIsBinary = commitIsBinary
	} else {
		parentContent, parentIsBinary, err = fileContent(gitChange.OldFile)
		if err != nil {
			return err
		}
	}

	if commitIsBinary || parentIsBinary {
		gitChange.Modified = -1
		gitChange.Added = -1
		gitChange.Deleted = -1
		return nil
	}

	gitChange.Modified = 0
	gitChange.Added = 0
	gitChange.Deleted = 0

	commitLines := utils.CountLines(commitContent)
	parentLines := utils.CountLines(parentContent)

	if gitChange.Type == model.FileCreated || parentLines == 0 {
		gitChange.Added += commitLines
		if commitLines > 0 {
			gitChange.AddedRanges = []model.LineRange{{Start: 0, End: commitLines - 1}}
		}

	} else if gitChange.Type == model.FileDeleted || commitLines == 0 {
		gitChange.Deleted += parentLines
		if parentLines > 0 {
			gitChange.DeletedRanges = []model.LineRange{{Start: 0, End: parentLines - 1}}
		}

	} else {
		diffs := linediff.Do(parentContent, commitContent)

		gitChange.AddedRanges, gitChange.DeletedRanges = diffsToRanges(diffs)

		// Modified is defined as changes that happened without a line without change in the middle
		add := 0
		del := 0
		for _, line := range diffs {
			switch line.Type {
			case linediff.DiffInsert:
				add += line.Lines
			case linediff.DiffDelete:
				del += line.Lines
			default:
				m := utils.Min(add, del)
				gitChange.Modified += m
				gitChange.Added += add - m
				gitChange.Deleted += del - m

				add = 0
				del = 0
			}
		}

		m := utils.Min(add, del)
		gitChange.Modified += m
		gitChange.Added += add - m
		gitChange.Deleted += del - m
	}

	return nil
}

// diffsToRanges positions each hunk in its own revision: inserts in the
// commit file, deletes in the parent file. Both sides are 0-based inclusive.
func diffsToRanges(diffs []linediff.Diff) (added []model.LineRange, deleted []model.LineRange) {
	oldPos := 0
	newPos := 0

	for _, d := range diffs {
		switch d.Type {
		case linediff.DiffEqual:
			oldPos += d.Lines
			newPos += d.Lines

		case linediff.DiffInsert:
			added = append(added, model.LineRange{Start: newPos, End: newPos + d.Lines - 1})
			newPos += d.Lines

		case linediff.DiffDelete:
			deleted = append(deleted, model.LineRange{Start: oldPos, End: oldPos + d.Lines - 1})
			oldPos += d.Lines
		}
	}

	return
}

func fileContent(f *object.File) (string, bool, error) {
	if f == nil {
		return "", false, nil
	}

	isBinary, err := f.IsBinary()
	if err != nil {
		return "", false, err
	}

	if isBinary {
		return "", true, nil
	}

	content, err := f.Contents()
	if err != nil {
		return "", false, err
	}

	return content, isBinary, err
}
