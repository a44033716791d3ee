package blame

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/hashicorp/go-set/v2"
	"github.com/oleiade/lane/v2"

	"github.com/relman/regminer/lib/linediff"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/utils"
)

type origin struct {
	Outcome model.LineOutcome
	Hash    plumbing.Hash
}

type linesRange struct {
	Start         int
	End           int
	OriginalStart int
	OriginalEnd   int
}

func newLinesRange(start, end, offset int) linesRange {
	return linesRange{
		Start:         start,
		End:           end,
		OriginalStart: start + offset,
		OriginalEnd:   end + offset,
	}
}

func (r linesRange) offset() int {
	return r.OriginalStart - r.Start
}

type linesRangeWithSource struct {
	linesRange
	sources *set.Set[plumbing.Hash]
}

type blameItem struct {
	CommitHash plumbing.Hash
	File       string
	FileHash   plumbing.Hash
	Contents   string
	Ranges     []linesRange
	Depth      int
}

type parentItem struct {
	Hash     plumbing.Hash
	File     string
	FileHash plumbing.Hash
	Contents string
	Diff     []linediff.Diff
}

type mergedDiff struct {
	linediff.Diff
	sources *set.Set[plumbing.Hash]
}

// blameLines finds, for each seeded line of file at commitHash, the commit
// that last changed it, walking past ignore-listed commits. The returned map
// is keyed by the line number in the seeded revision.
func blameLines(cache BlameCache, ignore *model.IgnoreList, commitHash plumbing.Hash, file string, seeds []model.LineRange, maxDepth int) map[int]origin {
	result := map[int]origin{}

	var ranges []linesRange
	for _, s := range seeds {
		ranges = append(ranges, newLinesRange(s.Start, s.End, 0))
	}

	if len(ranges) == 0 {
		return result
	}

	fileHash, err := cache.GetFileHash(commitHash, file)
	if err != nil {
		fillOutcome(result, ranges, model.LineUnattributable)
		return result
	}

	contents, isBinary, err := cache.GetFileContent(file, fileHash)
	if err != nil || isBinary {
		fillOutcome(result, ranges, model.LineUnattributable)
		return result
	}

	queue := lane.NewQueue[*blameItem]()
	queue.Enqueue(&blameItem{
		CommitHash: commitHash,
		File:       file,
		FileHash:   fileHash,
		Contents:   contents,
		Ranges:     ranges,
	})

	for {
		item, ok := queue.Dequeue()
		if !ok {
			break
		}

		err := computeBlame(result, item, queue, cache, ignore, maxDepth)
		if err != nil {
			fillOutcome(result, item.Ranges, model.LineUnattributable)
		}
	}

	return result
}

func computeBlame(result map[int]origin, i *blameItem, queue *lane.Queue[*blameItem], cache BlameCache, ignore *model.IgnoreList, maxDepth int) error {
	if i.Depth > maxDepth {
		fillOutcome(result, i.Ranges, model.LineDepthExceeded)
		return nil
	}

	commit, err := cache.GetCommit(i.CommitHash)
	if err != nil {
		return err
	}

	commit, err = skipUntouched(commit, i.File, cache)
	if err != nil {
		return err
	}

	fileInfo, changedFile := commit.Changes[i.File]

	if !changedFile {
		// A merge that did not touch the file: follow the side it came from.
		for _, parent := range commit.Parents {
			parentFile := parent.FileName(i.File)

			if parent.FileHash(parentFile, i.FileHash) == i.FileHash {
				queue.Enqueue(&blameItem{
					CommitHash: parent.Hash,
					File:       parentFile,
					FileHash:   i.FileHash,
					Contents:   i.Contents,
					Ranges:     i.Ranges,
					Depth:      i.Depth,
				})
				return nil
			}
		}

		fillOutcome(result, i.Ranges, model.LineNoOrigin)
		return nil
	}

	parentsInfo, err := computeParentsInfo(i, commit, cache)
	if err != nil {
		return err
	}

	if fileInfo.Created || len(parentsInfo) == 0 {
		fillAttribution(result, i.Ranges, commit.Hash, ignore)
		return nil
	}

	merged := mergeParentChanges(parentsInfo)

	changed, notChanged := computeAffected(i.Ranges, merged)

	if len(changed) > 0 {
		if ignore.Contains(commit.Hash.String()) {
			// A noise commit rewrote these lines. Map them onto the lines
			// they replaced in the mainline parent and keep walking.
			mainline := parentsInfo[0]
			mapped, lost := mapThroughRewrite(changed, mainline.Diff)

			fillOutcome(result, lost, model.LineNoOrigin)

			if len(mapped) > 0 {
				queue.Enqueue(&blameItem{
					CommitHash: mainline.Hash,
					File:       mainline.File,
					FileHash:   mainline.FileHash,
					Contents:   mainline.Contents,
					Ranges:     mapped,
					Depth:      i.Depth + 1,
				})
			}
		} else {
			fillCandidate(result, changed, commit.Hash)
		}
	}

	if len(notChanged) > 0 {
		taken := make([]bool, len(notChanged))

		for _, parent := range parentsInfo {
			var rs []linesRange
			for j, r := range notChanged {
				if taken[j] || !r.sources.Contains(parent.Hash) {
					continue
				}
				taken[j] = true
				rs = append(rs, r.linesRange)
			}

			if len(rs) == 0 {
				continue
			}

			queue.Enqueue(&blameItem{
				CommitHash: parent.Hash,
				File:       parent.File,
				FileHash:   parent.FileHash,
				Contents:   parent.Contents,
				Ranges:     updateRanges(rs, parent.Diff),
				Depth:      i.Depth + 1,
			})
		}
	}

	return nil
}

func skipUntouched(commit *BlameCommitCache, file string, cache BlameCache) (*BlameCommitCache, error) {
	for len(commit.Parents) == 1 && !commit.Touched(file) {
		parent := commit.Parents[0]
		if _, renamed := parent.Renames[file]; renamed {
			break
		}

		next, err := cache.GetCommit(parent.Hash)
		if err != nil {
			return nil, err
		}

		commit = next
	}

	return commit, nil
}

func computeParentsInfo(i *blameItem, commit *BlameCommitCache, cache BlameCache) ([]*parentItem, error) {
	result := make([]*parentItem, 0, len(commit.Parents))

	for _, parent := range commit.Parents {
		fileName := parent.FileName(i.File)
		fileHash := parent.FileHash(fileName, i.FileHash)

		if fileHash == plumbing.ZeroHash {
			// The file does not exist on this side.
			continue
		}

		contents, isBinary, err := cache.GetFileContent(fileName, fileHash)
		if err != nil {
			return nil, err
		}
		if isBinary {
			continue
		}

		result = append(result, &parentItem{
			Hash:     parent.Hash,
			File:     fileName,
			FileHash: fileHash,
			Contents: contents,
			Diff:     linediff.Do(contents, i.Contents),
		})
	}

	return result, nil
}

// mergeParentChanges folds the per-parent diffs into one view of the child
// file: a line counts as inserted by this commit only when no parent has it,
// and equal runs remember which parents they came from.
func mergeParentChanges(parents []*parentItem) []*mergedDiff {
	lines := 0
	for _, d := range parents[0].Diff {
		if d.Type != linediff.DiffDelete {
			lines += d.Lines
		}
	}

	if lines == 0 {
		return nil
	}

	inserted := make([]bool, lines)
	for i := range inserted {
		inserted[i] = true
	}

	sources := make([]*set.Set[plumbing.Hash], lines)
	for i := range sources {
		sources[i] = set.New[plumbing.Hash](len(parents))
	}

	for _, parent := range parents {
		pos := 0
		for _, d := range parent.Diff {
			switch d.Type {
			case linediff.DiffEqual:
				for i := pos; i < pos+d.Lines; i++ {
					inserted[i] = false
					sources[i].Insert(parent.Hash)
				}
				pos += d.Lines

			case linediff.DiffInsert:
				pos += d.Lines
			}
		}
	}

	var result []*mergedDiff
	for i := 0; i < lines; i++ {
		last := len(result) - 1

		if last >= 0 &&
			(result[last].Type == linediff.DiffInsert) == inserted[i] &&
			result[last].sources.Equal(sources[i]) {
			result[last].Lines++
			continue
		}

		t := linediff.DiffEqual
		if inserted[i] {
			t = linediff.DiffInsert
		}

		result = append(result, &mergedDiff{
			Diff:    linediff.Diff{Type: t, Lines: 1},
			sources: sources[i],
		})
	}

	return result
}

// computeAffected splits ranges into the lines this commit inserted and the
// lines that already existed in some parent. Both sides keep their original
// line numbers.
func computeAffected(ranges []linesRange, merged []*mergedDiff) (changed []linesRange, notChanged []*linesRangeWithSource) {
	for _, r := range ranges {
		pos := 0

		for _, d := range merged {
			runStart := pos
			runEnd := pos + d.Lines - 1
			pos += d.Lines

			start := utils.Max(r.Start, runStart)
			end := utils.Min(r.End, runEnd)
			if start > end {
				continue
			}

			sub := newLinesRange(start, end, r.offset())

			if d.Type == linediff.DiffInsert {
				changed = append(changed, sub)
			} else {
				notChanged = append(notChanged, &linesRangeWithSource{
					linesRange: sub,
					sources:    d.sources,
				})
			}
		}
	}

	return
}

// updateRanges maps child line ranges onto the parent revision through the
// parent-to-child diff. Lines falling into inserted runs are dropped; a range
// spanning a deleted run splits.
func updateRanges(ranges []linesRange, diffs []linediff.Diff) []linesRange {
	var result []linesRange

	for _, r := range ranges {
		childPos := 0
		parentPos := 0

		for _, d := range diffs {
			switch d.Type {
			case linediff.DiffEqual:
				start := utils.Max(r.Start, childPos)
				end := utils.Min(r.End, childPos+d.Lines-1)

				if start <= end {
					delta := parentPos - childPos
					off := r.offset() - delta
					result = append(result, newLinesRange(start+delta, end+delta, off))
				}

				childPos += d.Lines
				parentPos += d.Lines

			case linediff.DiffInsert:
				childPos += d.Lines

			case linediff.DiffDelete:
				parentPos += d.Lines
			}
		}
	}

	return result
}

// mapThroughRewrite handles lines inserted by an ignored commit: each one is
// mapped onto the deleted run directly preceding its insert run, which is the
// text it replaced. Pure insertions with nothing before them are lost.
func mapThroughRewrite(changed []linesRange, diff []linediff.Diff) (mapped []linesRange, lost []linesRange) {
	for _, r := range changed {
		for line := r.Start; line <= r.End; line++ {
			orig := r.OriginalStart + (line - r.Start)

			parentLine, ok := rewriteSource(line, diff)
			if ok {
				mapped = append(mapped, linesRange{
					Start:         parentLine,
					End:           parentLine,
					OriginalStart: orig,
					OriginalEnd:   orig,
				})
			} else {
				lost = append(lost, linesRange{
					Start:         line,
					End:           line,
					OriginalStart: orig,
					OriginalEnd:   orig,
				})
			}
		}
	}

	return
}

func rewriteSource(line int, diff []linediff.Diff) (int, bool) {
	childPos := 0
	parentPos := 0

	prevDeleteStart := -1
	prevDeleteLines := 0

	for _, d := range diff {
		switch d.Type {
		case linediff.DiffEqual:
			childPos += d.Lines
			parentPos += d.Lines
			prevDeleteStart = -1
			prevDeleteLines = 0

		case linediff.DiffDelete:
			prevDeleteStart = parentPos
			prevDeleteLines = d.Lines
			parentPos += d.Lines

		case linediff.DiffInsert:
			if line >= childPos && line < childPos+d.Lines {
				if prevDeleteStart < 0 {
					return 0, false
				}

				k := utils.Min(line-childPos, prevDeleteLines-1)
				return prevDeleteStart + k, true
			}
			childPos += d.Lines
		}
	}

	return 0, false
}

func fillCandidate(result map[int]origin, rs []linesRange, hash plumbing.Hash) {
	for _, r := range rs {
		for line := r.OriginalStart; line <= r.OriginalEnd; line++ {
			if _, ok := result[line]; !ok {
				result[line] = origin{Outcome: model.LineCandidate, Hash: hash}
			}
		}
	}
}

func fillAttribution(result map[int]origin, rs []linesRange, hash plumbing.Hash, ignore *model.IgnoreList) {
	if ignore.Contains(hash.String()) {
		fillOutcome(result, rs, model.LineNoOrigin)
	} else {
		fillCandidate(result, rs, hash)
	}
}

func fillOutcome(result map[int]origin, rs []linesRange, outcome model.LineOutcome) {
	for _, r := range rs {
		for line := r.OriginalStart; line <= r.OriginalEnd; line++ {
			if _, ok := result[line]; !ok {
				result[line] = origin{Outcome: outcome}
			}
		}
	}
}
