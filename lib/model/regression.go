package model

type LineOutcome int

const (
	LineCandidate LineOutcome = iota
	LineNoOrigin
	LineDepthExceeded
	LineUnattributable
)

func (o LineOutcome) String() string {
	switch o {
	case LineCandidate:
		return "candidate"
	case LineNoOrigin:
		return "no-origin"
	case LineDepthExceeded:
		return "depth-exceeded"
	case LineUnattributable:
		return "unattributable"
	default:
		panic("unknown line outcome")
	}
}

type RegressorCandidate struct {
	Hash       string
	Lines      int
	Confidence float64
}

// RegressionLink relates a fix commit to the commits that last touched the
// lines it fixed. Links are created once per walk; a rerun with a different
// mirror state or ignore list supersedes them instead of updating in place.
type RegressionLink struct {
	ID      UUID
	FixHash string
	BugID   int

	Candidates []*RegressorCandidate

	SeededLines     int
	AttributedLines int
	Outcomes        map[LineOutcome]int

	// set when the walk completed but produced no candidate; a link with
	// neither candidates nor this marker is a defect
	NoRegressorFound bool

	Skipped    bool
	SkipReason string
}

func NewRegressionLink(fixHash string, bugID int) *RegressionLink {
	return &RegressionLink{
		ID:       NewUUID("l"),
		FixHash:  fixHash,
		BugID:    bugID,
		Outcomes: map[LineOutcome]int{},
	}
}

func (l *RegressionLink) TopCandidates() []*RegressorCandidate {
	if len(l.Candidates) == 0 {
		return nil
	}

	max := 0
	for _, c := range l.Candidates {
		if c.Lines > max {
			max = c.Lines
		}
	}

	var result []*RegressorCandidate
	for _, c := range l.Candidates {
		if c.Lines == max {
			result = append(result, c)
		}
	}
	return result
}
