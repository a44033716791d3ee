package model

// IgnoreList is the skip-set consumed by the blame walker: commit hashes
// classified as noise, each with the reason it was flagged.
type IgnoreList struct {
	reasons map[string]IgnoreReason
}

func NewIgnoreList() *IgnoreList {
	return &IgnoreList{
		reasons: map[string]IgnoreReason{},
	}
}

func (l *IgnoreList) Add(hash string, reason IgnoreReason) {
	l.reasons[hash] = reason
}

func (l *IgnoreList) Contains(hash string) bool {
	_, ok := l.reasons[hash]
	return ok
}

func (l *IgnoreList) Reason(hash string) IgnoreReason {
	return l.reasons[hash]
}

func (l *IgnoreList) Len() int {
	return len(l.reasons)
}
