package model

type DatasetLabel int

const (
	LabelUnknown DatasetLabel = iota
	LabelRegressor
	LabelNotRegressor
)

func (l DatasetLabel) String() string {
	switch l {
	case LabelUnknown:
		return "unknown"
	case LabelRegressor:
		return "regressor"
	case LabelNotRegressor:
		return "not-regressor"
	default:
		panic("unknown dataset label")
	}
}

// DatasetRecord is one training unit. Links carries the provenance
// RegressionLink ids that produced the label; WeakLabel marks records coming
// from multi-candidate (tied) links.
type DatasetRecord struct {
	CommitHash string
	Label      DatasetLabel
	WeakLabel  bool
	Links      []UUID
}
