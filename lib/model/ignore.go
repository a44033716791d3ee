package model

type IgnoreReason int

const (
	IgnoreReasonNone IgnoreReason = iota
	IgnoreWhitespaceOnly
	IgnoreFormattingTool
	IgnoreGeneratedFile
	IgnoreBulkRename
	IgnoreConventionMarker
	IgnoreBackoutTarget
	IgnoreBackout
)

func (r IgnoreReason) String() string {
	switch r {
	case IgnoreReasonNone:
		return ""
	case IgnoreWhitespaceOnly:
		return "whitespace-only"
	case IgnoreFormattingTool:
		return "formatting-tool"
	case IgnoreGeneratedFile:
		return "generated-file"
	case IgnoreBulkRename:
		return "bulk-rename"
	case IgnoreConventionMarker:
		return "convention-marker"
	case IgnoreBackoutTarget:
		return "backout-target"
	case IgnoreBackout:
		return "backout"
	default:
		panic("unknown ignore reason")
	}
}

// Classification is the result of the noise classifier: either
// Noise(reason) or Substantive.
type Classification struct {
	noise  bool
	reason IgnoreReason
}

func Noise(reason IgnoreReason) Classification {
	return Classification{noise: true, reason: reason}
}

func Substantive() Classification {
	return Classification{}
}

func (c Classification) IsNoise() bool {
	return c.noise
}

func (c Classification) Reason() IgnoreReason {
	return c.reason
}
