package mining

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/relman/regminer/lib/model"
)

var (
	bugWordRE       = regexp.MustCompile(`(?i)\bbug[ \t:#]*(\d{3,8})\b`)
	leadingNumberRE = regexp.MustCompile(`^\s*\(?#?(\d{3,8})\)?\b`)
)

// ParseBugID extracts the bug number a commit message claims to fix. An
// explicit "Bug NNN" reference is trusted; a bare number at the start of the
// message is only a guess, since it can also be a PR or review id.
func ParseBugID(message string) (int, model.BugIDConfidence) {
	firstLine, _, _ := strings.Cut(message, "\n")

	if m := bugWordRE.FindStringSubmatch(firstLine); m != nil {
		id, err := strconv.Atoi(m[1])
		if err == nil {
			return id, model.BugIDHigh
		}
	}

	if m := leadingNumberRE.FindStringSubmatch(firstLine); m != nil {
		id, err := strconv.Atoi(m[1])
		if err == nil {
			return id, model.BugIDLow
		}
	}

	return 0, model.BugIDNone
}
