package mining

import (
	"regexp"
	"strings"
)

var (
	revertsCommitRE = regexp.MustCompile(`(?i)this reverts commit ([0-9a-f]{7,40})`)
	backoutHeadRE   = regexp.MustCompile(`(?i)^\s*(?:back(?:ed|ing|s)?[ \t-]?out|revert(?:ed|ing)?)\b`)
	hashRE          = regexp.MustCompile(`\b[0-9a-f]{7,40}\b`)
)

// ParseBackouts returns the (possibly abbreviated) hashes of the commits a
// message undoes, or nil when the commit is not a backout. Both the git
// "This reverts commit X." convention and the mozilla-style "Backed out
// changeset X" first line are recognized.
func ParseBackouts(message string) []string {
	if ms := revertsCommitRE.FindAllStringSubmatch(message, -1); ms != nil {
		result := make([]string, 0, len(ms))
		for _, m := range ms {
			result = append(result, strings.ToLower(m[1]))
		}
		return result
	}

	firstLine, _, _ := strings.Cut(message, "\n")
	if !backoutHeadRE.MatchString(firstLine) {
		return nil
	}

	var result []string
	for _, h := range hashRE.FindAllString(firstLine, -1) {
		result = append(result, strings.ToLower(h))
	}

	return result
}
