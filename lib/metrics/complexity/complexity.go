package complexity

import (
	"strings"
	"unicode"
)

type languageRules struct {
	functions    []string
	conditionals []string
	loops        []string
	jumps        []string
	logicalOps   []string
	lineComment  string
	pythonisms   bool
}

var rulesByLanguage = map[string]*languageRules{
	"C": {
		functions:    nil,
		conditionals: []string{"if", "case", "catch"},
		loops:        []string{"for", "while"},
		jumps:        []string{"goto"},
		logicalOps:   []string{"&&", "||"},
		lineComment:  "//",
	},
	"Go": {
		functions:    []string{"func"},
		conditionals: []string{"if", "case", "select"},
		loops:        []string{"for"},
		jumps:        []string{"goto"},
		logicalOps:   []string{"&&", "||"},
		lineComment:  "//",
	},
	"Python": {
		functions:    []string{"def"},
		conditionals: []string{"if", "elif", "case", "except"},
		loops:        []string{"for", "while"},
		jumps:        nil,
		logicalOps:   []string{"and", "or"},
		lineComment:  "#",
		pythonisms:   true,
	},
	"Rust": {
		functions:    []string{"fn"},
		conditionals: []string{"if", "match"},
		loops:        []string{"for", "while", "loop"},
		jumps:        nil,
		logicalOps:   []string{"&&", "||"},
		lineComment:  "//",
	},
	"JavaScript": {
		functions:    []string{"function"},
		conditionals: []string{"if", "case", "catch"},
		loops:        []string{"for", "while"},
		jumps:        nil,
		logicalOps:   []string{"&&", "||"},
		lineComment:  "//",
	},
}

func init() {
	rulesByLanguage["C++"] = rulesByLanguage["C"]
	rulesByLanguage["C Header"] = rulesByLanguage["C"]
	rulesByLanguage["C++ Header"] = rulesByLanguage["C"]
	rulesByLanguage["Objective-C"] = rulesByLanguage["C"]
	rulesByLanguage["Objective-C++"] = rulesByLanguage["C"]
	rulesByLanguage["Java"] = rulesByLanguage["C"]
	rulesByLanguage["C#"] = rulesByLanguage["C"]
	rulesByLanguage["TypeScript"] = rulesByLanguage["JavaScript"]
	rulesByLanguage["JSX"] = rulesByLanguage["JavaScript"]
	rulesByLanguage["TSX"] = rulesByLanguage["JavaScript"]
}

func Supports(language string) bool {
	_, ok := rulesByLanguage[language]
	return ok
}

// Compute scans the file contents and returns its cyclomatic complexity. It
// tokenizes just enough to skip comments and string literals, then feeds
// branch keywords and logical operators into the accumulator. The second
// return is false for languages without rules.
func Compute(language string, contents string) (int, bool) {
	rules, ok := rulesByLanguage[language]
	if !ok {
		return 0, false
	}

	c := NewCyclomaticComplexity()

	conditionals := toSet(rules.conditionals)
	loops := toSet(rules.loops)
	jumps := toSet(rules.jumps)
	functions := toSet(rules.functions)
	wordOps := toSet(nil)
	for _, op := range rules.logicalOps {
		if isWord(op) {
			wordOps[op] = true
		}
	}

	for _, line := range strings.Split(contents, "\n") {
		code := stripLine(line, rules)

		ops := 0
		for _, op := range rules.logicalOps {
			if !isWord(op) {
				ops += strings.Count(code, op)
			}
		}
		c.OnLogicalOperators(ops)

		for _, word := range splitWords(code) {
			switch {
			case conditionals[word]:
				c.OnConditional()
			case loops[word]:
				c.OnLoop()
			case jumps[word]:
				c.OnJump()
			case functions[word]:
				c.OnEnterFunction()
			case wordOps[word]:
				c.OnLogicalOperators(1)
			}
		}
	}

	return c.Compute(), true
}

// stripLine drops string literals and the line-comment tail. Block comments
// spanning lines are not tracked, which overcounts slightly on commented-out
// code but keeps the scan single-pass per line.
func stripLine(line string, rules *languageRules) string {
	var sb strings.Builder

	inString := false
	var quote byte

	for i := 0; i < len(line); i++ {
		ch := line[i]

		if inString {
			if ch == '\\' {
				i++
			} else if ch == quote {
				inString = false
			}
			continue
		}

		if ch == '"' || ch == '\'' || ch == '`' {
			inString = true
			quote = ch
			continue
		}

		rest := line[i:]
		if rules.lineComment != "" && strings.HasPrefix(rest, rules.lineComment) {
			break
		}
		if !rules.pythonisms && strings.HasPrefix(rest, "/*") {
			if end := strings.Index(rest[2:], "*/"); end >= 0 {
				i += 2 + end + 1
				continue
			}
			break
		}

		sb.WriteByte(ch)
	}

	return sb.String()
}

func splitWords(code string) []string {
	return strings.FieldsFunc(code, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func isWord(op string) bool {
	for _, r := range op {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(op) > 0
}

func toSet(words []string) map[string]bool {
	result := make(map[string]bool, len(words))
	for _, w := range words {
		result[w] = true
	}
	return result
}
