package mining

import (
	"strings"
)

var testPathMarkers = []string{
	"/test/",
	"/tests/",
	"/mochitest/",
	"/unit/",
	"/gtest/",
	"/gtests/",
	"/googletest/",
	"/jsapi-tests/",
	"/reftest/",
	"/reftests/",
	"/crashtest/",
	"/crashtests/",
}

var testSuffixes = []string{
	"_test.go",
	"_test.py",
	"_test.cc",
	"_test.cpp",
	"_test.rs",
	".test.js",
	".test.ts",
	".spec.js",
	".spec.ts",
	"Test.java",
	"Test.kt",
}

// IsTestFile classifies a path as test code from its position in the tree or
// its name. Paths use forward slashes as go-git reports them.
func IsTestFile(path string) bool {
	if strings.HasPrefix(path, "testing/") || strings.HasPrefix(path, "test/") || strings.HasPrefix(path, "tests/") {
		return true
	}

	for _, m := range testPathMarkers {
		if strings.Contains(path, m) {
			return true
		}
	}

	name := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		name = path[i+1:]
	}

	for _, s := range testSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}

	return strings.HasPrefix(name, "test_")
}
