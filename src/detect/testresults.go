package detect

import (
	"strings"

	"buildtriage/src/contracts"
	"buildtriage/src/junit"
)

// Names and texts of the failures that are not produced by log detectors.
const (
	JunitFailureName        = "JunitFailure"
	JunitFailureDescription = "Junit Failure"

	UnknownFailureName        = "UnknownFailure"
	UnknownFailureDescription = "No known failures matched"
	UnknownFailureDetail      = "No detail provided"
)

// ScanTestResults returns one match per failed, non-skipped test case. The detail
// is "<class>.<test>"; the category is sniffed from the names.
func ScanTestResults(cases []junit.Case) []Match {
	var matches []Match
	for _, c := range junit.Failures(cases) {
		matches = append(matches, Match{
			Detail:   c.QualifiedName(),
			Category: testCategory(c.ClassName, c.TestName),
		})
	}
	return matches
}

func testCategory(class, test string) contracts.Category {
	switch {
	case strings.Contains(test, "key"):
		return contracts.CategoryKeys
	case strings.Contains(test, "bootstrap") || strings.Contains(class, "bootstrap"):
		return contracts.CategoryBootstrap
	case strings.Contains(class, ".yml"):
		return contracts.CategoryLocalTask
	case strings.Contains(class, "tempest") || strings.Contains(test, "tempest"):
		return contracts.CategoryTempest
	default:
		return contracts.CategoryUncategorised
	}
}
