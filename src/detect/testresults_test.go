package detect

import (
	"testing"

	"buildtriage/src/contracts"
	"buildtriage/src/junit"
)

func TestScanTestResults(t *testing.T) {
	cases := []junit.Case{
		{ClassName: "tests.test_bootstrap", TestName: "test_host_prepared", State: junit.StateFailed},
		{ClassName: "tests.misc", TestName: "test_keystone_key_rotation", State: junit.StateFailed},
		{ClassName: "playbooks/setup.yml", TestName: "Install", State: junit.StateFailed},
		{ClassName: "tempest.api.compute", TestName: "test_boot", State: junit.StateFailed},
		{ClassName: "tests.other", TestName: "test_misc", State: junit.StateFailed},
		{ClassName: "tests.other", TestName: "test_passed", State: junit.StatePassed},
		{ClassName: "tests.other", TestName: "test_skipped", State: junit.StateSkipped},
	}

	expected := []Match{
		{Detail: "tests.test_bootstrap.test_host_prepared", Category: contracts.CategoryBootstrap},
		{Detail: "tests.misc.test_keystone_key_rotation", Category: contracts.CategoryKeys},
		{Detail: "playbooks/setup.yml.Install", Category: contracts.CategoryLocalTask},
		{Detail: "tempest.api.compute.test_boot", Category: contracts.CategoryTempest},
		{Detail: "tests.other.test_misc", Category: contracts.CategoryUncategorised},
	}

	got := ScanTestResults(cases)
	if len(got) != len(expected) {
		t.Fatalf("ScanTestResults() returned %d matches, expected %d: %+v", len(got), len(expected), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("match %d = %+v, expected %+v", i, got[i], expected[i])
		}
	}
}

func TestScanTestResultsNone(t *testing.T) {
	if got := ScanTestResults(nil); len(got) != 0 {
		t.Errorf("ScanTestResults(nil) = %+v, expected none", got)
	}
}
