package contracts

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStageFromJobName(t *testing.T) {
	tests := []struct {
		job      string
		expected Stage
	}{
		{"PR_rpc-openstack-master-xenial_mnaio_no_artifacts-swift", StagePR},
		{"PM_rpc-openstack-master-xenial-aio", StagePM},
		{"Periodic-Cleanup", StageUnknown},
		{"PRE_something", StageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.job, func(t *testing.T) {
			if got := StageFromJobName(tt.job); got != tt.expected {
				t.Errorf("StageFromJobName(%q) = %q, expected %q", tt.job, got, tt.expected)
			}
		})
	}
}

func TestBuildID(t *testing.T) {
	if got := BuildID("PM_job", "42"); got != "PM_job_42" {
		t.Errorf("BuildID() = %q, expected %q", got, "PM_job_42")
	}
}

func TestBuildFailures(t *testing.T) {
	b := &Build{ID: "PM_job_1", Result: ResultFailure}
	if !b.Failed() {
		t.Error("expected FAILURE build to be failed")
	}
	b.AddFailure("f1")
	if !b.HasFailure("f1") || b.HasFailure("f2") {
		t.Errorf("HasFailure mismatch, failures = %v", b.Failures)
	}
}

func TestFailureDetailIsBounded(t *testing.T) {
	long := "\x1b[31m" + strings.Repeat("a", MaxDetailLength+500) + "\x1b[0m"
	f := NewFailure("id", "b_1", "AptFailure", "desc", CategoryRemoteDependency, long)

	if n := utf8.RuneCountInString(f.Detail()); n != MaxDetailLength {
		t.Errorf("detail length = %d, expected %d", n, MaxDetailLength)
	}
	if strings.ContainsRune(f.Detail(), '\x1b') {
		t.Error("detail still contains escape sequences")
	}
}

func TestFailureDetailDropsControlCharacters(t *testing.T) {
	f := NewFailure("id", "b_1", "AnsibleTaskFailure", "desc", CategoryLocalTask, "a\x07b\x00c\x1b]0;title\x07d\x08e")
	if got := f.Detail(); got != "abcde" {
		t.Errorf("Detail() = %q, expected %q", got, "abcde")
	}
}

func TestFailureJSONEnforcesDetailLimit(t *testing.T) {
	raw := `{"id":"f1","type":"X","category":"SSH","description":"d","detail":"` +
		strings.Repeat("z", 2*MaxDetailLength) + `","build_id":"b_1"}`

	var f Failure
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(f.Detail()) != MaxDetailLength {
		t.Errorf("detail length = %d, expected %d", len(f.Detail()), MaxDetailLength)
	}
	if f.BuildID != "b_1" || f.Category != CategorySSH {
		t.Errorf("unexpected failure: %+v", f)
	}

	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(out), `"build_id":"b_1"`) {
		t.Errorf("marshaled failure missing build_id: %s", out)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		if !c.Valid() {
			t.Errorf("%q should be valid", c)
		}
	}
	if Category("Network").Valid() {
		t.Error("unknown category reported valid")
	}
}
