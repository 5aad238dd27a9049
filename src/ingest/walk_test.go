package ingest

import (
	"path/filepath"
	"testing"
)

func TestDiscover(t *testing.T) {
	jobs := t.TempDir()
	writeFile(t, filepath.Join(jobs, "PM_a", "builds", "10", "build.xml"), "<build/>")
	writeFile(t, filepath.Join(jobs, "PM_a", "builds", "9", "build.xml"), "<build/>")
	writeFile(t, filepath.Join(jobs, "PM_a", "builds", "11", "log"), "no descriptor")
	writeFile(t, filepath.Join(jobs, "PM_a", "builds", "lastSuccessfulBuild", "build.xml"), "<build/>")
	writeFile(t, filepath.Join(jobs, "PR_b", "builds", "1", "build.xml"), "<build/>")
	writeFile(t, filepath.Join(jobs, "PR_c", "config.xml"), "<project/>")

	refs, skipped, err := Discover(jobs)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("Discover() skipped = %v, expected none", skipped)
	}

	expected := []string{"PM_a_9", "PM_a_10", "PR_b_1"}
	if len(refs) != len(expected) {
		t.Fatalf("Discover() returned %d builds, expected %d: %+v", len(refs), len(expected), refs)
	}
	for i, ref := range refs {
		if ref.ID() != expected[i] {
			t.Errorf("refs[%d].ID() = %q, expected %q", i, ref.ID(), expected[i])
		}
	}
	if refs[0].Dir != filepath.Join(jobs, "PM_a", "builds", "9") {
		t.Errorf("refs[0].Dir = %q", refs[0].Dir)
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	if _, _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Discover() expected error for missing directory")
	}
}

func TestDiscoverUnreadableJob(t *testing.T) {
	jobs := t.TempDir()
	writeFile(t, filepath.Join(jobs, "PM_bad", "builds"), "not a directory")
	writeFile(t, filepath.Join(jobs, "PM_good", "builds", "1", "build.xml"), "<build/>")

	refs, skipped, err := Discover(jobs)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(refs) != 1 || refs[0].ID() != "PM_good_1" {
		t.Errorf("Discover() refs = %+v, expected only PM_good_1", refs)
	}
	if len(skipped) != 1 || skipped[0].Job != "PM_bad" {
		t.Fatalf("Discover() skipped = %v, expected PM_bad", skipped)
	}
	if skipped[0].Unwrap() == nil {
		t.Error("JobError.Unwrap() = nil, expected the read error")
	}
}
