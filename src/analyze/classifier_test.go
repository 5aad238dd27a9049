package analyze

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"buildtriage/src/contracts"
	"buildtriage/src/detect"
	"buildtriage/src/junit"
	"buildtriage/src/logger"
	"buildtriage/src/taskctx"
)

type fakeDetector struct {
	name string
	scan func(lines []string) (detect.Match, bool)
}

func (f *fakeDetector) Name() string                 { return f.name }
func (f *fakeDetector) Description() string          { return f.name + " description" }
func (f *fakeDetector) Category() contracts.Category { return contracts.CategoryInfra }
func (f *fakeDetector) Scan(lines []string, _ detect.TaskContext) (detect.Match, bool) {
	return f.scan(lines)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("failure-%d", n)
	}
}

func newBuild(result contracts.Result) *contracts.Build {
	return &contracts.Build{
		ID:       "PM_job_1",
		JobName:  "PM_job",
		BuildNum: "1",
		Result:   result,
		Stage:    contracts.StagePM,
	}
}

func newTestClassifier(opts ...Option) *Classifier {
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	return NewClassifier(detect.DefaultRegistry(), taskctx.NewLocator(nil), logger.NewSilentLogger(), opts...)
}

func TestClassifyAptFetch(t *testing.T) {
	b := newBuild(contracts.ResultFailure)
	lines := []string{
		"TASK [Install packages]",
		"E: Failed to fetch http://mirror.example/ubuntu/pool/main/a/apt/apt_1.2.deb",
	}

	report := newTestClassifier().Classify(b, lines, nil)

	if len(report.Failures) != 1 {
		t.Fatalf("got %d failures, expected 1: %+v", len(report.Failures), report.Failures)
	}
	f := report.Failures[0]
	if f.Type != "AptFailure" || f.Category != contracts.CategoryRemoteDependency {
		t.Errorf("failure = %s/%s, expected AptFailure/Remote Dependency", f.Type, f.Category)
	}
	if !strings.Contains(f.Detail(), "http://mirror.example/ubuntu/pool/main/a/apt/apt_1.2.deb") {
		t.Errorf("detail %q does not contain the URL", f.Detail())
	}
	if f.BuildID != b.ID {
		t.Errorf("BuildID = %q, expected %q", f.BuildID, b.ID)
	}
	if len(b.Failures) != 1 || b.Failures[0] != f.ID {
		t.Errorf("build failures = %v, expected [%s]", b.Failures, f.ID)
	}
	if report.State != StateFinalized {
		t.Errorf("State = %s, expected finalized", report.State)
	}
}

func TestClassifyUnknownFallback(t *testing.T) {
	for _, result := range []contracts.Result{contracts.ResultFailure, contracts.ResultAborted, contracts.ResultUnstable} {
		t.Run(string(result), func(t *testing.T) {
			b := newBuild(result)
			report := newTestClassifier().Classify(b, []string{"nothing interesting", "here"}, nil)

			if len(report.Failures) != 1 {
				t.Fatalf("got %d failures, expected 1", len(report.Failures))
			}
			f := report.Failures[0]
			if f.Type != detect.UnknownFailureName {
				t.Errorf("Type = %q, expected %q", f.Type, detect.UnknownFailureName)
			}
			if f.Category != contracts.CategoryUncategorised {
				t.Errorf("Category = %q, expected Uncategorised", f.Category)
			}
			if f.Description != "No known failures matched" || f.Detail() != "No detail provided" {
				t.Errorf("unexpected fallback %q / %q", f.Description, f.Detail())
			}
		})
	}
}

func TestClassifySuccessWithoutMatches(t *testing.T) {
	b := newBuild(contracts.ResultSuccess)
	report := newTestClassifier().Classify(b, []string{"all good"}, nil)
	if len(report.Failures) != 0 || len(b.Failures) != 0 {
		t.Errorf("successful build got failures: %+v", report.Failures)
	}
}

func TestClassifySuccessIsStillScanned(t *testing.T) {
	b := newBuild(contracts.ResultSuccess)
	report := newTestClassifier().Classify(b, []string{"hudson.remoting.RequestAbortedException: closed"}, nil)
	if len(report.Failures) != 1 || report.Failures[0].Type != "JenkinsException" {
		t.Errorf("expected JenkinsException on successful build, got %+v", report.Failures)
	}
}

func TestClassifyIgnoredTaskFailure(t *testing.T) {
	b := newBuild(contracts.ResultSuccess)
	lines := []string{
		"PLAY [Setup]",
		"TASK [Optional]",
		"fatal: [aio1]: FAILED! => {\"msg\": \"nope\"}",
		"...ignoring",
		"TASK [Next]",
		"ok: [aio1]",
	}
	report := newTestClassifier().Classify(b, lines, nil)
	for _, f := range report.Failures {
		if f.Type == "AnsibleTaskFailure" {
			t.Errorf("ignored task failure was reported: %+v", f)
		}
	}
}

func TestClassifyTestResults(t *testing.T) {
	b := newBuild(contracts.ResultUnstable)
	cases := []junit.Case{
		{ClassName: "tests.test_bootstrap", TestName: "test_aio", State: junit.StateFailed},
		{ClassName: "tests.test_bootstrap", TestName: "test_ok", State: junit.StatePassed},
	}

	report := newTestClassifier().Classify(b, nil, cases)

	if len(report.Failures) != 1 {
		t.Fatalf("got %d failures, expected 1", len(report.Failures))
	}
	f := report.Failures[0]
	if f.Type != detect.JunitFailureName || f.Description != "Junit Failure" {
		t.Errorf("failure = %s %q", f.Type, f.Description)
	}
	if f.Category != contracts.CategoryBootstrap {
		t.Errorf("Category = %q, expected Bootstrap", f.Category)
	}
	if f.Detail() != "tests.test_bootstrap.test_aio" {
		t.Errorf("Detail = %q", f.Detail())
	}
	if report.State != StateFinalized {
		t.Errorf("State = %s", report.State)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	lines := []string{
		"PLAY [Deploy]",
		"TASK [haproxy | Install apt packages]",
		"fatal: [aio1]: FAILED! => {}",
		"ERROR: Service Unavailable (HTTP 503)",
	}
	type key struct {
		category    contracts.Category
		detail      string
		description string
	}
	collect := func() []key {
		b := newBuild(contracts.ResultFailure)
		var keys []key
		for _, f := range newTestClassifier().Classify(b, lines, nil).Failures {
			keys = append(keys, key{f.Category, f.Detail(), f.Description})
		}
		return keys
	}

	first, second := collect(), collect()
	if len(first) != 2 {
		t.Fatalf("expected 2 failures, got %+v", first)
	}
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("classification not idempotent:\n%v\n%v", first, second)
	}
}

func TestClassifyRecoversDetectorPanic(t *testing.T) {
	base, hook := test.NewNullLogger()
	rec := &recordingObserver{}
	registry := detect.NewRegistry(
		&fakeDetector{name: "Exploding", scan: func([]string) (detect.Match, bool) {
			panic("index out of range")
		}},
		&fakeDetector{name: "Working", scan: func([]string) (detect.Match, bool) {
			return detect.Match{Detail: "found it"}, true
		}},
	)
	c := NewClassifier(registry, taskctx.NewLocator(nil), logger.NewLogrusLogger(base),
		WithIDGenerator(sequentialIDs()), WithObserver(rec))

	report := c.Classify(newBuild(contracts.ResultFailure), []string{"x"}, nil)

	if len(report.Faults) != 1 || report.Faults[0] != "Exploding" {
		t.Errorf("Faults = %v, expected [Exploding]", report.Faults)
	}
	if len(report.Failures) != 1 || report.Failures[0].Type != "Working" {
		t.Errorf("Failures = %+v, expected the Working detector's match", report.Failures)
	}
	if report.Failures[0].Category != contracts.CategoryInfra {
		t.Errorf("Category = %q, expected the detector category", report.Failures[0].Category)
	}
	if rec.faults != 1 {
		t.Errorf("observer faults = %d, expected 1", rec.faults)
	}

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && strings.Contains(e.Message, "Exploding") && strings.Contains(e.Message, "PM_job_1") {
			logged = true
		}
	}
	if !logged {
		t.Error("detector panic was not logged with detector and build")
	}
}

func TestClassifySlowWarnings(t *testing.T) {
	mock := clock.NewMock()
	base, hook := test.NewNullLogger()
	registry := detect.NewRegistry(
		&fakeDetector{name: "Sluggish", scan: func([]string) (detect.Match, bool) {
			mock.Add(3 * time.Second)
			return detect.Match{}, false
		}},
		&fakeDetector{name: "AlsoSluggish", scan: func([]string) (detect.Match, bool) {
			mock.Add(3 * time.Second)
			return detect.Match{}, false
		}},
		&fakeDetector{name: "Quick", scan: func([]string) (detect.Match, bool) {
			return detect.Match{}, false
		}},
	)
	rec := &recordingObserver{}
	c := NewClassifier(registry, taskctx.NewLocator(nil), logger.NewLogrusLogger(base),
		WithClock(mock), WithObserver(rec), WithIDGenerator(sequentialIDs()))

	report := c.Classify(newBuild(contracts.ResultSuccess), nil, nil)

	if report.Elapsed != 6*time.Second {
		t.Errorf("Elapsed = %v, expected 6s", report.Elapsed)
	}

	var slowDetectors, slowBuilds int
	for _, e := range hook.AllEntries() {
		if e.Level != logrus.WarnLevel {
			continue
		}
		switch {
		case strings.Contains(e.Message, "Slow detector"):
			slowDetectors++
			if strings.Contains(e.Message, "Quick") {
				t.Errorf("fast detector reported slow: %s", e.Message)
			}
		case strings.Contains(e.Message, "Slow build"):
			slowBuilds++
		}
	}
	if slowDetectors != 2 {
		t.Errorf("slow detector warnings = %d, expected 2", slowDetectors)
	}
	if slowBuilds != 1 {
		t.Errorf("slow build warnings = %d, expected 1", slowBuilds)
	}
	if rec.detectors["Sluggish"] != 3*time.Second || rec.builds != 1 {
		t.Errorf("observer = %+v", rec)
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	mock := clock.NewMock()
	base, hook := test.NewNullLogger()
	registry := detect.NewRegistry(&fakeDetector{name: "Medium", scan: func([]string) (detect.Match, bool) {
		mock.Add(500 * time.Millisecond)
		return detect.Match{}, false
	}})
	c := NewClassifier(registry, taskctx.NewLocator(nil), logger.NewLogrusLogger(base),
		WithClock(mock), WithThresholds(100*time.Millisecond, 200*time.Millisecond))

	c.Classify(newBuild(contracts.ResultSuccess), nil, nil)

	if n := len(hook.AllEntries()); n != 2 {
		t.Errorf("got %d warnings, expected slow detector and slow build", n)
	}
}

type recordingObserver struct {
	detectors map[string]time.Duration
	builds    int
	faults    int
	failures  int
}

func (r *recordingObserver) ObserveDetector(name string, d time.Duration) {
	if r.detectors == nil {
		r.detectors = make(map[string]time.Duration)
	}
	r.detectors[name] += d
}
func (r *recordingObserver) ObserveBuild(time.Duration)           { r.builds++ }
func (r *recordingObserver) DetectorFault(string)                 { r.faults++ }
func (r *recordingObserver) FailureClassified(contracts.Category) { r.failures++ }
