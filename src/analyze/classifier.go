// Package analyze runs the detector registry against one build and turns the
// matches into failure records.
package analyze

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"buildtriage/src/contracts"
	"buildtriage/src/detect"
	"buildtriage/src/junit"
	"buildtriage/src/logger"
)

const (
	// DefaultSlowDetector is the per-detector duration above which a warning is logged.
	DefaultSlowDetector = time.Second
	// DefaultSlowBuild is the per-build duration above which a warning is logged.
	DefaultSlowBuild = 5 * time.Second
)

// Observer receives classification measurements. *metrics.Recorder implements it.
type Observer interface {
	ObserveDetector(detector string, d time.Duration)
	ObserveBuild(d time.Duration)
	DetectorFault(detector string)
	FailureClassified(category contracts.Category)
}

type nopObserver struct{}

func (nopObserver) ObserveDetector(string, time.Duration) {}
func (nopObserver) ObserveBuild(time.Duration)            {}
func (nopObserver) DetectorFault(string)                  {}
func (nopObserver) FailureClassified(contracts.Category)  {}

// State is the progress of a build through classification.
type State int

const (
	StateUnscanned State = iota
	StateLogsScanned
	StateTestsScanned
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUnscanned:
		return "unscanned"
	case StateLogsScanned:
		return "logs-scanned"
	case StateTestsScanned:
		return "tests-scanned"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Report describes one classification run.
type Report struct {
	Failures []*contracts.Failure
	// Names of detectors that panicked.
	Faults  []string
	Elapsed time.Duration
	State   State
}

// Classifier attaches failures to builds. It holds no per-build state.
type Classifier struct {
	registry     *detect.Registry
	tasks        detect.TaskContext
	logger       logger.Logger
	clock        clock.Clock
	observer     Observer
	newID        func() string
	slowDetector time.Duration
	slowBuild    time.Duration
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock replaces the wall clock, e.g. with clock.NewMock() in tests.
func WithClock(c clock.Clock) Option {
	return func(cl *Classifier) { cl.clock = c }
}

// WithObserver records measurements, typically into a metrics.Recorder.
func WithObserver(o Observer) Option {
	return func(cl *Classifier) { cl.observer = o }
}

// WithIDGenerator replaces the UUID generator for failure ids.
func WithIDGenerator(f func() string) Option {
	return func(cl *Classifier) { cl.newID = f }
}

// WithThresholds sets the slow-detector and slow-build warning thresholds.
// Non-positive values keep the defaults.
func WithThresholds(slowDetector, slowBuild time.Duration) Option {
	return func(cl *Classifier) {
		if slowDetector > 0 {
			cl.slowDetector = slowDetector
		}
		if slowBuild > 0 {
			cl.slowBuild = slowBuild
		}
	}
}

// NewClassifier creates a classifier over a fixed registry and task locator.
func NewClassifier(registry *detect.Registry, tasks detect.TaskContext, log logger.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		registry:     registry,
		tasks:        tasks,
		logger:       log,
		clock:        clock.New(),
		observer:     nopObserver{},
		newID:        uuid.NewString,
		slowDetector: DefaultSlowDetector,
		slowBuild:    DefaultSlowBuild,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify scans the build's log lines with every detector and its failed test
// cases, appends the resulting failure ids to the build and returns the failures.
// A build that did not succeed always ends up with at least one failure: the
// Unknown Failure is added when nothing matched.
func (c *Classifier) Classify(b *contracts.Build, lines []string, cases []junit.Case) Report {
	start := c.clock.Now()
	report := Report{State: StateUnscanned}

	for _, d := range c.registry.Detectors() {
		m, ok, elapsed, fault := c.run(d, b, lines)
		c.observer.ObserveDetector(d.Name(), elapsed)
		if elapsed > c.slowDetector {
			c.logger.Warn("[Classifier] Slow detector: %s took %v on build %s", d.Name(), elapsed, b.ID)
		}
		if fault != nil {
			report.Faults = append(report.Faults, d.Name())
			c.observer.DetectorFault(d.Name())
			c.logger.Error("[Classifier] Detector %s failed on build %s: %v", d.Name(), b.ID, fault)
			continue
		}
		if ok {
			if m.Category == "" {
				m.Category = d.Category()
			}
			report.Failures = append(report.Failures, c.attach(b, d.Name(), d.Description(), m))
		}
	}
	report.State = StateLogsScanned

	if len(cases) > 0 {
		for _, m := range detect.ScanTestResults(cases) {
			report.Failures = append(report.Failures,
				c.attach(b, detect.JunitFailureName, detect.JunitFailureDescription, m))
		}
		report.State = StateTestsScanned
	}

	if len(report.Failures) == 0 && b.Failed() {
		report.Failures = append(report.Failures, c.attach(b,
			detect.UnknownFailureName, detect.UnknownFailureDescription, detect.Match{
				Detail:   detect.UnknownFailureDetail,
				Category: contracts.CategoryUncategorised,
			}))
	}
	report.State = StateFinalized

	report.Elapsed = c.clock.Now().Sub(start)
	c.observer.ObserveBuild(report.Elapsed)
	if report.Elapsed > c.slowBuild {
		c.logger.Warn("[Classifier] Slow build: %s took %v", b.ID, report.Elapsed)
	}
	c.logger.Debug("[Classifier] %s: %d failures (%s)", b.ID, len(report.Failures), report.State)

	return report
}

// run executes one detector, converting a panic into an error.
func (c *Classifier) run(d detect.Detector, b *contracts.Build, lines []string) (m detect.Match, ok bool, elapsed time.Duration, fault error) {
	start := c.clock.Now()
	defer func() {
		elapsed = c.clock.Now().Sub(start)
		if r := recover(); r != nil {
			m, ok = detect.Match{}, false
			fault = fmt.Errorf("panic: %v", r)
		}
	}()
	m, ok = d.Scan(lines, c.tasks)
	return m, ok, 0, nil
}

func (c *Classifier) attach(b *contracts.Build, typ, description string, m detect.Match) *contracts.Failure {
	category := m.Category
	if !category.Valid() {
		category = contracts.CategoryUncategorised
	}
	f := contracts.NewFailure(c.newID(), b.ID, typ, description, category, m.Detail)
	b.AddFailure(f.ID)
	c.observer.FailureClassified(f.Category)
	return f
}
