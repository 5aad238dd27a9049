// Package detect holds the failure detectors: independent, stateless rules that
// recognise one kind of build failure in a normalized console log.
package detect

import (
	"regexp"

	"buildtriage/src/contracts"
	"buildtriage/src/taskctx"
)

// TaskContext answers questions about the Ansible task surrounding a log line.
// *taskctx.Locator implements it.
type TaskContext interface {
	Context(lines []string, from int, dir taskctx.Direction) string
	Ignored(lines []string, failLine int) bool
}

// Match is the result of a detector recognising a failure.
type Match struct {
	// Human-readable detail; sanitized and bounded when the failure is created.
	Detail string
	// Category of this particular match. Usually the detector's category.
	Category contracts.Category
}

// Detector recognises one kind of failure in a log. Implementations must not
// keep state between scans; the first match in the log wins.
type Detector interface {
	Name() string
	Description() string
	Category() contracts.Category
	Scan(lines []string, tc TaskContext) (Match, bool)
}

// lineFunc inspects line i and reports a match. Returning a zero category
// selects the detector's category.
type lineFunc func(lines []string, i int, tc TaskContext) (Match, bool)

// lineDetector runs a lineFunc over every line until the first match.
type lineDetector struct {
	name        string
	description string
	category    contracts.Category
	match       lineFunc
}

func newLineDetector(name, description string, category contracts.Category, match lineFunc) *lineDetector {
	return &lineDetector{
		name:        name,
		description: description,
		category:    category,
		match:       match,
	}
}

func (d *lineDetector) Name() string                 { return d.name }
func (d *lineDetector) Description() string          { return d.description }
func (d *lineDetector) Category() contracts.Category { return d.category }

func (d *lineDetector) Scan(lines []string, tc TaskContext) (Match, bool) {
	for i := range lines {
		m, ok := d.match(lines, i, tc)
		if !ok {
			continue
		}
		if m.Category == "" {
			m.Category = d.category
		}
		return m, true
	}
	return Match{}, false
}

// CategoryRule maps a keyword pattern to a category.
type CategoryRule struct {
	Pattern  *regexp.Regexp
	Category contracts.Category
}

// Categorize returns the category of the first rule matching text, or fallback.
func Categorize(rules []CategoryRule, text string, fallback contracts.Category) contracts.Category {
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			return r.Category
		}
	}
	return fallback
}

// Registry is the ordered, fixed set of log detectors run against every build.
type Registry struct {
	detectors []Detector
}

// NewRegistry creates a registry running detectors in the given order.
func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: detectors}
}

// Detectors returns the registered detectors in execution order.
func (r *Registry) Detectors() []Detector {
	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int {
	return len(r.detectors)
}

// DefaultRegistry returns every built-in log detector.
func DefaultRegistry() *Registry {
	return NewRegistry(
		AptFailure(),
		AptMirrorFailure(),
		PipFailure(),
		GitFailure(),
		SSHFailure(),
		AnsibleTaskFailure(),
		AnsibleSyntaxFailure(),
		JenkinsException(),
		BuildTimeoutFailure(),
		SlaveOfflineFailure(),
		DpkgLock(),
		ServiceUnavailableFailure(),
		TempestFailure(),
		ArtifactArchiveFailure(),
	)
}
