// Package jenkins reads Jenkins build descriptors (build.xml) into build records.
package jenkins

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"buildtriage/src/contracts"
	"buildtriage/src/ingest"
)

// DescriptorFile is the name of the build descriptor inside a build directory.
const DescriptorFile = "build.xml"

var (
	// ErrMissingResult is returned for descriptors without a <result>, e.g. builds still running.
	ErrMissingResult = errors.New("build descriptor has no result")
	// ErrMissingStartTime is returned when <startTime> is absent or not a number.
	ErrMissingStartTime = errors.New("build descriptor has no valid start time")
)

// Element names written by Jenkins and its plugins.
const (
	tagUpstreamCause = "hudson.model.Cause_-UpstreamCause"
	tagPRCause       = "org.jenkinsci.plugins.ghprb.GhprbCause"
	tagTimerCause    = "hudson.triggers.TimerTrigger_-TimerTriggerCause"
	tagUserCause     = "hudson.model.Cause_-UserIdCause"
	tagPushCause     = "com.cloudbees.jenkins.GitHubPushCause"
	tagStringParam   = "hudson.model.StringParameterValue"
)

var repoPattern = regexp.MustCompile(`^(?:https?://github\.(?:rackspace\.)?com/)?([^/\s]+)/([^/\s]+?)(?:\.git)?/?$`)

// Parser converts build.xml documents to build records.
type Parser struct {
	baseURL string
}

// NewParser creates a parser that renders links relative to the Jenkins base URL.
func NewParser(baseURL string) *Parser {
	return &Parser{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// ParseFile reads <buildDir>/build.xml, or build.xml.gz when only the compressed
// copy was archived.
func (p *Parser) ParseFile(buildDir, jobName, buildNum string) (*contracts.Build, error) {
	data, err := ingest.ReadFile(filepath.Join(buildDir, DescriptorFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return p.Parse(data, jobName, buildNum)
}

// Parse builds a record from a build.xml document. Stage and OS are derived from
// the job name; branch and repository come from the build parameters of post-merge
// jobs and from the pull request cause of pre-merge jobs.
func (p *Parser) Parse(data []byte, jobName, buildNum string) (*contracts.Build, error) {
	root, err := parseTree(data)
	if err != nil {
		return nil, err
	}

	result := root.child("result").text()
	if result == "" {
		return nil, ErrMissingResult
	}

	startMillis, err := strconv.ParseInt(root.child("startTime").text(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingStartTime, err)
	}

	b := &contracts.Build{
		ID:        contracts.BuildID(jobName, buildNum),
		JobName:   jobName,
		BuildNum:  buildNum,
		Result:    contracts.Result(result),
		Timestamp: time.UnixMilli(startMillis).UTC(),
		Stage:     contracts.StageFromJobName(jobName),
		OS:        osFromJobName(jobName),
		Failures:  []string{},
	}

	rawBranch := p.stageValue(root, b.Stage, "BRANCH", "targetBranch")
	b.Branch = normalizeBranch(rawBranch)
	b.Repo = repoName(p.stageValue(root, b.Stage, "REPO_URL", "repoName"))
	b.Trigger, b.BuildHierarchy = p.hierarchy(root, jobName, buildNum)

	return b, nil
}

// stageValue reads a string build parameter for PM jobs or a pull request cause
// field for PR jobs. Jobs without a known stage try both.
func (p *Parser) stageValue(root *node, stage contracts.Stage, param, prField string) string {
	fromParam := func() string { return stringParameter(root, param) }
	fromPR := func() string { return root.findNamed(tagPRCause).child(prField).text() }

	switch stage {
	case contracts.StagePM:
		return fromParam()
	case contracts.StagePR:
		return fromPR()
	}
	if v := fromParam(); v != "" {
		return v
	}
	return fromPR()
}

func stringParameter(root *node, name string) string {
	param := root.find(func(n *node) bool {
		return n.name() == tagStringParam && n.child("name").text() == name
	})
	return param.child("value").text()
}

// hierarchy walks the cause chain from the cause of this build to the root cause.
// The returned list starts at the root and ends with the build itself.
func (p *Parser) hierarchy(root *node, jobName, buildNum string) (contracts.Trigger, []contracts.Cause) {
	trigger := contracts.TriggerPeriodic
	var causes []contracts.Cause

	container := root.find(func(n *node) bool {
		return n.name() == "causes" || n.name() == "causeBag"
	})
	if container != nil && container.name() == "causeBag" {
		container = container.child("entry")
	}
	cause := container.first()

	for cause != nil {
		c, kind := p.cause(cause)
		if kind != "" {
			trigger = kind
		}
		causes = append(causes, c)
		cause = cause.child("upstreamCauses").first()
	}

	for i, j := 0, len(causes)-1; i < j; i, j = i+1, j-1 {
		causes[i], causes[j] = causes[j], causes[i]
	}

	causes = append(causes, contracts.Cause{
		Name:     jobName,
		BuildNum: buildNum,
		URL:      fmt.Sprintf("%s/job/%s/%s", p.baseURL, jobName, buildNum),
	})
	return trigger, causes
}

// cause converts one cause element. The returned trigger kind is empty when the
// cause does not determine it.
func (p *Parser) cause(n *node) (contracts.Cause, contracts.Trigger) {
	switch n.name() {
	case tagUpstreamCause:
		build := n.child("upstreamBuild").text()
		url := strings.TrimSuffix(n.child("upstreamUrl").text(), "/")
		return contracts.Cause{
			Name:     n.child("upstreamProject").text(),
			BuildNum: build,
			URL:      fmt.Sprintf("%s/%s/%s", p.baseURL, url, build),
		}, ""
	case tagPRCause:
		return contracts.Cause{
			Name:     "PR: " + n.child("title").text(),
			BuildNum: n.child("pullID").text(),
			URL:      n.child("url").text(),
		}, contracts.TriggerPullRequest
	case tagTimerCause:
		return contracts.Cause{Name: "TimerTrigger (Periodic)", URL: "#"}, contracts.TriggerPeriodic
	case tagUserCause:
		user := n.child("userId").text()
		return contracts.Cause{
			Name: "Manual Trigger by " + user,
			URL:  fmt.Sprintf("%s/user/%s", p.baseURL, user),
		}, contracts.TriggerManual
	case tagPushCause:
		return contracts.Cause{
			Name: "Github Push by " + n.child("pushedBy").text(),
			URL:  "#",
		}, contracts.TriggerPush
	default:
		return contracts.Cause{Name: "Unknown Trigger: " + n.name(), URL: "#"}, ""
	}
}

func normalizeBranch(raw string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(raw)
}

// repoName reduces a repository URL or "org/repo" string to "org/repo".
func repoName(raw string) string {
	m := repoPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ""
	}
	return m[1] + "/" + m[2]
}

func osFromJobName(jobName string) string {
	for _, series := range []string{"trusty", "xenial", "bionic"} {
		if strings.Contains(jobName, series) {
			return series
		}
	}
	return "os_unknown"
}
