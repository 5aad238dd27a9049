// Package contracts defines the records shared by the classifier, the cache and its consumers.
package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Result is the Jenkins build result.
type Result string

const (
	ResultSuccess  Result = "SUCCESS"
	ResultFailure  Result = "FAILURE"
	ResultAborted  Result = "ABORTED"
	ResultUnstable Result = "UNSTABLE"
	ResultNotBuilt Result = "NOT_BUILT"
)

// IsSuccess reports whether the build passed.
func (r Result) IsSuccess() bool {
	return r == ResultSuccess
}

// Stage identifies where in the merge workflow a build ran.
type Stage string

const (
	// StagePR is a pre-merge (pull request) build.
	StagePR Stage = "PR"
	// StagePM is a post-merge build.
	StagePM Stage = "PM"
	// StageUnknown is used when the job name carries no stage prefix.
	StageUnknown Stage = "unknown"
)

// StageFromJobName derives the stage from the PR_/PM_ job name prefix.
func StageFromJobName(jobName string) Stage {
	for _, s := range []Stage{StagePM, StagePR} {
		if strings.HasPrefix(jobName, string(s)+"_") {
			return s
		}
	}
	return StageUnknown
}

// Trigger is the kind of event that started the root of the trigger hierarchy.
type Trigger string

const (
	TriggerPeriodic    Trigger = "periodic"
	TriggerPullRequest Trigger = "pull-request"
	TriggerManual      Trigger = "manual"
	TriggerPush        Trigger = "push"
)

// Cause is one step in a build's trigger hierarchy.
type Cause struct {
	// Display name of the upstream job, PR or trigger.
	Name string `json:"name"`
	// External build number (upstream build, PR number); empty for timers and users.
	BuildNum string `json:"build_num"`
	// Link to the cause; "#" when there is nothing to link to.
	URL string `json:"url"`
}

// Build is one execution of a CI job. It is the aggregate root for its failures,
// which are stored separately and referenced by id.
type Build struct {
	// Stable identifier, see BuildID.
	ID string `json:"id"`
	// Jenkins job name.
	JobName string `json:"job_name"`
	// Jenkins build number within the job.
	BuildNum string `json:"build_num"`
	// Build result as recorded by Jenkins.
	Result Result `json:"result"`
	// Start time of the build.
	Timestamp time.Time `json:"timestamp"`
	// Target branch, normalised to use underscores.
	Branch string `json:"branch"`
	// Repository as org/repo, when known.
	Repo string `json:"repo,omitempty"`
	// Operating system series sniffed from the job name.
	OS string `json:"os,omitempty"`
	// Pre-merge or post-merge.
	Stage Stage `json:"stage"`
	// What kicked off the build chain.
	Trigger Trigger `json:"trigger"`
	// Causes from the root trigger down to this build (inclusive).
	BuildHierarchy []Cause `json:"build_hierarchy"`
	// Ids of failures attached to this build, in detection order.
	Failures []string `json:"failures"`
}

// BuildID returns the identifier used for a job's build: <job>_<number>.
func BuildID(jobName, buildNum string) string {
	return fmt.Sprintf("%s_%s", jobName, buildNum)
}

// Failed reports whether the build did not succeed.
func (b *Build) Failed() bool {
	return !b.Result.IsSuccess()
}

// AddFailure appends a failure id to the build.
func (b *Build) AddFailure(id string) {
	b.Failures = append(b.Failures, id)
}

// HasFailure reports whether the build references the failure id.
func (b *Build) HasFailure(id string) bool {
	for _, f := range b.Failures {
		if f == id {
			return true
		}
	}
	return false
}

func (b *Build) String() string {
	return fmt.Sprintf("%s %s %s/%s %s",
		b.Timestamp.Format(time.RFC3339), b.Result, b.JobName, b.BuildNum, b.Branch)
}
