package detect

import (
	"fmt"
	"regexp"
	"strings"

	"buildtriage/src/contracts"
	"buildtriage/src/taskctx"
)

var (
	aptFetchPattern     = regexp.MustCompile(`.: Failed to fetch (?:\s*from\s*)?(\S*)( Hash Sum mismatch)?`)
	pipPattern          = regexp.MustCompile(`Could not find a version that satisfies the requirement (\S*)`)
	gitPattern          = regexp.MustCompile(`fatal: unable to access '([^']*)'|fatal: Could not read from remote repository|fatal: remote error|error: RPC failed`)
	sshTimeoutPattern   = regexp.MustCompile(`Timeout when waiting for search string OpenSSH in (\S+)`)
	taskFailPattern     = regexp.MustCompile(`(fatal|failed):.*=>`)
	syntaxPattern       = regexp.MustCompile(`ERROR:.*is not a legal parameter in an Ansible task or handler`)
	jenkinsExcPattern   = regexp.MustCompile(`hudson\.\S*Exception.*`)
	buildTimeoutPattern = regexp.MustCompile(`Build timed out \(after [0-9]* minutes\)\. Marking the build as aborted\.`)
	tempestPattern      = regexp.MustCompile(`\{0\} (tempest\S*).*\.\.\. FAILED`)
)

const (
	aptMirrorMessage     = "WARNING: The following packages cannot be authenticated!"
	agentOfflineMessage  = "Agent went offline during the build"
	serviceUnavailable   = "ERROR: Service Unavailable (HTTP 503)"
	sshTimeoutMessage    = "Timeout when waiting for search string OpenSSH"
	dpkgLockMessage      = "dpkg status database is locked by another process"
	dpkgLockFileMessage  = "Could not get lock /var/lib/dpkg/lock"
	noArtifactsMessage   = "ERROR: No artifacts found that match the file pattern"
	archiveFailedMessage = "ERROR: Failed to archive artifacts"
)

var sshMessages = []string{
	"SSH Error: data could not be sent to the remote host. Make sure this host can be reached over ssh",
	"Failed to connect to the host via ssh",
	"Connection timed out during banner exchange",
}

// benignJenkinsExceptions are exceptions Jenkins prints for ordinary failed or cancelled builds.
var benignJenkinsExceptions = []string{
	"hudson.AbortException: script returned exit code",
	"hudson.AbortException: Queue task was cancelled",
}

// TaskFailureRules sub-classify an Ansible task failure by keywords in its detail.
var TaskFailureRules = []CategoryRule{
	{regexp.MustCompile(`(?i)apt|download|package|retrieve`), contracts.CategoryRemoteDependency},
	{regexp.MustCompile(`(?i)key`), contracts.CategoryKeys},
	{regexp.MustCompile(`(?i)ssh`), contracts.CategorySSH},
	{regexp.MustCompile(`(?i)bootstrap`), contracts.CategoryBootstrap},
}

// previousTask returns the task context preceding line i.
func previousTask(lines []string, i int, tc TaskContext) string {
	return tc.Context(lines, i, taskctx.Backward)
}

// AptFailure detects packages that could not be downloaded from an apt repository.
func AptFailure() Detector {
	return newLineDetector("AptFailure", "Failures relating to APT", contracts.CategoryRemoteDependency,
		func(lines []string, i int, _ TaskContext) (Match, bool) {
			m := aptFetchPattern.FindStringSubmatch(lines[i])
			if m == nil {
				return Match{}, false
			}
			return Match{Detail: fmt.Sprintf("Apt Fetch Fail: %s%s", m[1], m[2])}, true
		})
}

// AptMirrorFailure detects a mirror serving packages that fail authentication.
func AptMirrorFailure() Detector {
	return newLineDetector("AptMirrorFailure", "Mirror is not in a consistent state", contracts.CategoryMirror,
		func(lines []string, i int, tc TaskContext) (Match, bool) {
			if !strings.Contains(lines[i], aptMirrorMessage) {
				return Match{}, false
			}
			detail := fmt.Sprintf("Apt Mirror Fail: %s %s", aptMirrorMessage, previousTask(lines, i, tc))
			return Match{Detail: strings.TrimSpace(detail)}, true
		})
}

// PipFailure detects pip requirements that could not be resolved, unless the task ignored the error.
func PipFailure() Detector {
	return newLineDetector("PipFailure", "Failures relating to Python Pip", contracts.CategoryRemoteDependency,
		func(lines []string, i int, tc TaskContext) (Match, bool) {
			m := pipPattern.FindStringSubmatch(lines[i])
			if m == nil || tc.Ignored(lines, i) {
				return Match{}, false
			}
			return Match{Detail: "Can't find pip package: " + m[1]}, true
		})
}

// GitFailure detects clones and fetches that could not reach the remote.
func GitFailure() Detector {
	return newLineDetector("GitFailure", "Failures relating to Git", contracts.CategoryRemoteDependency,
		func(lines []string, i int, _ TaskContext) (Match, bool) {
			m := gitPattern.FindStringSubmatch(lines[i])
			if m == nil {
				return Match{}, false
			}
			what := m[0]
			if m[1] != "" {
				what = m[1]
			}
			return Match{Detail: "Git Fetch Fail: " + what}, true
		})
}

// SSHFailure detects hosts that could not be reached over SSH.
func SSHFailure() Detector {
	return newLineDetector("SSHFailure", "SSH communication failure", contracts.CategorySSH,
		func(lines []string, i int, _ TaskContext) (Match, bool) {
			line := lines[i]
			for _, msg := range sshMessages {
				if strings.Contains(line, msg) {
					return Match{Detail: msg}, true
				}
			}
			if m := sshTimeoutPattern.FindStringSubmatch(line); m != nil {
				return Match{Detail: "SSH Timeout: OpenSSH not reachable on " + m[1]}, true
			}
			if strings.Contains(line, sshTimeoutMessage) {
				return Match{Detail: sshTimeoutMessage}, true
			}
			return Match{}, false
		})
}

// AnsibleTaskFailure detects failed Ansible tasks that were not ignored. The
// category is refined from keywords in the task name.
func AnsibleTaskFailure() Detector {
	return newLineDetector("AnsibleTaskFailure", "An ansible task failed", contracts.CategoryLocalTask,
		func(lines []string, i int, tc TaskContext) (Match, bool) {
			if !taskFailPattern.MatchString(lines[i]) || tc.Ignored(lines, i) {
				return Match{}, false
			}
			detail := "Task Failed: " + previousTask(lines, i, tc)
			return Match{
				Detail:   detail,
				Category: Categorize(TaskFailureRules, detail, contracts.CategoryLocalTask),
			}, true
		})
}

// AnsibleSyntaxFailure detects invalid task parameters.
func AnsibleSyntaxFailure() Detector {
	return newLineDetector("AnsibleSyntaxFailure", "An Ansible syntax failure", contracts.CategoryLocalTask,
		func(lines []string, i int, _ TaskContext) (Match, bool) {
			m := syntaxPattern.FindString(lines[i])
			if m == "" {
				return Match{}, false
			}
			return Match{Detail: m}, true
		})
}

// JenkinsException detects exceptions raised by Jenkins itself.
func JenkinsException() Detector {
	return newLineDetector("JenkinsException", "An Exception in a Jenkins Class", contracts.CategoryInfra,
		func(lines []string, i int, _ TaskContext) (Match, bool) {
			m := jenkinsExcPattern.FindString(lines[i])
			if m == "" {
				return Match{}, false
			}
			for _, benign := range benignJenkinsExceptions {
				if strings.HasPrefix(m, benign) {
					return Match{}, false
				}
			}
			return Match{Detail: m}, true
		})
}

// BuildTimeoutFailure detects builds aborted by the build-timeout plugin.
func BuildTimeoutFailure() Detector {
	return newLineDetector("BuildTimeoutFailure", "Build ran over the time limit", contracts.CategoryUncategorised,
		func(lines []string, i int, tc TaskContext) (Match, bool) {
			if !buildTimeoutPattern.MatchString(lines[i]) {
				return Match{}, false
			}
			return Match{Detail: "Build Timeout: " + previousTask(lines, i, tc)}, true
		})
}

// SlaveOfflineFailure detects agents that disconnected mid-build.
func SlaveOfflineFailure() Detector {
	return newLineDetector("SlaveOfflineFailure",
		"Slave executing the build went offline before the build completed", contracts.CategoryInfra,
		func(lines []string, i int, tc TaskContext) (Match, bool) {
			if !strings.Contains(lines[i], agentOfflineMessage) {
				return Match{}, false
			}
			return Match{Detail: "Slave Died / Agent went offline during the build: " + previousTask(lines, i, tc)}, true
		})
}

// DpkgLock detects concurrent use of the dpkg database.
func DpkgLock() Detector {
	return newLineDetector("DpkgLock", "Multiple processes attempting to use dpkg db simultaneously",
		contracts.CategoryLocalTask,
		func(lines []string, i int, tc TaskContext) (Match, bool) {
			line := lines[i]
			if !strings.Contains(line, dpkgLockMessage) && !strings.Contains(line, dpkgLockFileMessage) {
				return Match{}, false
			}
			return Match{Detail: "dpkg locked. PrevTask: " + previousTask(lines, i, tc)}, true
		})
}

// ServiceUnavailableFailure detects HTTP 503 responses from OpenStack clients.
func ServiceUnavailableFailure() Detector {
	return newLineDetector("ServiceUnavailableFailure", "HTTP 503", contracts.CategoryUncategorised,
		func(lines []string, i int, tc TaskContext) (Match, bool) {
			if !strings.Contains(lines[i], serviceUnavailable) {
				return Match{}, false
			}
			return Match{Detail: "Service Unavailable 503. PrevTask: " + previousTask(lines, i, tc)}, true
		})
}

// TempestFailure detects failed tempest tests in the test runner output.
func TempestFailure() Detector {
	return newLineDetector("TempestFailure", "A tempest test failed", contracts.CategoryTempest,
		func(lines []string, i int, _ TaskContext) (Match, bool) {
			m := tempestPattern.FindStringSubmatch(lines[i])
			if m == nil {
				return Match{}, false
			}
			return Match{Detail: "Tempest Test Failed: " + m[1]}, true
		})
}

// ArtifactArchiveFailure detects the archive step failing to collect artifacts.
func ArtifactArchiveFailure() Detector {
	return newLineDetector("ArtifactArchiveFailure", "Build artifacts could not be archived", contracts.CategoryInfra,
		func(lines []string, i int, _ TaskContext) (Match, bool) {
			line := lines[i]
			if !strings.Contains(line, noArtifactsMessage) && !strings.Contains(line, archiveFailedMessage) {
				return Match{}, false
			}
			return Match{Detail: "Artifact Archive Fail: " + strings.TrimSpace(line)}, true
		})
}
