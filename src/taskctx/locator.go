// Package taskctx locates the Ansible play and task a log line belongs to.
package taskctx

import (
	"regexp"
	"strings"
)

// Direction selects which way a walk moves through the log.
type Direction int

const (
	// Backward walks toward the start of the log.
	Backward Direction = -1
	// Forward walks toward the end of the log.
	Forward Direction = 1
)

// DefaultTerminalTask is the last task of a deployment. Failures after it are
// not attributable to a task.
const DefaultTerminalTask = "Deploy RPC HAProxy configuration files"

// NotApplicable is returned as the context of a terminal task.
const NotApplicable = "N/A"

// IgnoredMarker is printed by Ansible after a failure it was told to ignore.
const IgnoredMarker = "...ignoring"

var (
	taskPattern = regexp.MustCompile(`TASK:? \[(?:(?P<role>.*)\|)?(?P<task>.*)\]`)
	playPattern = regexp.MustCompile(`PLAY \[(?P<play>.*)\]`)
)

// Locator answers task-context questions about normalized log lines.
// It holds no per-log state and is safe to share.
type Locator struct {
	terminal map[string]struct{}
}

// NewLocator creates a locator. When terminalTasks is empty DefaultTerminalTask is used.
func NewLocator(terminalTasks []string) *Locator {
	if len(terminalTasks) == 0 {
		terminalTasks = []string{DefaultTerminalTask}
	}
	terminal := make(map[string]struct{}, len(terminalTasks))
	for _, t := range terminalTasks {
		terminal[strings.TrimSpace(t)] = struct{}{}
	}
	return &Locator{terminal: terminal}
}

// Context returns the nearest task marker from line `from` (inclusive) in the given
// direction, combined with the nearest play marker at or beyond it:
// "play / role / task" or "play / task". A terminal task yields NotApplicable,
// a task without a play yields the task alone and no task yields "".
func (l *Locator) Context(lines []string, from int, dir Direction) string {
	taskIdx := walk(len(lines), from, dir, func(i int) bool {
		return taskPattern.MatchString(lines[i])
	})
	if taskIdx < 0 {
		return ""
	}

	m := taskPattern.FindStringSubmatch(lines[taskIdx])
	role := strings.TrimSpace(m[taskPattern.SubexpIndex("role")])
	task := strings.TrimSpace(m[taskPattern.SubexpIndex("task")])
	if _, ok := l.terminal[task]; ok {
		return NotApplicable
	}

	playIdx := walk(len(lines), taskIdx, dir, func(i int) bool {
		return playPattern.MatchString(lines[i])
	})
	if playIdx < 0 {
		return task
	}
	play := strings.TrimSpace(playPattern.FindStringSubmatch(lines[playIdx])[1])

	if role != "" {
		return play + " / " + role + " / " + task
	}
	return play + " / " + task
}

// TaskLine returns the index of the first task marker at or beyond `from` in the
// given direction, or -1.
func (l *Locator) TaskLine(lines []string, from int, dir Direction) int {
	return walk(len(lines), from, dir, func(i int) bool {
		return taskPattern.MatchString(lines[i])
	})
}

// Ignored reports whether the failure on failLine was ignored: an IgnoredMarker
// appears between failLine and the next task marker, both inclusive. A failure
// with no later task is never ignored.
func (l *Locator) Ignored(lines []string, failLine int) bool {
	if failLine < 0 || failLine >= len(lines) {
		return false
	}
	end := l.TaskLine(lines, failLine+1, Forward)
	if end < 0 {
		return false
	}
	for i := failLine; i <= end; i++ {
		if strings.Contains(lines[i], IgnoredMarker) {
			return true
		}
	}
	return false
}

// walk visits indices of a slice of length n starting at from, moving in dir,
// until stop returns true. It returns the stopping index or -1. A start outside
// the slice is clamped to the nearest valid index.
func walk(n, from int, dir Direction, stop func(i int) bool) int {
	if n == 0 {
		return -1
	}
	if from < 0 {
		if dir == Backward {
			return -1
		}
		from = 0
	}
	if from >= n {
		if dir == Forward {
			return -1
		}
		from = n - 1
	}
	for i := from; i >= 0 && i < n; i += int(dir) {
		if stop(i) {
			return i
		}
	}
	return -1
}
