package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"buildtriage/src/contracts"
)

// BuildRef locates one build directory in a Jenkins jobs tree.
type BuildRef struct {
	JobName  string
	BuildNum string
	Dir      string
}

// ID returns the build identifier for the reference.
func (b BuildRef) ID() string {
	return contracts.BuildID(b.JobName, b.BuildNum)
}

// JobError reports a job whose builds directory could not be listed.
type JobError struct {
	Job string
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("failed to read builds of %s: %v", e.Job, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Discover lists every <jobsDir>/<job>/builds/<n>/ directory that contains a build.xml.
// Builds are ordered by job name and then by number. Non-numeric entries (Jenkins
// permalinks such as lastSuccessfulBuild) are skipped.
//
// A job whose builds directory cannot be read is reported in skipped and the walk
// continues with the next job. err is only set when jobsDir itself is unreadable.
func Discover(jobsDir string) (refs []BuildRef, skipped []*JobError, err error) {
	jobs, err := os.ReadDir(jobsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	for _, job := range jobs {
		if !job.IsDir() {
			continue
		}
		buildsDir := filepath.Join(jobsDir, job.Name(), "builds")
		entries, err := os.ReadDir(buildsDir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			skipped = append(skipped, &JobError{Job: job.Name(), Err: err})
			continue
		}

		type numbered struct {
			n    int
			name string
		}
		var builds []numbered
		for _, e := range entries {
			n, err := strconv.Atoi(e.Name())
			if err != nil || n < 0 {
				continue
			}
			if _, err := os.Stat(filepath.Join(buildsDir, e.Name(), "build.xml")); err != nil {
				continue
			}
			builds = append(builds, numbered{n: n, name: e.Name()})
		}
		sort.Slice(builds, func(i, j int) bool { return builds[i].n < builds[j].n })

		for _, b := range builds {
			refs = append(refs, BuildRef{
				JobName:  job.Name(),
				BuildNum: b.name,
				Dir:      filepath.Join(buildsDir, b.name),
			})
		}
	}
	return refs, skipped, nil
}
