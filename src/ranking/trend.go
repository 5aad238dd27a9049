package ranking

import (
	"fmt"
	"sort"
	"time"

	"buildtriage/src/contracts"
)

// TrendWindow is how far back Trend.Total and Trend.Success look.
const TrendWindow = 2 * day

// Trend summarizes the periodic builds of one repository branch.
type Trend struct {
	// Key is <repo>_<branch>.
	Key string
	// Total and Success count the periodic builds within TrendWindow.
	Total   int
	Success int
	// Passed and Failed count periodic builds per day; the last bucket is the
	// day ending now. Aborted builds count as failed.
	Passed []int
	Failed []int
	// Max is the largest single bucket in Passed or Failed.
	Max int
}

// Failures is the number of recent builds that did not succeed.
func (t *Trend) Failures() int {
	return t.Total - t.Success
}

// SuccessPercent is the recent success rate, 0 when there were no builds.
func (t *Trend) SuccessPercent() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Success) / float64(t.Total) * 100
}

// PeriodicTrends computes a trend per repo and branch from the periodic builds.
// Trends are ordered by key.
func PeriodicTrends(builds []*contracts.Build, histogramDays int, now time.Time) []*Trend {
	trends := make(map[string]*Trend)

	for _, b := range builds {
		if b.Trigger != contracts.TriggerPeriodic {
			continue
		}

		key := fmt.Sprintf("%s_%s", b.Repo, b.Branch)
		t, ok := trends[key]
		if !ok {
			t = &Trend{
				Key:    key,
				Passed: make([]int, histogramDays),
				Failed: make([]int, histogramDays),
			}
			trends[key] = t
		}

		if now.Sub(b.Timestamp) < TrendWindow && !b.Timestamp.After(now) {
			t.Total++
			if b.Result.IsSuccess() {
				t.Success++
			}
		}

		i := bucket(b.Timestamp, now, histogramDays)
		if i < 0 {
			continue
		}
		series := t.Failed
		if b.Result.IsSuccess() {
			series = t.Passed
		}
		series[i]++
		if series[i] > t.Max {
			t.Max = series[i]
		}
	}

	result := make([]*Trend, 0, len(trends))
	for _, t := range trends {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
