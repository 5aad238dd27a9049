package ranking

import (
	"reflect"
	"testing"
	"time"

	"buildtriage/src/contracts"
	"buildtriage/src/detect"
	"buildtriage/src/store"
)

var now = time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)

type fixture struct {
	doc *store.Document
	n   int
}

func newFixture() *fixture {
	return &fixture{doc: store.NewDocument()}
}

func (fx *fixture) build(job string, result contracts.Result, age time.Duration, failures ...*contracts.Failure) *contracts.Build {
	fx.n++
	num := string(rune('0' + fx.n))
	b := &contracts.Build{
		ID:        contracts.BuildID(job, num),
		JobName:   job,
		BuildNum:  num,
		Result:    result,
		Timestamp: now.Add(-age),
		Repo:      "rcbops/rpc-openstack",
		Branch:    "master",
		Trigger:   contracts.TriggerPeriodic,
	}
	for i, f := range failures {
		f.ID = b.ID + "-" + string(rune('a'+i))
		f.BuildID = b.ID
		b.AddFailure(f.ID)
		fx.doc.Failures[f.ID] = f
	}
	fx.doc.Builds[b.ID] = b
	return b
}

func ssh(detail string) *contracts.Failure {
	return contracts.NewFailure("", "", "SSHFailure", "SSH communication failure", contracts.CategorySSH, detail)
}

func unknown() *contracts.Failure {
	return contracts.NewFailure("", "", detect.UnknownFailureName, detect.UnknownFailureDescription,
		contracts.CategoryUncategorised, detect.UnknownFailureDetail)
}

func TestGroupFailures(t *testing.T) {
	fx := newFixture()
	oldest := fx.build("PM_a", contracts.ResultFailure, 10*day+time.Hour, ssh("connect to host 10.0.0.1 port 22"))
	fx.build("PM_a", contracts.ResultFailure, 3*day, ssh("connect to host 10.0.0.2 port 22"))
	newest := fx.build("PM_b", contracts.ResultFailure, time.Hour, ssh("connect to host 10.0.0.3 port 22"))
	fx.build("PM_c", contracts.ResultFailure, 2*time.Hour,
		contracts.NewFailure("", "", "GitFailure", "Failures relating to Git", contracts.CategoryRemoteDependency, "Git Fetch Fail: https://github.com/x/y"))
	fx.build("PM_d", contracts.ResultAborted, time.Hour, unknown())

	groups := GroupFailures(fx.doc, 30, now)

	if len(groups) != 2 {
		t.Fatalf("got %d groups, expected 2", len(groups))
	}
	g := groups[0]
	if g.Key != "SSHFailure: connect to host **IPv4** port 22" {
		t.Errorf("Key = %q", g.Key)
	}
	if g.Count != 3 {
		t.Errorf("Count = %d, expected 3", g.Count)
	}
	if g.Oldest != oldest || g.Newest != newest {
		t.Errorf("Oldest/Newest = %s/%s, expected %s/%s", g.Oldest.ID, g.Newest.ID, oldest.ID, newest.ID)
	}
	if g.Detail != "connect to host 10.0.0.3 port 22" {
		t.Errorf("Detail = %q, expected the newest occurrence", g.Detail)
	}
	if len(g.Histogram) != 30 {
		t.Fatalf("histogram length = %d, expected 30", len(g.Histogram))
	}
	if g.Histogram[29] != 1 || g.Histogram[26] != 1 || g.Histogram[19] != 1 {
		t.Errorf("Histogram = %v", g.Histogram)
	}
	if g.Tier != TierUnique {
		t.Errorf("Tier = %d, expected unique", g.Tier)
	}
	if groups[1].Type != "GitFailure" {
		t.Errorf("second group = %s, expected GitFailure", groups[1].Type)
	}
	for _, g := range groups {
		if g.Type == detect.UnknownFailureName {
			t.Errorf("Unknown Failure should be excluded")
		}
	}
}

func TestGroupFailuresDefaultsToRetention(t *testing.T) {
	fx := newFixture()
	fx.doc.RetentionDays = 7
	fx.build("PM_a", contracts.ResultFailure, time.Hour, ssh("x"))

	groups := GroupFailures(fx.doc, 0, now)
	if len(groups) != 1 || len(groups[0].Histogram) != 7 {
		t.Fatalf("expected one group with a 7 day histogram, got %+v", groups)
	}
}

func TestGroupFailuresOrdering(t *testing.T) {
	fx := newFixture()
	fx.build("PM_a", contracts.ResultFailure, 5*time.Hour, ssh("older"))
	fx.build("PM_b", contracts.ResultFailure, 1*time.Hour, ssh("newer"))

	groups := GroupFailures(fx.doc, 30, now)
	var details []string
	for _, g := range groups {
		details = append(details, g.Detail)
	}
	if !reflect.DeepEqual(details, []string{"newer", "older"}) {
		t.Errorf("order = %v, expected equal counts ordered by newest", details)
	}
}

func TestSplitTiers(t *testing.T) {
	fx := newFixture()
	fx.build("PM_a", contracts.ResultFailure, time.Hour, ssh("only on failures"))
	fx.build("PM_a", contracts.ResultFailure, time.Hour, ssh("also on success"))
	fx.build("PM_b", contracts.ResultSuccess, time.Hour, ssh("also on success"))

	unique, noise := Split(GroupFailures(fx.doc, 30, now))
	if len(unique) != 1 || unique[0].Detail != "only on failures" {
		t.Errorf("unique = %+v", unique)
	}
	if len(noise) != 1 || noise[0].Count != 2 {
		t.Errorf("noise = %+v", noise)
	}
}

func TestCategoryCounts(t *testing.T) {
	fx := newFixture()
	fx.build("PM_a", contracts.ResultFailure, time.Hour, ssh("a"), ssh("b"))
	fx.build("PM_b", contracts.ResultFailure, time.Hour,
		contracts.NewFailure("", "", "DpkgLock", "dpkg lock", contracts.CategoryLocalTask, "locked"))

	got := CategoryCounts(GroupFailures(fx.doc, 30, now))
	want := []CategoryCount{
		{Category: contracts.CategorySSH, Count: 2},
		{Category: contracts.CategoryLocalTask, Count: 1},
	}
	// taxonomy order puts SSH before Local Task
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CategoryCounts() = %v, expected %v", got, want)
	}
}

func TestBucket(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want int
	}{
		{"now", 0, 29},
		{"just under a day", day - time.Minute, 29},
		{"one day", day, 28},
		{"last bucket", 29*day + time.Hour, 0},
		{"outside window", 30 * day, -1},
		{"future", -time.Hour, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bucket(now.Add(-tt.age), now, 30); got != tt.want {
				t.Errorf("bucket() = %d, expected %d", got, tt.want)
			}
		})
	}
}

func TestPeriodicTrends(t *testing.T) {
	fx := newFixture()
	fx.build("PM_a", contracts.ResultSuccess, time.Hour)
	fx.build("PM_a", contracts.ResultAborted, 2*time.Hour)
	fx.build("PM_a", contracts.ResultFailure, 3*day)
	manual := fx.build("PM_a", contracts.ResultFailure, time.Hour)
	manual.Trigger = contracts.TriggerManual
	other := fx.build("PM_a", contracts.ResultSuccess, time.Hour)
	other.Branch = "newton_14_0"

	trends := PeriodicTrends(fx.doc.SortedBuilds(), 30, now)
	if len(trends) != 2 {
		t.Fatalf("got %d trends, expected 2", len(trends))
	}

	master := trends[0]
	if master.Key != "rcbops/rpc-openstack_master" {
		t.Errorf("Key = %q", master.Key)
	}
	if master.Total != 2 || master.Success != 1 || master.Failures() != 1 {
		t.Errorf("Total/Success = %d/%d, expected 2/1", master.Total, master.Success)
	}
	if master.SuccessPercent() != 50 {
		t.Errorf("SuccessPercent = %v, expected 50", master.SuccessPercent())
	}
	if master.Passed[29] != 1 || master.Failed[29] != 1 || master.Failed[26] != 1 {
		t.Errorf("Passed = %v Failed = %v", master.Passed, master.Failed)
	}
	if master.Max != 1 {
		t.Errorf("Max = %d, expected 1", master.Max)
	}
	if trends[1].Key != "rcbops/rpc-openstack_newton_14_0" {
		t.Errorf("second trend = %q", trends[1].Key)
	}
}

func TestTrendWithoutBuilds(t *testing.T) {
	var tr Trend
	if tr.SuccessPercent() != 0 {
		t.Errorf("SuccessPercent = %v, expected 0", tr.SuccessPercent())
	}
}

func TestQuery(t *testing.T) {
	fx := newFixture()
	fx.build("PM_rpc-openstack-newton", contracts.ResultFailure, time.Hour)
	fx.build("PR_rpc-openstack-master", contracts.ResultSuccess, 2*time.Hour)

	tests := []struct {
		expr    string
		want    int
		wantErr bool
	}{
		{expr: "job_name=newton", want: 1},
		{expr: "job_name=rpc-openstack", want: 2},
		{expr: "result=FAIL", want: 1},
		{expr: "branch=", want: 2},
		{expr: "color=red", wantErr: true},
		{expr: "no-equals", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			field, value, err := ParseQuery(tt.expr)
			var got []*contracts.Build
			if err == nil {
				got, err = Query(fx.doc, field, value)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d builds, expected %d", len(got), tt.want)
			}
		})
	}
}
