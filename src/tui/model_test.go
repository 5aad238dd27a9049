package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"

	"buildtriage/src/contracts"
	"buildtriage/src/store"
)

var testNow = time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)

type testFailure struct {
	typ      string
	category contracts.Category
	detail   string
}

type testBuild struct {
	job      string
	num      int
	result   contracts.Result
	age      time.Duration
	failures []testFailure
}

func newTestDocument(builds ...testBuild) *store.Document {
	doc := store.NewDocument()
	doc.Timestamp = testNow.Add(-10 * time.Minute)
	for _, tb := range builds {
		num := fmt.Sprint(tb.num)
		b := &contracts.Build{
			ID:        contracts.BuildID(tb.job, num),
			JobName:   tb.job,
			BuildNum:  num,
			Result:    tb.result,
			Timestamp: testNow.Add(-tb.age),
			Branch:    "master",
		}
		for i, tf := range tb.failures {
			f := contracts.NewFailure(fmt.Sprintf("%s-%d", b.ID, i), b.ID, tf.typ, tf.typ+" description", tf.category, tf.detail)
			b.AddFailure(f.ID)
			doc.Failures[f.ID] = f
		}
		doc.Builds[b.ID] = b
	}
	return doc
}

var (
	aptFailure = testFailure{"AptFailure", contracts.CategoryRemoteDependency, "Apt Fetch Fail: http://mirror.test/pool/a.deb"}
	sshFailure = testFailure{"SSHFailure", contracts.CategorySSH, "ssh: connect to host 10.0.0.4 port 22: Connection refused"}
	jenkinsExc = testFailure{"JenkinsException", contracts.CategoryInfra, "hudson.remoting.ChannelClosedException"}
)

func defaultTestDocument() *store.Document {
	return newTestDocument(
		testBuild{"PM_newton", 1, contracts.ResultFailure, 3 * time.Hour, []testFailure{aptFailure, jenkinsExc}},
		testBuild{"PM_newton", 2, contracts.ResultFailure, 2 * time.Hour, []testFailure{aptFailure}},
		testBuild{"PR_master", 3, contracts.ResultFailure, time.Hour, []testFailure{aptFailure, sshFailure}},
		testBuild{"PR_master", 4, contracts.ResultSuccess, 30 * time.Minute, []testFailure{jenkinsExc}},
	)
}

func createTestModel(doc *store.Document) MainModel {
	mock := clock.NewMock()
	mock.Set(testNow)
	model := New(store.NewMemoryStore(), WithClock(mock))
	updated, _ := model.Update(loadedMsg{doc: doc})
	return updated.(MainModel)
}

func resize(m MainModel, width, height int) MainModel {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return updated.(MainModel)
}

func press(m MainModel, keys ...tea.KeyMsg) MainModel {
	for _, k := range keys {
		updated, _ := m.Update(k)
		m = updated.(MainModel)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func visibleTypes(m MainModel) []string {
	var types []string
	for _, item := range m.listView.list.Items() {
		types = append(types, item.(Item).Group.Type)
	}
	return types
}

func TestMainModel_Ranking(t *testing.T) {
	m := createTestModel(defaultTestDocument())

	if m.status != StatusReady {
		t.Fatalf("status = %v, expected StatusReady", m.status)
	}
	got := strings.Join(visibleTypes(m), ",")
	expected := "AptFailure,JenkinsException,SSHFailure"
	if got != expected {
		t.Errorf("items = %s, expected %s", got, expected)
	}
	if m.items[0].Rank != 1 || m.items[0].Recurrence() != 3 {
		t.Errorf("first item rank/recurrence = %d/%d, expected 1/3", m.items[0].Rank, m.items[0].Recurrence())
	}
	if !m.items[1].Noise() {
		t.Error("failure seen on a successful build should be noise")
	}
	if !strings.Contains(m.header.cacheStatus, "4 builds, 3 failures") {
		t.Errorf("header status = %q", m.header.cacheStatus)
	}
}

func TestMainModel_TierFilter(t *testing.T) {
	m := createTestModel(defaultTestDocument())

	tests := []struct {
		key      string
		expected string
	}{
		{"1", "AptFailure,SSHFailure"},
		{"2", "JenkinsException"},
		{"0", "AptFailure,JenkinsException,SSHFailure"},
	}
	for _, tt := range tests {
		m = press(m, runes(tt.key))
		if got := strings.Join(visibleTypes(m), ","); got != tt.expected {
			t.Errorf("after %q items = %s, expected %s", tt.key, got, tt.expected)
		}
	}
}

func TestMainModel_CategoryFilter(t *testing.T) {
	m := createTestModel(defaultTestDocument())

	expected := []string{"Remote Dependency", "SSH", "RE Infra", filterAll}
	for _, want := range expected {
		m = press(m, tea.KeyMsg{Type: tea.KeyTab})
		if got := m.header.GetFilter(); got != want {
			t.Fatalf("filter = %q, expected %q", got, want)
		}
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab})
	if got := strings.Join(visibleTypes(m), ","); got != "SSHFailure" {
		t.Errorf("items = %s, expected SSHFailure", got)
	}
}

func TestMainModel_Search(t *testing.T) {
	m := createTestModel(defaultTestDocument())

	m = press(m, runes("/"))
	if !m.searchMode {
		t.Fatal("expected search mode after /")
	}
	m = press(m, runes("pr_"), runes("mast"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.searchMode {
		t.Error("expected search mode to end on enter")
	}
	if m.searchQuery != "pr_mast" {
		t.Errorf("searchQuery = %q", m.searchQuery)
	}
	// job name match, case-insensitive
	if got := strings.Join(visibleTypes(m), ","); got != "AptFailure,JenkinsException,SSHFailure" {
		t.Errorf("items = %s", got)
	}

	m = press(m, runes("/"), tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace}, runes("refused"))
	if got := strings.Join(visibleTypes(m), ","); got != "SSHFailure" {
		t.Errorf("items = %s, expected SSHFailure", got)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searchQuery != "" || len(visibleTypes(m)) != 3 {
		t.Errorf("esc should clear the search, got query %q and %d items", m.searchQuery, len(visibleTypes(m)))
	}
}

func TestMainModel_Detail(t *testing.T) {
	m := resize(createTestModel(defaultTestDocument()), 120, 40)

	content := StripStyles(m.detailViewport.View())
	for _, want := range []string{
		"AptFailure | Remote Dependency",
		"Apt Fetch Fail: http://mirror.test/pool/a.deb",
		"Seen 3 times",
		"PR_master #3",
		"PM_newton #1",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("detail missing %q:\n%s", want, content)
		}
	}

	m = press(m, runes("j"))
	content = StripStyles(m.detailViewport.View())
	if !strings.Contains(content, "JenkinsException") || !strings.Contains(content, "noise") {
		t.Errorf("detail did not follow the selection:\n%s", content)
	}
}

func TestMainModel_DetailFocus(t *testing.T) {
	m := resize(createTestModel(defaultTestDocument()), 100, 30)

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.detailFocused {
		t.Fatal("expected detail focus after enter")
	}
	// list navigation is suspended while the detail has focus
	m = press(m, runes("j"))
	if item, _ := m.listView.GetSelectedItem(); item.Rank != 1 {
		t.Errorf("selection moved to rank %d while detail focused", item.Rank)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.detailFocused {
		t.Error("expected esc to return to the list")
	}
}

func TestMainModel_LoadError(t *testing.T) {
	model := New(store.NewMemoryStore())
	updated, _ := model.Update(loadErrMsg{err: errors.New("cache is corrupt")})
	m := resize(updated.(MainModel), 80, 24)

	if m.status != StatusError {
		t.Fatalf("status = %v, expected StatusError", m.status)
	}
	view := StripStyles(m.View())
	if !strings.Contains(view, "cache is corrupt") {
		t.Errorf("view does not show the load error:\n%s", view)
	}

	_, cmd := m.Update(runes("r"))
	if cmd == nil {
		t.Error("expected r to start a reload")
	}
}

func TestMainModel_Empty(t *testing.T) {
	m := resize(createTestModel(store.NewDocument()), 80, 24)

	if !strings.Contains(StripStyles(m.View()), "No failures match") {
		t.Error("expected empty state message")
	}
}

func TestMainModel_Init(t *testing.T) {
	doc := defaultTestDocument()
	st := store.NewMemoryStore()
	if err := st.Save(t.Context(), doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	load := New(st).load()
	msg, ok := load().(loadedMsg)
	if !ok {
		t.Fatalf("load returned %T, expected loadedMsg", load())
	}
	if len(msg.doc.Builds) != 4 {
		t.Errorf("loaded %d builds, expected 4", len(msg.doc.Builds))
	}
}

// assertFits fails for every rendered line wider than width.
func assertFits(t *testing.T, view string, width int) {
	t.Helper()
	for i, line := range strings.Split(view, "\n") {
		stripped := StripStyles(line)
		if w := VisualWidth(stripped); w > width {
			t.Errorf("line %d exceeds terminal width (%d > %d): %s", i, w, width, Truncate(stripped, 80, true))
		}
	}
}

func TestMainModel_LongLinesFit(t *testing.T) {
	longDetail := strings.Repeat("Failed to fetch https://mirror.example.com/ubuntu/pool/main/o/openssl/libssl1.0.0_1.0.2g-1ubuntu4_amd64.deb ", 4)
	longWord := strings.Repeat("abcdefghijklmnopqrstuvwxyz", 20)

	doc := newTestDocument(
		testBuild{"PM_" + strings.Repeat("very-long-job-name-", 6), 1, contracts.ResultFailure, time.Hour, []testFailure{
			{"AptFailure", contracts.CategoryRemoteDependency, longDetail},
			{"PipFailure", contracts.CategoryRemoteDependency, longWord},
		}},
	)

	for _, size := range []struct{ width, height int }{{80, 30}, {100, 30}, {120, 40}} {
		t.Run(fmt.Sprintf("%dx%d", size.width, size.height), func(t *testing.T) {
			m := resize(createTestModel(doc), size.width, size.height)
			assertFits(t, m.View(), size.width)

			m = press(m, runes("j"))
			assertFits(t, m.View(), size.width)

			if m.detailViewport.Width > size.width-int(float64(size.width)*0.4)-2 {
				t.Errorf("detail viewport width %d exceeds the panel", m.detailViewport.Width)
			}
		})
	}
}
