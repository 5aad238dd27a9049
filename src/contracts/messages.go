package contracts

// FailureEvent is published for every newly classified failure.
// Published to: triage.failures.classified
// Key: {build_id}
type FailureEvent struct {
	FailureID   string   `json:"failure_id"`
	Type        string   `json:"type"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Detail      string   `json:"detail"`

	BuildID  string `json:"build_id"`
	JobName  string `json:"job_name"`
	BuildNum string `json:"build_num"`
	Result   Result `json:"result"`
	Branch   string `json:"branch"`
	Stage    Stage  `json:"stage"`
	BuildURL string `json:"build_url"`

	// RFC3339 start time of the build.
	Timestamp string `json:"timestamp"`
}

// NewFailureEvent builds the event payload for a failure of build b.
func NewFailureEvent(f *Failure, b *Build) FailureEvent {
	ev := FailureEvent{
		FailureID:   f.ID,
		Type:        f.Type,
		Category:    f.Category,
		Description: f.Description,
		Detail:      f.Detail(),
		BuildID:     b.ID,
		JobName:     b.JobName,
		BuildNum:    b.BuildNum,
		Result:      b.Result,
		Branch:      b.Branch,
		Stage:       b.Stage,
		Timestamp:   b.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	if n := len(b.BuildHierarchy); n > 0 {
		ev.BuildURL = b.BuildHierarchy[n-1].URL
	}
	return ev
}

// Topic names used on the event broker.
const (
	// TopicFailuresClassified carries one FailureEvent per newly classified failure.
	TopicFailuresClassified = "triage.failures.classified"
)
