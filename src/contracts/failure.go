package contracts

import (
	"encoding/json"

	"buildtriage/src/sanitize"
)

// MaxDetailLength is the maximum number of characters kept in a failure detail.
const MaxDetailLength = 1000

// Category is a label from the closed failure taxonomy.
type Category string

const (
	CategoryRemoteDependency Category = "Remote Dependency"
	CategoryMirror           Category = "Mirror"
	CategorySSH              Category = "SSH"
	CategoryKeys             Category = "Keys"
	CategoryLocalTask        Category = "Local Task"
	CategoryBootstrap        Category = "Bootstrap"
	CategoryTempest          Category = "Tempest"
	CategoryInfra            Category = "RE Infra"
	CategoryUncategorised    Category = "Uncategorised"
)

// Categories lists the taxonomy in display order.
var Categories = []Category{
	CategoryRemoteDependency,
	CategoryMirror,
	CategorySSH,
	CategoryKeys,
	CategoryLocalTask,
	CategoryBootstrap,
	CategoryTempest,
	CategoryInfra,
	CategoryUncategorised,
}

// Valid reports whether c belongs to the taxonomy.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Failure is one classified cause of a build not succeeding.
//
// The detail is only reachable through SetDetail, which strips control
// sequences and caps it at MaxDetailLength characters.
type Failure struct {
	// Globally unique identifier.
	ID string
	// Name of the detector that produced the failure (e.g. "AptFailure").
	Type string
	// Taxonomy label.
	Category Category
	// Human-readable description of the detector.
	Description string
	// Id of the owning build.
	BuildID string

	detail string
}

// NewFailure creates a failure owned by buildID.
func NewFailure(id, buildID, typ, description string, category Category, detail string) *Failure {
	f := &Failure{
		ID:          id,
		Type:        typ,
		Category:    category,
		Description: description,
		BuildID:     buildID,
	}
	f.SetDetail(detail)
	return f
}

// Detail returns the sanitized detail string.
func (f *Failure) Detail() string {
	return f.detail
}

// SetDetail stores detail with control sequences removed and truncated to MaxDetailLength.
func (f *Failure) SetDetail(detail string) {
	f.detail = sanitize.Truncate(sanitize.Clean(detail), MaxDetailLength)
}

// failureJSON is the serialized form of a Failure.
type failureJSON struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Detail      string   `json:"detail"`
	BuildID     string   `json:"build_id"`
}

// MarshalJSON implements json.Marshaler.
func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(failureJSON{
		ID:          f.ID,
		Type:        f.Type,
		Category:    f.Category,
		Description: f.Description,
		Detail:      f.detail,
		BuildID:     f.BuildID,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The detail limits are applied on load too.
func (f *Failure) UnmarshalJSON(data []byte) error {
	var raw failureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.ID = raw.ID
	f.Type = raw.Type
	f.Category = raw.Category
	f.Description = raw.Description
	f.BuildID = raw.BuildID
	f.SetDetail(raw.Detail)
	return nil
}
